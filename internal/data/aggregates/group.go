package aggregates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/commonground-backend/internal/data/repos"
	domainagg "github.com/yungbote/commonground-backend/internal/domain/aggregates"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/modules/commonground"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
)

type GroupAggregateDeps struct {
	Base      BaseDeps
	JoinRetry RetryPolicy

	Groups  repos.GroupRepo
	Members repos.GroupMemberRepo
}

type groupAggregate struct {
	deps GroupAggregateDeps
}

func NewGroupAggregate(deps GroupAggregateDeps) domainagg.GroupAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.JoinRetry.MaxAttempts <= 0 {
		deps.JoinRetry = DefaultJoinRetry
	}
	return &groupAggregate{deps: deps}
}

func (a *groupAggregate) Contract() domainagg.Contract {
	return domainagg.GroupAggregateContract
}

func (a *groupAggregate) configured() bool {
	return a.deps.Groups != nil && a.deps.Members != nil
}

func (a *groupAggregate) CreateGroup(ctx context.Context, in domainagg.CreateGroupInput) (domainagg.CreateGroupResult, error) {
	const op = "CommonGround.Group.CreateGroup"
	var out domainagg.CreateGroupResult
	nickname := strings.TrimSpace(in.Nickname)
	version := strings.TrimSpace(in.SurveyVersion)
	code := commonground.NormalizeGroupCode(in.GroupCode)
	if in.OwnerUserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing owner_user_id", nil)
	}
	if nickname == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing nickname", nil)
	}
	if version == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing survey_version", nil)
	}
	if code == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing group code", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "group aggregate repos not configured", nil)
	}

	now := utcOrNow(in.CreatedAt)
	g := &alignment.Group{
		OwnerUserID:   in.OwnerUserID,
		Nickname:      nickname,
		SurveyVersion: version,
		GroupCode:     code,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		return a.deps.Groups.Create(dbc, g)
	})
	if err != nil {
		return out, err
	}
	out.Group = g
	return out, nil
}

func (a *groupAggregate) AddOwner(ctx context.Context, in domainagg.AddGroupOwnerInput) (domainagg.AddGroupOwnerResult, error) {
	const op = "CommonGround.Group.AddOwner"
	var out domainagg.AddGroupOwnerResult
	if in.GroupID == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing group_id", nil)
	}
	if in.OwnerUserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing owner_user_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "group aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		g, err := a.deps.Groups.LockByID(dbc, in.GroupID)
		if err != nil {
			return err
		}
		if g == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("group %d not found", in.GroupID), domainagg.ErrGroupNotFound)
		}
		if g.OwnerUserID != in.OwnerUserID {
			return InvariantError("owner membership must belong to the group's owner")
		}
		members, err := a.deps.Members.ListByGroup(dbc, in.GroupID)
		if err != nil {
			return err
		}
		for _, m := range members {
			if m.Role == alignment.RoleOwner {
				return domainagg.NewError(domainagg.CodeAlreadyExists, op, "owner already added", domainagg.ErrGroupHasOwner)
			}
		}
		m := &alignment.GroupMember{
			GroupID:  in.GroupID,
			UserID:   in.OwnerUserID,
			Role:     alignment.RoleOwner,
			Alias:    strings.TrimSpace(in.Alias),
			JoinedAt: utcOrNow(in.JoinedAt),
		}
		if err := a.deps.Members.Create(dbc, m); err != nil {
			return err
		}
		out.Member = m
		return nil
	})
	return out, err
}

func (a *groupAggregate) Join(ctx context.Context, in domainagg.JoinGroupInput) (domainagg.JoinGroupResult, error) {
	const op = "CommonGround.Group.Join"
	var out domainagg.JoinGroupResult
	if in.GroupID == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing group_id", nil)
	}
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "group aggregate repos not configured", nil)
	}

	attempts, err := executeWriteWithRetry(ctx, a.deps.Base, a.deps.JoinRetry, op, func(dbc dbctx.Context) error {
		out.Member = nil
		g, err := a.deps.Groups.LockByID(dbc, in.GroupID)
		if err != nil {
			return err
		}
		if g == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("group %d not found", in.GroupID), domainagg.ErrGroupNotFound)
		}
		if !commonground.GroupCodeMatches(g.GroupCode, in.PresentedCode) {
			return domainagg.NewError(domainagg.CodeValidation, op, "group code does not match", domainagg.ErrInvalidGroupCode)
		}
		existing, err := a.deps.Members.Get(dbc, in.GroupID, in.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domainagg.NewError(domainagg.CodeAlreadyExists, op, "user already joined", domainagg.ErrAlreadyMember)
		}
		m := &alignment.GroupMember{
			GroupID:  in.GroupID,
			UserID:   in.UserID,
			Role:     alignment.RoleMember,
			Alias:    strings.TrimSpace(in.Alias),
			JoinedAt: utcOrNow(in.JoinedAt),
		}
		if err := a.deps.Members.Create(dbc, m); err != nil {
			return err
		}
		out.Member = m
		return nil
	})
	out.Attempts = attempts
	if err != nil {
		out.Member = nil
		return out, err
	}
	return out, nil
}

func (a *groupAggregate) DeleteIfEmpty(ctx context.Context, in domainagg.DeleteEmptyGroupInput) (domainagg.DeleteEmptyGroupResult, error) {
	const op = "CommonGround.Group.DeleteIfEmpty"
	var out domainagg.DeleteEmptyGroupResult
	if in.GroupID == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing group_id", nil)
	}
	if in.CreatedBefore.IsZero() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing cutoff", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "group aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out.Deleted = false
		g, err := a.deps.Groups.LockByID(dbc, in.GroupID)
		if err != nil {
			return err
		}
		if g == nil || !g.CreatedAt.Before(in.CreatedBefore) {
			return nil
		}
		n, err := a.deps.Members.CountByGroup(dbc, in.GroupID)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := a.deps.Groups.DeleteByID(dbc, in.GroupID); err != nil {
			return err
		}
		out.Deleted = true
		return nil
	})
	return out, err
}
