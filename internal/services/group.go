package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/commonground-backend/internal/data/repos"
	domainagg "github.com/yungbote/commonground-backend/internal/domain/aggregates"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/modules/commonground"
	"github.com/yungbote/commonground-backend/internal/observability"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/survey"
)

const (
	DefaultGroupNickname = "Group"
	groupCodeAttempts    = 3
	sweepBatchSize       = 100
	alignmentFanOut      = 8
)

type CreatedGroup struct {
	GroupID   uint64 `json:"groupId"`
	GroupCode string `json:"groupCode"`
}

// MemberAlignment is the caller's pairwise result against one other member.
type MemberAlignment struct {
	UserID uuid.UUID `json:"userId"`
	Alias  string    `json:"alias"`
	commonground.PairwiseResult
}

type GroupService interface {
	Create(ctx context.Context, ownerID uuid.UUID, nickname, version string) (CreatedGroup, error)
	Join(ctx context.Context, groupID uint64, userID uuid.UUID, code, alias string) error
	Members(ctx context.Context, groupID uint64, callerID uuid.UUID) ([]*alignment.GroupMember, error)
	Alignment(ctx context.Context, groupID uint64, callerID uuid.UUID) ([]MemberAlignment, error)
	SweepOrphans(ctx context.Context, grace time.Duration) (int, error)
}

type GroupServiceDeps struct {
	Provider       survey.Provider
	Groups         repos.GroupRepo
	Members        repos.GroupMemberRepo
	TopicScores    repos.TopicScoreRepo
	Aggregate      domainagg.GroupAggregate
	Limiter        JoinLimiter
	Metrics        *observability.Metrics
	DefaultVersion string
	NewCode        func() (string, error)
	Now            func() time.Time
}

type groupService struct {
	log  *logger.Logger
	deps GroupServiceDeps
}

func NewGroupService(baseLog *logger.Logger, deps GroupServiceDeps) GroupService {
	if deps.Limiter == nil {
		deps.Limiter = NewNoopJoinLimiter()
	}
	if deps.NewCode == nil {
		deps.NewCode = commonground.NewGroupCode
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &groupService{log: baseLog.With("service", "GroupService"), deps: deps}
}

// Create provisions a group in two transactions: the group row, then the
// owner membership. If the second fails the group row stays behind for the
// orphan sweep.
func (s *groupService) Create(ctx context.Context, ownerID uuid.UUID, nickname, version string) (CreatedGroup, error) {
	const op = "GroupService.Create"
	var out CreatedGroup
	ctx, span := observability.StartSpan(ctx, op)
	defer span.End()

	if ownerID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing owner", nil)
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = DefaultGroupNickname
	}
	version = strings.TrimSpace(version)
	if version == "" {
		version = s.deps.DefaultVersion
	}
	def, err := resolveVersion(ctx, s.deps.Provider, op, version)
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeNotFound) {
			// unknown version is a caller input problem here
			return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown survey version %q", version), ErrSurveyNotFound)
		}
		return out, err
	}

	now := s.deps.Now().UTC()
	var created domainagg.CreateGroupResult
	for attempt := 1; ; attempt++ {
		code, err := s.deps.NewCode()
		if err != nil {
			s.deps.Metrics.IncGroupCreated("code_error")
			return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		created, err = s.deps.Aggregate.CreateGroup(ctx, domainagg.CreateGroupInput{
			OwnerUserID:   ownerID,
			Nickname:      nickname,
			SurveyVersion: def.Version,
			GroupCode:     code,
			CreatedAt:     now,
		})
		if err == nil {
			break
		}
		if domainagg.IsCode(err, domainagg.CodeConflict) && attempt < groupCodeAttempts {
			s.log.Warn("group code collision, regenerating", "attempt", attempt)
			continue
		}
		s.deps.Metrics.IncGroupCreated("group_failed")
		s.log.Error("group insert failed", "owner_user_id", ownerID, "attempts", attempt, "error", err)
		return out, domainagg.NewError(domainagg.CodeInternal, op, "group provisioning failed", ErrGroupProvisioning)
	}

	groupID := created.Group.ID
	span.SetAttributes(attribute.Int64("group.id", int64(groupID)))
	if _, err := s.deps.Aggregate.AddOwner(ctx, domainagg.AddGroupOwnerInput{
		GroupID:     groupID,
		OwnerUserID: ownerID,
		JoinedAt:    now,
	}); err != nil {
		s.deps.Metrics.IncGroupCreated("owner_failed")
		s.log.Error("owner membership failed, group left without members",
			"group_id", groupID,
			"owner_user_id", ownerID,
			"error", err,
		)
		return out, domainagg.NewError(domainagg.CodeInternal, op, "group provisioning failed", ErrGroupProvisioning)
	}

	s.deps.Metrics.IncGroupCreated("ok")
	s.log.Info("group created", "group_id", groupID, "owner_user_id", ownerID, "version", def.Version)
	out.GroupID = groupID
	out.GroupCode = created.Group.GroupCode
	return out, nil
}

func (s *groupService) Join(ctx context.Context, groupID uint64, userID uuid.UUID, code, alias string) error {
	const op = "GroupService.Join"
	ctx, span := observability.StartSpan(ctx, op, attribute.Int64("group.id", int64(groupID)))
	defer span.End()

	if groupID == 0 || userID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing group or user", nil)
	}
	allowed, err := s.deps.Limiter.Allow(ctx, groupID, userID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !allowed {
		s.deps.Metrics.IncJoinAttempt("rate_limited")
		s.log.Warn("join attempts exhausted", "group_id", groupID, "user_id", userID)
		return domainagg.NewError(domainagg.CodePreconditionFailed, op, "too many join attempts", ErrTooManyAttempts)
	}

	res, err := s.deps.Aggregate.Join(ctx, domainagg.JoinGroupInput{
		GroupID:       groupID,
		UserID:        userID,
		PresentedCode: code,
		Alias:         alias,
		JoinedAt:      s.deps.Now().UTC(),
	})
	if err != nil {
		s.deps.Metrics.IncJoinAttempt(joinOutcome(err))
		s.log.Info("join rejected", "group_id", groupID, "user_id", userID, "reason", domainagg.CodeOf(err), "attempts", res.Attempts)
		return err
	}
	s.deps.Metrics.IncJoinAttempt("ok")
	s.log.Info("group joined", "group_id", groupID, "user_id", userID, "attempts", res.Attempts)
	return nil
}

func joinOutcome(err error) string {
	switch {
	case errors.Is(err, domainagg.ErrGroupNotFound):
		return "not_found"
	case errors.Is(err, domainagg.ErrInvalidGroupCode):
		return "invalid_code"
	case errors.Is(err, domainagg.ErrAlreadyMember):
		return "already_member"
	default:
		return string(domainagg.CodeOf(err))
	}
}

// membership returns the group's members if callerID is one of them.
func (s *groupService) membership(ctx context.Context, op string, groupID uint64, callerID uuid.UUID) (*alignment.Group, []*alignment.GroupMember, error) {
	dbc := dbctx.Context{Ctx: ctx}
	g, err := s.deps.Groups.GetByID(dbc, groupID)
	if err != nil {
		return nil, nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if g == nil {
		return nil, nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("group %d not found", groupID), domainagg.ErrGroupNotFound)
	}
	members, err := s.deps.Members.ListByGroup(dbc, groupID)
	if err != nil {
		return nil, nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	for _, m := range members {
		if m.UserID == callerID {
			return g, members, nil
		}
	}
	return nil, nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("group %d not found", groupID), ErrNotGroupMember)
}

func (s *groupService) Members(ctx context.Context, groupID uint64, callerID uuid.UUID) ([]*alignment.GroupMember, error) {
	_, members, err := s.membership(ctx, "GroupService.Members", groupID, callerID)
	return members, err
}

// Alignment compares the caller with every other member on the group's survey version.
func (s *groupService) Alignment(ctx context.Context, groupID uint64, callerID uuid.UUID) ([]MemberAlignment, error) {
	const op = "GroupService.Alignment"
	ctx, span := observability.StartSpan(ctx, op, attribute.Int64("group.id", int64(groupID)))
	defer span.End()

	g, members, err := s.membership(ctx, op, groupID, callerID)
	if err != nil {
		return nil, err
	}
	mine, err := s.deps.TopicScores.ListByUserVersion(dbctx.Context{Ctx: ctx}, callerID, g.SurveyVersion)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	others := make([]*alignment.GroupMember, 0, len(members))
	for _, m := range members {
		if m.UserID != callerID {
			others = append(others, m)
		}
	}
	out := make([]MemberAlignment, len(others))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(alignmentFanOut)
	for i, m := range others {
		eg.Go(func() error {
			theirs, err := s.deps.TopicScores.ListByUserVersion(dbctx.Context{Ctx: gctx}, m.UserID, g.SurveyVersion)
			if err != nil {
				return err
			}
			out[i] = MemberAlignment{UserID: m.UserID, Alias: m.Alias, PairwiseResult: commonground.Compare(mine, theirs)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return out, nil
}

// SweepOrphans deletes memberless groups older than grace. Each deletion
// re-checks emptiness in its own transaction.
func (s *groupService) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	const op = "GroupService.SweepOrphans"
	if grace < 0 {
		return 0, domainagg.NewError(domainagg.CodeValidation, op, "grace must not be negative", nil)
	}
	cutoff := s.deps.Now().UTC().Add(-grace)
	deleted := 0
	for {
		candidates, err := s.deps.Groups.ListEmptyCreatedBefore(dbctx.Context{Ctx: ctx}, cutoff, sweepBatchSize)
		if err != nil {
			return deleted, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		removedThisRound := 0
		for _, g := range candidates {
			res, err := s.deps.Aggregate.DeleteIfEmpty(ctx, domainagg.DeleteEmptyGroupInput{GroupID: g.ID, CreatedBefore: cutoff})
			if err != nil {
				s.log.Warn("orphan sweep skipped group", "group_id", g.ID, "error", err)
				continue
			}
			if res.Deleted {
				removedThisRound++
				s.log.Info("orphan group deleted", "group_id", g.ID, "created_at", g.CreatedAt)
			}
		}
		deleted += removedThisRound
		if len(candidates) < sweepBatchSize || removedThisRound == 0 {
			break
		}
	}
	s.deps.Metrics.AddOrphansSwept(deleted)
	return deleted, nil
}
