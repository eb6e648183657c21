package aggregates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/commonground-backend/internal/domain/alignment"
)

var GroupAggregateContract = Contract{
	Name:             "CommonGround.Group",
	WriteTxOwnership: WriteTxOwnedByCaller,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Creation spans two transactions (group, then owner membership) because the group id is " +
		"store-assigned. A group left without members is reclaimed by DeleteIfEmpty during the orphan sweep.",
}

var (
	ErrGroupNotFound    = errors.New("group not found")
	ErrInvalidGroupCode = errors.New("invalid group code")
	ErrAlreadyMember    = errors.New("already a member of this group")
	ErrGroupHasOwner    = errors.New("group already has an owner")
)

// GroupAggregate owns group and membership invariants.
//
// Write failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeAlreadyExists, CodePreconditionFailed,
// CodeInvariantViolation, CodeConflict, CodeRetryable, CodeInternal.
type GroupAggregate interface {
	Aggregate

	// CreateGroup inserts the group row and commits, yielding the store-assigned id.
	CreateGroup(ctx context.Context, in CreateGroupInput) (CreateGroupResult, error)

	// AddOwner inserts the owner membership for a group created by CreateGroup.
	AddOwner(ctx context.Context, in AddGroupOwnerInput) (AddGroupOwnerResult, error)

	// Join verifies the group code and inserts a member row, retrying transient conflicts.
	Join(ctx context.Context, in JoinGroupInput) (JoinGroupResult, error)

	// DeleteIfEmpty removes a group that still has no members and was created before the cutoff.
	DeleteIfEmpty(ctx context.Context, in DeleteEmptyGroupInput) (DeleteEmptyGroupResult, error)
}

type CreateGroupInput struct {
	OwnerUserID   uuid.UUID
	Nickname      string
	SurveyVersion string
	GroupCode     string
	CreatedAt     time.Time
}

type CreateGroupResult struct {
	Group *alignment.Group
}

type AddGroupOwnerInput struct {
	GroupID     uint64
	OwnerUserID uuid.UUID
	Alias       string
	JoinedAt    time.Time
}

type AddGroupOwnerResult struct {
	Member *alignment.GroupMember
}

type JoinGroupInput struct {
	GroupID       uint64
	UserID        uuid.UUID
	PresentedCode string
	Alias         string
	JoinedAt      time.Time
}

type JoinGroupResult struct {
	Member   *alignment.GroupMember
	Attempts int
}

type DeleteEmptyGroupInput struct {
	GroupID       uint64
	CreatedBefore time.Time
}

type DeleteEmptyGroupResult struct {
	Deleted bool
}
