// Package memstore is an in-memory implementation of the table repos and of
// the aggregate transaction runner. Transactions stage writes in an overlay
// that is applied atomically at commit; commits are serialized store-wide.
// It backs DB_DRIVER=memory and the aggregate tests.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/commonground-backend/internal/data/repos"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

// ErrDuplicateKey is returned when an insert collides with an existing key.
var ErrDuplicateKey = fmt.Errorf("memstore: %w", gorm.ErrDuplicatedKey)

var errTxDone = errors.New("memstore: transaction already finished")

type Store struct {
	log *logger.Logger

	// writeMu serializes transactions; mu guards committed rows.
	writeMu sync.Mutex
	mu      sync.RWMutex

	responses   map[string]alignment.Response
	topicScores map[string]alignment.TopicScoreUser
	groups      map[uint64]alignment.Group
	members     map[alignment.MemberKey]alignment.GroupMember
	documents   map[string]alignment.SurveyDocument

	idMu        sync.Mutex
	nextGroupID uint64

	hookMu       sync.Mutex
	beforeCommit func(ctx context.Context) error
}

func New(log *logger.Logger) *Store {
	return &Store{
		log:         log.With("store", "memstore"),
		responses:   map[string]alignment.Response{},
		topicScores: map[string]alignment.TopicScoreUser{},
		groups:      map[uint64]alignment.Group{},
		members:     map[alignment.MemberKey]alignment.GroupMember{},
		documents:   map[string]alignment.SurveyDocument{},
	}
}

// SetBeforeCommit installs a hook run after a transaction body succeeds and
// before its writes are applied. A non-nil error rolls the transaction back.
func (s *Store) SetBeforeCommit(fn func(ctx context.Context) error) {
	s.hookMu.Lock()
	s.beforeCommit = fn
	s.hookMu.Unlock()
}

// Repos returns the table repos backed by this store.
func (s *Store) Repos() repos.Set {
	return repos.Set{
		Responses:       &responseRepo{s: s},
		TopicScores:     &topicScoreRepo{s: s},
		Groups:          &groupRepo{s: s},
		GroupMembers:    &groupMemberRepo{s: s},
		SurveyDocuments: &surveyDocumentRepo{s: s},
	}
}

type txKey struct{}

type memTx struct {
	store *Store
	done  bool

	responses   *overlay[string, alignment.Response]
	topicScores *overlay[string, alignment.TopicScoreUser]
	groups      *overlay[uint64, alignment.Group]
	members     *overlay[alignment.MemberKey, alignment.GroupMember]
	documents   *overlay[string, alignment.SurveyDocument]
}

func (s *Store) txFrom(dbc dbctx.Context) *memTx {
	tx, _ := dbc.Context().Value(txKey{}).(*memTx)
	if tx == nil || tx.store != s {
		return nil
	}
	return tx
}

// InTx runs fn inside a transaction. Nested calls on the same store join the
// outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if outer := s.txFrom(dbctx.Context{Ctx: ctx}); outer != nil && !outer.done {
		return fn(dbctx.Context{Ctx: ctx})
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx := &memTx{
		store:       s,
		responses:   newOverlay[string, alignment.Response](),
		topicScores: newOverlay[string, alignment.TopicScoreUser](),
		groups:      newOverlay[uint64, alignment.Group](),
		members:     newOverlay[alignment.MemberKey, alignment.GroupMember](),
		documents:   newOverlay[string, alignment.SurveyDocument](),
	}
	defer func() { tx.done = true }()

	if err := fn(dbctx.Context{Ctx: context.WithValue(ctx, txKey{}, tx)}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.hookMu.Lock()
	hook := s.beforeCommit
	s.hookMu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	tx.responses.applyTo(s.responses)
	tx.topicScores.applyTo(s.topicScores)
	tx.groups.applyTo(s.groups)
	tx.members.applyTo(s.members)
	tx.documents.applyTo(s.documents)
	s.mu.Unlock()
	return nil
}

func (s *Store) allocGroupID() uint64 {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	s.nextGroupID++
	return s.nextGroupID
}

// write runs stage inside the caller's transaction, or applies it directly
// under the store lock when there is none.
func (s *Store) write(dbc dbctx.Context, stage func(tx *memTx) error) error {
	if tx := s.txFrom(dbc); tx != nil {
		if tx.done {
			return errTxDone
		}
		return stage(tx)
	}
	return s.InTx(dbc.Context(), func(inner dbctx.Context) error {
		return stage(s.txFrom(inner))
	})
}

// read gives view access to rows as seen by the caller's transaction.
func (s *Store) read(dbc dbctx.Context, view func(tx *memTx)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view(s.txFrom(dbc))
}

// Counts reports committed row counts, for tests and diagnostics.
type Counts struct {
	Responses   int
	TopicScores int
	Groups      int
	Members     int
	Documents   int
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Responses:   len(s.responses),
		TopicScores: len(s.topicScores),
		Groups:      len(s.groups),
		Members:     len(s.members),
		Documents:   len(s.documents),
	}
}

func memberKey(groupID uint64, userID uuid.UUID) alignment.MemberKey {
	return alignment.MemberKey{GroupID: groupID, UserID: userID}
}
