package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/commonground-backend/internal/data/aggregates"
	"github.com/yungbote/commonground-backend/internal/data/memstore"
	"github.com/yungbote/commonground-backend/internal/data/repos"
	domainagg "github.com/yungbote/commonground-backend/internal/domain/aggregates"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/modules/commonground"
	"github.com/yungbote/commonground-backend/internal/observability"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/survey"
)

const civic = "civic-2024"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	store     *memstore.Store
	repos     repos.Set
	catalog   *survey.Catalog
	clock     *clock
	metrics   *observability.Metrics
	groupAgg  domainagg.GroupAggregate
	surveys   SurveyService
	alignment AlignmentService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.Nop()
	cat, err := survey.LoadDir(filepath.Join("..", "survey", "testdata"), log)
	require.NoError(t, err)

	store := memstore.New(log)
	set := store.Repos()
	base := aggregates.BaseDeps{Log: log, Runner: store}
	e := &env{
		store:   store,
		repos:   set,
		catalog: cat,
		clock:   &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
		metrics: observability.New(),
	}
	e.groupAgg = aggregates.NewGroupAggregate(aggregates.GroupAggregateDeps{
		Base:      base,
		JoinRetry: aggregates.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Groups:    set.Groups,
		Members:   set.GroupMembers,
	})
	e.surveys = NewSurveyService(log, SurveyServiceDeps{
		Provider: cat,
		Submissions: aggregates.NewSurveySubmissionAggregate(aggregates.SurveySubmissionAggregateDeps{
			Base: base, Responses: set.Responses, TopicScores: set.TopicScores,
		}),
		Documents: aggregates.NewSurveyDocumentAggregate(aggregates.SurveyDocumentAggregateDeps{
			Base: base, Documents: set.SurveyDocuments,
		}),
		TopicScores: set.TopicScores,
		Metrics:     e.metrics,
		Now:         e.clock.Now,
	})
	e.alignment = NewAlignmentService(log, cat, set.TopicScores)
	return e
}

func (e *env) groups(mut func(*GroupServiceDeps)) GroupService {
	deps := GroupServiceDeps{
		Provider:       e.catalog,
		Groups:         e.repos.Groups,
		Members:        e.repos.GroupMembers,
		TopicScores:    e.repos.TopicScores,
		Aggregate:      e.groupAgg,
		Metrics:        e.metrics,
		DefaultVersion: civic,
		Now:            e.clock.Now,
	}
	if mut != nil {
		mut(&deps)
	}
	return NewGroupService(logger.Nop(), deps)
}

func (e *env) submit(t *testing.T, user uuid.UUID, answers ...commonground.Answer) SubmitResult {
	t.Helper()
	res, err := e.surveys.Submit(context.Background(), user, civic, answers)
	require.NoError(t, err)
	return res
}

func TestSubmitSkipsUnknownAnswersAndPersistsScores(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()

	res := e.submit(t, user,
		commonground.Answer{QuestionID: "q1", OptionID: "agree"},
		commonground.Answer{QuestionID: "q2", OptionID: "disagree"},
		commonground.Answer{QuestionID: "nope", OptionID: "agree"},
		commonground.Answer{QuestionID: "q3", OptionID: "maybe"},
	)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 2, res.Skipped)

	scores, err := e.surveys.TopicScores(context.Background(), user, civic)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "economy", scores[0].TopicID)
	assert.Equal(t, 0.0, scores[0].MeanScore)
	assert.Equal(t, 2, scores[0].AnsweredCount)
}

func TestSubmitTwiceIsIdempotent(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()
	answers := []commonground.Answer{{QuestionID: "q1", OptionID: "agree"}, {QuestionID: "q4", OptionID: "disagree"}}

	e.submit(t, user, answers...)
	first, err := e.surveys.TopicScores(context.Background(), user, civic)
	require.NoError(t, err)
	e.submit(t, user, answers...)
	second, err := e.surveys.TopicScores(context.Background(), user, civic)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, e.store.Counts().Responses)
}

func TestSubmitInputFailures(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()

	_, err := e.surveys.Submit(context.Background(), user, civic, nil)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = e.surveys.Submit(context.Background(), user, "civic-1999", []commonground.Answer{{QuestionID: "q1", OptionID: "agree"}})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
	assert.ErrorIs(t, err, ErrSurveyNotFound)

	res, err := e.surveys.Submit(context.Background(), user, civic, []commonground.Answer{{QuestionID: "zz", OptionID: "agree"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 0, e.store.Counts().Responses)
}

func TestTopicScoresEmptyIsNonNil(t *testing.T) {
	e := newEnv(t)
	scores, err := e.surveys.TopicScores(context.Background(), uuid.New(), civic)
	require.NoError(t, err)
	assert.NotNil(t, scores)
	assert.Empty(t, scores)
}

func TestPublishThroughService(t *testing.T) {
	e := newEnv(t)
	def, err := e.catalog.Get(context.Background(), civic)
	require.NoError(t, err)

	created, err := e.surveys.Publish(context.Background(), def)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = e.surveys.Publish(context.Background(), def)
	require.NoError(t, err)
	assert.False(t, created)

	doc, err := e.repos.SurveyDocuments.GetByVersion(dbctx.Background(), civic)
	require.NoError(t, err)
	require.NotNil(t, doc)
	parsed, err := survey.Parse(doc.Document, survey.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, def.Version, parsed.Version)
	assert.Len(t, parsed.Questions, len(def.Questions))
}

func TestComparePairwiseAgreement(t *testing.T) {
	e := newEnv(t)
	a, b := uuid.New(), uuid.New()
	e.submit(t, a, commonground.Answer{QuestionID: "q1", OptionID: "agree"}, commonground.Answer{QuestionID: "q3", OptionID: "agree"})
	e.submit(t, b, commonground.Answer{QuestionID: "q1", OptionID: "agree"}, commonground.Answer{QuestionID: "q3", OptionID: "disagree"})

	res, err := e.alignment.Compare(context.Background(), a, b, civic)
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.PairwisePct)
	assert.Equal(t, 2, res.SharedTopics)
	assert.Equal(t, 1, res.AgreedCount)
	assert.Equal(t, []string{"economy"}, res.SafeTopics)
	assert.Equal(t, []string{"climate"}, res.HotTopics)

	self, err := e.alignment.Compare(context.Background(), a, a, civic)
	require.NoError(t, err)
	assert.Equal(t, 1.0, self.PairwisePct)
}

func TestCompareWithoutSharedTopics(t *testing.T) {
	e := newEnv(t)
	a, b := uuid.New(), uuid.New()
	e.submit(t, a, commonground.Answer{QuestionID: "q1", OptionID: "agree"})
	e.submit(t, b, commonground.Answer{QuestionID: "q4", OptionID: "agree"})

	res, err := e.alignment.Compare(context.Background(), a, b, civic)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.PairwisePct)
	assert.Equal(t, 0, res.SharedTopics)
	assert.Empty(t, res.SafeTopics)
	assert.Empty(t, res.HotTopics)

	_, err = e.alignment.Compare(context.Background(), a, b, "unknown")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestCreateGroupProvisionsOwner(t *testing.T) {
	e := newEnv(t)
	svc := e.groups(nil)
	owner := uuid.New()

	created, err := svc.Create(context.Background(), owner, "", "")
	require.NoError(t, err)
	assert.NotZero(t, created.GroupID)
	assert.Len(t, created.GroupCode, commonground.GroupCodeLength)

	g, err := e.repos.Groups.GetByID(dbctx.Background(), created.GroupID)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, DefaultGroupNickname, g.Nickname)
	assert.Equal(t, civic, g.SurveyVersion)

	members, err := svc.Members(context.Background(), created.GroupID, owner)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, alignment.RoleOwner, members[0].Role)
	assert.Equal(t, owner, members[0].UserID)
}

func TestCreateGroupRejectsUnknownVersion(t *testing.T) {
	e := newEnv(t)
	_, err := e.groups(nil).Create(context.Background(), uuid.New(), "club", "nope-2000")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	assert.ErrorIs(t, err, ErrSurveyNotFound)
	assert.Equal(t, 0, e.store.Counts().Groups)
}

func TestCreateGroupRegeneratesCollidingCode(t *testing.T) {
	e := newEnv(t)
	codes := []string{"AAAA1111", "AAAA1111", "BBBB2222"}
	var mu sync.Mutex
	next := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	svc := e.groups(func(d *GroupServiceDeps) { d.NewCode = next })

	first, err := svc.Create(context.Background(), uuid.New(), "a", civic)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), uuid.New(), "b", civic)
	require.NoError(t, err)
	assert.Equal(t, "AAAA1111", first.GroupCode)
	assert.Equal(t, "BBBB2222", second.GroupCode)

	always := func() (string, error) { return "AAAA1111", nil }
	_, err = e.groups(func(d *GroupServiceDeps) { d.NewCode = always }).Create(context.Background(), uuid.New(), "c", civic)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeInternal))
	assert.ErrorIs(t, err, ErrGroupProvisioning)
	assert.False(t, domainagg.IsCode(err, domainagg.CodeConflict))
}

type failingOwnerAggregate struct {
	domainagg.GroupAggregate
	err error
}

func (a failingOwnerAggregate) AddOwner(context.Context, domainagg.AddGroupOwnerInput) (domainagg.AddGroupOwnerResult, error) {
	return domainagg.AddGroupOwnerResult{}, a.err
}

func TestCreateGroupOwnerFailureLeavesOrphanForSweep(t *testing.T) {
	e := newEnv(t)
	broken := e.groups(func(d *GroupServiceDeps) {
		d.Aggregate = failingOwnerAggregate{e.groupAgg, domainagg.NewError(domainagg.CodeInternal, "test.AddOwner", "member write failed", nil)}
	})

	_, err := broken.Create(context.Background(), uuid.New(), "gap", civic)
	require.ErrorIs(t, err, ErrGroupProvisioning)
	assert.Equal(t, 1, e.store.Counts().Groups)
	assert.Equal(t, 0, e.store.Counts().Members)

	healthy := e.groups(nil)
	n, err := healthy.SweepOrphans(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "orphans inside the grace period are kept")

	e.clock.Advance(time.Hour)
	n, err = healthy.SweepOrphans(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, e.store.Counts().Groups)
}

func TestCreateGroupOwnerFailureHidesCause(t *testing.T) {
	causes := []error{
		domainagg.NewError(domainagg.CodeNotFound, "test.AddOwner", "group 1 not found", domainagg.ErrGroupNotFound),
		domainagg.NewError(domainagg.CodeRetryable, "test.AddOwner", "database is locked", nil),
		domainagg.NewError(domainagg.CodeConflict, "test.AddOwner", "UNIQUE constraint failed: alignment_group_member.group_id", nil),
	}
	for _, cause := range causes {
		e := newEnv(t)
		svc := e.groups(func(d *GroupServiceDeps) { d.Aggregate = failingOwnerAggregate{e.groupAgg, cause} })

		_, err := svc.Create(context.Background(), uuid.New(), "gap", civic)
		require.ErrorIs(t, err, ErrGroupProvisioning)
		assert.Equal(t, domainagg.CodeInternal, domainagg.CodeOf(err))
		assert.NotErrorIs(t, err, domainagg.ErrGroupNotFound)
		assert.NotContains(t, err.Error(), "UNIQUE")
		assert.NotContains(t, err.Error(), "locked")
	}
}

func TestSweepLeavesPopulatedGroups(t *testing.T) {
	e := newEnv(t)
	svc := e.groups(nil)
	_, err := svc.Create(context.Background(), uuid.New(), "keep", civic)
	require.NoError(t, err)
	e.clock.Advance(24 * time.Hour)

	n, err := svc.SweepOrphans(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, e.store.Counts().Groups)
}

func TestJoinAndGroupAlignment(t *testing.T) {
	e := newEnv(t)
	svc := e.groups(nil)
	owner, friend, stranger := uuid.New(), uuid.New(), uuid.New()
	created, err := svc.Create(context.Background(), owner, "friends", civic)
	require.NoError(t, err)

	require.NoError(t, svc.Join(context.Background(), created.GroupID, friend, " "+created.GroupCode+" ", "pat"))
	err = svc.Join(context.Background(), created.GroupID, friend, created.GroupCode, "pat")
	assert.ErrorIs(t, err, domainagg.ErrAlreadyMember)
	err = svc.Join(context.Background(), created.GroupID, stranger, "ZZZZ9999", "")
	assert.ErrorIs(t, err, domainagg.ErrInvalidGroupCode)

	e.submit(t, owner, commonground.Answer{QuestionID: "q1", OptionID: "agree"}, commonground.Answer{QuestionID: "q4", OptionID: "agree"})
	e.submit(t, friend, commonground.Answer{QuestionID: "q1", OptionID: "agree"}, commonground.Answer{QuestionID: "q4", OptionID: "disagree"})

	results, err := svc.Alignment(context.Background(), created.GroupID, owner)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, friend, results[0].UserID)
	assert.Equal(t, "pat", results[0].Alias)
	assert.Equal(t, 0.5, results[0].PairwisePct)

	_, err = svc.Alignment(context.Background(), created.GroupID, stranger)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
	assert.ErrorIs(t, err, ErrNotGroupMember)
	_, err = svc.Members(context.Background(), created.GroupID+50, owner)
	assert.ErrorIs(t, err, domainagg.ErrGroupNotFound)
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, uint64, uuid.UUID) (bool, error) { return false, nil }

func TestJoinRateLimited(t *testing.T) {
	e := newEnv(t)
	created, err := e.groups(nil).Create(context.Background(), uuid.New(), "locked", civic)
	require.NoError(t, err)

	svc := e.groups(func(d *GroupServiceDeps) { d.Limiter = denyLimiter{} })
	err = svc.Join(context.Background(), created.GroupID, uuid.New(), created.GroupCode, "")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, 1, e.store.Counts().Members)
}

func TestJoinOutcomeLabels(t *testing.T) {
	assert.Equal(t, "not_found", joinOutcome(domainagg.NewError(domainagg.CodeNotFound, "op", "x", domainagg.ErrGroupNotFound)))
	assert.Equal(t, "invalid_code", joinOutcome(domainagg.NewError(domainagg.CodeValidation, "op", "x", domainagg.ErrInvalidGroupCode)))
	assert.Equal(t, "already_member", joinOutcome(domainagg.NewError(domainagg.CodeAlreadyExists, "op", "x", domainagg.ErrAlreadyMember)))
	assert.Equal(t, "retryable", joinOutcome(domainagg.NewError(domainagg.CodeRetryable, "op", "x", errors.New("busy"))))
}
