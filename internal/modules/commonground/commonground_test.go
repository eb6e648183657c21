package commonground

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/survey"
)

func civicSurvey(t *testing.T) *survey.Definition {
	t.Helper()
	def, err := survey.ParseFile(filepath.Join("..", "..", "survey", "testdata", "civic-2024.yaml"))
	require.NoError(t, err)
	return def
}

var ignoreTimestamps = cmpopts.IgnoreFields(alignment.TopicScoreUser{}, "UpdatedAt")

func TestResolveAnswersSkipsUnknownIDs(t *testing.T) {
	def := civicSurvey(t)
	got := ResolveAnswers(logger.Nop(), def, []Answer{
		{QuestionID: "q1", OptionID: "agree"},
		{QuestionID: "q1", OptionID: "no-such-option"},
		{QuestionID: "q404", OptionID: "agree"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, ResolvedAnswer{QuestionID: "q1", OptionID: "agree", TopicID: "economy", Score: 100}, got[0])
}

func TestResolveAnswersLastDuplicateWins(t *testing.T) {
	def := civicSurvey(t)
	got := ResolveAnswers(logger.Nop(), def, []Answer{
		{QuestionID: "q1", OptionID: "agree"},
		{QuestionID: "q3", OptionID: "agree"},
		{QuestionID: " q1 ", OptionID: "disagree"},
	})
	want := []ResolvedAnswer{
		{QuestionID: "q1", OptionID: "disagree", TopicID: "economy", Score: -100},
		{QuestionID: "q3", OptionID: "agree", TopicID: "climate", Score: 80},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ResolveAnswers mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAnswersNilDefinition(t *testing.T) {
	assert.Empty(t, ResolveAnswers(logger.Nop(), nil, []Answer{{QuestionID: "q1", OptionID: "agree"}}))
}

func TestBuildSubmissionMeanOfOpposites(t *testing.T) {
	def := civicSurvey(t)
	user := uuid.New()
	resolved := ResolveAnswers(logger.Nop(), def, []Answer{
		{QuestionID: "q1", OptionID: "disagree"},
		{QuestionID: "q2", OptionID: "agree"},
	})
	sub := BuildSubmission(user, def.Version, resolved, time.Now().UTC())

	require.Len(t, sub.Responses, 2)
	require.Len(t, sub.TopicScores, 1)
	ts := sub.TopicScores[0]
	assert.Equal(t, "economy", ts.TopicID)
	assert.Equal(t, 0.0, ts.MeanScore)
	assert.Equal(t, 2, ts.AnsweredCount)
	assert.Equal(t, alignment.TopicScoreKey(user, "civic-2024", "economy"), ts.ID)
	assert.Equal(t, alignment.ResponseKey(user, "civic-2024", "q1"), sub.Responses[0].ID)
	assert.Equal(t, []string{"economy"}, sub.TouchedTopics())
}

func TestBuildSubmissionIsIdempotentApartFromTimestamps(t *testing.T) {
	def := civicSurvey(t)
	user := uuid.New()
	answers := []Answer{
		{QuestionID: "q1", OptionID: "agree"},
		{QuestionID: "q2", OptionID: "somewhat"},
		{QuestionID: "q3", OptionID: "disagree"},
	}
	first := BuildSubmission(user, def.Version, ResolveAnswers(logger.Nop(), def, answers), time.Now())
	second := BuildSubmission(user, def.Version, ResolveAnswers(logger.Nop(), def, answers), time.Now().Add(time.Hour))

	if diff := cmp.Diff(first.TopicScores, second.TopicScores, ignoreTimestamps); diff != "" {
		t.Fatalf("topic scores differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Responses, second.Responses, cmpopts.IgnoreFields(alignment.Response{}, "AnsweredAt")); diff != "" {
		t.Fatalf("responses differ (-first +second):\n%s", diff)
	}
}

func TestRecomputeTopicScoresSortsAndFilters(t *testing.T) {
	user := uuid.New()
	other := uuid.New()
	now := time.Now()
	rows := []*alignment.Response{
		{UserID: user, SurveyVersion: "v", TopicID: "zeta", QuestionID: "z1", Score: 10},
		{UserID: user, SurveyVersion: "v", TopicID: "alpha", QuestionID: "a1", Score: 30},
		{UserID: user, SurveyVersion: "v", TopicID: "alpha", QuestionID: "a2", Score: -10},
		{UserID: user, SurveyVersion: "v", TopicID: "alpha", QuestionID: "a2", Score: 50},
		{UserID: other, SurveyVersion: "v", TopicID: "alpha", QuestionID: "a3", Score: 100},
		{UserID: user, SurveyVersion: "old", TopicID: "alpha", QuestionID: "a4", Score: 100},
		nil,
	}
	got := RecomputeTopicScores(user, "v", rows, now)
	want := []*alignment.TopicScoreUser{
		{ID: alignment.TopicScoreKey(user, "v", "alpha"), UserID: user, SurveyVersion: "v", TopicID: "alpha", MeanScore: 40, AnsweredCount: 2, UpdatedAt: now},
		{ID: alignment.TopicScoreKey(user, "v", "zeta"), UserID: user, SurveyVersion: "v", TopicID: "zeta", MeanScore: 10, AnsweredCount: 1, UpdatedAt: now},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("RecomputeTopicScores (-want +got):\n%s", diff)
	}
}

func scores(pairs map[string]float64) []*alignment.TopicScoreUser {
	out := make([]*alignment.TopicScoreUser, 0, len(pairs))
	for topic, mean := range pairs {
		out = append(out, &alignment.TopicScoreUser{TopicID: topic, MeanScore: mean, AnsweredCount: 1})
	}
	return out
}

func TestComparePartitionsSharedTopics(t *testing.T) {
	res := Compare(
		scores(map[string]float64{"t1": 50, "t2": -80}),
		scores(map[string]float64{"t1": 55, "t2": 80}),
	)
	assert.Equal(t, PairwiseResult{
		PairwisePct:  0.5,
		SharedTopics: 2,
		AgreedCount:  1,
		SafeTopics:   []string{"t1"},
		HotTopics:    []string{"t2"},
	}, res)
}

func TestCompareToleranceBoundaryIsInclusive(t *testing.T) {
	res := Compare(scores(map[string]float64{"t": 0}), scores(map[string]float64{"t": SafeTolerance}))
	assert.Equal(t, 1, res.AgreedCount)
	res = Compare(scores(map[string]float64{"t": 0}), scores(map[string]float64{"t": SafeTolerance + 0.5}))
	assert.Equal(t, 0, res.AgreedCount)
}

func TestCompareDisjointTopics(t *testing.T) {
	res := Compare(scores(map[string]float64{"a": 1}), scores(map[string]float64{"b": 1}))
	assert.Equal(t, 0.0, res.PairwisePct)
	assert.Equal(t, 0, res.SharedTopics)
	assert.NotNil(t, res.SafeTopics)
	assert.NotNil(t, res.HotTopics)

	empty := Compare(nil, nil)
	assert.Equal(t, 0, empty.SharedTopics)
}

func TestCompareIgnoresOneSidedTopics(t *testing.T) {
	res := Compare(
		scores(map[string]float64{"shared": 20, "onlyA": 100}),
		scores(map[string]float64{"shared": -20, "onlyB": -100}),
	)
	assert.Equal(t, 1, res.SharedTopics)
	assert.Equal(t, []string{"shared"}, res.HotTopics)
	assert.Empty(t, res.SafeTopics)
}

func TestNewGroupCodeUsesAlphabet(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		code, err := NewGroupCode()
		require.NoError(t, err)
		require.Len(t, code, GroupCodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(groupCodeAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 60)
}

func TestNewGroupCodeDeterministicReader(t *testing.T) {
	code, err := newGroupCodeFrom(bytes.NewReader([]byte{0, 1, 31, 32, 10, 18, 22, 27}))
	require.NoError(t, err)
	assert.Equal(t, "01Z0AJPV", code)

	_, err = newGroupCodeFrom(bytes.NewReader([]byte{1, 2}))
	assert.Error(t, err)
}

func TestGroupCodeMatches(t *testing.T) {
	assert.True(t, GroupCodeMatches("K7Q2M9XA", "k7q2-m9xa"))
	assert.True(t, GroupCodeMatches("10AB", " loab "))
	assert.False(t, GroupCodeMatches("K7Q2M9XA", "K7Q2M9XB"))
	assert.False(t, GroupCodeMatches("K7Q2M9XA", ""))
	assert.False(t, GroupCodeMatches("", ""))
}
