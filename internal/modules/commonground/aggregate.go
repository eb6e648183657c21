package commonground

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/commonground-backend/internal/domain/alignment"
)

// Submission is the record set produced from one validated batch.
type Submission struct {
	Responses   []*alignment.Response
	TopicScores []*alignment.TopicScoreUser
}

// TouchedTopics returns the sorted topic ids present in the submission.
func (s Submission) TouchedTopics() []string {
	out := make([]string, 0, len(s.TopicScores))
	for _, ts := range s.TopicScores {
		out = append(out, ts.TopicID)
	}
	return out
}

// BuildSubmission turns resolved answers into one Response per question and
// one TopicScoreUser per topic in the batch.
func BuildSubmission(userID uuid.UUID, version string, answers []ResolvedAnswer, now time.Time) Submission {
	responses := make([]*alignment.Response, 0, len(answers))
	for _, a := range answers {
		responses = append(responses, &alignment.Response{
			ID:            alignment.ResponseKey(userID, version, a.QuestionID),
			UserID:        userID,
			SurveyVersion: version,
			TopicID:       a.TopicID,
			QuestionID:    a.QuestionID,
			OptionID:      a.OptionID,
			Score:         a.Score,
			AnsweredAt:    now,
		})
	}
	return Submission{
		Responses:   responses,
		TopicScores: RecomputeTopicScores(userID, version, responses, now),
	}
}

// RecomputeTopicScores groups responses by topic and returns the mean and
// count for each, sorted by topic id. Responses for other users or versions
// are ignored. A question appearing twice counts once, using its last entry.
func RecomputeTopicScores(userID uuid.UUID, version string, responses []*alignment.Response, now time.Time) []*alignment.TopicScoreUser {
	type acc struct {
		sum   int
		count int
	}
	latest := make(map[string]*alignment.Response, len(responses))
	for _, r := range responses {
		if r == nil || r.UserID != userID || r.SurveyVersion != version {
			continue
		}
		latest[r.QuestionID] = r
	}
	byTopic := map[string]*acc{}
	for _, r := range latest {
		a := byTopic[r.TopicID]
		if a == nil {
			a = &acc{}
			byTopic[r.TopicID] = a
		}
		a.sum += r.Score
		a.count++
	}

	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	out := make([]*alignment.TopicScoreUser, 0, len(topics))
	for _, t := range topics {
		a := byTopic[t]
		out = append(out, &alignment.TopicScoreUser{
			ID:            alignment.TopicScoreKey(userID, version, t),
			UserID:        userID,
			SurveyVersion: version,
			TopicID:       t,
			MeanScore:     float64(a.sum) / float64(a.count),
			AnsweredCount: a.count,
			UpdatedAt:     now,
		})
	}
	return out
}
