package commonground

import (
	"math"
	"sort"

	"github.com/yungbote/commonground-backend/internal/domain/alignment"
)

// SafeTolerance is the largest absolute mean difference still counted as agreement.
const SafeTolerance = 10.0

// PairwiseResult is the agreement summary between two users over their shared topics.
type PairwiseResult struct {
	PairwisePct  float64  `json:"pairwisePct"`
	SharedTopics int      `json:"sharedTopics"`
	AgreedCount  int      `json:"agreedCount"`
	SafeTopics   []string `json:"safeTopics"`
	HotTopics    []string `json:"hotTopics"`
}

// Compare classifies every topic scored by both users as safe or hot.
// With no shared topics the percentage is 0.
func Compare(a, b []*alignment.TopicScoreUser) PairwiseResult {
	scoresA := make(map[string]float64, len(a))
	for _, ts := range a {
		if ts != nil {
			scoresA[ts.TopicID] = ts.MeanScore
		}
	}
	scoresB := make(map[string]float64, len(b))
	for _, ts := range b {
		if ts != nil {
			scoresB[ts.TopicID] = ts.MeanScore
		}
	}

	res := PairwiseResult{SafeTopics: []string{}, HotTopics: []string{}}
	for topic, sa := range scoresA {
		sb, ok := scoresB[topic]
		if !ok {
			continue
		}
		res.SharedTopics++
		if math.Abs(sa-sb) <= SafeTolerance {
			res.AgreedCount++
			res.SafeTopics = append(res.SafeTopics, topic)
		} else {
			res.HotTopics = append(res.HotTopics, topic)
		}
	}
	sort.Strings(res.SafeTopics)
	sort.Strings(res.HotTopics)
	if res.SharedTopics > 0 {
		res.PairwisePct = float64(res.AgreedCount) / float64(res.SharedTopics)
	}
	return res
}
