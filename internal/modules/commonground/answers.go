package commonground

import (
	"strings"

	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/survey"
)

// Answer is one submitted choice.
type Answer struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// ResolvedAnswer is an Answer that exists in the survey definition.
type ResolvedAnswer struct {
	QuestionID string
	OptionID   string
	TopicID    string
	Score      int
}

// ResolveAnswers keeps only answers whose question and option exist in def.
// Unresolvable answers are logged and skipped. When a batch answers the same
// question twice the later answer wins, keeping the position of the first.
func ResolveAnswers(log *logger.Logger, def *survey.Definition, answers []Answer) []ResolvedAnswer {
	out := make([]ResolvedAnswer, 0, len(answers))
	if def == nil {
		return out
	}
	pos := make(map[string]int, len(answers))
	for i, a := range answers {
		qid := strings.TrimSpace(a.QuestionID)
		oid := strings.TrimSpace(a.OptionID)
		q, ok := def.Question(qid)
		if !ok {
			log.Warn("skipping answer for unknown question",
				"version", def.Version, "question_id", qid, "index", i)
			continue
		}
		opt, ok := q.Option(oid)
		if !ok {
			log.Warn("skipping answer for unknown option",
				"version", def.Version, "question_id", qid, "option_id", oid, "index", i)
			continue
		}
		ra := ResolvedAnswer{
			QuestionID: q.ID,
			OptionID:   opt.ID,
			TopicID:    q.TopicID(),
			Score:      opt.Score,
		}
		if at, dup := pos[q.ID]; dup {
			out[at] = ra
			continue
		}
		pos[q.ID] = len(out)
		out = append(out, ra)
	}
	return out
}
