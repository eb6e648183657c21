// Package survey models published survey definitions as a typed tree
// (Definition -> Category -> Question -> Option) that is validated once at
// load time. Scoring code can then assume every reference in a Definition
// resolves.
package survey

import (
	"errors"
	"sort"
)

const (
	MinScore = -100
	MaxScore = 100
)

var ErrNotFound = errors.New("survey not found")

type Definition struct {
	Version    string     `yaml:"version" json:"version" validate:"required,max=64,excludesall=:/"`
	Title      string     `yaml:"title" json:"title" validate:"max=200"`
	Categories []Category `yaml:"categories" json:"categories" validate:"required,min=1,dive"`
	Questions  []Question `yaml:"questions" json:"questions" validate:"required,min=1,dive"`

	categoryIndex map[string]int
	questionIndex map[string]int
}

// Category is a topic: the unit at which mean scores are reported.
type Category struct {
	ID   string `yaml:"id" json:"id" validate:"required,max=64,excludesall=:/"`
	Name string `yaml:"name" json:"name" validate:"required,max=200"`
}

type Question struct {
	ID         string   `yaml:"id" json:"id" validate:"required,max=64,excludesall=:/"`
	CategoryID string   `yaml:"categoryId" json:"categoryId" validate:"required"`
	Prompt     string   `yaml:"prompt" json:"prompt" validate:"required"`
	Options    []Option `yaml:"options" json:"options" validate:"required,min=1,dive"`

	optionIndex map[string]int
}

type Option struct {
	ID    string `yaml:"id" json:"id" validate:"required,max=64"`
	Label string `yaml:"label" json:"label" validate:"required"`
	Score int    `yaml:"score" json:"score" validate:"min=-100,max=100"`
}

// Summary is the catalogue view of a Definition.
type Summary struct {
	Version string `json:"version"`
	Title   string `json:"title"`
}

func (d *Definition) Summary() Summary {
	return Summary{Version: d.Version, Title: d.Title}
}

func (d *Definition) Category(id string) (*Category, bool) {
	if d == nil {
		return nil, false
	}
	i, ok := d.categoryIndex[id]
	if !ok {
		return nil, false
	}
	return &d.Categories[i], true
}

func (d *Definition) Question(id string) (*Question, bool) {
	if d == nil {
		return nil, false
	}
	i, ok := d.questionIndex[id]
	if !ok {
		return nil, false
	}
	return &d.Questions[i], true
}

// TopicID is the id of the category that owns the question.
func (q *Question) TopicID() string { return q.CategoryID }

func (q *Question) Option(id string) (*Option, bool) {
	if q == nil {
		return nil, false
	}
	i, ok := q.optionIndex[id]
	if !ok {
		return nil, false
	}
	return &q.Options[i], true
}

// QuestionsByTopic returns question ids grouped by category, in document order.
func (d *Definition) QuestionsByTopic() map[string][]string {
	out := make(map[string][]string, len(d.Categories))
	for _, q := range d.Questions {
		out[q.CategoryID] = append(out[q.CategoryID], q.ID)
	}
	return out
}

func sortSummaries(in []Summary) {
	sort.Slice(in, func(i, j int) bool { return in[i].Version < in[j].Version })
}
