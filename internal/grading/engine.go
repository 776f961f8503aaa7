// Package grading scores attempt answers: objective types immediately
// after submission, subjective types through a human grader.
package grading

import (
	"encoding/json"
	"strings"

	"github.com/AdhamEssa01/accademy/internal/domain"
)

// Result is the outcome of grading a single answer.
type Result struct {
	Correct     *bool
	Score       *float64
	NeedsManual bool
}

// Strategy grades one answer of a specific question type.
type Strategy interface {
	Grade(q domain.Question, points float64, raw json.RawMessage) Result
}

// Engine routes by question type to the matching Strategy.
type Engine struct {
	strategies map[string]Strategy
}

// NewEngine installs the built-in strategies.
func NewEngine() *Engine {
	return &Engine{
		strategies: map[string]Strategy{
			domain.QuestionMCQ:        optionStrategy{},
			domain.QuestionTrueFalse:  optionStrategy{},
			domain.QuestionFillBlank:  textStrategy{},
			domain.QuestionEssay:      manualStrategy{},
			domain.QuestionFileUpload: manualStrategy{},
		},
	}
}

// Grade dispatches to the strategy for the question's type. Unknown types
// are left for manual review.
func (e *Engine) Grade(q domain.Question, points float64, raw json.RawMessage) Result {
	s, ok := e.strategies[q.Type]
	if !ok {
		return Result{NeedsManual: true}
	}
	return s.Grade(q, points, raw)
}

// optionStrategy covers MCQ and true/false: the payload must reference one
// of the options flagged correct. Unparseable payloads grade as incorrect.
type optionStrategy struct{}

func (optionStrategy) Grade(q domain.Question, points float64, raw json.RawMessage) Result {
	selected, ok := DecodeOption(raw).(OptionRef)
	if !ok {
		return incorrect()
	}
	for _, o := range q.Options {
		if o.Correct && o.ID == selected.ID {
			return correct(points)
		}
	}
	return incorrect()
}

// textStrategy covers fill-blank: case-insensitive match against any option
// text flagged correct.
type textStrategy struct{}

func (textStrategy) Grade(q domain.Question, points float64, raw json.RawMessage) Result {
	value, ok := DecodeText(raw).(TextValue)
	if !ok {
		return incorrect()
	}
	for _, o := range q.Options {
		if o.Correct && strings.EqualFold(o.Text, value.Value) {
			return correct(points)
		}
	}
	return incorrect()
}

// manualStrategy covers essay and file-upload answers.
type manualStrategy struct{}

func (manualStrategy) Grade(domain.Question, float64, json.RawMessage) Result {
	return Result{NeedsManual: true}
}

func correct(points float64) Result {
	t := true
	return Result{Correct: &t, Score: &points}
}

func incorrect() Result {
	f := false
	zero := 0.0
	return Result{Correct: &f, Score: &zero}
}
