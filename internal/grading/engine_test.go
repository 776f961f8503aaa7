package grading_test

import (
	"encoding/json"
	"testing"

	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/grading"
)

func mcqQuestion() domain.Question {
	return domain.Question{
		ID:   "q1",
		Type: domain.QuestionMCQ,
		Options: []domain.QuestionOption{
			{ID: "o1", Text: "3", Correct: false},
			{ID: "o2", Text: "4", Correct: true},
			{ID: "o3", Text: "5", Correct: false},
		},
	}
}

func TestEngineMCQ(t *testing.T) {
	engine := grading.NewEngine()
	q := mcqQuestion()

	cases := []struct {
		name        string
		raw         string
		wantCorrect bool
		wantScore   float64
	}{
		{"correct option", `"o2"`, true, 5},
		{"wrong option", `"o1"`, false, 0},
		{"unknown option", `"o9"`, false, 0},
		{"object shape", `{"optionId":"o2"}`, true, 5},
		{"unparseable", `[1,2]`, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := engine.Grade(q, 5, json.RawMessage(tc.raw))
			if res.NeedsManual {
				t.Fatal("mcq should never need manual grading")
			}
			if res.Correct == nil || *res.Correct != tc.wantCorrect {
				t.Fatalf("correct = %v, want %v", res.Correct, tc.wantCorrect)
			}
			if res.Score == nil || *res.Score != tc.wantScore {
				t.Fatalf("score = %v, want %v", res.Score, tc.wantScore)
			}
		})
	}
}

func TestEngineFillBlankCaseInsensitive(t *testing.T) {
	engine := grading.NewEngine()
	q := domain.Question{
		ID:   "q2",
		Type: domain.QuestionFillBlank,
		Options: []domain.QuestionOption{
			{ID: "o1", Text: "Paris", Correct: true},
		},
	}

	for _, raw := range []string{`"Paris"`, `"paris"`, `"PARIS"`, `{"value":"pArIs"}`} {
		res := engine.Grade(q, 3, json.RawMessage(raw))
		if res.Correct == nil || !*res.Correct {
			t.Fatalf("payload %s should match", raw)
		}
		if res.Score == nil || *res.Score != 3 {
			t.Fatalf("payload %s: score = %v, want 3", raw, res.Score)
		}
	}

	res := engine.Grade(q, 3, json.RawMessage(`"London"`))
	if res.Correct == nil || *res.Correct {
		t.Fatal("wrong answer should be incorrect")
	}
	if res.Score == nil || *res.Score != 0 {
		t.Fatalf("score = %v, want 0", res.Score)
	}
}

func TestEngineManualTypes(t *testing.T) {
	engine := grading.NewEngine()
	for _, typ := range []string{domain.QuestionEssay, domain.QuestionFileUpload} {
		res := engine.Grade(domain.Question{ID: "q", Type: typ}, 5, json.RawMessage(`"anything"`))
		if !res.NeedsManual {
			t.Fatalf("%s should need manual grading", typ)
		}
		if res.Correct != nil || res.Score != nil {
			t.Fatalf("%s should leave grading fields untouched", typ)
		}
	}
}

func TestEngineUnknownTypeGoesManual(t *testing.T) {
	res := grading.NewEngine().Grade(domain.Question{ID: "q", Type: "matching"}, 5, nil)
	if !res.NeedsManual {
		t.Fatal("unknown type should fall through to manual review")
	}
}
