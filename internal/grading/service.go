package grading

import (
	"context"

	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/rbac"
)

// Tx is the read-modify-write surface available inside a grading
// transaction. The attempt row stays locked for its duration, so the
// recomputed total always reflects every committed grade.
type Tx interface {
	Answers() ([]domain.Answer, error)
	SetGrade(answerID string, correct *bool, score *float64, feedback string) error
	SetTotals(total float64, status string) error
}

// AttemptStore is the slice of attempt persistence both graders need.
type AttemptStore interface {
	GetAttempt(ctx context.Context, id string) (domain.Attempt, error)
	GetAnswer(ctx context.Context, id string) (domain.Answer, error)
	GradeInTx(ctx context.Context, attemptID string, fn func(Tx) error) error
}

// Catalog is the exam-side read surface: assignments, question links, and
// the question definitions with their correct options.
type Catalog interface {
	GetAssignment(ctx context.Context, id string) (domain.Assignment, error)
	ListExamQuestions(ctx context.Context, examID string) ([]domain.ExamQuestion, error)
	GetQuestions(ctx context.Context, ids []string) (map[string]domain.Question, error)
}

// Groups resolves instructor ownership for manual-grading authorization.
type Groups interface {
	GetGroup(ctx context.Context, id string) (domain.Group, error)
}

// AutoGrader scores objective answers immediately after submission.
type AutoGrader struct {
	attempts AttemptStore
	catalog  Catalog
	engine   *Engine
}

func NewAutoGrader(attempts AttemptStore, catalog Catalog) *AutoGrader {
	return &AutoGrader{attempts: attempts, catalog: catalog, engine: NewEngine()}
}

// GradeAttempt resolves every auto-gradable answer of a submitted attempt
// and recomputes the aggregate. The attempt closes as graded only when the
// exam carries no manual-only question type at all; a single essay or
// file-upload question keeps the whole attempt pending.
func (g *AutoGrader) GradeAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	a, err := g.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if a.Status != domain.AttemptSubmitted {
		return domain.Attempt{}, domain.Invalidf("attempt is %s, want %s", a.Status, domain.AttemptSubmitted)
	}
	asg, err := g.catalog.GetAssignment(ctx, a.AssignmentID)
	if err != nil {
		return domain.Attempt{}, err
	}
	links, err := g.catalog.ListExamQuestions(ctx, asg.ExamID)
	if err != nil {
		return domain.Attempt{}, err
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.QuestionID)
	}
	questions, err := g.catalog.GetQuestions(ctx, ids)
	if err != nil {
		return domain.Attempt{}, err
	}

	fullyAuto := true
	for _, l := range links {
		q, ok := questions[l.QuestionID]
		if !ok || !domain.AutoGradable(q.Type) {
			fullyAuto = false
			break
		}
	}

	err = g.attempts.GradeInTx(ctx, attemptID, func(tx Tx) error {
		answers, err := tx.Answers()
		if err != nil {
			return err
		}
		byQuestion := make(map[string]domain.Answer, len(answers))
		for _, ans := range answers {
			byQuestion[ans.QuestionID] = ans
		}

		total := 0.0
		for _, l := range links {
			ans, has := byQuestion[l.QuestionID]
			if !has {
				continue
			}
			q, known := questions[l.QuestionID]
			if !known {
				continue
			}
			res := g.engine.Grade(q, l.Points, ans.Payload)
			if res.NeedsManual {
				if ans.Score != nil {
					total += *ans.Score
				}
				continue
			}
			if err := tx.SetGrade(ans.ID, res.Correct, res.Score, ans.Feedback); err != nil {
				return err
			}
			if res.Score != nil {
				total += *res.Score
			}
		}

		status := domain.AttemptSubmitted
		if fullyAuto {
			status = domain.AttemptGraded
		}
		return tx.SetTotals(total, status)
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	return g.attempts.GetAttempt(ctx, attemptID)
}

// ManualGrader lets an authorized grader score subjective answers.
type ManualGrader struct {
	attempts AttemptStore
	catalog  Catalog
	groups   Groups
}

func NewManualGrader(attempts AttemptStore, catalog Catalog, groups Groups) *ManualGrader {
	return &ManualGrader{attempts: attempts, catalog: catalog, groups: groups}
}

// GradeAnswer sets a human-assigned score and feedback on one answer and
// recomputes the attempt's aggregate. Admins may grade anything; an
// instructor only answers under an assignment targeting a group they
// instruct. Assignments targeting a single student have no instructor
// path here, matching the reference behavior.
func (g *ManualGrader) GradeAnswer(ctx context.Context, answerID string, score float64, feedback string) error {
	ans, err := g.attempts.GetAnswer(ctx, answerID)
	if err != nil {
		return err
	}
	a, err := g.attempts.GetAttempt(ctx, ans.AttemptID)
	if err != nil {
		return err
	}
	asg, err := g.catalog.GetAssignment(ctx, a.AssignmentID)
	if err != nil {
		return err
	}

	switch rbac.RoleFromContext(ctx) {
	case domain.RoleAdmin:
	case domain.RoleInstructor:
		if asg.GroupID == "" {
			return domain.Forbiddenf("assignment does not target a group")
		}
		group, err := g.groups.GetGroup(ctx, asg.GroupID)
		if err != nil {
			return err
		}
		if group.InstructorID != rbac.SubjectFromContext(ctx) {
			return domain.Forbiddenf("not this group's instructor")
		}
	default:
		return domain.Forbiddenf("role may not grade")
	}

	links, err := g.catalog.ListExamQuestions(ctx, asg.ExamID)
	if err != nil {
		return err
	}
	var link *domain.ExamQuestion
	examQuestions := make(map[string]struct{}, len(links))
	for i := range links {
		examQuestions[links[i].QuestionID] = struct{}{}
		if links[i].QuestionID == ans.QuestionID {
			link = &links[i]
		}
	}
	if link == nil {
		return domain.NotFoundf("question is not on this exam")
	}
	if score < 0 {
		return domain.Invalidf("score must not be negative")
	}
	if score > link.Points {
		return domain.Invalidf("score exceeds question points")
	}

	return g.attempts.GradeInTx(ctx, a.ID, func(tx Tx) error {
		// Manual grading asserts a score, not correctness.
		if err := tx.SetGrade(answerID, nil, &score, feedback); err != nil {
			return err
		}
		answers, err := tx.Answers()
		if err != nil {
			return err
		}

		total := 0.0
		scored := make(map[string]struct{}, len(answers))
		for _, other := range answers {
			if _, onExam := examQuestions[other.QuestionID]; !onExam {
				continue
			}
			if other.Score != nil {
				total += *other.Score
				scored[other.QuestionID] = struct{}{}
			}
		}

		status := a.Status
		complete := true
		for qid := range examQuestions {
			if _, ok := scored[qid]; !ok {
				complete = false
				break
			}
		}
		if complete && len(examQuestions) > 0 {
			status = domain.AttemptGraded
		}
		return tx.SetTotals(total, status)
	})
}
