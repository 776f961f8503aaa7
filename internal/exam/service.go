// Package exam owns the exam/question catalog and the assignment
// scheduler: the sources of "how many points does this question carry"
// and "when may a student attempt it".
package exam

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/rbac"
)

// Store is the catalog persistence surface.
type Store interface {
	CreateExam(ctx context.Context, e domain.Exam) error
	GetExam(ctx context.Context, id string) (domain.Exam, error)
	AddExamQuestion(ctx context.Context, eq domain.ExamQuestion) error
	ListExamQuestions(ctx context.Context, examID string) ([]domain.ExamQuestion, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	GetQuestions(ctx context.Context, ids []string) (map[string]domain.Question, error)
	CreateAssignment(ctx context.Context, a domain.Assignment) error
	GetAssignment(ctx context.Context, id string) (domain.Assignment, error)
	ListAssignments(ctx context.Context, examID string) ([]domain.Assignment, error)
}

// Roster is the slice of the people directory the scheduler needs.
type Roster interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetGroup(ctx context.Context, id string) (domain.Group, error)
}

type Service struct {
	store  Store
	roster Roster
	now    func() time.Time
	newID  func() string
}

func NewService(store Store, roster Roster) *Service {
	return &Service{store: store, roster: roster, now: time.Now, newID: uuid.NewString}
}

// NewServiceWithClock is test-only for deterministic timestamps.
func NewServiceWithClock(store Store, roster Roster, now func() time.Time) *Service {
	s := NewService(store, roster)
	s.now = now
	return s
}

type CreateExamInput struct {
	Title            string `json:"title"`
	Type             string `json:"type"`
	DurationMin      int    `json:"duration_min"`
	ShuffleQuestions bool   `json:"shuffle_questions"`
	ShuffleOptions   bool   `json:"shuffle_options"`
	ShowResults      bool   `json:"show_results"`
}

func (s *Service) CreateExam(ctx context.Context, in CreateExamInput) (domain.Exam, error) {
	if in.Title == "" {
		return domain.Exam{}, domain.Invalidf("title required")
	}
	e := domain.Exam{
		ID:               s.newID(),
		Title:            in.Title,
		Type:             in.Type,
		DurationMin:      in.DurationMin,
		ShuffleQuestions: in.ShuffleQuestions,
		ShuffleOptions:   in.ShuffleOptions,
		ShowResults:      in.ShowResults,
		CreatedBy:        rbac.SubjectFromContext(ctx),
		CreatedAt:        s.now(),
	}
	if err := s.store.CreateExam(ctx, e); err != nil {
		return domain.Exam{}, err
	}
	return e, nil
}

func (s *Service) GetExam(ctx context.Context, id string) (domain.Exam, error) {
	return s.store.GetExam(ctx, id)
}

type AttachQuestionInput struct {
	QuestionID string  `json:"question_id"`
	Points     float64 `json:"points"`
	SortOrder  int     `json:"sort_order"`
}

func (s *Service) AttachQuestion(ctx context.Context, examID string, in AttachQuestionInput) error {
	if in.Points < 0 {
		return domain.Invalidf("points must not be negative")
	}
	return s.store.AddExamQuestion(ctx, domain.ExamQuestion{
		ExamID:     examID,
		QuestionID: in.QuestionID,
		Points:     in.Points,
		SortOrder:  in.SortOrder,
	})
}

type CreateQuestionInput struct {
	Type    string `json:"type"`
	Prompt  string `json:"prompt"`
	Options []struct {
		Text      string `json:"text"`
		Correct   bool   `json:"correct"`
		SortOrder int    `json:"sort_order"`
	} `json:"options"`
}

func (s *Service) CreateQuestion(ctx context.Context, in CreateQuestionInput) (domain.Question, error) {
	if !domain.KnownQuestionType(in.Type) {
		return domain.Question{}, domain.Invalidf("unknown question type %q", in.Type)
	}
	q := domain.Question{ID: s.newID(), Type: in.Type, Prompt: in.Prompt}
	for _, o := range in.Options {
		q.Options = append(q.Options, domain.QuestionOption{
			ID:        s.newID(),
			Text:      o.Text,
			Correct:   o.Correct,
			SortOrder: o.SortOrder,
		})
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *Service) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return s.store.GetQuestion(ctx, id)
}

type CreateAssignmentInput struct {
	GroupID         string    `json:"group_id,omitempty"`
	StudentID       string    `json:"student_id,omitempty"`
	OpensAt         time.Time `json:"opens_at"`
	ClosesAt        time.Time `json:"closes_at"`
	AttemptsAllowed int       `json:"attempts_allowed"`
}

// CreateAssignment schedules an exam for a group or a single student with
// an open/close window and an attempt limit.
func (s *Service) CreateAssignment(ctx context.Context, examID string, in CreateAssignmentInput) (domain.Assignment, error) {
	if _, err := s.store.GetExam(ctx, examID); err != nil {
		return domain.Assignment{}, err
	}
	if (in.GroupID == "") == (in.StudentID == "") {
		return domain.Assignment{}, domain.Invalidf("exactly one of group_id or student_id required")
	}
	if !in.ClosesAt.After(in.OpensAt) {
		return domain.Assignment{}, domain.Invalidf("closes_at must be after opens_at")
	}
	if in.AttemptsAllowed < 1 {
		return domain.Assignment{}, domain.Invalidf("attempts_allowed must be at least 1")
	}
	if in.GroupID != "" {
		if _, err := s.roster.GetGroup(ctx, in.GroupID); err != nil {
			return domain.Assignment{}, err
		}
	} else {
		u, err := s.roster.GetUser(ctx, in.StudentID)
		if err != nil {
			return domain.Assignment{}, err
		}
		if u.Role != domain.RoleStudent {
			return domain.Assignment{}, domain.NotFoundf("student")
		}
	}
	a := domain.Assignment{
		ID:              s.newID(),
		ExamID:          examID,
		GroupID:         in.GroupID,
		StudentID:       in.StudentID,
		OpensAt:         in.OpensAt,
		ClosesAt:        in.ClosesAt,
		AttemptsAllowed: in.AttemptsAllowed,
	}
	if err := s.store.CreateAssignment(ctx, a); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

// ListAssignments returns an exam's assignments ordered by opening time.
func (s *Service) ListAssignments(ctx context.Context, examID string) ([]domain.Assignment, error) {
	if _, err := s.store.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.store.ListAssignments(ctx, examID)
}
