// Package attempt drives the exam-attempt state machine:
// in_progress -> submitted -> graded. Start enforces the assignment
// window, access, and attempt-count rules; SaveAnswers upserts payloads
// while in progress; Submit freezes the attempt for grading.
package attempt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/rbac"
)

// Store is the attempt persistence surface.
type Store interface {
	CreateAttempt(ctx context.Context, a domain.Attempt) error
	GetAttempt(ctx context.Context, id string) (domain.Attempt, error)
	UpsertAnswers(ctx context.Context, answers []domain.Answer) error
	ListAnswers(ctx context.Context, attemptID string) ([]domain.Answer, error)
	MarkSubmitted(ctx context.Context, id string, at time.Time) error
	ListForExam(ctx context.Context, examID string, limit, offset int) ([]domain.AttemptSummary, error)
	ListForStudents(ctx context.Context, studentIDs []string, from, to time.Time, limit, offset int) ([]domain.AttemptSummary, error)
}

// Catalog is the exam-side read surface the lifecycle needs.
type Catalog interface {
	GetExam(ctx context.Context, id string) (domain.Exam, error)
	GetAssignment(ctx context.Context, id string) (domain.Assignment, error)
	ListExamQuestions(ctx context.Context, examID string) ([]domain.ExamQuestion, error)
}

// Roster resolves students, enrollment, and guardian links.
type Roster interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	HasActiveEnrollment(ctx context.Context, groupID, studentID string, asOf time.Time) (bool, error)
	ListChildIDs(ctx context.Context, parentID string) ([]string, error)
}

type Service struct {
	store   Store
	catalog Catalog
	roster  Roster
	now     func() time.Time
	newID   func() string
}

func NewService(store Store, catalog Catalog, roster Roster) *Service {
	return &Service{store: store, catalog: catalog, roster: roster, now: time.Now, newID: uuid.NewString}
}

// NewServiceWithClock is test-only for deterministic timestamps.
func NewServiceWithClock(store Store, catalog Catalog, roster Roster, now func() time.Time) *Service {
	s := NewService(store, catalog, roster)
	s.now = now
	return s
}

// Start creates an in-progress attempt for the student, validating the
// assignment window, access, and attempt limits. The count ceiling and
// in-progress exclusivity are re-checked inside the store transaction.
func (s *Service) Start(ctx context.Context, assignmentID, studentID string) (domain.Attempt, error) {
	asg, err := s.catalog.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Attempt{}, err
	}
	student, err := s.roster.GetUser(ctx, studentID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if student.Role != domain.RoleStudent {
		return domain.Attempt{}, domain.NotFoundf("student")
	}

	now := s.now()
	if now.Before(asg.OpensAt) || !now.Before(asg.ClosesAt) {
		return domain.Attempt{}, domain.Invalidf("assignment window is closed")
	}

	switch {
	case asg.StudentID != "":
		if asg.StudentID != studentID {
			return domain.Attempt{}, domain.Forbiddenf("assignment targets another student")
		}
	case asg.GroupID != "":
		active, err := s.roster.HasActiveEnrollment(ctx, asg.GroupID, studentID, now)
		if err != nil {
			return domain.Attempt{}, err
		}
		if !active {
			return domain.Attempt{}, domain.Forbiddenf("student is not enrolled in the assigned group")
		}
	default:
		return domain.Attempt{}, domain.Invalidf("assignment has no target")
	}

	a := domain.Attempt{
		ID:           s.newID(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Status:       domain.AttemptInProgress,
		StartedAt:    now,
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		return domain.Attempt{}, err
	}
	return a, nil
}

// AnswerInput is one question's payload in a SaveAnswers call.
type AnswerInput struct {
	QuestionID string          `json:"question_id"`
	Payload    json.RawMessage `json:"payload"`
}

// SaveAnswers upserts answer payloads for an in-progress attempt. Grading
// fields are never touched here.
func (s *Service) SaveAnswers(ctx context.Context, attemptID string, inputs []AnswerInput) error {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if a.Status != domain.AttemptInProgress {
		return domain.Invalidf("attempt is not in progress")
	}
	asg, err := s.catalog.GetAssignment(ctx, a.AssignmentID)
	if err != nil {
		return err
	}
	links, err := s.catalog.ListExamQuestions(ctx, asg.ExamID)
	if err != nil {
		return err
	}
	onExam := make(map[string]struct{}, len(links))
	for _, l := range links {
		onExam[l.QuestionID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(inputs))
	answers := make([]domain.Answer, 0, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.QuestionID]; dup {
			return domain.Invalidf("duplicate question %s", in.QuestionID)
		}
		seen[in.QuestionID] = struct{}{}
		if _, ok := onExam[in.QuestionID]; !ok {
			return domain.Invalidf("question %s is not on this exam", in.QuestionID)
		}
		answers = append(answers, domain.Answer{
			ID:         s.newID(),
			AttemptID:  attemptID,
			QuestionID: in.QuestionID,
			Payload:    in.Payload,
		})
	}
	return s.store.UpsertAnswers(ctx, answers)
}

// Submit freezes the attempt. Grading is a separate step the caller
// triggers afterwards.
func (s *Service) Submit(ctx context.Context, attemptID string) (domain.Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if a.Status != domain.AttemptInProgress {
		return domain.Attempt{}, domain.Invalidf("attempt is not in progress")
	}
	if err := s.store.MarkSubmitted(ctx, attemptID, s.now()); err != nil {
		return domain.Attempt{}, err
	}
	return s.store.GetAttempt(ctx, attemptID)
}

// GetAttempt returns one attempt with its answers.
func (s *Service) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, []domain.Answer, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, nil, err
	}
	answers, err := s.store.ListAnswers(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, nil, err
	}
	return a, answers, nil
}

// ListForExam pages attempt summaries for one exam.
func (s *Service) ListForExam(ctx context.Context, examID string, limit, offset int) ([]domain.AttemptSummary, error) {
	if _, err := s.catalog.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.store.ListForExam(ctx, examID, clampLimit(limit), max(offset, 0))
}

// ListMyChildren pages attempt summaries for the calling parent's children
// within an optional started-at range.
func (s *Service) ListMyChildren(ctx context.Context, from, to time.Time, limit, offset int) ([]domain.AttemptSummary, error) {
	parentID := rbac.SubjectFromContext(ctx)
	if parentID == "" {
		return nil, domain.Forbiddenf("no caller identity")
	}
	children, err := s.roster.ListChildIDs(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, nil
	}
	return s.store.ListForStudents(ctx, children, from, to, clampLimit(limit), max(offset, 0))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
