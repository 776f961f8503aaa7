// Package testutil bootstraps a throwaway SQLite database with one academy
// and helpers to build the roster/catalog rows the service tests need.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AdhamEssa01/accademy/internal/attempt"
	"github.com/AdhamEssa01/accademy/internal/db"
	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/exam"
	"github.com/AdhamEssa01/accademy/internal/roster"
	"github.com/AdhamEssa01/accademy/internal/tenant"
)

type Fixture struct {
	DB       *sql.DB
	Academy  string
	Ctx      context.Context
	Roster   *roster.SQLStore
	Exams    *exam.SQLStore
	Attempts *attempt.SQLStore
}

// New opens a fresh SQLite database under t.TempDir and seeds one academy.
// The returned context is tenant-scoped to it.
func New(t *testing.T) *Fixture {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })

	f := &Fixture{
		DB:       dbh,
		Academy:  uuid.NewString(),
		Roster:   roster.NewSQLStore(dbh),
		Exams:    exam.NewSQLStore(dbh),
		Attempts: attempt.NewSQLStore(dbh, "sqlite"),
	}
	f.Ctx = tenant.WithAcademy(context.Background(), f.Academy)
	if err := f.Roster.CreateAcademy(f.Ctx, f.Academy, "Test Academy"); err != nil {
		t.Fatalf("create academy: %v", err)
	}
	return f
}

func (f *Fixture) CreateUser(t *testing.T, role string) domain.User {
	t.Helper()
	u := domain.User{
		ID:        uuid.NewString(),
		AcademyID: f.Academy,
		Username:  uuid.NewString(),
		Role:      role,
	}
	if err := f.Roster.CreateUser(f.Ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *Fixture) CreateGroup(t *testing.T, instructorID string) domain.Group {
	t.Helper()
	g := domain.Group{
		ID:           uuid.NewString(),
		AcademyID:    f.Academy,
		Name:         "Group",
		InstructorID: instructorID,
	}
	if err := f.Roster.CreateGroup(f.Ctx, g); err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}

func (f *Fixture) Enroll(t *testing.T, groupID, studentID string, endsAt *time.Time) {
	t.Helper()
	err := f.Roster.Enroll(f.Ctx, domain.Enrollment{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		StudentID: studentID,
		StartsAt:  time.Now().AddDate(0, -1, 0),
		EndsAt:    endsAt,
	})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
}

// CreateMCQ builds an MCQ question whose option texts are given; the first
// one is correct. Returns the question with option ids populated.
func (f *Fixture) CreateMCQ(t *testing.T, optionTexts ...string) domain.Question {
	t.Helper()
	q := domain.Question{ID: uuid.NewString(), Type: domain.QuestionMCQ}
	for i, text := range optionTexts {
		q.Options = append(q.Options, domain.QuestionOption{
			ID:        uuid.NewString(),
			Text:      text,
			Correct:   i == 0,
			SortOrder: i,
		})
	}
	if err := f.Exams.CreateQuestion(f.Ctx, q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

func (f *Fixture) CreateQuestion(t *testing.T, typ string, options ...domain.QuestionOption) domain.Question {
	t.Helper()
	q := domain.Question{ID: uuid.NewString(), Type: typ, Options: options}
	if err := f.Exams.CreateQuestion(f.Ctx, q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

// CreateExam links the given questions in order, each worth the matching
// points value.
func (f *Fixture) CreateExam(t *testing.T, questions []domain.Question, points []float64) domain.Exam {
	t.Helper()
	e := domain.Exam{ID: uuid.NewString(), Title: "Exam", CreatedAt: time.Now()}
	if err := f.Exams.CreateExam(f.Ctx, e); err != nil {
		t.Fatalf("create exam: %v", err)
	}
	for i, q := range questions {
		err := f.Exams.AddExamQuestion(f.Ctx, domain.ExamQuestion{
			ExamID:     e.ID,
			QuestionID: q.ID,
			Points:     points[i],
			SortOrder:  i,
		})
		if err != nil {
			t.Fatalf("link question: %v", err)
		}
	}
	return e
}

func (f *Fixture) CreateAssignment(t *testing.T, a domain.Assignment) domain.Assignment {
	t.Helper()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AttemptsAllowed == 0 {
		a.AttemptsAllowed = 1
	}
	if a.OpensAt.IsZero() {
		a.OpensAt = time.Now().Add(-time.Hour)
	}
	if a.ClosesAt.IsZero() {
		a.ClosesAt = time.Now().Add(time.Hour)
	}
	if err := f.Exams.CreateAssignment(f.Ctx, a); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return a
}
