package exam_test

import (
	"errors"
	"testing"
	"time"

	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/exam"
	"github.com/AdhamEssa01/accademy/internal/testutil"
)

func TestCreateExamAndQuestion(t *testing.T) {
	f := testutil.New(t)
	svc := exam.NewService(f.Exams, f.Roster)

	if _, err := svc.CreateExam(f.Ctx, exam.CreateExamInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty title: want validation, got %v", err)
	}

	e, err := svc.CreateExam(f.Ctx, exam.CreateExamInput{Title: "Midterm", DurationMin: 60})
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	got, err := svc.GetExam(f.Ctx, e.ID)
	if err != nil {
		t.Fatalf("get exam: %v", err)
	}
	if got.Title != "Midterm" || got.DurationMin != 60 {
		t.Fatalf("got %+v", got)
	}

	if _, err := svc.CreateQuestion(f.Ctx, exam.CreateQuestionInput{Type: "matching"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown type: want validation, got %v", err)
	}

	in := exam.CreateQuestionInput{Type: domain.QuestionMCQ, Prompt: "2+2?"}
	in.Options = append(in.Options, struct {
		Text      string `json:"text"`
		Correct   bool   `json:"correct"`
		SortOrder int    `json:"sort_order"`
	}{Text: "4", Correct: true})
	q, err := svc.CreateQuestion(f.Ctx, in)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	loaded, err := svc.GetQuestion(f.Ctx, q.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if len(loaded.Options) != 1 || !loaded.Options[0].Correct {
		t.Fatalf("options = %+v", loaded.Options)
	}

	if err := svc.AttachQuestion(f.Ctx, e.ID, exam.AttachQuestionInput{QuestionID: q.ID, Points: 5}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := svc.AttachQuestion(f.Ctx, e.ID, exam.AttachQuestionInput{QuestionID: q.ID, Points: -1}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("negative points: want validation, got %v", err)
	}
}

func TestCreateAssignmentValidation(t *testing.T) {
	f := testutil.New(t)
	svc := exam.NewService(f.Exams, f.Roster)

	instructor := f.CreateUser(t, domain.RoleInstructor)
	group := f.CreateGroup(t, instructor.ID)
	student := f.CreateUser(t, domain.RoleStudent)
	q := f.CreateMCQ(t, "4")
	e := f.CreateExam(t, []domain.Question{q}, []float64{5})

	opens := time.Now()
	closes := opens.Add(time.Hour)
	base := exam.CreateAssignmentInput{OpensAt: opens, ClosesAt: closes, AttemptsAllowed: 1}

	cases := []struct {
		name   string
		mutate func(*exam.CreateAssignmentInput)
		want   error
	}{
		{"no target", func(in *exam.CreateAssignmentInput) {}, domain.ErrValidation},
		{"both targets", func(in *exam.CreateAssignmentInput) {
			in.GroupID, in.StudentID = group.ID, student.ID
		}, domain.ErrValidation},
		{"window inverted", func(in *exam.CreateAssignmentInput) {
			in.GroupID = group.ID
			in.OpensAt, in.ClosesAt = closes, opens
		}, domain.ErrValidation},
		{"zero attempts", func(in *exam.CreateAssignmentInput) {
			in.GroupID = group.ID
			in.AttemptsAllowed = 0
		}, domain.ErrValidation},
		{"unknown group", func(in *exam.CreateAssignmentInput) {
			in.GroupID = "missing"
		}, domain.ErrNotFound},
		{"unknown student", func(in *exam.CreateAssignmentInput) {
			in.StudentID = "missing"
		}, domain.ErrNotFound},
		{"target is not a student", func(in *exam.CreateAssignmentInput) {
			in.StudentID = instructor.ID
		}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			if _, err := svc.CreateAssignment(f.Ctx, e.ID, in); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}

	in := base
	in.GroupID = group.ID
	if _, err := svc.CreateAssignment(f.Ctx, "missing", in); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown exam: want not found, got %v", err)
	}

	a, err := svc.CreateAssignment(f.Ctx, e.ID, in)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	list, err := svc.ListAssignments(f.Ctx, e.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("list = %+v", list)
	}
}
