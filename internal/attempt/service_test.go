package attempt_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AdhamEssa01/accademy/internal/attempt"
	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/rbac"
	"github.com/AdhamEssa01/accademy/internal/testutil"
)

func newLifecycle(f *testutil.Fixture, now time.Time) *attempt.Service {
	return attempt.NewServiceWithClock(f.Attempts, f.Exams, f.Roster, func() time.Time { return now })
}

func TestStartWindowEnforced(t *testing.T) {
	f := testutil.New(t)
	student := f.CreateUser(t, domain.RoleStudent)
	q := f.CreateMCQ(t, "4", "5")
	e := f.CreateExam(t, []domain.Question{q}, []float64{5})

	opens := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	asg := f.CreateAssignment(t, domain.Assignment{
		ExamID: e.ID, StudentID: student.ID, OpensAt: opens, ClosesAt: closes,
	})

	cases := []struct {
		name string
		now  time.Time
		ok   bool
	}{
		{"before open", opens.Add(-time.Minute), false},
		{"at open", opens, true},
		{"inside window", opens.Add(24 * time.Hour), true},
		{"at close", closes, false},
		{"after close", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// separate assignment per accepted case so attempts don't collide
			target := asg
			if tc.ok {
				target = f.CreateAssignment(t, domain.Assignment{
					ExamID: e.ID, StudentID: student.ID, OpensAt: opens, ClosesAt: closes,
				})
			}
			_, err := newLifecycle(f, tc.now).Start(f.Ctx, target.ID, student.ID)
			if tc.ok && err != nil {
				t.Fatalf("start failed: %v", err)
			}
			if !tc.ok && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestStartAccessRules(t *testing.T) {
	f := testutil.New(t)
	now := time.Now()
	svc := newLifecycle(f, now)

	instructor := f.CreateUser(t, domain.RoleInstructor)
	group := f.CreateGroup(t, instructor.ID)
	enrolled := f.CreateUser(t, domain.RoleStudent)
	outsider := f.CreateUser(t, domain.RoleStudent)
	expired := f.CreateUser(t, domain.RoleStudent)
	f.Enroll(t, group.ID, enrolled.ID, nil)
	yesterday := now.AddDate(0, 0, -1)
	f.Enroll(t, group.ID, expired.ID, &yesterday)

	q := f.CreateMCQ(t, "4", "5")
	e := f.CreateExam(t, []domain.Question{q}, []float64{5})
	groupAsg := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, GroupID: group.ID, AttemptsAllowed: 5})

	if _, err := svc.Start(f.Ctx, groupAsg.ID, enrolled.ID); err != nil {
		t.Fatalf("enrolled student should start: %v", err)
	}
	if _, err := svc.Start(f.Ctx, groupAsg.ID, outsider.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("outsider: want forbidden, got %v", err)
	}
	if _, err := svc.Start(f.Ctx, groupAsg.ID, expired.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expired enrollment: want forbidden, got %v", err)
	}

	direct := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, StudentID: enrolled.ID})
	if _, err := svc.Start(f.Ctx, direct.ID, outsider.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("other student's assignment: want forbidden, got %v", err)
	}
}

func TestStartNotFound(t *testing.T) {
	f := testutil.New(t)
	svc := newLifecycle(f, time.Now())
	student := f.CreateUser(t, domain.RoleStudent)

	if _, err := svc.Start(f.Ctx, "missing", student.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing assignment: want not found, got %v", err)
	}

	q := f.CreateMCQ(t, "4")
	e := f.CreateExam(t, []domain.Question{q}, []float64{5})
	asg := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, StudentID: student.ID})
	if _, err := svc.Start(f.Ctx, asg.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing student: want not found, got %v", err)
	}
}

func TestStartAttemptLimitCountsAllStatuses(t *testing.T) {
	f := testutil.New(t)
	svc := newLifecycle(f, time.Now())
	student := f.CreateUser(t, domain.RoleStudent)
	q := f.CreateMCQ(t, "4")
	e := f.CreateExam(t, []domain.Question{q}, []float64{5})
	asg := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, StudentID: student.ID, AttemptsAllowed: 1})

	a, err := svc.Start(f.Ctx, asg.ID, student.ID)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := svc.Submit(f.Ctx, a.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// the submitted attempt still counts against the limit
	if _, err := svc.Start(f.Ctx, asg.ID, student.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("second start: want validation, got %v", err)
	}
}

func TestStartInProgressExclusivity(t *testing.T) {
	f := testutil.New(t)
	svc := newLifecycle(f, time.Now())
	student := f.CreateUser(t, domain.RoleStudent)
	q := f.CreateMCQ(t, "4")
	e := f.CreateExam(t, []domain.Question{q}, []float64{5})
	asg := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, StudentID: student.ID, AttemptsAllowed: 3})

	a, err := svc.Start(f.Ctx, asg.ID, student.ID)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := svc.Start(f.Ctx, asg.ID, student.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("second concurrent start: want validation, got %v", err)
	}
	if _, err := svc.Submit(f.Ctx, a.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Start(f.Ctx, asg.ID, student.ID); err != nil {
		t.Fatalf("start after submit should succeed: %v", err)
	}
}

func TestSaveAnswersValidation(t *testing.T) {
	f := testutil.New(t)
	svc := newLifecycle(f, time.Now())
	student := f.CreateUser(t, domain.RoleStudent)
	q1 := f.CreateMCQ(t, "4", "5")
	q2 := f.CreateMCQ(t, "yes", "no")
	other := f.CreateMCQ(t, "x")
	e := f.CreateExam(t, []domain.Question{q1, q2}, []float64{5, 5})
	asg := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, StudentID: student.ID})

	a, err := svc.Start(f.Ctx, asg.ID, student.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := svc.SaveAnswers(f.Ctx, "missing", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing attempt: want not found, got %v", err)
	}

	dup := []attempt.AnswerInput{
		{QuestionID: q1.ID, Payload: json.RawMessage(`"a"`)},
		{QuestionID: q1.ID, Payload: json.RawMessage(`"b"`)},
	}
	if err := svc.SaveAnswers(f.Ctx, a.ID, dup); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("duplicate question: want validation, got %v", err)
	}

	foreign := []attempt.AnswerInput{{QuestionID: other.ID, Payload: json.RawMessage(`"a"`)}}
	if err := svc.SaveAnswers(f.Ctx, a.ID, foreign); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("question off exam: want validation, got %v", err)
	}

	good := []attempt.AnswerInput{{QuestionID: q1.ID, Payload: json.RawMessage(`"` + q1.Options[0].ID + `"`)}}
	if err := svc.SaveAnswers(f.Ctx, a.ID, good); err != nil {
		t.Fatalf("save: %v", err)
	}

	// overwriting replaces the payload only
	again := []attempt.AnswerInput{{QuestionID: q1.ID, Payload: json.RawMessage(`"changed"`)}}
	if err := svc.SaveAnswers(f.Ctx, a.ID, again); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	answers, err := f.Attempts.ListAnswers(f.Ctx, a.ID)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("want 1 answer after upsert, got %d", len(answers))
	}
	if string(answers[0].Payload) != `"changed"` {
		t.Fatalf("payload = %s, want %q", answers[0].Payload, `"changed"`)
	}
	if answers[0].Score != nil || answers[0].IsCorrect != nil {
		t.Fatal("upsert must not touch grading fields")
	}

	if _, err := svc.Submit(f.Ctx, a.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.SaveAnswers(f.Ctx, a.ID, good); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("save after submit: want validation, got %v", err)
	}
}

func TestSubmitTransitions(t *testing.T) {
	f := testutil.New(t)
	now := time.Now()
	svc := newLifecycle(f, now)
	student := f.CreateUser(t, domain.RoleStudent)
	q := f.CreateMCQ(t, "4")
	e := f.CreateExam(t, []domain.Question{q}, []float64{5})
	asg := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, StudentID: student.ID})

	a, err := svc.Start(f.Ctx, asg.ID, student.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	submitted, err := svc.Submit(f.Ctx, a.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Status != domain.AttemptSubmitted {
		t.Fatalf("status = %s, want %s", submitted.Status, domain.AttemptSubmitted)
	}
	if submitted.SubmittedAt == nil {
		t.Fatal("submitted_at not set")
	}

	if _, err := svc.Submit(f.Ctx, a.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("second submit: want validation, got %v", err)
	}
}

func TestListForExamAndChildren(t *testing.T) {
	f := testutil.New(t)
	svc := newLifecycle(f, time.Now())
	student := f.CreateUser(t, domain.RoleStudent)
	q := f.CreateMCQ(t, "4")
	e := f.CreateExam(t, []domain.Question{q}, []float64{5})
	asg := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, StudentID: student.ID, AttemptsAllowed: 2})

	a, err := svc.Start(f.Ctx, asg.ID, student.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	list, err := svc.ListForExam(f.Ctx, e.ID, 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].AttemptID != a.ID || list[0].ExamID != e.ID {
		t.Fatalf("unexpected listing: %+v", list)
	}

	if _, err := svc.ListForExam(f.Ctx, "missing", 50, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing exam: want not found, got %v", err)
	}
}

func TestListMyChildren(t *testing.T) {
	f := testutil.New(t)
	now := time.Now()
	svc := newLifecycle(f, now)

	parent := f.CreateUser(t, domain.RoleParent)
	child := f.CreateUser(t, domain.RoleStudent)
	other := f.CreateUser(t, domain.RoleStudent)
	if err := f.Roster.AddGuardian(f.Ctx, parent.ID, child.ID); err != nil {
		t.Fatalf("add guardian: %v", err)
	}

	q := f.CreateMCQ(t, "4")
	e := f.CreateExam(t, []domain.Question{q}, []float64{5})
	childAsg := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, StudentID: child.ID})
	otherAsg := f.CreateAssignment(t, domain.Assignment{ExamID: e.ID, StudentID: other.ID})

	childAttempt, err := svc.Start(f.Ctx, childAsg.ID, child.ID)
	if err != nil {
		t.Fatalf("start child attempt: %v", err)
	}
	if _, err := svc.Start(f.Ctx, otherAsg.ID, other.ID); err != nil {
		t.Fatalf("start other attempt: %v", err)
	}

	asParent := rbac.WithSubject(f.Ctx, parent.ID)

	// only the linked child's attempt, never the unrelated student's
	list, err := svc.ListMyChildren(asParent, time.Time{}, time.Time{}, 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].AttemptID != childAttempt.ID || list[0].StudentID != child.ID {
		t.Fatalf("listing = %+v, want only %s", list, childAttempt.ID)
	}

	// range containing the attempt keeps it
	list, err = svc.ListMyChildren(asParent, now.Add(-time.Hour), now.Add(time.Hour), 50, 0)
	if err != nil {
		t.Fatalf("ranged list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("containing range: got %d attempts, want 1", len(list))
	}

	// from after the attempt started excludes it
	if list, err = svc.ListMyChildren(asParent, now.Add(time.Hour), time.Time{}, 50, 0); err != nil || len(list) != 0 {
		t.Fatalf("from-bound range: list = %+v, err = %v", list, err)
	}
	// to before the attempt started excludes it
	if list, err = svc.ListMyChildren(asParent, time.Time{}, now.Add(-time.Hour), 50, 0); err != nil || len(list) != 0 {
		t.Fatalf("to-bound range: list = %+v, err = %v", list, err)
	}

	// a parent with no guardian links sees nothing
	lonely := f.CreateUser(t, domain.RoleParent)
	if list, err = svc.ListMyChildren(rbac.WithSubject(f.Ctx, lonely.ID), time.Time{}, time.Time{}, 50, 0); err != nil || len(list) != 0 {
		t.Fatalf("unlinked parent: list = %+v, err = %v", list, err)
	}

	// no caller identity on the context
	if _, err := svc.ListMyChildren(f.Ctx, time.Time{}, time.Time{}, 50, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("missing identity: want forbidden, got %v", err)
	}
}
