package domain

import (
	"encoding/json"
	"time"
)

// Roles recognized by the platform.
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
	RoleParent     = "parent"
)

// Question types. The first three are auto-gradable; essay and file_upload
// require a human grader.
const (
	QuestionMCQ        = "mcq"
	QuestionTrueFalse  = "true_false"
	QuestionFillBlank  = "fill_blank"
	QuestionEssay      = "essay"
	QuestionFileUpload = "file_upload"
)

// AutoGradable reports whether a question type can be scored without a human.
func AutoGradable(questionType string) bool {
	switch questionType {
	case QuestionMCQ, QuestionTrueFalse, QuestionFillBlank:
		return true
	}
	return false
}

// KnownQuestionType reports whether t is one of the supported types.
func KnownQuestionType(t string) bool {
	switch t {
	case QuestionMCQ, QuestionTrueFalse, QuestionFillBlank, QuestionEssay, QuestionFileUpload:
		return true
	}
	return false
}

// Attempt lifecycle: in_progress -> submitted -> graded (terminal).
const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
	AttemptGraded     = "graded"
)

// User is any platform account; role decides the dashboard it drives.
type User struct {
	ID          string `json:"id"`
	AcademyID   string `json:"academy_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	PassHash    string `json:"-"`
}

// Group is a teaching group led by one instructor.
type Group struct {
	ID           string `json:"id"`
	AcademyID    string `json:"academy_id"`
	Name         string `json:"name"`
	InstructorID string `json:"instructor_id"`
}

// Enrollment binds a student to a group. EndsAt nil means the enrollment is
// open-ended; an enrollment is active as of a day when it has not ended
// before that day.
type Enrollment struct {
	ID        string     `json:"id"`
	GroupID   string     `json:"group_id"`
	StudentID string     `json:"student_id"`
	StartsAt  time.Time  `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
}

// QuestionOption is one selectable option of an objective question.
type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Correct   bool   `json:"correct"`
	SortOrder int    `json:"sort_order"`
}

// Question is owned by the question catalog; the grading engine only reads
// its type and correct-option data.
type Question struct {
	ID        string           `json:"id"`
	AcademyID string           `json:"academy_id"`
	Type      string           `json:"type"`
	Prompt    string           `json:"prompt"`
	Options   []QuestionOption `json:"options,omitempty"`
}

// ExamQuestion links a question into an exam. Points and order are
// exam-specific, not question-intrinsic.
type ExamQuestion struct {
	ExamID     string  `json:"exam_id"`
	QuestionID string  `json:"question_id"`
	Points     float64 `json:"points"`
	SortOrder  int     `json:"sort_order"`
}

// Exam is a reusable definition of timed questions with scoring config.
type Exam struct {
	ID               string         `json:"id"`
	AcademyID        string         `json:"academy_id"`
	Title            string         `json:"title"`
	Type             string         `json:"type,omitempty"`
	DurationMin      int            `json:"duration_min"`
	ShuffleQuestions bool           `json:"shuffle_questions"`
	ShuffleOptions   bool           `json:"shuffle_options"`
	ShowResults      bool           `json:"show_results"`
	CreatedBy        string         `json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`
	Questions        []ExamQuestion `json:"questions,omitempty"`
}

// Assignment schedules an exam for a group or a single student, with an
// open/close window and an attempt limit. Exactly one of GroupID/StudentID
// is set.
type Assignment struct {
	ID              string    `json:"id"`
	AcademyID       string    `json:"academy_id"`
	ExamID          string    `json:"exam_id"`
	GroupID         string    `json:"group_id,omitempty"`
	StudentID       string    `json:"student_id,omitempty"`
	OpensAt         time.Time `json:"opens_at"`
	ClosesAt        time.Time `json:"closes_at"`
	AttemptsAllowed int       `json:"attempts_allowed"`
}

// Attempt is one student's run through an assignment.
type Attempt struct {
	ID           string     `json:"id"`
	AcademyID    string     `json:"-"`
	AssignmentID string     `json:"assignment_id"`
	StudentID    string     `json:"student_id"`
	Status       string     `json:"status"`
	TotalScore   float64    `json:"total_score"`
	StartedAt    time.Time  `json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

// Answer is one question's recorded response within an attempt plus its
// grading outcome. Payload is opaque until grading time. Score nil means
// not yet graded; IsCorrect is only meaningful for auto-graded types.
type Answer struct {
	ID         string          `json:"id"`
	AttemptID  string          `json:"attempt_id"`
	QuestionID string          `json:"question_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	IsCorrect  *bool           `json:"is_correct,omitempty"`
	Score      *float64        `json:"score,omitempty"`
	Feedback   string          `json:"feedback,omitempty"`
}

// AttemptSummary is the flat row returned by attempt listings.
type AttemptSummary struct {
	AttemptID    string     `json:"attempt_id"`
	AssignmentID string     `json:"assignment_id"`
	ExamID       string     `json:"exam_id"`
	StudentID    string     `json:"student_id"`
	StartedAt    time.Time  `json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	TotalScore   float64    `json:"total_score"`
}

// ScoreBucket is one fixed percentage range of the score distribution.
type ScoreBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// MissedQuestion ranks how often an exam question was missed.
type MissedQuestion struct {
	QuestionID string `json:"question_id"`
	MissCount  int    `json:"miss_count"`
}

// ExamStats is the analytics snapshot for one exam.
type ExamStats struct {
	ExamID        string           `json:"exam_id"`
	AttemptsCount int              `json:"attempts_count"`
	AverageScore  float64          `json:"average_score"`
	Distribution  []ScoreBucket    `json:"score_distribution"`
	MostMissed    []MissedQuestion `json:"most_missed_questions"`
}
