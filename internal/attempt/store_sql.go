package attempt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/grading"
	"github.com/AdhamEssa01/accademy/internal/tenant"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// forUpdate row-locks on Postgres; SQLite serializes writers on its own.
func (s *SQLStore) forUpdate() string {
	if s.driver == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}

// CreateAttempt inserts a new in-progress attempt, re-validating the
// attempt-count ceiling and in-progress exclusivity inside one transaction.
// The assignment row is locked for the check-then-insert, and the partial
// unique index catches whichever racer loses anyway.
func (s *SQLStore) CreateAttempt(ctx context.Context, a domain.Attempt) error {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var allowed int
	err = tx.QueryRowContext(ctx,
		`SELECT attempts_allowed FROM exam_assignments WHERE id=$1 AND academy_id=$2`+s.forUpdate(),
		a.AssignmentID, academy).Scan(&allowed)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("assignment")
	}
	if err != nil {
		return err
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE assignment_id=$1 AND student_id=$2`,
		a.AssignmentID, a.StudentID).Scan(&count)
	if err != nil {
		return err
	}
	if count >= allowed {
		return domain.Invalidf("attempt limit reached (%d of %d)", count, allowed)
	}

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM exam_attempts
		  WHERE assignment_id=$1 AND student_id=$2 AND status=$3`,
		a.AssignmentID, a.StudentID, domain.AttemptInProgress).Scan(&one)
	if err == nil {
		return domain.Invalidf("an attempt is already in progress")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO exam_attempts (id, academy_id, assignment_id, student_id, status, total_score, started_at)
		 VALUES ($1,$2,$3,$4,$5,0,$6)`,
		a.ID, academy, a.AssignmentID, a.StudentID, a.Status, a.StartedAt.Unix())
	if isUniqueViolation(err) {
		return domain.Invalidf("an attempt is already in progress")
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return domain.Attempt{}, err
	}
	var a domain.Attempt
	var started int64
	var submitted sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, academy_id, assignment_id, student_id, status, total_score, started_at, submitted_at
		   FROM exam_attempts WHERE id=$1 AND academy_id=$2`, id, academy).
		Scan(&a.ID, &a.AcademyID, &a.AssignmentID, &a.StudentID, &a.Status, &a.TotalScore, &started, &submitted)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.NotFoundf("attempt")
	}
	if err != nil {
		return domain.Attempt{}, err
	}
	a.StartedAt = time.Unix(started, 0)
	if submitted.Valid {
		t := time.Unix(submitted.Int64, 0)
		a.SubmittedAt = &t
	}
	return a, nil
}

func (s *SQLStore) GetAnswer(ctx context.Context, id string) (domain.Answer, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return domain.Answer{}, err
	}
	var ans domain.Answer
	var payload string
	var correct sql.NullBool
	var score sql.NullFloat64
	var feedback sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT aa.id, aa.attempt_id, aa.question_id, aa.answer_json, aa.is_correct, aa.score, aa.feedback
		   FROM attempt_answers aa
		   JOIN exam_attempts a ON a.id = aa.attempt_id
		  WHERE aa.id=$1 AND a.academy_id=$2`, id, academy).
		Scan(&ans.ID, &ans.AttemptID, &ans.QuestionID, &payload, &correct, &score, &feedback)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Answer{}, domain.NotFoundf("answer")
	}
	if err != nil {
		return domain.Answer{}, err
	}
	fillAnswer(&ans, payload, correct, score, feedback)
	return ans, nil
}

// UpsertAnswers writes each answer's payload, inserting or overwriting the
// blob only. Grading fields are untouched by this call.
func (s *SQLStore) UpsertAnswers(ctx context.Context, answers []domain.Answer) error {
	if _, err := tenant.Require(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, ans := range answers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attempt_answers (id, attempt_id, question_id, answer_json)
			 VALUES ($1,$2,$3,$4)
			 ON CONFLICT (attempt_id, question_id)
			 DO UPDATE SET answer_json=EXCLUDED.answer_json`,
			ans.ID, ans.AttemptID, ans.QuestionID, string(ans.Payload))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID string) ([]domain.Answer, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	return listAnswers(ctx, s.db, attemptID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listAnswers(ctx context.Context, q querier, attemptID string) ([]domain.Answer, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, attempt_id, question_id, answer_json, is_correct, score, feedback
		   FROM attempt_answers WHERE attempt_id=$1 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Answer
	for rows.Next() {
		var ans domain.Answer
		var payload string
		var correct sql.NullBool
		var score sql.NullFloat64
		var feedback sql.NullString
		if err := rows.Scan(&ans.ID, &ans.AttemptID, &ans.QuestionID, &payload, &correct, &score, &feedback); err != nil {
			return nil, err
		}
		fillAnswer(&ans, payload, correct, score, feedback)
		out = append(out, ans)
	}
	return out, rows.Err()
}

func fillAnswer(ans *domain.Answer, payload string, correct sql.NullBool, score sql.NullFloat64, feedback sql.NullString) {
	ans.Payload = []byte(payload)
	if correct.Valid {
		v := correct.Bool
		ans.IsCorrect = &v
	}
	if score.Valid {
		v := score.Float64
		ans.Score = &v
	}
	ans.Feedback = feedback.String
}

// MarkSubmitted freezes the attempt. The status predicate keeps a second
// concurrent Submit from succeeding.
func (s *SQLStore) MarkSubmitted(ctx context.Context, id string, at time.Time) error {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE exam_attempts SET status=$1, submitted_at=$2
		  WHERE id=$3 AND academy_id=$4 AND status=$5`,
		domain.AttemptSubmitted, at.Unix(), id, academy, domain.AttemptInProgress)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.Invalidf("attempt is not in progress")
	}
	return nil
}

// GradeInTx runs fn with the attempt row locked, so concurrent grading
// passes serialize their read-modify-write of the aggregate.
func (s *SQLStore) GradeInTx(ctx context.Context, attemptID string, fn func(grading.Tx) error) error {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM exam_attempts WHERE id=$1 AND academy_id=$2`+s.forUpdate(),
		attemptID, academy).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("attempt")
	}
	if err != nil {
		return err
	}

	if err := fn(&gradeTx{ctx: ctx, tx: tx, attemptID: attemptID}); err != nil {
		return err
	}
	return tx.Commit()
}

type gradeTx struct {
	ctx       context.Context
	tx        *sql.Tx
	attemptID string
}

func (g *gradeTx) Answers() ([]domain.Answer, error) {
	return listAnswers(g.ctx, g.tx, g.attemptID)
}

func (g *gradeTx) SetGrade(answerID string, correct *bool, score *float64, feedback string) error {
	res, err := g.tx.ExecContext(g.ctx,
		`UPDATE attempt_answers SET is_correct=$1, score=$2, feedback=$3
		  WHERE id=$4 AND attempt_id=$5`,
		correct, score, feedback, answerID, g.attemptID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("answer")
	}
	return nil
}

func (g *gradeTx) SetTotals(total float64, status string) error {
	_, err := g.tx.ExecContext(g.ctx,
		`UPDATE exam_attempts SET total_score=$1, status=$2 WHERE id=$3`,
		total, status, g.attemptID)
	return err
}

// ListForExam returns summaries of every attempt whose assignment belongs
// to the exam, newest first.
func (s *SQLStore) ListForExam(ctx context.Context, examID string, limit, offset int) ([]domain.AttemptSummary, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.assignment_id, g.exam_id, a.student_id, a.started_at, a.submitted_at, a.total_score
		   FROM exam_attempts a
		   JOIN exam_assignments g ON g.id = a.assignment_id
		  WHERE g.exam_id=$1 AND a.academy_id=$2
		  ORDER BY a.started_at DESC, a.id
		  LIMIT $3 OFFSET $4`, examID, academy, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// ListForStudents returns summaries for a set of students (a parent's
// children) within an optional started-at date range.
func (s *SQLStore) ListForStudents(ctx context.Context, studentIDs []string, from, to time.Time, limit, offset int) ([]domain.AttemptSummary, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if len(studentIDs) == 0 {
		return nil, nil
	}
	args := []any{academy}
	in := make([]string, len(studentIDs))
	for i, id := range studentIDs {
		args = append(args, id)
		in[i] = fmt.Sprintf("$%d", len(args))
	}
	query := `SELECT a.id, a.assignment_id, g.exam_id, a.student_id, a.started_at, a.submitted_at, a.total_score
	   FROM exam_attempts a
	   JOIN exam_assignments g ON g.id = a.assignment_id
	  WHERE a.academy_id=$1 AND a.student_id IN (` + strings.Join(in, ",") + `)`
	if !from.IsZero() {
		args = append(args, from.Unix())
		query += fmt.Sprintf(" AND a.started_at >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to.Unix())
		query += fmt.Sprintf(" AND a.started_at < $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY a.started_at DESC, a.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]domain.AttemptSummary, error) {
	defer rows.Close()
	var out []domain.AttemptSummary
	for rows.Next() {
		var sum domain.AttemptSummary
		var started int64
		var submitted sql.NullInt64
		if err := rows.Scan(&sum.AttemptID, &sum.AssignmentID, &sum.ExamID, &sum.StudentID,
			&started, &submitted, &sum.TotalScore); err != nil {
			return nil, err
		}
		sum.StartedAt = time.Unix(started, 0)
		if submitted.Valid {
			t := time.Unix(submitted.Int64, 0)
			sum.SubmittedAt = &t
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ListTotalsByExam returns every attempt total for the exam, for the
// analytics aggregator.
func (s *SQLStore) ListTotalsByExam(ctx context.Context, examID string) ([]float64, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.total_score
		   FROM exam_attempts a
		   JOIN exam_assignments g ON g.id = a.assignment_id
		  WHERE g.exam_id=$1 AND a.academy_id=$2`, examID, academy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountHitsByQuestion counts, per exam question, the attempts whose answer
// was marked correct or carries a positive score.
func (s *SQLStore) CountHitsByQuestion(ctx context.Context, examID string) (map[string]int, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT aa.question_id, COUNT(*)
		   FROM attempt_answers aa
		   JOIN exam_attempts a ON a.id = aa.attempt_id
		   JOIN exam_assignments g ON g.id = a.assignment_id
		  WHERE g.exam_id=$1 AND a.academy_id=$2
		    AND (aa.is_correct = TRUE OR aa.score > 0)
		  GROUP BY aa.question_id`, examID, academy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var qid string
		var n int
		if err := rows.Scan(&qid, &n); err != nil {
			return nil, err
		}
		out[qid] = n
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") || // postgres
		strings.Contains(msg, "23505")
}
