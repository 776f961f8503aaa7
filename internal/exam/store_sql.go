package exam

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/tenant"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) CreateExam(ctx context.Context, e domain.Exam) error {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exams (id, academy_id, title, type, duration_min,
		                    shuffle_questions, shuffle_options, show_results,
		                    created_by, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, academy, e.Title, e.Type, e.DurationMin,
		e.ShuffleQuestions, e.ShuffleOptions, e.ShowResults,
		e.CreatedBy, e.CreatedAt.Unix())
	return err
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (domain.Exam, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return domain.Exam{}, err
	}
	var e domain.Exam
	var createdAt int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, academy_id, title, type, duration_min,
		        shuffle_questions, shuffle_options, show_results,
		        created_by, created_at
		   FROM exams WHERE id=$1 AND academy_id=$2`, id, academy).
		Scan(&e.ID, &e.AcademyID, &e.Title, &e.Type, &e.DurationMin,
			&e.ShuffleQuestions, &e.ShuffleOptions, &e.ShowResults,
			&e.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Exam{}, domain.NotFoundf("exam")
	}
	if err != nil {
		return domain.Exam{}, err
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	e.Questions, err = s.ListExamQuestions(ctx, id)
	if err != nil {
		return domain.Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) AddExamQuestion(ctx context.Context, eq domain.ExamQuestion) error {
	if _, err := s.GetExam(ctx, eq.ExamID); err != nil {
		return err
	}
	if _, err := s.GetQuestion(ctx, eq.QuestionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exam_questions (exam_id, question_id, points, sort_order)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (exam_id, question_id)
		 DO UPDATE SET points=EXCLUDED.points, sort_order=EXCLUDED.sort_order`,
		eq.ExamID, eq.QuestionID, eq.Points, eq.SortOrder)
	return err
}

func (s *SQLStore) ListExamQuestions(ctx context.Context, examID string) ([]domain.ExamQuestion, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT exam_id, question_id, points, sort_order
		   FROM exam_questions WHERE exam_id=$1 ORDER BY sort_order, question_id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ExamQuestion
	for rows.Next() {
		var eq domain.ExamQuestion
		if err := rows.Scan(&eq.ExamID, &eq.QuestionID, &eq.Points, &eq.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, eq)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateQuestion(ctx context.Context, q domain.Question) error {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (id, academy_id, type, prompt) VALUES ($1,$2,$3,$4)`,
		q.ID, academy, q.Type, q.Prompt)
	if err != nil {
		return err
	}
	for _, o := range q.Options {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO question_options (id, question_id, text, correct, sort_order)
			 VALUES ($1,$2,$3,$4,$5)`,
			o.ID, q.ID, o.Text, o.Correct, o.SortOrder)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	var q domain.Question
	err = s.db.QueryRowContext(ctx,
		`SELECT id, academy_id, type, prompt
		   FROM questions WHERE id=$1 AND academy_id=$2`, id, academy).
		Scan(&q.ID, &q.AcademyID, &q.Type, &q.Prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.NotFoundf("question")
	}
	if err != nil {
		return domain.Question{}, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, correct, sort_order
		   FROM question_options WHERE question_id=$1 ORDER BY sort_order, id`, id)
	if err != nil {
		return domain.Question{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var o domain.QuestionOption
		if err := rows.Scan(&o.ID, &o.Text, &o.Correct, &o.SortOrder); err != nil {
			return domain.Question{}, err
		}
		q.Options = append(q.Options, o)
	}
	return q, rows.Err()
}

// GetQuestions loads a batch of questions keyed by id. Missing ids are
// simply absent from the map; grading treats an unmatched link as ungraded.
func (s *SQLStore) GetQuestions(ctx context.Context, ids []string) (map[string]domain.Question, error) {
	out := make(map[string]domain.Question, len(ids))
	for _, id := range ids {
		q, err := s.GetQuestion(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out[id] = q
	}
	return out, nil
}

func (s *SQLStore) CreateAssignment(ctx context.Context, a domain.Assignment) error {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	group := nullable(a.GroupID)
	student := nullable(a.StudentID)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_assignments (id, academy_id, exam_id, group_id, student_id,
		                               opens_at, closes_at, attempts_allowed)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, academy, a.ExamID, group, student,
		a.OpensAt.Unix(), a.ClosesAt.Unix(), a.AttemptsAllowed)
	return err
}

func (s *SQLStore) GetAssignment(ctx context.Context, id string) (domain.Assignment, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return domain.Assignment{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, academy_id, exam_id, group_id, student_id,
		        opens_at, closes_at, attempts_allowed
		   FROM exam_assignments WHERE id=$1 AND academy_id=$2`, id, academy)
	return scanAssignment(row)
}

func (s *SQLStore) ListAssignments(ctx context.Context, examID string) ([]domain.Assignment, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, academy_id, exam_id, group_id, student_id,
		        opens_at, closes_at, attempts_allowed
		   FROM exam_assignments
		  WHERE exam_id=$1 AND academy_id=$2
		  ORDER BY opens_at ASC, id`, examID, academy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignmentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAssignment(row *sql.Row) (domain.Assignment, error) {
	var a domain.Assignment
	var group, student sql.NullString
	var opens, closes int64
	err := row.Scan(&a.ID, &a.AcademyID, &a.ExamID, &group, &student,
		&opens, &closes, &a.AttemptsAllowed)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assignment{}, domain.NotFoundf("assignment")
	}
	if err != nil {
		return domain.Assignment{}, err
	}
	a.GroupID, a.StudentID = group.String, student.String
	a.OpensAt, a.ClosesAt = time.Unix(opens, 0), time.Unix(closes, 0)
	return a, nil
}

func scanAssignmentRows(rows *sql.Rows) (domain.Assignment, error) {
	var a domain.Assignment
	var group, student sql.NullString
	var opens, closes int64
	if err := rows.Scan(&a.ID, &a.AcademyID, &a.ExamID, &group, &student,
		&opens, &closes, &a.AttemptsAllowed); err != nil {
		return domain.Assignment{}, err
	}
	a.GroupID, a.StudentID = group.String, student.String
	a.OpensAt, a.ClosesAt = time.Unix(opens, 0), time.Unix(closes, 0)
	return a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
