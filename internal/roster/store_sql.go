// Package roster holds the people side of an academy: accounts, teaching
// groups, enrollments, and guardian links. The exam core reads it to
// resolve access (group membership as of today, instructor ownership,
// parent-child links).
package roster

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

func (s *SQLStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return domain.User{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, academy_id, username, display_name, role, pass_hash
		   FROM users WHERE id=$1 AND academy_id=$2`, id, academy)
	return scanUser(row)
}

// GetUserByUsername is unscoped: login is what establishes tenant scope.
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, academy_id, username, display_name, role, pass_hash
		   FROM users WHERE username=$1`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.AcademyID, &u.Username, &u.DisplayName, &u.Role, &u.PassHash)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NotFoundf("user")
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *SQLStore) GetGroup(ctx context.Context, id string) (domain.Group, error) {
	academy, err := tenant.Require(ctx)
	if err != nil {
		return domain.Group{}, err
	}
	var g domain.Group
	err = s.db.QueryRowContext(ctx,
		`SELECT id, academy_id, name, instructor_id
		   FROM groups WHERE id=$1 AND academy_id=$2`, id, academy).
		Scan(&g.ID, &g.AcademyID, &g.Name, &g.InstructorID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Group{}, domain.NotFoundf("group")
	}
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

// HasActiveEnrollment reports whether the student holds an enrollment in
// the group that has no end date or ends on/after the asOf day.
func (s *SQLStore) HasActiveEnrollment(ctx context.Context, groupID, studentID string, asOf time.Time) (bool, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return false, err
	}
	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location()).Unix()
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM enrollments
		  WHERE group_id=$1 AND student_id=$2 AND (ends_at IS NULL OR ends_at >= $3)`,
		groupID, studentID, day).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListChildIDs returns the student ids linked to a parent account.
func (s *SQLStore) ListChildIDs(ctx context.Context, parentID string) ([]string, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id FROM guardians WHERE parent_id=$1`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---- write side, used by the seed command and tests ----

func (s *SQLStore) CreateAcademy(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO academies (id, name) VALUES ($1,$2)`, id, name)
	return err
}

func (s *SQLStore) CreateUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, academy_id, username, display_name, role, pass_hash)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.AcademyID, u.Username, u.DisplayName, u.Role, u.PassHash)
	return err
}

func (s *SQLStore) CreateGroup(ctx context.Context, g domain.Group) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (id, academy_id, name, instructor_id) VALUES ($1,$2,$3,$4)`,
		g.ID, g.AcademyID, g.Name, g.InstructorID)
	return err
}

func (s *SQLStore) Enroll(ctx context.Context, e domain.Enrollment) error {
	var ends *int64
	if e.EndsAt != nil {
		v := e.EndsAt.Unix()
		ends = &v
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollments (id, group_id, student_id, starts_at, ends_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.GroupID, e.StudentID, e.StartsAt.Unix(), ends)
	return err
}

func (s *SQLStore) AddGuardian(ctx context.Context, parentID, studentID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guardians (parent_id, student_id) VALUES ($1,$2)`, parentID, studentID)
	return err
}
