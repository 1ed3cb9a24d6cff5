package course

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) PutCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (id, name, grading_standard_enabled, grading_scheme, hide_final_grades)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			grading_standard_enabled=EXCLUDED.grading_standard_enabled,
			grading_scheme=EXCLUDED.grading_scheme,
			hide_final_grades=EXCLUDED.hide_final_grades`,
		c.ID, c.Name, c.GradingStandardEnabled, c.GradingScheme, c.HideFinalGrades)
	return err
}

func (s *Store) GetCourse(ctx context.Context, id string) (Course, error) {
	var c Course
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, grading_standard_enabled, grading_scheme, hide_final_grades
		FROM courses WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.GradingStandardEnabled, &c.GradingScheme, &c.HideFinalGrades)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, ErrCourseNotFound
	}
	return c, err
}

func (s *Store) PutEnrollment(ctx context.Context, e Enrollment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrollments (id, course_id, user_id, role)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET role=EXCLUDED.role`,
		e.ID, e.CourseID, e.UserID, e.Role)
	return err
}

func (s *Store) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	var e Enrollment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, course_id, user_id, role FROM enrollments WHERE id=$1`, id).
		Scan(&e.ID, &e.CourseID, &e.UserID, &e.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	return e, err
}

func (s *Store) PutGradingPeriod(ctx context.Context, p GradingPeriod) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grading_periods (id, course_id, title, start_at, end_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, start_at=EXCLUDED.start_at, end_at=EXCLUDED.end_at`,
		p.ID, p.CourseID, p.Title, p.StartAt, p.EndAt)
	return err
}

func (s *Store) PutAssignmentGroup(ctx context.Context, g AssignmentGroup) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignment_groups (id, course_id, name, group_weight)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, group_weight=EXCLUDED.group_weight`,
		g.ID, g.CourseID, g.Name, g.GroupWeight)
	return err
}

// Roster is a per-request snapshot of who is who on a course. It satisfies
// the score read-policy interfaces; build a fresh one per request so flag
// flips like hide_final_grades take effect on the next read.
type Roster struct {
	course   Course
	teachers map[string]bool
	owners   map[string]string // enrollment id -> student user id
}

func (r *Roster) Course() Course        { return r.course }
func (r *Roster) HideFinalGrades() bool { return r.course.HideFinalGrades }

func (r *Roster) HasTeacher(userID string) bool { return r.teachers[userID] }

func (r *Roster) OwnerUserID(enrollmentID string) string { return r.owners[enrollmentID] }

// LoadRoster reads the course and its enrollments in one pass.
func (s *Store) LoadRoster(ctx context.Context, courseID string) (*Roster, error) {
	c, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role FROM enrollments WHERE course_id=$1`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	r := &Roster{course: c, teachers: map[string]bool{}, owners: map[string]string{}}
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.Role); err != nil {
			return nil, err
		}
		if e.Teaching() {
			r.teachers[e.UserID] = true
		} else {
			r.owners[e.ID] = e.UserID
		}
	}
	return r, rows.Err()
}
