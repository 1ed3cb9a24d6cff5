package gradebook

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLStore persists scores in the scores table. The partial unique indexes
// (see internal/db) are the authoritative uniqueness guarantee: a concurrent
// insert for the same (enrollment, scope) loses at commit and is surfaced as
// *DuplicateScoreError here.
type SQLStore struct {
	db         *sql.DB
	driver     string // "sqlite" or "postgres"
	courseFlag bool   // write course_score=true for course-scope rows
}

func NewSQLStore(db *sql.DB, driver string, courseScoreSupported bool) *SQLStore {
	return &SQLStore{db: db, driver: driver, courseFlag: courseScoreSupported}
}

const scoreColumns = `id, enrollment_id, course_id, course_score, grading_period_id, assignment_group_id,
	current_score, final_score, override_score, unposted_current_score, unposted_final_score,
	created_at, updated_at, deleted_at`

func (s *SQLStore) Create(ctx context.Context, sc Score) (Score, error) {
	gp, ag := scopeRefCols(sc.Scope)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (`+scoreColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		sc.ID, sc.EnrollmentID, sc.CourseID, s.courseFlag && sc.CourseScore(), gp, ag,
		nullFloat(sc.Current), nullFloat(sc.Final), nullFloat(sc.Override),
		nullFloat(sc.UnpostedCurrent), nullFloat(sc.UnpostedFinal),
		sc.CreatedAt.Unix(), sc.UpdatedAt.Unix(), nullUnix(sc.DeletedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return Score{}, &DuplicateScoreError{EnrollmentID: sc.EnrollmentID, Scope: sc.Scope}
		}
		return Score{}, err
	}
	return sc, nil
}

func (s *SQLStore) Update(ctx context.Context, sc Score) (Score, error) {
	gp, ag := scopeRefCols(sc.Scope)
	res, err := s.db.ExecContext(ctx, `
		UPDATE scores SET
			course_score=$1, grading_period_id=$2, assignment_group_id=$3,
			current_score=$4, final_score=$5, override_score=$6,
			unposted_current_score=$7, unposted_final_score=$8,
			updated_at=$9, deleted_at=$10
		WHERE id=$11`,
		s.courseFlag && sc.CourseScore(), gp, ag,
		nullFloat(sc.Current), nullFloat(sc.Final), nullFloat(sc.Override),
		nullFloat(sc.UnpostedCurrent), nullFloat(sc.UnpostedFinal),
		sc.UpdatedAt.Unix(), nullUnix(sc.DeletedAt), sc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Score{}, &DuplicateScoreError{EnrollmentID: sc.EnrollmentID, Scope: sc.Scope}
		}
		return Score{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Score{}, ErrScoreNotFound
	}
	return sc, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Score, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scoreColumns+` FROM scores WHERE id=$1`, id)
	return scanScore(row)
}

func (s *SQLStore) FindByScope(ctx context.Context, enrollmentID string, scope Scope) (Score, error) {
	var row *sql.Row
	switch scope.Kind {
	case ScopeGradingPeriod:
		row = s.db.QueryRowContext(ctx, `
			SELECT `+scoreColumns+` FROM scores
			WHERE enrollment_id=$1 AND grading_period_id=$2
			ORDER BY deleted_at IS NOT NULL, updated_at DESC LIMIT 1`,
			enrollmentID, scope.GradingPeriodID)
	case ScopeAssignmentGroup:
		row = s.db.QueryRowContext(ctx, `
			SELECT `+scoreColumns+` FROM scores
			WHERE enrollment_id=$1 AND assignment_group_id=$2
			ORDER BY deleted_at IS NOT NULL, updated_at DESC LIMIT 1`,
			enrollmentID, scope.AssignmentGroupID)
	default:
		row = s.db.QueryRowContext(ctx, `
			SELECT `+scoreColumns+` FROM scores
			WHERE enrollment_id=$1 AND grading_period_id IS NULL AND assignment_group_id IS NULL
			ORDER BY deleted_at IS NOT NULL, updated_at DESC LIMIT 1`,
			enrollmentID)
	}
	return scanScore(row)
}

func (s *SQLStore) ListLive(ctx context.Context, enrollmentID string) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scoreColumns+` FROM scores
		WHERE enrollment_id=$1 AND deleted_at IS NULL
		ORDER BY created_at, id`, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Score{}
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scores SET deleted_at=$1, updated_at=$2 WHERE id=$3 AND deleted_at IS NULL`,
		at.Unix(), at.Unix(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either missing or already deleted; distinguish for the caller.
		if _, gerr := s.Get(ctx, id); gerr != nil {
			return gerr
		}
	}
	return nil
}

// --- row mapping ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (Score, error) {
	var (
		sc         Score
		gp, ag     sql.NullString
		cur, fin   sql.NullFloat64
		ovr        sql.NullFloat64
		ucur, ufin sql.NullFloat64
		createdAt  int64
		updatedAt  int64
		deletedAt  sql.NullInt64
		courseFlag bool
	)
	err := row.Scan(&sc.ID, &sc.EnrollmentID, &sc.CourseID, &courseFlag, &gp, &ag,
		&cur, &fin, &ovr, &ucur, &ufin, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Score{}, ErrScoreNotFound
		}
		return Score{}, err
	}
	switch {
	case gp.Valid:
		sc.Scope = GradingPeriodScope(gp.String)
	case ag.Valid:
		sc.Scope = AssignmentGroupScope(ag.String)
	default:
		// Both refs null means whole course whether or not the deployment
		// models the explicit flag.
		sc.Scope = CourseScope()
	}
	sc.Current = floatPtr(cur)
	sc.Final = floatPtr(fin)
	sc.Override = floatPtr(ovr)
	sc.UnpostedCurrent = floatPtr(ucur)
	sc.UnpostedFinal = floatPtr(ufin)
	sc.CreatedAt = time.Unix(createdAt, 0).UTC()
	sc.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	sc.Status = StatusActive
	if deletedAt.Valid {
		t := time.Unix(deletedAt.Int64, 0).UTC()
		sc.DeletedAt = &t
		sc.Status = StatusDeleted
	}
	return sc, nil
}

func scopeRefCols(scope Scope) (gp, ag sql.NullString) {
	switch scope.Kind {
	case ScopeGradingPeriod:
		gp = sql.NullString{String: scope.GradingPeriodID, Valid: true}
	case ScopeAssignmentGroup:
		ag = sql.NullString{String: scope.AssignmentGroupID, Valid: true}
	}
	return
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc.org/sqlite reports constraint failures by message only.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
