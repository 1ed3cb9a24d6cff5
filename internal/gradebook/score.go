package gradebook

import (
	"math"
	"time"
)

// Status is the lifecycle flag of a score row. Deleted rows stay in storage
// with their numeric history but drop out of default queries and uniqueness
// checks.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// GradeCourse is the slice of course state a score needs to turn numbers into
// letters. The owning course is an injected collaborator, not a parent.
type GradeCourse interface {
	GradingEnabled() bool
	ScoreToGrade(score float64) string
}

// Score is a student's aggregated grade for one scope of one enrollment.
// Numeric fields are percentage-like but unbounded; nil means "not computed".
type Score struct {
	ID           string
	EnrollmentID string
	CourseID     string
	Scope        Scope

	Current  *float64
	Final    *float64
	Override *float64 // teacher-entered final override, wins over Final

	// Unposted variants include grades not yet released to the student.
	UnpostedCurrent *float64
	UnpostedFinal   *float64

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (s *Score) CourseScore() bool { return s.Scope.Kind == ScopeCourse }

func (s *Score) Deleted() bool { return s.Status == StatusDeleted }

// Scorable identifies the concrete object a score summarizes, for downstream
// reporting. Periods and groups are compared by id only.
type Scorable struct {
	Kind ScopeKind
	ID   string
}

func (s *Score) Scorable() Scorable {
	switch s.Scope.Kind {
	case ScopeGradingPeriod:
		return Scorable{Kind: ScopeGradingPeriod, ID: s.Scope.GradingPeriodID}
	case ScopeAssignmentGroup:
		return Scorable{Kind: ScopeAssignmentGroup, ID: s.Scope.AssignmentGroupID}
	default:
		return Scorable{Kind: ScopeCourse, ID: s.CourseID}
	}
}

// Validate checks field-level invariants. Scope shape is the Resolver's job
// and uniqueness is the store's; both run separately in the write path.
func (s *Score) Validate() error {
	if s.EnrollmentID == "" {
		return &ValidationError{Field: "enrollment_id", Reason: "is required"}
	}
	if s.CourseID == "" {
		return &ValidationError{Field: "course_id", Reason: "is required"}
	}
	for field, v := range map[string]*float64{
		"current_score":          s.Current,
		"final_score":            s.Final,
		"override_score":         s.Override,
		"unposted_current_score": s.UnpostedCurrent,
		"unposted_final_score":   s.UnpostedFinal,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return &ValidationError{Field: field, Reason: "is not a number"}
		}
	}
	return nil
}

// CurrentGrade is the letter for Current, or ok=false when the course has
// grading standards disabled or the value is not computed.
func (s *Score) CurrentGrade(c GradeCourse) (string, bool) { return letterFor(c, s.Current) }

// FinalGrade is the letter for Final under the same rules as CurrentGrade.
func (s *Score) FinalGrade(c GradeCourse) (string, bool) { return letterFor(c, s.Final) }

func (s *Score) UnpostedCurrentGrade(c GradeCourse) (string, bool) {
	return letterFor(c, s.UnpostedCurrent)
}

func (s *Score) UnpostedFinalGrade(c GradeCourse) (string, bool) {
	return letterFor(c, s.UnpostedFinal)
}

// EffectiveFinalScore prefers the override when a teacher has entered one.
func (s *Score) EffectiveFinalScore() (float64, bool) {
	if s.Override != nil {
		return *s.Override, true
	}
	if s.Final != nil {
		return *s.Final, true
	}
	return 0, false
}

func (s *Score) EffectiveFinalGrade(c GradeCourse) (string, bool) {
	v, ok := s.EffectiveFinalScore()
	if !ok {
		return "", false
	}
	return letterFor(c, &v)
}

func letterFor(c GradeCourse, v *float64) (string, bool) {
	if c == nil || !c.GradingEnabled() || v == nil {
		return "", false
	}
	return c.ScoreToGrade(*v), true
}
