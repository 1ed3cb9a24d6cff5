package gradebook

// ScopeKind names the granularity a score summarizes.
type ScopeKind string

const (
	ScopeCourse          ScopeKind = "course"
	ScopeGradingPeriod   ScopeKind = "grading_period"
	ScopeAssignmentGroup ScopeKind = "assignment_group"
)

// Scope is a tagged variant: a score belongs to the whole course, to one
// grading period, or to one assignment group — never more than one.
type Scope struct {
	Kind              ScopeKind
	GradingPeriodID   string // set iff Kind == ScopeGradingPeriod
	AssignmentGroupID string // set iff Kind == ScopeAssignmentGroup
}

func CourseScope() Scope { return Scope{Kind: ScopeCourse} }

func GradingPeriodScope(id string) Scope {
	return Scope{Kind: ScopeGradingPeriod, GradingPeriodID: id}
}

func AssignmentGroupScope(id string) Scope {
	return Scope{Kind: ScopeAssignmentGroup, AssignmentGroupID: id}
}

// Key is a comparable identity for uniqueness checks: two scores conflict
// exactly when their enrollment and Key match.
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeGradingPeriod:
		return "gp:" + s.GradingPeriodID
	case ScopeAssignmentGroup:
		return "ag:" + s.AssignmentGroupID
	default:
		return "course"
	}
}

// ScopeRefs is the nullable-reference shape scores arrive in from callers and
// storage: an explicit course flag plus optional period/group references.
type ScopeRefs struct {
	CourseScore       bool
	GradingPeriodID   *string
	AssignmentGroupID *string
}

// Refs converts a Scope back to its storage shape.
func (s Scope) Refs() ScopeRefs {
	switch s.Kind {
	case ScopeGradingPeriod:
		id := s.GradingPeriodID
		return ScopeRefs{GradingPeriodID: &id}
	case ScopeAssignmentGroup:
		id := s.AssignmentGroupID
		return ScopeRefs{AssignmentGroupID: &id}
	default:
		return ScopeRefs{CourseScore: true}
	}
}

// Resolver validates scope references and produces the single Scope a
// candidate score belongs to. It is pure: call it before persisting and again
// on any update that touches scope fields.
//
// When course-level scoring is not modeled explicitly (legacy deployments),
// the zero-indicator state means "whole course" and only the grading-period /
// assignment-group exclusion is enforced.
type Resolver struct {
	courseScoreSupported bool
}

func NewResolver(courseScoreSupported bool) *Resolver {
	return &Resolver{courseScoreSupported: courseScoreSupported}
}

// CourseScoreSupported reports whether whole-course scores carry an explicit
// flag in this deployment.
func (r *Resolver) CourseScoreSupported() bool { return r.courseScoreSupported }

// Resolve returns the scope the references describe, or an InvalidScopeError
// when they describe none or more than one.
func (r *Resolver) Resolve(refs ScopeRefs) (Scope, error) {
	hasPeriod := refs.GradingPeriodID != nil && *refs.GradingPeriodID != ""
	hasGroup := refs.AssignmentGroupID != nil && *refs.AssignmentGroupID != ""

	if hasPeriod && hasGroup {
		return Scope{}, &InvalidScopeError{Reason: "both grading period and assignment group set"}
	}

	if !r.courseScoreSupported {
		if refs.CourseScore {
			return Scope{}, &InvalidScopeError{Reason: "course score flag not supported by this deployment"}
		}
		switch {
		case hasPeriod:
			return GradingPeriodScope(*refs.GradingPeriodID), nil
		case hasGroup:
			return AssignmentGroupScope(*refs.AssignmentGroupID), nil
		default:
			// No grading period means the whole course in legacy mode.
			return CourseScope(), nil
		}
	}

	switch {
	case refs.CourseScore && (hasPeriod || hasGroup):
		return Scope{}, &InvalidScopeError{Reason: "course score flag set alongside a scope reference"}
	case refs.CourseScore:
		return CourseScope(), nil
	case hasPeriod:
		return GradingPeriodScope(*refs.GradingPeriodID), nil
	case hasGroup:
		return AssignmentGroupScope(*refs.AssignmentGroupID), nil
	default:
		return Scope{}, &InvalidScopeError{Reason: "no scope set"}
	}
}
