package gradebook

import (
	"errors"
	"fmt"
)

// ErrScoreNotFound is returned by stores when no row matches.
var ErrScoreNotFound = errors.New("score not found")

// InvalidScopeError reports a score whose scope indicators do not pin down
// exactly one of course, grading period, or assignment group.
type InvalidScopeError struct {
	Reason string
}

func (e *InvalidScopeError) Error() string {
	return "invalid score scope: " + e.Reason
}

// ValidationError reports a bad field on a candidate score.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid score: %s %s", e.Field, e.Reason)
}

// DuplicateScoreError reports a second live score for the same enrollment and
// scope. It is raised either by the pre-commit check or by the storage-level
// uniqueness constraint at commit time.
type DuplicateScoreError struct {
	EnrollmentID string
	Scope        Scope
}

func (e *DuplicateScoreError) Error() string {
	return fmt.Sprintf("duplicate score for enrollment %s, scope %s", e.EnrollmentID, e.Scope.Key())
}
