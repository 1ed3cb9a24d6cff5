package course

import (
	"github.com/iorabi/canvas-lms/internal/grading"
)

// Course carries the configuration the score logic consults: whether letter
// grades are enabled, which scheme maps numbers to letters, and whether final
// grades are hidden from students.
type Course struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	GradingStandardEnabled bool   `json:"grading_standard_enabled"`
	GradingScheme          string `json:"grading_scheme,omitempty"` // registry key; empty = default
	HideFinalGrades        bool   `json:"hide_final_grades"`
}

// GradingEnabled satisfies the grade-delegation capability scores depend on.
func (c Course) GradingEnabled() bool { return c.GradingStandardEnabled }

// ScoreToGrade delegates to the course's configured scheme.
func (c Course) ScoreToGrade(score float64) string {
	return grading.SchemeFor(c.GradingScheme).ScoreToGrade(score)
}

// Enrollment binds a user to a course in a role.
type Enrollment struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"` // student|teacher|ta
}

// Teaching reports whether the enrollment carries a teaching role.
func (e Enrollment) Teaching() bool { return e.Role == "teacher" || e.Role == "ta" }

// GradingPeriod and AssignmentGroup are opaque scope identities; scores
// compare them by id only.
type GradingPeriod struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	StartAt  *int64 `json:"start_at,omitempty"` // unix seconds
	EndAt    *int64 `json:"end_at,omitempty"`
}

type AssignmentGroup struct {
	ID          string  `json:"id"`
	CourseID    string  `json:"course_id"`
	Name        string  `json:"name"`
	GroupWeight float64 `json:"group_weight"`
}
