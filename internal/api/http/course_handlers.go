package http

import (
	"encoding/json"
	"strings"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authmw "github.com/iorabi/canvas-lms/internal/auth/middleware"
	"github.com/iorabi/canvas-lms/internal/course"
	"github.com/iorabi/canvas-lms/internal/rbac"
)

// Admin plumbing for the collaborators scores hang off: courses with their
// grading configuration, enrollments, grading periods, assignment groups.

func CreateCourseHandler(courses *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			Name                   string `json:"name"`
			GradingStandardEnabled bool   `json:"grading_standard_enabled"`
			GradingScheme          string `json:"grading_scheme"`
			HideFinalGrades        bool   `json:"hide_final_grades"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		c := course.Course{
			ID:                     "c-" + uuid.NewString(),
			Name:                   req.Name,
			GradingStandardEnabled: req.GradingStandardEnabled,
			GradingScheme:          req.GradingScheme,
			HideFinalGrades:        req.HideFinalGrades,
		}
		if err := courses.PutCourse(r.Context(), c); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		// creator becomes a teacher on the course
		_ = courses.PutEnrollment(r.Context(), course.Enrollment{
			ID: "e-" + uuid.NewString(), CourseID: c.ID, UserID: sub, Role: "teacher",
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c)
	}
}

// PATCH /courses/{courseID} — flips the grading configuration; reads pick the
// new flags up on their next request.
func UpdateCourseHandler(courses *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID := chi.URLParam(r, "courseID")
		roster, ok := requireCourseTeacher(w, r, courses, courseID)
		if !ok {
			return
		}
		var req struct {
			Name                   *string `json:"name"`
			GradingStandardEnabled *bool   `json:"grading_standard_enabled"`
			GradingScheme          *string `json:"grading_scheme"`
			HideFinalGrades        *bool   `json:"hide_final_grades"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		c := roster.Course()
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			c.Name = *req.Name
		}
		if req.GradingStandardEnabled != nil {
			c.GradingStandardEnabled = *req.GradingStandardEnabled
		}
		if req.GradingScheme != nil {
			c.GradingScheme = *req.GradingScheme
		}
		if req.HideFinalGrades != nil {
			c.HideFinalGrades = *req.HideFinalGrades
		}
		if err := courses.PutCourse(r.Context(), c); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c)
	}
}

// POST /courses/{courseID}/enrollments
func EnrollUsersHandler(courses *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID := chi.URLParam(r, "courseID")
		if _, ok := requireCourseTeacher(w, r, courses, courseID); !ok {
			return
		}
		var req struct {
			UserIDs []string `json:"user_ids"`
			Role    string   `json:"role"` // student|teacher|ta, default student
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UserIDs) == 0 {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		role := "student"
		if req.Role == "teacher" || req.Role == "ta" {
			role = req.Role
		}
		out := []course.Enrollment{}
		for _, uid := range req.UserIDs {
			uid = strings.TrimSpace(uid)
			if uid == "" {
				continue
			}
			e := course.Enrollment{ID: "e-" + uuid.NewString(), CourseID: courseID, UserID: uid, Role: role}
			if err := courses.PutEnrollment(r.Context(), e); err != nil {
				nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
				return
			}
			out = append(out, e)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// POST /courses/{courseID}/grading_periods
func CreateGradingPeriodHandler(courses *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID := chi.URLParam(r, "courseID")
		if _, ok := requireCourseTeacher(w, r, courses, courseID); !ok {
			return
		}
		var req struct {
			Title   string `json:"title"`
			StartAt *int64 `json:"start_at,omitempty"` // unix seconds
			EndAt   *int64 `json:"end_at,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		p := course.GradingPeriod{
			ID: "gp-" + uuid.NewString(), CourseID: courseID,
			Title: req.Title, StartAt: req.StartAt, EndAt: req.EndAt,
		}
		if err := courses.PutGradingPeriod(r.Context(), p); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	}
}

// POST /courses/{courseID}/assignment_groups
func CreateAssignmentGroupHandler(courses *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID := chi.URLParam(r, "courseID")
		if _, ok := requireCourseTeacher(w, r, courses, courseID); !ok {
			return
		}
		var req struct {
			Name        string  `json:"name"`
			GroupWeight float64 `json:"group_weight"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		g := course.AssignmentGroup{
			ID: "ag-" + uuid.NewString(), CourseID: courseID,
			Name: req.Name, GroupWeight: req.GroupWeight,
		}
		if err := courses.PutAssignmentGroup(r.Context(), g); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(g)
	}
}

// requireCourseTeacher loads the roster and 403s/404s for callers without a
// teaching role on the course (admins pass).
func requireCourseTeacher(w nethttp.ResponseWriter, r *nethttp.Request, courses *course.Store, courseID string) (*course.Roster, bool) {
	roster, err := courses.LoadRoster(r.Context(), courseID)
	if err != nil {
		if err == course.ErrCourseNotFound {
			nethttp.Error(w, "course not found", nethttp.StatusNotFound)
		} else {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
		}
		return nil, false
	}
	sub := authmw.SubjectFromContext(r.Context())
	if !roster.HasTeacher(sub) && rbac.RoleFromContext(r.Context()) != "admin" {
		nethttp.Error(w, "forbidden", nethttp.StatusForbidden)
		return nil, false
	}
	return roster, true
}
