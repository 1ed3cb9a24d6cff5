package http

import (
	"encoding/json"
	"errors"
	"time"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/iorabi/canvas-lms/internal/auth/middleware"
	"github.com/iorabi/canvas-lms/internal/course"
	"github.com/iorabi/canvas-lms/internal/gradebook"
	"github.com/iorabi/canvas-lms/internal/rbac"
)

// Handlers only — routes remain in main.go

type scoreParams struct {
	CourseScore       bool     `json:"course_score"`
	GradingPeriodID   *string  `json:"grading_period_id,omitempty"`
	AssignmentGroupID *string  `json:"assignment_group_id,omitempty"`
	CurrentScore      *float64 `json:"current_score,omitempty"`
	FinalScore        *float64 `json:"final_score,omitempty"`
	OverrideScore     *float64 `json:"override_score,omitempty"`
	UnpostedCurrent   *float64 `json:"unposted_current_score,omitempty"`
	UnpostedFinal     *float64 `json:"unposted_final_score,omitempty"`
}

type scoreView struct {
	ID                string   `json:"id"`
	EnrollmentID      string   `json:"enrollment_id"`
	CourseID          string   `json:"course_id"`
	CourseScore       bool     `json:"course_score"`
	GradingPeriodID   *string  `json:"grading_period_id,omitempty"`
	AssignmentGroupID *string  `json:"assignment_group_id,omitempty"`
	CurrentScore      *float64 `json:"current_score,omitempty"`
	FinalScore        *float64 `json:"final_score,omitempty"`
	CurrentGrade      *string  `json:"current_grade,omitempty"`
	FinalGrade        *string  `json:"final_grade,omitempty"`
	OverrideScore     *float64 `json:"override_score,omitempty"`
	EffectiveGrade    *string  `json:"effective_final_grade,omitempty"`
	UnpostedCurrent   *float64 `json:"unposted_current_score,omitempty"`
	UnpostedFinal     *float64 `json:"unposted_final_score,omitempty"`
	UpdatedAt         string   `json:"updated_at"`
	DeletedAt         *string  `json:"deleted_at,omitempty"`
}

func viewOf(sc gradebook.Score, crs course.Course, teacherView bool) scoreView {
	v := scoreView{
		ID:           sc.ID,
		EnrollmentID: sc.EnrollmentID,
		CourseID:     sc.CourseID,
		CourseScore:  sc.CourseScore(),
		CurrentScore: sc.Current,
		FinalScore:   sc.Final,
		UpdatedAt:    sc.UpdatedAt.UTC().Format(time.RFC3339),
	}
	refs := sc.Scope.Refs()
	v.GradingPeriodID = refs.GradingPeriodID
	v.AssignmentGroupID = refs.AssignmentGroupID
	if g, ok := sc.CurrentGrade(crs); ok {
		v.CurrentGrade = &g
	}
	if g, ok := sc.FinalGrade(crs); ok {
		v.FinalGrade = &g
	}
	if g, ok := sc.EffectiveFinalGrade(crs); ok {
		v.EffectiveGrade = &g
	}
	if teacherView {
		v.OverrideScore = sc.Override
		v.UnpostedCurrent = sc.UnpostedCurrent
		v.UnpostedFinal = sc.UnpostedFinal
	}
	if sc.DeletedAt != nil {
		t := sc.DeletedAt.UTC().Format(time.RFC3339)
		v.DeletedAt = &t
	}
	return v
}

func writeScoreErr(w nethttp.ResponseWriter, err error) {
	var (
		scopeErr *gradebook.InvalidScopeError
		valErr   *gradebook.ValidationError
		dupErr   *gradebook.DuplicateScoreError
	)
	switch {
	case errors.As(err, &scopeErr), errors.As(err, &valErr):
		nethttp.Error(w, err.Error(), nethttp.StatusUnprocessableEntity)
	case errors.As(err, &dupErr):
		nethttp.Error(w, err.Error(), nethttp.StatusConflict)
	case errors.Is(err, gradebook.ErrScoreNotFound):
		nethttp.Error(w, "score not found", nethttp.StatusNotFound)
	default:
		nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
	}
}

// PUT /enrollments/{enrollmentID}/scores — upsert the aggregate for one scope.
func UpsertScoreHandler(svc *gradebook.Service, courses *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		enrollmentID := chi.URLParam(r, "enrollmentID")

		enr, err := courses.GetEnrollment(r.Context(), enrollmentID)
		if err != nil {
			nethttp.Error(w, "enrollment not found", nethttp.StatusNotFound)
			return
		}
		roster, err := courses.LoadRoster(r.Context(), enr.CourseID)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		if !roster.HasTeacher(sub) && rbac.RoleFromContext(r.Context()) != "admin" {
			nethttp.Error(w, "forbidden", nethttp.StatusForbidden)
			return
		}

		var req scoreParams
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		sc, err := svc.Recalculate(r.Context(), gradebook.Params{
			EnrollmentID:      enrollmentID,
			CourseID:          enr.CourseID,
			CourseScore:       req.CourseScore,
			GradingPeriodID:   req.GradingPeriodID,
			AssignmentGroupID: req.AssignmentGroupID,
			Current:           req.CurrentScore,
			Final:             req.FinalScore,
			Override:          req.OverrideScore,
			UnpostedCurrent:   req.UnpostedCurrent,
			UnpostedFinal:     req.UnpostedFinal,
			Actor:             sub,
		})
		if err != nil {
			writeScoreErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(viewOf(sc, roster.Course(), true))
	}
}

// GET /scores/{scoreID} — read one score, soft-deleted included; the read
// policy runs against the current course configuration on every request.
func GetScoreHandler(svc *gradebook.Service, courses *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		sc, err := svc.Store.Get(r.Context(), chi.URLParam(r, "scoreID"))
		if err != nil {
			writeScoreErr(w, err)
			return
		}
		roster, err := courses.LoadRoster(r.Context(), sc.CourseID)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		if !gradebook.CanRead(sub, &sc, roster, roster) {
			nethttp.Error(w, "forbidden", nethttp.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(viewOf(sc, roster.Course(), roster.HasTeacher(sub)))
	}
}

// GET /enrollments/{enrollmentID}/scores — live scores only.
func ListEnrollmentScoresHandler(svc *gradebook.Service, courses *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		enrollmentID := chi.URLParam(r, "enrollmentID")

		enr, err := courses.GetEnrollment(r.Context(), enrollmentID)
		if err != nil {
			nethttp.Error(w, "enrollment not found", nethttp.StatusNotFound)
			return
		}
		roster, err := courses.LoadRoster(r.Context(), enr.CourseID)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		teacher := roster.HasTeacher(sub)
		owner := roster.OwnerUserID(enrollmentID) == sub && sub != ""
		switch {
		case teacher, rbac.RoleFromContext(r.Context()) == "admin":
		case owner && !roster.HideFinalGrades():
		default:
			nethttp.Error(w, "forbidden", nethttp.StatusForbidden)
			return
		}
		scores, err := svc.Store.ListLive(r.Context(), enrollmentID)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		out := make([]scoreView, 0, len(scores))
		for i := range scores {
			out = append(out, viewOf(scores[i], roster.Course(), teacher))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out) // [] when empty
	}
}

// DELETE /scores/{scoreID} — soft delete; history stays inspectable.
func DeleteScoreHandler(svc *gradebook.Service, courses *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		sc, err := svc.Store.Get(r.Context(), chi.URLParam(r, "scoreID"))
		if err != nil {
			writeScoreErr(w, err)
			return
		}
		roster, err := courses.LoadRoster(r.Context(), sc.CourseID)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		if !roster.HasTeacher(sub) && rbac.RoleFromContext(r.Context()) != "admin" {
			nethttp.Error(w, "forbidden", nethttp.StatusForbidden)
			return
		}
		if err := svc.SoftDelete(r.Context(), sc.ID, sub); err != nil {
			writeScoreErr(w, err)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}
