package http

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iorabi/canvas-lms/internal/course"
	"github.com/iorabi/canvas-lms/internal/db"
)

var courseDBSeq int

func newCourseTestEnv(t *testing.T) (chi.Router, *course.Store) {
	t.Helper()
	courseDBSeq++
	dsn := fmt.Sprintf("file:course_handlers_%d?mode=memory&cache=shared", courseDBSeq)
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })

	courses := course.NewStore(dbh)
	r := chi.NewRouter()
	r.Post("/courses", CreateCourseHandler(courses))
	r.Patch("/courses/{courseID}", UpdateCourseHandler(courses))
	r.Post("/courses/{courseID}/enrollments", EnrollUsersHandler(courses))
	return r, courses
}

func TestCreateCourse(t *testing.T) {
	r, courses := newCourseTestEnv(t)

	rec := doAs(t, r, "POST", "/courses", "prof", "application/json",
		`{"name":"Algebra","grading_standard_enabled":true}`)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var c course.Course
	_ = json.Unmarshal(rec.Body.Bytes(), &c)
	if !strings.HasPrefix(c.ID, "c-") || len(c.ID) <= len("c-") {
		t.Errorf("course id: %q", c.ID)
	}
	if !c.GradingStandardEnabled || c.Name != "Algebra" {
		t.Errorf("created course: %+v", c)
	}

	// IDs are random, not clock-derived.
	rec = doAs(t, r, "POST", "/courses", "prof", "application/json", `{"name":"Algebra II"}`)
	var c2 course.Course
	_ = json.Unmarshal(rec.Body.Bytes(), &c2)
	if c2.ID == c.ID {
		t.Errorf("duplicate course id %q", c.ID)
	}

	// The creator is enrolled as a teacher.
	roster, err := courses.LoadRoster(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !roster.HasTeacher("prof") {
		t.Error("creator not on the roster as teacher")
	}

	if rec := doAs(t, r, "POST", "/courses", "prof", "application/json", `{"name":""}`); rec.Code != nethttp.StatusBadRequest {
		t.Errorf("blank name: %d", rec.Code)
	}
}

func TestUpdateCourseAndEnroll(t *testing.T) {
	r, courses := newCourseTestEnv(t)

	rec := doAs(t, r, "POST", "/courses", "prof", "application/json", `{"name":"Algebra"}`)
	var c course.Course
	_ = json.Unmarshal(rec.Body.Bytes(), &c)

	// Only teachers on the course (or admins) may touch it.
	if rec := doAs(t, r, "PATCH", "/courses/"+c.ID, "mallory", "application/json",
		`{"hide_final_grades":true}`); rec.Code != nethttp.StatusForbidden {
		t.Errorf("outsider patch: %d", rec.Code)
	}
	rec = doAs(t, r, "PATCH", "/courses/"+c.ID, "prof", "application/json",
		`{"hide_final_grades":true,"grading_standard_enabled":true}`)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body)
	}
	got, err := courses.GetCourse(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HideFinalGrades || !got.GradingStandardEnabled || got.Name != "Algebra" {
		t.Errorf("patched course: %+v", got)
	}

	rec = doAs(t, r, "POST", "/courses/"+c.ID+"/enrollments", "prof", "application/json",
		`{"user_ids":["alice","bob"]}`)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("enroll: %d %s", rec.Code, rec.Body)
	}
	var enrolled []course.Enrollment
	_ = json.Unmarshal(rec.Body.Bytes(), &enrolled)
	if len(enrolled) != 2 || enrolled[0].Role != "student" {
		t.Errorf("enrollments: %+v", enrolled)
	}
	roster, _ := courses.LoadRoster(context.Background(), c.ID)
	if roster.OwnerUserID(enrolled[0].ID) != "alice" {
		t.Errorf("owner mapping: %+v", enrolled[0])
	}

	if rec := doAs(t, r, "PATCH", "/courses/nope", "prof", "application/json",
		`{"name":"X"}`); rec.Code != nethttp.StatusNotFound {
		t.Errorf("missing course: %d", rec.Code)
	}
}
