package course_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iorabi/canvas-lms/internal/course"
	"github.com/iorabi/canvas-lms/internal/db"
)

func openStore(t *testing.T, name string) *course.Store {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return course.NewStore(dbh)
}

func TestCourseRoundTrip(t *testing.T) {
	s := openStore(t, "course_roundtrip")
	ctx := context.Background()

	c := course.Course{ID: "c1", Name: "Algebra", GradingStandardEnabled: true, GradingScheme: "default", HideFinalGrades: true}
	if err := s.PutCourse(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetCourse(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if got != c {
		t.Errorf("got %+v, want %+v", got, c)
	}

	// Put is an upsert.
	c.HideFinalGrades = false
	c.Name = "Algebra II"
	if err := s.PutCourse(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetCourse(ctx, "c1")
	if got != c {
		t.Errorf("after upsert: %+v", got)
	}

	if _, err := s.GetCourse(ctx, "nope"); !errors.Is(err, course.ErrCourseNotFound) {
		t.Errorf("missing course: %v", err)
	}
	if _, err := s.GetEnrollment(ctx, "nope"); !errors.Is(err, course.ErrEnrollmentNotFound) {
		t.Errorf("missing enrollment: %v", err)
	}
}

func TestLoadRoster(t *testing.T) {
	s := openStore(t, "course_roster")
	ctx := context.Background()

	if err := s.PutCourse(ctx, course.Course{ID: "c1", Name: "Algebra", HideFinalGrades: true}); err != nil {
		t.Fatal(err)
	}
	for _, e := range []course.Enrollment{
		{ID: "e1", CourseID: "c1", UserID: "alice", Role: "student"},
		{ID: "e2", CourseID: "c1", UserID: "prof", Role: "teacher"},
		{ID: "e3", CourseID: "c1", UserID: "helper", Role: "ta"},
	} {
		if err := s.PutEnrollment(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	r, err := s.LoadRoster(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if !r.HideFinalGrades() {
		t.Error("hide flag lost")
	}
	if !r.HasTeacher("prof") || !r.HasTeacher("helper") {
		t.Error("teaching roles not recognized")
	}
	if r.HasTeacher("alice") {
		t.Error("student counted as teacher")
	}
	if r.OwnerUserID("e1") != "alice" {
		t.Errorf("owner of e1: %q", r.OwnerUserID("e1"))
	}
	// Teaching enrollments are not score owners.
	if r.OwnerUserID("e2") != "" {
		t.Errorf("teacher enrollment has an owner: %q", r.OwnerUserID("e2"))
	}

	if _, err := s.LoadRoster(ctx, "nope"); !errors.Is(err, course.ErrCourseNotFound) {
		t.Errorf("missing course roster: %v", err)
	}
}

func TestCourseGradeDelegation(t *testing.T) {
	c := course.Course{GradingStandardEnabled: true}
	if !c.GradingEnabled() {
		t.Fatal("grading should be enabled")
	}
	// Empty scheme key falls back to the default table.
	if got := c.ScoreToGrade(80.2); got != "B-" {
		t.Errorf("ScoreToGrade(80.2) = %q, want B-", got)
	}
	if got := c.ScoreToGrade(74); got != "C" {
		t.Errorf("ScoreToGrade(74) = %q, want C", got)
	}
}
