package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/iorabi/canvas-lms/internal/auth/middleware"
	"github.com/iorabi/canvas-lms/internal/db"
)

var userDBSeq int

func newUserTestRouter(t *testing.T) (chi.Router, *sql.DB) {
	t.Helper()
	userDBSeq++
	dsn := fmt.Sprintf("file:users_handlers_%d?mode=memory&cache=shared", userDBSeq)
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })

	r := chi.NewRouter()
	r.Post("/users/bulk", BulkUpsertUsersHandler(dbh))
	r.Get("/users", ListUsersHandler(dbh))
	r.Post("/users/change-password", ChangePasswordHandler(dbh))
	return r, dbh
}

func doAs(t *testing.T, r chi.Router, method, target, as, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if as != "" {
		req = req.WithContext(authmw.WithSubject(req.Context(), as))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func storedHash(t *testing.T, dbh *sql.DB, id string) string {
	t.Helper()
	var hash string
	if err := dbh.QueryRow(`SELECT password_hash FROM users WHERE id=$1`, id).Scan(&hash); err != nil {
		t.Fatalf("hash for %s: %v", id, err)
	}
	return hash
}

func TestBulkUpsertUsersJSON(t *testing.T) {
	r, dbh := newUserTestRouter(t)

	rec := doAs(t, r, "POST", "/users/bulk", "admin", "application/json",
		`[{"id":"u1","username":"alice","password":"pw-a"},
		  {"id":"u2","username":"prof","role":"teacher","password":"pw-p"}]`)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("bulk insert: %d %s", rec.Code, rec.Body)
	}
	var counts map[string]int
	_ = json.Unmarshal(rec.Body.Bytes(), &counts)
	if counts["inserted"] != 2 || counts["updated"] != 0 {
		t.Errorf("counts: %v", counts)
	}

	// Missing role defaults to student; the hash is a real bcrypt hash.
	rec = doAs(t, r, "GET", "/users?role=student", "admin", "", "")
	var students []userView
	_ = json.Unmarshal(rec.Body.Bytes(), &students)
	if len(students) != 1 || students[0].Username != "alice" {
		t.Errorf("students: %+v", students)
	}
	if bcrypt.CompareHashAndPassword([]byte(storedHash(t, dbh, "u1")), []byte("pw-a")) != nil {
		t.Error("stored hash does not verify")
	}

	// Re-posting an existing account without a password updates metadata and
	// keeps the old hash.
	before := storedHash(t, dbh, "u1")
	rec = doAs(t, r, "POST", "/users/bulk", "admin", "application/json",
		`[{"id":"u1","username":"alice","role":"teacher"}]`)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("bulk update: %d %s", rec.Code, rec.Body)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &counts)
	if counts["updated"] != 1 || counts["inserted"] != 0 {
		t.Errorf("update counts: %v", counts)
	}
	if storedHash(t, dbh, "u1") != before {
		t.Error("update without password replaced the hash")
	}
	rec = doAs(t, r, "GET", "/users?role=teacher", "admin", "", "")
	var teachers []userView
	_ = json.Unmarshal(rec.Body.Bytes(), &teachers)
	if len(teachers) != 2 {
		t.Errorf("teachers after role change: %+v", teachers)
	}

	// Bad rows are the caller's fault.
	if rec := doAs(t, r, "POST", "/users/bulk", "admin", "application/json",
		`[{"id":"u3","username":"carol"}]`); rec.Code != nethttp.StatusBadRequest {
		t.Errorf("new account without password: %d", rec.Code)
	}
	if rec := doAs(t, r, "POST", "/users/bulk", "admin", "application/json",
		`[{"id":"u3","username":"carol","role":"dean","password":"x"}]`); rec.Code != nethttp.StatusBadRequest {
		t.Errorf("unknown role: %d", rec.Code)
	}
	if rec := doAs(t, r, "POST", "/users/bulk", "admin", "application/json",
		`not json`); rec.Code != nethttp.StatusBadRequest {
		t.Errorf("garbage body: %d", rec.Code)
	}
}

func TestBulkUpsertUsersCSV(t *testing.T) {
	r, _ := newUserTestRouter(t)

	csvBody := "id,username,role,password\n" +
		"u1,alice,,pw-a\n" +
		"u2,prof,teacher,pw-p\n"
	rec := doAs(t, r, "POST", "/users/bulk", "admin", "text/csv", csvBody)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("csv upload: %d %s", rec.Code, rec.Body)
	}
	var counts map[string]int
	_ = json.Unmarshal(rec.Body.Bytes(), &counts)
	if counts["inserted"] != 2 {
		t.Errorf("csv counts: %v", counts)
	}

	rec = doAs(t, r, "GET", "/users", "admin", "", "")
	var all []userView
	_ = json.Unmarshal(rec.Body.Bytes(), &all)
	if len(all) != 2 || all[0].Username != "alice" || all[0].Role != "student" {
		t.Errorf("listing after csv import: %+v", all)
	}

	// Header without the id column is rejected before any write.
	if rec := doAs(t, r, "POST", "/users/bulk", "admin", "text/csv",
		"username,password\ncarol,pw\n"); rec.Code != nethttp.StatusBadRequest {
		t.Errorf("csv missing id column: %d", rec.Code)
	}
}

func TestChangePassword(t *testing.T) {
	r, dbh := newUserTestRouter(t)

	rec := doAs(t, r, "POST", "/users/bulk", "admin", "application/json",
		`[{"id":"u1","username":"alice","password":"old-pw"}]`)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("seed: %d %s", rec.Code, rec.Body)
	}

	if rec := doAs(t, r, "POST", "/users/change-password", "", "application/json",
		`{"old_password":"old-pw","new_password":"new-pw"}`); rec.Code != nethttp.StatusUnauthorized {
		t.Errorf("anonymous: %d", rec.Code)
	}
	if rec := doAs(t, r, "POST", "/users/change-password", "u1", "application/json",
		`{"old_password":"wrong","new_password":"new-pw"}`); rec.Code != nethttp.StatusForbidden {
		t.Errorf("wrong old password: %d", rec.Code)
	}
	if rec := doAs(t, r, "POST", "/users/change-password", "u1", "application/json",
		`{"old_password":"old-pw"}`); rec.Code != nethttp.StatusBadRequest {
		t.Errorf("missing new password: %d", rec.Code)
	}
	if rec := doAs(t, r, "POST", "/users/change-password", "ghost", "application/json",
		`{"old_password":"x","new_password":"y"}`); rec.Code != nethttp.StatusNotFound {
		t.Errorf("unknown account: %d", rec.Code)
	}

	rec = doAs(t, r, "POST", "/users/change-password", "u1", "application/json",
		`{"old_password":"old-pw","new_password":"new-pw"}`)
	if rec.Code != nethttp.StatusNoContent {
		t.Fatalf("rotate: %d %s", rec.Code, rec.Body)
	}
	hash := storedHash(t, dbh, "u1")
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-pw")) != nil {
		t.Error("new password does not verify")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("old-pw")) == nil {
		t.Error("old password still verifies")
	}
}
