package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil) // default policy

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "score:view", true},
		{"student", "score:update", false},
		{"teacher", "score:update", true},
		{"teacher", "course:create", true},
		{"teacher", "admin:anything", false},
		{"admin", "score:delete", true}, // wildcard
		{"admin", "whatever:else", true},
		{"ghost", "score:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerPrefixPatterns(t *testing.T) {
	c := NewChecker(map[string][]string{
		"auditor": {"score:*"},
	})
	if !c.Has("auditor", "score:view") || !c.Has("auditor", "score:update") {
		t.Error("prefix pattern should cover score permissions")
	}
	if c.Has("auditor", "course:update") {
		t.Error("prefix pattern leaked outside its namespace")
	}
	if !c.Any("auditor", "course:update", "score:view") {
		t.Error("Any should pass when one permission matches")
	}
	if c.Any("auditor", "course:update", "users:list") {
		t.Error("Any passed with no matching permission")
	}
}

func TestRequireMiddleware(t *testing.T) {
	h := Require("score:update")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	run := func(role string) int {
		req := httptest.NewRequest("PUT", "/scores", nil)
		if role != "" {
			req = req.WithContext(WithRole(req.Context(), role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := run("teacher"); code != http.StatusNoContent {
		t.Errorf("teacher: %d", code)
	}
	if code := run("admin"); code != http.StatusNoContent {
		t.Errorf("admin: %d", code)
	}
	if code := run("student"); code != http.StatusForbidden {
		t.Errorf("student: %d", code)
	}
	if code := run(""); code != http.StatusForbidden {
		t.Errorf("no role: %d", code)
	}
}
