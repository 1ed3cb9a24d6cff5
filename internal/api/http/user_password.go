package http

import (
	"database/sql"
	"encoding/json"
	"errors"

	nethttp "net/http"

	"golang.org/x/crypto/bcrypt"

	authmw "github.com/iorabi/canvas-lms/internal/auth/middleware"
)

// POST /users/change-password — self-service credential rotation. The account
// comes from the token subject, so callers can only change their own password.
func ChangePasswordHandler(db *sql.DB) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		if userID == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}

		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
			nethttp.Error(w, "old_password and new_password required", nethttp.StatusBadRequest)
			return
		}

		var hash string
		err := db.QueryRowContext(r.Context(),
			`SELECT password_hash FROM users WHERE id=$1`, userID).Scan(&hash)
		if errors.Is(err, sql.ErrNoRows) {
			nethttp.Error(w, "user not found", nethttp.StatusNotFound)
			return
		}
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.OldPassword)) != nil {
			nethttp.Error(w, "old password does not match", nethttp.StatusForbidden)
			return
		}

		next, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			nethttp.Error(w, "hash error", nethttp.StatusInternalServerError)
			return
		}
		if _, err := db.ExecContext(r.Context(),
			`UPDATE users SET password_hash=$1 WHERE id=$2`, string(next), userID); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}
