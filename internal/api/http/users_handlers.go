package http

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	nethttp "net/http"

	"golang.org/x/crypto/bcrypt"
)

// Account provisioning for the roster: a registrar pushes the student body in
// bulk, as a JSON array or a CSV export from the student information system,
// before anyone is enrolled in a course.

type userUpsert struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`               // student|teacher|admin, default student
	Password string `json:"password,omitempty"` // required for new accounts
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

var errBadUserRow = errors.New("bad user row")

// POST /users/bulk
func BulkUpsertUsersHandler(db *sql.DB) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		rows, err := decodeUserRows(r)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
			return
		}
		inserted, updated, err := applyUserUpserts(r.Context(), db, rows)
		if err != nil {
			if errors.Is(err, errBadUserRow) {
				nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
			} else {
				nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"inserted": inserted, "updated": updated})
	}
}

// GET /users?role=student
func ListUsersHandler(db *sql.DB) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		query := `SELECT id, username, role FROM users ORDER BY username`
		args := []any{}
		if role := r.URL.Query().Get("role"); role != "" {
			query = `SELECT id, username, role FROM users WHERE role=$1 ORDER BY username`
			args = append(args, role)
		}
		rows, err := db.QueryContext(r.Context(), query, args...)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		defer rows.Close()
		out := []userView{}
		for rows.Next() {
			var u userView
			if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
				nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
				return
			}
			out = append(out, u)
		}
		if err := rows.Err(); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// decodeUserRows accepts a JSON array body, a text/csv body, or a multipart
// upload under "file" (dispatched on the filename extension).
func decodeUserRows(r *nethttp.Request) ([]userUpsert, error) {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("file field required")
		}
		defer f.Close()
		if strings.HasSuffix(strings.ToLower(hdr.Filename), ".json") {
			var rows []userUpsert
			if err := json.NewDecoder(f).Decode(&rows); err != nil {
				return nil, errors.New("bad json file")
			}
			return rows, nil
		}
		return parseRosterCSV(f)
	case strings.HasPrefix(ct, "text/csv"):
		return parseRosterCSV(r.Body)
	default:
		var rows []userUpsert
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			return nil, errors.New("expected a JSON array or a CSV upload")
		}
		return rows, nil
	}
}

// parseRosterCSV reads a header-addressed roster export. id and username are
// required columns; role and password are optional.
func parseRosterCSV(r io.Reader) ([]userUpsert, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.New("empty csv")
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"id", "username"} {
		if _, ok := col[name]; !ok {
			return nil, errors.New("csv missing column: " + name)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var rows []userUpsert
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, userUpsert{
			ID:       field(rec, "id"),
			Username: field(rec, "username"),
			Role:     strings.ToLower(field(rec, "role")),
			Password: field(rec, "password"),
		})
	}
	return rows, nil
}

// applyUserUpserts writes the batch in one transaction. Existing accounts keep
// their password hash unless the row carries a new password; new accounts must
// carry one.
func applyUserUpserts(ctx context.Context, db *sql.DB, rows []userUpsert) (inserted, updated int, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := time.Now().Unix()
	for _, u := range rows {
		u.Username = strings.TrimSpace(u.Username)
		if u.ID == "" || u.Username == "" {
			return inserted, updated, fmt.Errorf("%w: id and username are required", errBadUserRow)
		}
		role := u.Role
		if role == "" {
			role = "student"
		}
		switch role {
		case "student", "teacher", "admin":
		default:
			return inserted, updated, fmt.Errorf("%w: unknown role %q", errBadUserRow, role)
		}

		var hash string
		if u.Password != "" {
			b, herr := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if herr != nil {
				return inserted, updated, herr
			}
			hash = string(b)
		}

		var existing int
		if err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE id=$1`, u.ID).Scan(&existing); err != nil {
			return inserted, updated, err
		}
		if existing > 0 {
			if hash != "" {
				_, err = tx.ExecContext(ctx,
					`UPDATE users SET username=$1, role=$2, password_hash=$3 WHERE id=$4`,
					u.Username, role, hash, u.ID)
			} else {
				_, err = tx.ExecContext(ctx,
					`UPDATE users SET username=$1, role=$2 WHERE id=$3`,
					u.Username, role, u.ID)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
			continue
		}
		if hash == "" {
			return inserted, updated, fmt.Errorf("%w: password required for new account %s", errBadUserRow, u.Username)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
			u.ID, u.Username, hash, role, now); err != nil {
			return inserted, updated, err
		}
		inserted++
	}
	return inserted, updated, nil
}
