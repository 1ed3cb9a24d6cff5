package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iorabi/canvas-lms/internal/gradebook"
)

// Log is an append-only trail of score writes, backed by score_audit_log.
// It satisfies gradebook.AuditSink.
type Log struct{ db *sql.DB }

func NewLog(db *sql.DB) *Log { return &Log{db: db} }

func (l *Log) Record(ctx context.Context, e gradebook.AuditEntry) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO score_audit_log (score_id, action, actor, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.ScoreID, e.Action, e.Actor, string(data), time.Now().Unix())
	return err
}

// Entry is one recorded score write, as read back from storage.
type Entry struct {
	Offset    int64  `json:"offset"`
	ScoreID   string `json:"score_id"`
	Action    string `json:"action"`
	Actor     string `json:"actor"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// ForScore returns the trail for one score, oldest first.
func (l *Log) ForScore(ctx context.Context, scoreID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT "offset", score_id, action, actor, data, created_at
		FROM score_audit_log WHERE score_id=$1 ORDER BY "offset"`, scoreID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Offset, &e.ScoreID, &e.Action, &e.Actor, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
