package audit_test

import (
	"context"
	"strings"
	"testing"

	"github.com/iorabi/canvas-lms/internal/audit"
	"github.com/iorabi/canvas-lms/internal/db"
	"github.com/iorabi/canvas-lms/internal/gradebook"
)

func TestLogRecordAndReadBack(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:audit_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer dbh.Close()

	l := audit.NewLog(dbh)
	writes := []gradebook.AuditEntry{
		{ScoreID: "s1", Action: "create", Actor: "prof", Data: map[string]any{"final_score": 74.0}},
		{ScoreID: "s1", Action: "update", Actor: "prof", Data: map[string]any{"final_score": 80.2}},
		{ScoreID: "s2", Action: "create", Actor: "job", Data: nil},
	}
	for _, e := range writes {
		if err := l.Record(ctx, e); err != nil {
			t.Fatalf("record %s/%s: %v", e.ScoreID, e.Action, err)
		}
	}

	trail, err := l.ForScore(ctx, "s1")
	if err != nil {
		t.Fatalf("for score: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("trail length: %d", len(trail))
	}
	if trail[0].Action != "create" || trail[1].Action != "update" {
		t.Errorf("trail order: %+v", trail)
	}
	if trail[0].Offset >= trail[1].Offset {
		t.Errorf("offsets not increasing: %d, %d", trail[0].Offset, trail[1].Offset)
	}
	if trail[1].Actor != "prof" || !strings.Contains(trail[1].DataJSON, "80.2") {
		t.Errorf("entry payload: %+v", trail[1])
	}

	empty, err := l.ForScore(ctx, "missing")
	if err != nil || len(empty) != 0 {
		t.Errorf("missing score trail: %+v, %v", empty, err)
	}
}
