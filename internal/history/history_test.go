package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Expected no error opening store, got %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		err := s.Record(ctx, Entry{
			RunID:      id,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			State:      "Done",
			Sheet:      "3月",
			Column:     "D",
			RowsRead:   10,
			Written:    8,
			Skipped:    2,
			Statuses:   map[string]int{"OK": 7, "BLOCKED_403": 1},
		})
		if err != nil {
			t.Fatalf("Expected no error recording %s, got %v", id, err)
		}
	}

	entries, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-c" || entries[1].RunID != "run-b" {
		t.Errorf("Expected newest first, got %s then %s", entries[0].RunID, entries[1].RunID)
	}
	if entries[0].Statuses["OK"] != 7 || entries[0].Statuses["BLOCKED_403"] != 1 {
		t.Errorf("Unexpected statuses %v", entries[0].Statuses)
	}
	if !entries[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("Expected start %v, got %v", base.Add(2*time.Hour), entries[0].StartedAt)
	}
}

func TestRecordReplacesSameRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.Record(ctx, Entry{RunID: "r1", StartedAt: now, FinishedAt: now, State: "Failed", FailedAt: "RowsRead", Error: "boom"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := s.Record(ctx, Entry{RunID: "r1", StartedAt: now, FinishedAt: now, State: "Done"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].State != "Done" || entries[0].Error != "" {
		t.Errorf("Expected replaced entry, got %+v", entries[0])
	}
	if len(entries[0].Statuses) != 0 {
		t.Errorf("Expected empty statuses, got %v", entries[0].Statuses)
	}
}
