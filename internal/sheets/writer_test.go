package sheets

import (
	"context"
	"errors"
	"testing"
)

func TestCommitSingleBatchedCall(t *testing.T) {
	svc := newFakeService(Sheet{ID: "s1"})
	ref := Ref{Sheet: Sheet{ID: "s1"}, Mode: AddressByID}
	w := NewWriter(svc)

	err := w.Commit(context.Background(), ref, []WriteInstruction{
		{Column: "C", Row: 2, Value: "Electronics - 1,234位"},
		{Column: "C", Row: 4, Value: "CAPTCHA?"},
		{Column: "C", Row: 5, Value: "RANK_N/A"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(svc.writes) != 1 {
		t.Fatalf("Expected 1 batched call, got %d", len(svc.writes))
	}
	if len(svc.writes[0]) != 3 {
		t.Errorf("Expected 3 ranges, got %d", len(svc.writes[0]))
	}
	if svc.writes[0][1].Range != "s1!C4:C4" {
		t.Errorf("Unexpected range %s", svc.writes[0][1].Range)
	}
}

func TestCommitEmptyIsNoop(t *testing.T) {
	svc := newFakeService(Sheet{ID: "s1"})
	if err := NewWriter(svc).Commit(context.Background(), Ref{Sheet: Sheet{ID: "s1"}}, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(svc.writes) != 0 {
		t.Errorf("Expected no calls, got %d", len(svc.writes))
	}
}

func TestCommitFailureCarriesStatus(t *testing.T) {
	svc := newFakeService(Sheet{ID: "s1"})
	svc.writeErr = &statusErr{status: 400, body: `{"code":90202}`}
	ref := Ref{Sheet: Sheet{ID: "s1"}, Mode: AddressByID}

	err := NewWriter(svc).Commit(context.Background(), ref, []WriteInstruction{{Column: "B", Row: 2, Value: "x"}})
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Expected WriteError, got %v", err)
	}
	if we.Status != 400 || we.Body != `{"code":90202}` {
		t.Errorf("Expected upstream status and body, got %d %q", we.Status, we.Body)
	}
	if len(svc.writes) != 1 {
		t.Errorf("Expected no retry, got %d calls", len(svc.writes))
	}
	if v := svc.cells["s1"]["B2"]; v != nil {
		t.Errorf("Expected cell untouched, got %v", v)
	}
}
