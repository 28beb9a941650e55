package sheets

import (
	"context"
	"errors"
	"testing"
)

func TestResolveSheetIDExactMatch(t *testing.T) {
	svc := newFakeService(Sheet{ID: "a1", Title: "1月"}, Sheet{ID: "b2", Title: "2月"})
	l := NewLocator(svc, testRead)

	id, err := l.ResolveSheetID(context.Background(), "2月")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id != "b2" {
		t.Errorf("Expected b2, got %s", id)
	}
}

func TestResolveSheetIDNotFoundListsTitles(t *testing.T) {
	svc := newFakeService(Sheet{ID: "a1", Title: "Sheet1"}, Sheet{ID: "b2", Title: "2月"})
	l := NewLocator(svc, testRead)

	_, err := l.ResolveSheetID(context.Background(), "sheet1")
	var nf *SheetNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected SheetNotFoundError, got %v", err)
	}
	if len(nf.Available) != 2 || nf.Available[0] != "Sheet1" {
		t.Errorf("Expected available titles, got %v", nf.Available)
	}
}

func TestResolveCreatesMissingSheet(t *testing.T) {
	svc := newFakeService(Sheet{ID: "a1", Title: "1月"})
	l := NewLocator(svc, testRead)

	ref, err := l.Resolve(context.Background(), "3月", true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ref.Sheet.Title != "3月" || ref.Sheet.ID == "" {
		t.Errorf("Expected created sheet ref, got %+v", ref)
	}
	if svc.addCalled != 1 {
		t.Errorf("Expected 1 create call, got %d", svc.addCalled)
	}

	// second ensure finds it and does not create again
	if err := l.EnsureSheetExists(context.Background(), "3月"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if svc.addCalled != 1 {
		t.Errorf("Expected no further create call, got %d", svc.addCalled)
	}
}

func TestResolveCreateFailure(t *testing.T) {
	svc := newFakeService()
	svc.addErr = errors.New("code=1310211")
	l := NewLocator(svc, testRead)

	_, err := l.Resolve(context.Background(), "3月", true)
	var ce *SheetCreateError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected SheetCreateError, got %v", err)
	}
}

func TestResolveWithoutCreate(t *testing.T) {
	svc := newFakeService(Sheet{ID: "a1", Title: "1月"})
	l := NewLocator(svc, testRead)

	_, err := l.Resolve(context.Background(), "3月", false)
	var nf *SheetNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected SheetNotFoundError, got %v", err)
	}
	if svc.addCalled != 0 {
		t.Errorf("Expected no create call, got %d", svc.addCalled)
	}
}
