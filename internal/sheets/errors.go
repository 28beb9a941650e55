package sheets

import (
	"fmt"
	"strings"
)

type SheetNotFoundError struct {
	Title     string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet title not found: %q, existing titles=[%s]", e.Title, strings.Join(e.Available, ", "))
}

type SheetCreateError struct {
	Title string
	Err   error
}

func (e *SheetCreateError) Error() string {
	return fmt.Sprintf("failed to create sheet %q: %v", e.Title, e.Err)
}

func (e *SheetCreateError) Unwrap() error { return e.Err }

type RangeReadError struct {
	Ranges []string
	Err    error
}

func (e *RangeReadError) Error() string {
	return fmt.Sprintf("failed to read ranges %v: %v", e.Ranges, e.Err)
}

func (e *RangeReadError) Unwrap() error { return e.Err }

// WriteError is returned when a range write is not acknowledged. Status and
// Body are zero when the failure happened before a response was received.
type WriteError struct {
	Ranges int
	Status int
	Body   string
	Err    error
}

func (e *WriteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to write %d ranges: status=%d body=%s", e.Ranges, e.Status, e.Body)
	}
	return fmt.Sprintf("failed to write %d ranges: %v", e.Ranges, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
