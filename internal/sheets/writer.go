package sheets

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// WriteInstruction places one value into column/row.
type WriteInstruction struct {
	Column string
	Row    int
	Value  string
}

// Writer commits a run's instructions in a single batched call.
type Writer struct {
	service Service
}

func NewWriter(service Service) *Writer {
	return &Writer{service: service}
}

// Commit issues exactly one write covering every instruction. An empty set
// issues no call. Failures are returned as *WriteError and never retried.
func (w *Writer) Commit(ctx context.Context, ref Ref, instructions []WriteInstruction) error {
	if len(instructions) == 0 {
		log.Debug().Msg("No write instructions, skipping commit")
		return nil
	}

	updates := make([]ValueRange, 0, len(instructions))
	for _, in := range instructions {
		updates = append(updates, ValueRange{
			Range:  ref.Cell(in.Column, in.Row),
			Values: [][]interface{}{{in.Value}},
		})
	}

	if err := w.service.WriteRanges(ctx, updates); err != nil {
		return newWriteError(len(updates), err)
	}

	log.Debug().Int("ranges", len(updates)).Msg("Committed batched write")
	return nil
}

func newWriteError(ranges int, err error) *WriteError {
	we := &WriteError{Ranges: ranges, Err: err}
	var se StatusError
	if errors.As(err, &se) {
		we.Status = se.HTTPStatus()
		we.Body = se.ResponseBody()
	}
	return we
}
