package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"amazon_rank_sync/internal/retry"

	"github.com/rs/zerolog/log"
)

const (
	HeaderRow = 1
	// lastHeaderColumn bounds the header scan.
	lastHeaderColumn = "ZZ"
)

// JST is the fixed calendar used for header labels and month sheet titles.
var JST = time.FixedZone("JST", 9*60*60)

// HeaderLabel formats the per-day column title, e.g. "2月14日".
func HeaderLabel(now time.Time) string {
	t := now.In(JST)
	return fmt.Sprintf("%d月%d日", int(t.Month()), t.Day())
}

// MonthSheetTitle formats the default sheet title for now, e.g. "2月".
func MonthSheetTitle(now time.Time) string {
	return fmt.Sprintf("%d月", int(now.In(JST).Month()))
}

// ColumnLetter converts a 1-based column index to spreadsheet letters:
// 1 -> A, 26 -> Z, 27 -> AA.
func ColumnLetter(n int) string {
	var b []byte
	for n > 0 {
		r := (n - 1) % 26
		n = (n - 1) / 26
		b = append([]byte{byte('A' + r)}, b...)
	}
	return string(b)
}

type Column struct {
	Index  int
	Letter string
	Label  string
	// Created is set when the header was written by this call.
	Created bool
}

type ColumnResolver struct {
	service Service
	read    retry.Config
	now     func() time.Time
}

func NewColumnResolver(service Service, read retry.Config, now func() time.Time) *ColumnResolver {
	if now == nil {
		now = time.Now
	}
	return &ColumnResolver{service: service, read: read, now: now}
}

// EnsureTodayColumn returns today's column, appending its header after the
// last non-empty header cell when no header matches. Reruns on the same day
// find the header written by the first run.
func (r *ColumnResolver) EnsureTodayColumn(ctx context.Context, ref Ref) (Column, error) {
	label := HeaderLabel(r.now())

	rows, err := ReadRange(ctx, r.service, r.read, ref.Range(fmt.Sprintf("A%d", HeaderRow), fmt.Sprintf("%s%d", lastHeaderColumn, HeaderRow)))
	if err != nil {
		return Column{}, err
	}
	var header []interface{}
	if len(rows) > 0 {
		header = rows[0]
	}

	last := 0
	for i, v := range header {
		text := strings.TrimSpace(CellText(v))
		if text != "" {
			last = i + 1
		}
		if text == label {
			col := Column{Index: i + 1, Letter: ColumnLetter(i + 1), Label: label}
			log.Debug().Str("column", col.Letter).Str("label", label).Msg("Found today's column")
			return col, nil
		}
	}

	col := Column{Index: last + 1, Letter: ColumnLetter(last + 1), Label: label, Created: true}
	update := ValueRange{
		Range:  ref.Cell(col.Letter, HeaderRow),
		Values: [][]interface{}{{label}},
	}
	if err := r.service.WriteRanges(ctx, []ValueRange{update}); err != nil {
		return Column{}, newWriteError(1, err)
	}

	log.Info().Str("column", col.Letter).Str("label", label).Msg("Appended today's column")
	return col, nil
}
