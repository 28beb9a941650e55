package sheets

import (
	"fmt"
	"strings"
)

// Sheet is one tab of the spreadsheet.
type Sheet struct {
	ID    string
	Title string
}

type AddressMode int

const (
	// AddressByID qualifies ranges as {sheetId}!A1:B2.
	AddressByID AddressMode = iota
	// AddressByTitle qualifies ranges as 'title'!A1:B2.
	AddressByTitle
)

// Ref is the sheet reference used for every range in a run.
type Ref struct {
	Sheet Sheet
	Mode  AddressMode
}

func (r Ref) prefix() string {
	if r.Mode == AddressByID {
		return r.Sheet.ID
	}
	return quoteTitle(r.Sheet.Title)
}

// Range returns the qualified range start:end, e.g. "abc123!B2:B201".
func (r Ref) Range(start, end string) string {
	return fmt.Sprintf("%s!%s:%s", r.prefix(), start, end)
}

// Cell returns the qualified single-cell range for column/row.
func (r Ref) Cell(column string, row int) string {
	cell := fmt.Sprintf("%s%d", column, row)
	return r.Range(cell, cell)
}

func (r Ref) String() string {
	return r.prefix()
}

func quoteTitle(title string) string {
	plain := title != ""
	for _, c := range title {
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			plain = false
			break
		}
	}
	if plain {
		return title
	}
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
