// Package sheets holds the spreadsheet side of the rank sync: locating the
// target sheet, resolving today's column and committing the batched write.
// The actual API is behind Service so the Lark and Google backends share it.
package sheets

import "context"

// Service is the subset of a spreadsheet API the sync job needs. Ranges are
// in A1 notation already qualified with the sheet reference.
type Service interface {
	ListSheets(ctx context.Context) ([]Sheet, error)
	AddSheet(ctx context.Context, title string) error
	ReadRanges(ctx context.Context, ranges []string) ([][][]interface{}, error)
	WriteRanges(ctx context.Context, updates []ValueRange) error
	// Addressing reports how this backend qualifies ranges with a sheet.
	Addressing() AddressMode
}

type ValueRange struct {
	Range  string
	Values [][]interface{}
}

// StatusError is implemented by backend errors that carry the upstream HTTP
// status and response body.
type StatusError interface {
	error
	HTTPStatus() int
	ResponseBody() string
}
