package lark

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"amazon_rank_sync/internal/sheets"
)

// valueInputRaw stores values as typed, without formula parsing.
const valueInputRaw = "RAW"

type sheetInfo struct {
	SheetID string `json:"sheet_id"`
	Title   string `json:"title"`
}

type sheetsQueryData struct {
	Sheets []sheetInfo `json:"sheets"`
}

type valueRange struct {
	Range  string          `json:"range"`
	Values [][]interface{} `json:"values"`
}

type batchGetData struct {
	ValueRanges []valueRange `json:"valueRanges"`
}

type batchUpdateRequest struct {
	ValueInputOption string       `json:"valueInputOption"`
	ValueRanges      []valueRange `json:"valueRanges"`
}

type addSheetProperties struct {
	Title string `json:"title"`
}

type addSheetRequest struct {
	Requests []map[string]interface{} `json:"requests"`
}

func (c *Client) spreadsheetPath(version, suffix string) string {
	return "/open-apis/sheets/" + version + "/spreadsheets/" + url.PathEscape(c.spreadsheetToken) + suffix
}

// Addressing reports that Lark ranges are qualified with the sheet id.
func (c *Client) Addressing() sheets.AddressMode {
	return sheets.AddressByID
}

// ListSheets returns every tab with its sheet id and title.
func (c *Client) ListSheets(ctx context.Context) ([]sheets.Sheet, error) {
	var data sheetsQueryData
	if err := c.do(ctx, "list_sheets", http.MethodGet, c.spreadsheetPath("v3", "/sheets/query"), nil, nil, &data); err != nil {
		return nil, err
	}
	out := make([]sheets.Sheet, 0, len(data.Sheets))
	for _, s := range data.Sheets {
		out = append(out, sheets.Sheet{ID: s.SheetID, Title: s.Title})
	}
	return out, nil
}

// AddSheet appends a new tab titled title.
func (c *Client) AddSheet(ctx context.Context, title string) error {
	req := addSheetRequest{
		Requests: []map[string]interface{}{
			{"addSheet": map[string]interface{}{"properties": addSheetProperties{Title: title}}},
		},
	}
	return c.do(ctx, "add_sheet", http.MethodPost, c.spreadsheetPath("v2", "/sheets_batch_update"), nil, req, nil)
}

// ReadRanges reads several ranges in one call. Results follow the order of
// ranges.
func (c *Client) ReadRanges(ctx context.Context, ranges []string) ([][][]interface{}, error) {
	query := url.Values{}
	query.Set("ranges", strings.Join(ranges, ","))

	var data batchGetData
	if err := c.do(ctx, "batch_get", http.MethodGet, c.spreadsheetPath("v2", "/values_batch_get"), query, nil, &data); err != nil {
		return nil, err
	}
	out := make([][][]interface{}, 0, len(data.ValueRanges))
	for _, vr := range data.ValueRanges {
		out = append(out, vr.Values)
	}
	return out, nil
}

// WriteRanges writes every update in a single values_batch_update call.
func (c *Client) WriteRanges(ctx context.Context, updates []sheets.ValueRange) error {
	req := batchUpdateRequest{
		ValueInputOption: valueInputRaw,
		ValueRanges:      make([]valueRange, 0, len(updates)),
	}
	for _, u := range updates {
		req.ValueRanges = append(req.ValueRanges, valueRange{Range: u.Range, Values: u.Values})
	}
	return c.do(ctx, "batch_update", http.MethodPost, c.spreadsheetPath("v2", "/values_batch_update"), nil, req, nil)
}

var _ sheets.Service = (*Client)(nil)
