// Package gsheets is the Google Sheets backend of the rank sync job.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"amazon_rank_sync/internal/retry"
	"amazon_rank_sync/internal/sheets"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const valueInputRaw = "RAW"

type Client struct {
	service       *sheetsapi.Service
	spreadsheetID string
}

func NewClient(ctx context.Context, credentialsFile, spreadsheetID string) (*Client, error) {
	return NewClientWithOptions(ctx, spreadsheetID, option.WithCredentialsFile(credentialsFile))
}

// NewClientWithOptions builds the client from explicit API options.
func NewClientWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

// statusError exposes a googleapi.Error through sheets.StatusError.
type statusError struct {
	err *googleapi.Error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }
func (e *statusError) HTTPStatus() int { return e.err.Code }
func (e *statusError) ResponseBody() string { return e.err.Body }

// wrap tags client errors as permanent so reads are not retried on 4xx.
func wrap(op string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	wrapped := fmt.Errorf("failed to %s: %w", op, &statusError{err: gerr})
	if gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != 429 {
		return retry.Permanent(wrapped)
	}
	return wrapped
}

// Addressing reports that Google ranges are qualified with the quoted title.
func (c *Client) Addressing() sheets.AddressMode {
	return sheets.AddressByTitle
}

func (c *Client) ListSheets(ctx context.Context) ([]sheets.Sheet, error) {
	resp, err := c.service.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrap("list sheets", err)
	}

	out := make([]sheets.Sheet, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		out = append(out, sheets.Sheet{
			ID:    strconv.FormatInt(s.Properties.SheetId, 10),
			Title: s.Properties.Title,
		})
	}
	return out, nil
}

func (c *Client) AddSheet(ctx context.Context, title string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{AddSheet: &sheetsapi.AddSheetRequest{Properties: &sheetsapi.SheetProperties{Title: title}}},
		},
	}
	_, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return wrap("add sheet", err)
	}
	return nil
}

func (c *Client) ReadRanges(ctx context.Context, ranges []string) ([][][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(ranges...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrap("read ranges", err)
	}

	out := make([][][]interface{}, 0, len(resp.ValueRanges))
	for _, vr := range resp.ValueRanges {
		out = append(out, vr.Values)
	}
	return out, nil
}

func (c *Client) WriteRanges(ctx context.Context, updates []sheets.ValueRange) error {
	req := &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: valueInputRaw,
		Data:             make([]*sheetsapi.ValueRange, 0, len(updates)),
	}
	for _, u := range updates {
		req.Data = append(req.Data, &sheetsapi.ValueRange{Range: u.Range, Values: u.Values})
	}

	_, err := c.service.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return wrap("write ranges", err)
	}
	return nil
}

var _ sheets.Service = (*Client)(nil)
