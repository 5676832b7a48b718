// Package sheets mirrors the transaction table into a Google Spreadsheet so
// the accountant can work with the data outside the app. The sync is
// idempotent: rows are keyed by transaction id, stale rows are cleared and
// missing ones appended.
package sheets

import (
	"context"
	"fmt"

	sheetsapi "google.golang.org/api/sheets/v4"
)

// API is the narrow spreadsheet surface the sync needs. Satisfied by
// *GoogleSheets; tests plug in fakes.
type API interface {
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	AddSheet(ctx context.Context, spreadsheetID, title string) error
	GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	UpdateValues(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
	AppendValues(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
	ClearRange(ctx context.Context, spreadsheetID, clearRange string) error
}

// GoogleSheets is the concrete API implementation on the Sheets v4 service.
// Credentials come from Application Default Credentials with the spreadsheets
// scope.
type GoogleSheets struct {
	svc *sheetsapi.Service
}

// NewGoogleSheets creates a Sheets v4 client.
func NewGoogleSheets(ctx context.Context) (*GoogleSheets, error) {
	svc, err := sheetsapi.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGoogleSheets: creating service: %w", err)
	}
	return &GoogleSheets{svc: svc}, nil
}

// SheetTitles returns the titles of all sheets in the spreadsheet.
func (g *GoogleSheets) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := g.svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("SheetTitles: %w", err)
	}
	var titles []string
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

// AddSheet creates a new sheet with the given title.
func (g *GoogleSheets) AddSheet(ctx context.Context, spreadsheetID, title string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{Title: title},
				},
			},
		},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("AddSheet: %w", err)
	}
	return nil
}

// GetValues reads a value range.
func (g *GoogleSheets) GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("GetValues: %w", err)
	}
	return resp.Values, nil
}

// UpdateValues writes values into a fixed range.
func (g *GoogleSheets) UpdateValues(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error {
	vr := &sheetsapi.ValueRange{Values: values}
	_, err := g.svc.Spreadsheets.Values.Update(spreadsheetID, writeRange, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("UpdateValues: %w", err)
	}
	return nil
}

// AppendValues appends rows after the last data row of the range.
func (g *GoogleSheets) AppendValues(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error {
	vr := &sheetsapi.ValueRange{Values: values}
	_, err := g.svc.Spreadsheets.Values.Append(spreadsheetID, writeRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("AppendValues: %w", err)
	}
	return nil
}

// ClearRange clears the values in a range, leaving the rows in place.
func (g *GoogleSheets) ClearRange(ctx context.Context, spreadsheetID, clearRange string) error {
	_, err := g.svc.Spreadsheets.Values.Clear(spreadsheetID, clearRange, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("ClearRange: %w", err)
	}
	return nil
}

var _ API = (*GoogleSheets)(nil)
