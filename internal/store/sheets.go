package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets implements Tabular on top of one Google spreadsheet. Each
// logical table is a sheet (tab) inside the spreadsheet identified by
// spreadsheetID.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheets builds a Sheets store authenticated with the given service
// account credentials file.
func NewSheets(ctx context.Context, spreadsheetID, credentialsFile string) (*Sheets, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// a1 builds a fully qualified range reference, quoting the sheet title
// since cohort names contain spaces.
func a1(table, rangeSpec string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(table, "'", "''"), rangeSpec)
}

func (s *Sheets) ReadRange(ctx context.Context, table, rangeSpec string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, a1(table, rangeSpec)).Context(ctx).Do()
	if err != nil {
		if isMissingSheet(err) {
			return nil, fmt.Errorf("read range %s!%s: %w", table, rangeSpec, ErrTableNotFound)
		}
		return nil, fmt.Errorf("read range %s!%s: %w", table, rangeSpec, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		out = append(out, cells)
	}
	return out, nil
}

func (s *Sheets) WriteRange(ctx context.Context, table, rangeSpec string, values [][]string) error {
	vr := &sheets.ValueRange{Values: toAnyRows(values)}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, a1(table, rangeSpec), vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		if isMissingSheet(err) {
			return fmt.Errorf("write range %s!%s: %w", table, rangeSpec, ErrTableNotFound)
		}
		return fmt.Errorf("write range %s!%s: %w", table, rangeSpec, err)
	}
	return nil
}

func (s *Sheets) AppendRows(ctx context.Context, table, rangeSpec string, values [][]string) error {
	vr := &sheets.ValueRange{Values: toAnyRows(values)}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, a1(table, rangeSpec), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		if isMissingSheet(err) {
			return fmt.Errorf("append to %s: %w", table, ErrTableNotFound)
		}
		return fmt.Errorf("append to %s: %w", table, err)
	}
	return nil
}

// CreateTable adds a sheet titled table. A duplicate title comes back
// from the API as a 400; that case maps to ErrAlreadyExists so racing
// first-writers can treat it as success.
func (s *Sheets) CreateTable(ctx context.Context, table string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: table},
			},
		}},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) &&
			apiErr.Code == 400 && strings.Contains(apiErr.Message, "already exists") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// isMissingSheet detects the API's response to a range referencing a
// sheet that does not exist.
func isMissingSheet(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 400 && strings.Contains(apiErr.Message, "Unable to parse range")
}

func toAnyRows(values [][]string) [][]any {
	out := make([][]any, len(values))
	for i, row := range values {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
