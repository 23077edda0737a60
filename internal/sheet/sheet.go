// Package sheet adapts one Google Sheets worksheet into the row store the
// repositories work against: one row per participant, columns addressed by
// header name. Every read is a full fetch; the sheet is the sole source of
// truth and nothing is cached.
package sheet

import (
	"context"
	"fmt"

	"secret-santa-wishlist/internal/domain"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Header names expected in row 1 of the worksheet.
const (
	colIdentity   = "id"
	colGifts      = "gifts"
	colAssignment = "secretSantaFor"
)

type Store struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	cols          columns
}

type columns struct {
	identity   int
	gifts      int
	assignment int
}

// New authenticates with a service-account JWT and verifies the worksheet
// schema by reading its header row.
func New(ctx context.Context, email, privateKey, spreadsheetID, sheetName string) (*Store, error) {
	conf := &jwt.Config{
		Email:      email,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	s := &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}
	if err := s.loadColumns(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadColumns(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!1:1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header row of %q: %w", s.sheetName, err)
	}
	if len(resp.Values) == 0 {
		return fmt.Errorf("sheet %q has no header row", s.sheetName)
	}

	cols, err := mapColumns(resp.Values[0])
	if err != nil {
		return fmt.Errorf("sheet %q: %w", s.sheetName, err)
	}
	s.cols = cols
	return nil
}

func mapColumns(header []interface{}) (columns, error) {
	cols := columns{identity: -1, gifts: -1, assignment: -1}
	for i, v := range header {
		switch cellString(v) {
		case colIdentity:
			cols.identity = i
		case colGifts:
			cols.gifts = i
		case colAssignment:
			cols.assignment = i
		}
	}
	if cols.identity < 0 || cols.gifts < 0 || cols.assignment < 0 {
		return cols, fmt.Errorf("header row is missing one of the %q, %q, %q columns",
			colIdentity, colGifts, colAssignment)
	}
	return cols, nil
}

// FetchAll reads the whole worksheet and returns participant records in
// sheet order. Rows without an identity cell are skipped.
func (s *Store) FetchAll(ctx context.Context) ([]domain.Record, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", s.sheetName, err)
	}

	records := make([]domain.Record, 0, len(resp.Values))
	for i, row := range resp.Values {
		if i == 0 {
			continue // header row
		}
		identity := cell(row, s.cols.identity)
		if identity == "" {
			continue
		}
		records = append(records, domain.Record{
			Row:            i + 1,
			Identity:       identity,
			Gifts:          cell(row, s.cols.gifts),
			SecretSantaFor: cell(row, s.cols.assignment),
		})
	}
	return records, nil
}

// Save writes back the mutable cells of one record. No transaction: two
// concurrent saves of the same row race and the last writer wins.
func (s *Store) Save(ctx context.Context, rec domain.Record) error {
	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{
				Range:  s.cellRange(s.cols.gifts, rec.Row),
				Values: [][]interface{}{{rec.Gifts}},
			},
			{
				Range:  s.cellRange(s.cols.assignment, rec.Row),
				Values: [][]interface{}{{rec.SecretSantaFor}},
			},
		},
	}

	if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to save row %d: %w", rec.Row, err)
	}
	return nil
}

func (s *Store) cellRange(col, row int) string {
	return fmt.Sprintf("%s!%s%d", s.sheetName, columnLetter(col), row)
}

// columnLetter converts a 0-based column index to A1 notation.
func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}

func cell(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cellString(row[idx])
}

func cellString(v interface{}) string {
	s, _ := v.(string)
	return s
}
