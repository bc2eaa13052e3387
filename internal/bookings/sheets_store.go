package bookings

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// SheetsStore appends bookings to a Google Sheets worksheet. Row 1 holds
// Header; data rows follow in append order.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *logging.Logger

	mu           sync.Mutex
	headersReady bool
}

// NewSheetsStore builds a store authenticated with a service-account JSON
// key. Extra client options (endpoint, http client) are applied after the
// credentials.
func NewSheetsStore(ctx context.Context, spreadsheetID, sheetName string, credentialsJSON []byte, logger *logging.Logger, opts ...option.ClientOption) (*SheetsStore, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, fmt.Errorf("bookings: spreadsheet id required")
	}
	var clientOpts []option.ClientOption
	if len(credentialsJSON) > 0 {
		clientOpts = append(clientOpts,
			option.WithCredentialsJSON(credentialsJSON),
			option.WithScopes(sheets.SpreadsheetsScope),
		)
	}
	clientOpts = append(clientOpts, opts...)
	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("bookings: sheets client: %w", err)
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

func (s *SheetsStore) rangeOf(cells string) string {
	return fmt.Sprintf("'%s'!%s", s.sheetName, cells)
}

// EnsureHeaders inserts Header as a new first row when row 1 is missing or
// differs from it. Existing rows shift down.
func (s *SheetsStore) EnsureHeaders(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headersReady {
		return nil
	}

	ctx, span := bookingsTracer.Start(ctx, "bookings.sheets.ensure_headers")
	defer span.End()

	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("1:1")).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("bookings: read header row: %w", err)
	}
	var first []any
	if len(vr.Values) > 0 {
		first = vr.Values[0]
	}
	if headerMatches(first) {
		s.headersReady = true
		return nil
	}

	sheetID, err := s.sheetID(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	insert := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			InsertDimension: &sheets.InsertDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      0,
					EndIndex:        1,
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, insert).Context(ctx).Do(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("bookings: insert header row: %w", err)
	}
	header := &sheets.ValueRange{Values: [][]any{toCells(Header)}}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1"), header).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("bookings: write header row: %w", err)
	}
	s.logger.Info("bookings sheet header repaired", "sheet", s.sheetName)
	s.headersReady = true
	return nil
}

func (s *SheetsStore) sheetID(ctx context.Context) (int64, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("bookings: load spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheetName {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("bookings: worksheet %q not found", s.sheetName)
}

func (s *SheetsStore) Append(ctx context.Context, entry Entry) error {
	if err := s.EnsureHeaders(ctx); err != nil {
		// The row is still worth writing; a later call retries the header.
		s.logger.Warn("bookings sheet header check failed", "error", err)
	}

	ctx, span := bookingsTracer.Start(ctx, "bookings.sheets.append")
	defer span.End()

	vr := &sheets.ValueRange{Values: [][]any{toCells(entry.Row())}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A:I"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: append row: %v", ErrPersistenceFailed, err)
	}
	return nil
}

func (s *SheetsStore) ListBookedTimes(ctx context.Context, date string) ([]string, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.sheets.list_booked")
	defer span.End()

	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:I")).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: read sheet: %w", err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}

	cols := columnIndex(vr.Values[0])
	dateCol, okDate := cols["Date"]
	timeCol, okTime := cols["Time"]
	statusCol, okStatus := cols["Status"]
	if !okDate || !okTime || !okStatus {
		return nil, nil
	}

	var out []string
	for _, row := range vr.Values[1:] {
		if cell(row, dateCol) == date && cell(row, statusCol) == StatusConfirmed {
			out = append(out, cell(row, timeCol))
		}
	}
	return out, nil
}

func headerMatches(row []any) bool {
	if len(row) != len(Header) {
		return false
	}
	for i, h := range Header {
		if fmt.Sprint(row[i]) != h {
			return false
		}
	}
	return true
}

func columnIndex(header []any) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(fmt.Sprint(h))] = i
	}
	return idx
}

func cell(row []any, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

var _ Store = (*SheetsStore)(nil)
