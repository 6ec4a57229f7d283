package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"wedding-rsvp/internal/models"
)

// sheetAPI is the narrow slice of the Sheets service the store needs:
// read the whole worksheet, write one cell. row is 1-based (sheet
// convention), col is the 0-based schema index.
type sheetAPI interface {
	ReadRows(ctx context.Context) ([][]string, error)
	WriteCell(ctx context.Context, row, col int, value string) error
}

// SheetStore keeps the guest list in a Google Sheets worksheet the event
// organizer also edits by hand. All writes are single-cell updates so a
// concurrent manual edit to another column is never clobbered.
type SheetStore struct {
	api sheetAPI
	log zerolog.Logger
}

// NewSheetStore connects to the spreadsheet using a service account
// credentials file.
func NewSheetStore(ctx context.Context, credentialsFile, spreadsheetID, worksheet string, log zerolog.Logger) (*SheetStore, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	api := &googleSheet{svc: svc, spreadsheetID: spreadsheetID, worksheet: worksheet}
	return newSheetStore(api, log), nil
}

func newSheetStore(api sheetAPI, log zerolog.Logger) *SheetStore {
	return &SheetStore{api: api, log: log.With().Str("component", "sheetstore").Logger()}
}

// GuestByPhone scans every data row for a matching normalized phone number.
// Rows that match on phone but fail to decode are logged and treated as not
// found rather than surfaced as faults.
func (s *SheetStore) GuestByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	rows, err := s.api.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest rows: %w", err)
	}
	want := NormalizePhone(phone)
	if want == "" {
		return nil, ErrNotFound
	}
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}
		if colPhoneNumber >= len(row) {
			continue
		}
		if NormalizePhone(row[colPhoneNumber]) != want {
			continue
		}
		guest, err := decodeGuestRow(row, i+1)
		if err != nil {
			s.log.Warn().Err(err).Str("phone", want).Msg("Matching guest row is malformed")
			continue
		}
		return guest, nil
	}
	return nil, ErrNotFound
}

// ListGuests decodes every non-blank data row, skipping malformed rows.
func (s *SheetStore) ListGuests(ctx context.Context) ([]*models.Guest, error) {
	rows, err := s.api.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest rows: %w", err)
	}
	var guests []*models.Guest
	for i, row := range rows {
		if i == 0 || isBlankRow(row) {
			continue
		}
		guest, err := decodeGuestRow(row, i+1)
		if err != nil {
			s.log.Warn().Err(err).Msg("Skipping malformed guest row")
			continue
		}
		guests = append(guests, guest)
	}
	return guests, nil
}

func (s *SheetStore) ListPendingInvitations(ctx context.Context) ([]*models.Guest, error) {
	guests, err := s.ListGuests(ctx)
	if err != nil {
		return nil, err
	}
	return pendingInvitations(guests), nil
}

func (s *SheetStore) ListPendingReminders(ctx context.Context) ([]*models.Guest, error) {
	guests, err := s.ListGuests(ctx)
	if err != nil {
		return nil, err
	}
	return pendingReminders(guests), nil
}

func (s *SheetStore) UpdateInvitationState(ctx context.Context, guest *models.Guest, state models.SendState) error {
	return s.writeGuestCell(ctx, guest, colInvitationState, state.Glyph())
}

func (s *SheetStore) UpdateReminderState(ctx context.Context, guest *models.Guest, state models.SendState) error {
	return s.writeGuestCell(ctx, guest, colReminderState, state.Glyph())
}

func (s *SheetStore) UpdateResponse(ctx context.Context, guest *models.Guest, status models.ResponseStatus, expectedGuests int) error {
	if expectedGuests < 0 {
		return fmt.Errorf("expected guest count must be positive, got %d", expectedGuests)
	}
	if err := s.writeGuestCell(ctx, guest, colResponse, status.Label()); err != nil {
		return err
	}
	if expectedGuests > 0 {
		return s.writeGuestCell(ctx, guest, colExpectedGuests, fmt.Sprintf("%d", expectedGuests))
	}
	return nil
}

func (s *SheetStore) UpdateWhatsAppName(ctx context.Context, guest *models.Guest, name string) error {
	return s.writeGuestCell(ctx, guest, colWhatsAppName, name)
}

// writeGuestCell verifies the guest still lives at its recorded row before
// the targeted write. The organizer may sort or delete rows between our
// read and write; writing a moved row would corrupt someone else's record.
func (s *SheetStore) writeGuestCell(ctx context.Context, guest *models.Guest, col int, value string) error {
	rows, err := s.api.ReadRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to re-read guest rows: %w", err)
	}
	idx := guest.RowIndex - 1
	if idx < 1 || idx >= len(rows) {
		return fmt.Errorf("guest %s no longer at row %d", guest.PhoneNumber, guest.RowIndex)
	}
	row := rows[idx]
	if colPhoneNumber >= len(row) || NormalizePhone(row[colPhoneNumber]) != guest.PhoneNumber {
		return fmt.Errorf("row %d no longer holds guest %s", guest.RowIndex, guest.PhoneNumber)
	}
	if err := s.api.WriteCell(ctx, guest.RowIndex, col, value); err != nil {
		return fmt.Errorf("failed to update row %d: %w", guest.RowIndex, err)
	}
	s.log.Info().
		Str("guest", guest.FullName()).
		Int("row", guest.RowIndex).
		Str("value", value).
		Msg("Updated guest cell")
	return nil
}

// googleSheet adapts the Sheets v4 service to the sheetAPI seam.
type googleSheet struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
}

func (g *googleSheet) ReadRows(ctx context.Context) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, g.worksheet).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		rows[i] = cells
	}
	return rows, nil
}

func (g *googleSheet) WriteCell(ctx context.Context, row, col int, value string) error {
	cell := fmt.Sprintf("%s!%s%d", g.worksheet, columnLetter(col), row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, cell, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// columnLetter converts a 0-based column index to its A1-notation letters.
func columnLetter(col int) string {
	letters := ""
	for col >= 0 {
		letters = string(rune('A'+col%26)) + letters
		col = col/26 - 1
	}
	return letters
}
