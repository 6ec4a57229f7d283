package store

import (
	"fmt"
	"strconv"
	"strings"

	"wedding-rsvp/internal/models"
)

// Column positions in the guest sheet. The layout is fixed: the organizer's
// sheet has extra bookkeeping columns between these that the bot never touches.
const (
	colFirstName       = 0
	colLastName        = 1
	colPhoneNumber     = 6
	colDisplayName     = 8
	colShouldSend      = 9
	colInvitationState = 10
	colResponse        = 11
	colExpectedGuests  = 12
	colWhatsAppName    = 13
	colReminderState   = 14
)

// columnSpec binds one sheet column to one Guest field. Decoding a row walks
// this list; a decoder error makes the whole row an explicit decode failure
// rather than a partially-filled guest.
type columnSpec struct {
	index  int
	name   string
	decode func(g *models.Guest, cell string) error
}

var guestColumns = []columnSpec{
	{colFirstName, "first_name", func(g *models.Guest, cell string) error {
		g.FirstName = cell
		return nil
	}},
	{colLastName, "last_name", func(g *models.Guest, cell string) error {
		g.LastName = cell
		return nil
	}},
	{colPhoneNumber, "phone_number", func(g *models.Guest, cell string) error {
		g.PhoneNumber = NormalizePhone(cell)
		return nil
	}},
	{colDisplayName, "display_name", func(g *models.Guest, cell string) error {
		g.DisplayName = cell
		return nil
	}},
	{colShouldSend, "should_send", func(g *models.Guest, cell string) error {
		g.ShouldSend = cell == "TRUE"
		return nil
	}},
	{colInvitationState, "invitation_state", func(g *models.Guest, cell string) error {
		state, ok := models.ParseSendStateGlyph(cell)
		if !ok {
			return fmt.Errorf("unknown send state %q", cell)
		}
		g.InvitationState = state
		return nil
	}},
	{colResponse, "response", func(g *models.Guest, cell string) error {
		status, ok := models.ParseResponseLabel(cell)
		if !ok {
			return fmt.Errorf("unknown response %q", cell)
		}
		g.Response = status
		return nil
	}},
	{colExpectedGuests, "expected_guests", func(g *models.Guest, cell string) error {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return nil
		}
		n, err := strconv.Atoi(cell)
		if err != nil {
			return fmt.Errorf("expected guests %q is not a number", cell)
		}
		g.ExpectedGuests = n
		return nil
	}},
	{colWhatsAppName, "whatsapp_name", func(g *models.Guest, cell string) error {
		g.WhatsAppName = cell
		return nil
	}},
	{colReminderState, "reminder_state", func(g *models.Guest, cell string) error {
		state, ok := models.ParseSendStateGlyph(cell)
		if !ok {
			return fmt.Errorf("unknown send state %q", cell)
		}
		g.ReminderState = state
		return nil
	}},
}

// decodeGuestRow converts one sheet row into a Guest. Rows shorter than the
// schema are padded with empty cells: missing trailing columns mean "absent",
// not malformed. rowIndex is the 1-based sheet row the guest lives in.
func decodeGuestRow(row []string, rowIndex int) (*models.Guest, error) {
	g := &models.Guest{RowIndex: rowIndex}
	for _, col := range guestColumns {
		var cell string
		if col.index < len(row) {
			cell = row[col.index]
		}
		if err := col.decode(g, cell); err != nil {
			return nil, fmt.Errorf("row %d, column %s: %w", rowIndex, col.name, err)
		}
	}
	return g, nil
}

// isBlankRow reports whether a row has no content at all.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
