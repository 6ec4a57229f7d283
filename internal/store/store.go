package store

import (
	"context"
	"errors"
	"strings"

	"wedding-rsvp/internal/models"
)

// ErrNotFound is returned by lookups when no guest matches. It is an
// expected outcome, not a fault: callers decide whether to reply to the
// sender or drop the event.
var ErrNotFound = errors.New("guest not found")

// GuestStore is the contract the bot depends on. Implementations own a
// tabular record of guests keyed by position; the bot never creates or
// deletes rows, it only reads and performs targeted field updates.
type GuestStore interface {
	// GuestByPhone returns the first guest whose normalized phone number
	// matches the normalized input, or ErrNotFound.
	GuestByPhone(ctx context.Context, phone string) (*models.Guest, error)

	// ListGuests returns every non-blank guest row. Rows that fail to
	// decode are logged and skipped, not returned as errors.
	ListGuests(ctx context.Context) ([]*models.Guest, error)

	// ListPendingInvitations returns guests marked for sending whose
	// invitation has not been attempted yet.
	ListPendingInvitations(ctx context.Context) ([]*models.Guest, error)

	// ListPendingReminders returns guests marked for sending who were
	// already invited but have no reminder attempt yet.
	ListPendingReminders(ctx context.Context) ([]*models.Guest, error)

	UpdateInvitationState(ctx context.Context, guest *models.Guest, state models.SendState) error
	UpdateReminderState(ctx context.Context, guest *models.Guest, state models.SendState) error

	// UpdateResponse writes the RSVP answer and, when expectedGuests > 0,
	// the party size in the same call.
	UpdateResponse(ctx context.Context, guest *models.Guest, status models.ResponseStatus, expectedGuests int) error

	UpdateWhatsAppName(ctx context.Context, guest *models.Guest, name string) error
}

// NormalizePhone reduces a phone number to its digits so that formatting
// variants ("+972-50...", "972 50...") compare equal.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// pendingInvitations filters guests eligible for an invitation send.
func pendingInvitations(guests []*models.Guest) []*models.Guest {
	var out []*models.Guest
	for _, g := range guests {
		if g.ShouldSend && g.InvitationState == "" {
			out = append(out, g)
		}
	}
	return out
}

// pendingReminders filters guests eligible for a reminder send: already
// invited, no reminder attempt yet.
func pendingReminders(guests []*models.Guest) []*models.Guest {
	var out []*models.Guest
	for _, g := range guests {
		if g.ShouldSend && g.InvitationState != "" && g.ReminderState == "" {
			out = append(out, g)
		}
	}
	return out
}
