package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
)

// SQLiteStore keeps the guest list in a local SQLite database. It exists for
// running the bot without Google credentials; the contract is identical to
// the sheet-backed store, with the row id playing the RowIndex role.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS guests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	whatsapp_name TEXT NOT NULL DEFAULT '',
	should_send INTEGER NOT NULL DEFAULT 0,
	invitation_state TEXT NOT NULL DEFAULT '',
	reminder_state TEXT NOT NULL DEFAULT '',
	response TEXT NOT NULL DEFAULT '',
	expected_guests INTEGER NOT NULL DEFAULT 0
)`

// NewSQLiteStore opens (and if needed initializes) the guest database.
func NewSQLiteStore(path string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open guest database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping guest database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize guest schema: %w", err)
	}
	return newSQLiteStore(db, log), nil
}

func newSQLiteStore(db *sql.DB, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: log.With().Str("component", "sqlitestore").Logger()}
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const guestSelect = `
	SELECT id, first_name, last_name, phone_number, display_name,
	       whatsapp_name, should_send, invitation_state, reminder_state,
	       response, expected_guests
	FROM guests
	ORDER BY id`

// GuestByPhone scans all guests and matches on the normalized phone number,
// same as the sheet-backed store: the stored number may carry formatting.
func (s *SQLiteStore) GuestByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	want := NormalizePhone(phone)
	if want == "" {
		return nil, ErrNotFound
	}
	guests, err := s.ListGuests(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range guests {
		if g.PhoneNumber == want {
			return g, nil
		}
	}
	return nil, ErrNotFound
}

func (s *SQLiteStore) ListGuests(ctx context.Context) ([]*models.Guest, error) {
	rows, err := s.db.QueryContext(ctx, guestSelect)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	var guests []*models.Guest
	for rows.Next() {
		g := &models.Guest{}
		var shouldSend int
		var invitationState, reminderState, response string
		err := rows.Scan(
			&g.RowIndex,
			&g.FirstName,
			&g.LastName,
			&g.PhoneNumber,
			&g.DisplayName,
			&g.WhatsAppName,
			&shouldSend,
			&invitationState,
			&reminderState,
			&response,
			&g.ExpectedGuests,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		g.PhoneNumber = NormalizePhone(g.PhoneNumber)
		g.ShouldSend = shouldSend != 0
		g.InvitationState = models.SendState(invitationState)
		g.ReminderState = models.SendState(reminderState)
		g.Response = models.ResponseStatus(response)
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guests: %w", err)
	}
	return guests, nil
}

func (s *SQLiteStore) ListPendingInvitations(ctx context.Context) ([]*models.Guest, error) {
	guests, err := s.ListGuests(ctx)
	if err != nil {
		return nil, err
	}
	return pendingInvitations(guests), nil
}

func (s *SQLiteStore) ListPendingReminders(ctx context.Context) ([]*models.Guest, error) {
	guests, err := s.ListGuests(ctx)
	if err != nil {
		return nil, err
	}
	return pendingReminders(guests), nil
}

func (s *SQLiteStore) UpdateInvitationState(ctx context.Context, guest *models.Guest, state models.SendState) error {
	return s.updateField(ctx, guest, "invitation_state", string(state))
}

func (s *SQLiteStore) UpdateReminderState(ctx context.Context, guest *models.Guest, state models.SendState) error {
	return s.updateField(ctx, guest, "reminder_state", string(state))
}

func (s *SQLiteStore) UpdateResponse(ctx context.Context, guest *models.Guest, status models.ResponseStatus, expectedGuests int) error {
	if expectedGuests < 0 {
		return fmt.Errorf("expected guest count must be positive, got %d", expectedGuests)
	}
	if expectedGuests > 0 {
		query := `UPDATE guests SET response = ?, expected_guests = ? WHERE id = ?`
		return s.exec(ctx, guest, query, string(status), expectedGuests, guest.RowIndex)
	}
	return s.updateField(ctx, guest, "response", string(status))
}

func (s *SQLiteStore) UpdateWhatsAppName(ctx context.Context, guest *models.Guest, name string) error {
	return s.updateField(ctx, guest, "whatsapp_name", name)
}

// updateField writes a single column for one guest. The column name comes
// from the fixed call sites above, never from input.
func (s *SQLiteStore) updateField(ctx context.Context, guest *models.Guest, column, value string) error {
	query := fmt.Sprintf("UPDATE guests SET %s = ? WHERE id = ?", column)
	return s.exec(ctx, guest, query, value, guest.RowIndex)
}

func (s *SQLiteStore) exec(ctx context.Context, guest *models.Guest, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update guest %d: %w", guest.RowIndex, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of guest %d: %w", guest.RowIndex, err)
	}
	if affected == 0 {
		return fmt.Errorf("guest %d no longer exists", guest.RowIndex)
	}
	s.log.Info().
		Str("guest", guest.FullName()).
		Int("row", guest.RowIndex).
		Msg("Updated guest record")
	return nil
}
