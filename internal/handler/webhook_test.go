package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-rsvp/internal/bot"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/store"
	"wedding-rsvp/internal/whatsapp"
)

type stubStore struct {
	guests []*models.Guest
}

func (s *stubStore) GuestByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	want := store.NormalizePhone(phone)
	for _, g := range s.guests {
		if g.PhoneNumber == want {
			return g, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubStore) ListGuests(ctx context.Context) ([]*models.Guest, error) {
	return s.guests, nil
}

func (s *stubStore) ListPendingInvitations(ctx context.Context) ([]*models.Guest, error) {
	var out []*models.Guest
	for _, g := range s.guests {
		if g.ShouldSend && g.InvitationState == "" {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stubStore) ListPendingReminders(ctx context.Context) ([]*models.Guest, error) {
	var out []*models.Guest
	for _, g := range s.guests {
		if g.ShouldSend && g.InvitationState != "" && g.ReminderState == "" {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stubStore) UpdateInvitationState(ctx context.Context, g *models.Guest, state models.SendState) error {
	g.InvitationState = state
	return nil
}

func (s *stubStore) UpdateReminderState(ctx context.Context, g *models.Guest, state models.SendState) error {
	g.ReminderState = state
	return nil
}

func (s *stubStore) UpdateResponse(ctx context.Context, g *models.Guest, status models.ResponseStatus, count int) error {
	g.Response = status
	if count > 0 {
		g.ExpectedGuests = count
	}
	return nil
}

func (s *stubStore) UpdateWhatsAppName(ctx context.Context, g *models.Guest, name string) error {
	g.WhatsAppName = name
	return nil
}

type stubSender struct {
	texts     []string
	templates []string
}

func (s *stubSender) SendText(ctx context.Context, to, text string) (string, error) {
	s.texts = append(s.texts, text)
	return "wamid.1", nil
}

func (s *stubSender) SendButtons(ctx context.Context, to, text string, buttons []whatsapp.Button) (string, error) {
	s.texts = append(s.texts, text)
	return "wamid.1", nil
}

func (s *stubSender) SendTemplate(ctx context.Context, to string, tmpl whatsapp.Template, tracker string) (string, error) {
	s.templates = append(s.templates, tracker)
	return "wamid.1", nil
}

func newTestRouter(cfg *Config, guests ...*models.Guest) (*mux.Router, *stubStore, *stubSender) {
	st := &stubStore{guests: guests}
	sender := &stubSender{}
	b := bot.New(st, sender, &bot.Config{
		InvitationTemplate: "rsvp_invitation",
		ReminderTemplate:   "rsvp_reminder",
	}, zerolog.Nop())

	if cfg == nil {
		cfg = &Config{VerifyToken: "secret-token"}
	}
	router := mux.NewRouter()
	NewWebhook(b, st, cfg, zerolog.Nop()).Register(router)
	return router, st, sender
}

func TestVerifyChallenge(t *testing.T) {
	router, _, _ := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())
}

func TestVerifyRejectsBadToken(t *testing.T) {
	router, _, _ := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

const buttonPayload = `{
	"object": "whatsapp_business_account",
	"entry": [{"changes": [{"field": "messages", "value": {
		"messages": [{"from": "972501234567", "type": "button",
			"button": {"payload": "NOT_COMING", "text": "לא מגיע"}}]
	}}]}]
}`

func TestReceiveDispatchesEvents(t *testing.T) {
	guest := &models.Guest{PhoneNumber: "972501234567", ShouldSend: true}
	router, _, sender := newTestRouter(nil, guest)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(buttonPayload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ResponseNotComing, guest.Response)
	assert.Len(t, sender.texts, 1)
}

func TestReceiveSignature(t *testing.T) {
	cfg := &Config{VerifyToken: "secret-token", AppSecret: "app-secret"}

	sign := func(body string) string {
		mac := hmac.New(sha256.New, []byte("app-secret"))
		mac.Write([]byte(body))
		return "sha256=" + hex.EncodeToString(mac.Sum(nil))
	}

	t.Run("Valid", func(t *testing.T) {
		guest := &models.Guest{PhoneNumber: "972501234567", ShouldSend: true}
		router, _, _ := newTestRouter(cfg, guest)

		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(buttonPayload))
		req.Header.Set("X-Hub-Signature-256", sign(buttonPayload))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.ResponseNotComing, guest.Response)
	})

	t.Run("Invalid", func(t *testing.T) {
		guest := &models.Guest{PhoneNumber: "972501234567", ShouldSend: true}
		router, _, _ := newTestRouter(cfg, guest)

		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(buttonPayload))
		req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, models.ResponseStatus(""), guest.Response)
	})

	t.Run("Missing", func(t *testing.T) {
		router, _, _ := newTestRouter(cfg)

		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(buttonPayload))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestReceiveAcknowledgesBadPayload(t *testing.T) {
	router, _, _ := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Redelivery would not help; acknowledge and move on.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPendingInvitationsPreview(t *testing.T) {
	router, _, _ := newTestRouter(nil,
		&models.Guest{FirstName: "רות", LastName: "לוי", DisplayName: "רות ואבי", PhoneNumber: "972500000001", ShouldSend: true},
		&models.Guest{FirstName: "דן", PhoneNumber: "972500000002", ShouldSend: true, InvitationState: models.SendRead},
	)

	req := httptest.NewRequest(http.MethodGet, "/guests/pending", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count  int `json:"count"`
		Guests []struct {
			Name        string `json:"name"`
			PhoneNumber string `json:"phone_number"`
		} `json:"guests"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Guests, 1)
	assert.Equal(t, "רות לוי", resp.Guests[0].Name)
}

func TestSendInvitationsRoute(t *testing.T) {
	router, _, sender := newTestRouter(nil,
		&models.Guest{FirstName: "א", PhoneNumber: "972500000001", ShouldSend: true},
		&models.Guest{FirstName: "ב", PhoneNumber: "972500000002", ShouldSend: true},
	)

	req := httptest.NewRequest(http.MethodPost, "/send/invitations?limit=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["sent"])
	assert.Equal(t, []string{"INVITATION"}, sender.templates)
}

func TestSendRemindersRoute(t *testing.T) {
	router, _, sender := newTestRouter(nil,
		&models.Guest{FirstName: "א", PhoneNumber: "972500000001", ShouldSend: true, InvitationState: models.SendRead},
	)

	req := httptest.NewRequest(http.MethodPost, "/send/reminders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"REMINDER"}, sender.templates)
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
