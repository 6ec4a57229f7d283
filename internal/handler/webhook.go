package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/bot"
	"wedding-rsvp/internal/store"
	"wedding-rsvp/internal/whatsapp"
)

// maxWebhookBody caps inbound notification size.
const maxWebhookBody = 1 << 20

// Config holds the webhook endpoint settings.
type Config struct {
	// VerifyToken answers Meta's subscription challenge.
	VerifyToken string
	// AppSecret, when set, enables X-Hub-Signature-256 validation of event
	// deliveries.
	AppSecret string
}

// Webhook is the HTTP surface of the bot: the Cloud API callback endpoint
// plus a few operator routes for previewing and triggering campaign sends.
type Webhook struct {
	bot   *bot.Bot
	store store.GuestStore
	cfg   *Config
	log   zerolog.Logger
}

func NewWebhook(b *bot.Bot, guestStore store.GuestStore, cfg *Config, log zerolog.Logger) *Webhook {
	return &Webhook{
		bot:   b,
		store: guestStore,
		cfg:   cfg,
		log:   log.With().Str("component", "webhook").Logger(),
	}
}

// Register mounts all routes on the router.
func (h *Webhook) Register(r *mux.Router) {
	r.HandleFunc("/webhook", h.Verify).Methods(http.MethodGet)
	r.HandleFunc("/webhook", h.Receive).Methods(http.MethodPost)
	r.HandleFunc("/guests/pending", h.PendingInvitations).Methods(http.MethodGet)
	r.HandleFunc("/send/invitations", h.SendInvitations).Methods(http.MethodPost)
	r.HandleFunc("/send/reminders", h.SendReminders).Methods(http.MethodPost)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

// Verify answers the webhook subscription challenge.
func (h *Webhook) Verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("hub.mode") != "subscribe" || query.Get("hub.verify_token") != h.cfg.VerifyToken {
		h.log.Warn().Msg("Webhook verification rejected")
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(query.Get("hub.challenge")))
}

// Receive accepts one event-delivery notification, dispatches every event in
// it to the bot, and acknowledges. Events are handled to completion, in
// order, before the acknowledgment; the bot swallows per-event faults, so a
// notification is never redelivered on our account.
func (h *Webhook) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read webhook body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if h.cfg.AppSecret != "" && !h.validSignature(body, r.Header.Get("X-Hub-Signature-256")) {
		h.log.Warn().Msg("Webhook delivery with bad signature")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	events, err := whatsapp.ParseEvents(body)
	if err != nil {
		// Acknowledge anyway: a payload we cannot parse today will not
		// parse on redelivery either.
		h.log.Warn().Err(err).Msg("Undecodable webhook payload")
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, evt := range events {
		h.bot.HandleEvent(r.Context(), evt)
	}
	w.WriteHeader(http.StatusOK)
}

// validSignature checks the sha256 HMAC header Meta attaches to deliveries.
func (h *Webhook) validSignature(body []byte, header string) bool {
	signature, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.cfg.AppSecret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// guestSummary is the operator-facing preview of one pending guest.
type guestSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	PhoneNumber string `json:"phone_number"`
}

// PendingInvitations previews the guests the next invitation run would reach.
func (h *Webhook) PendingInvitations(w http.ResponseWriter, r *http.Request) {
	guests, err := h.store.ListPendingInvitations(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list pending invitations")
		writeError(w, http.StatusInternalServerError, "failed to list pending invitations")
		return
	}
	summaries := make([]guestSummary, 0, len(guests))
	for _, g := range guests {
		summaries = append(summaries, guestSummary{
			Name:        g.FullName(),
			DisplayName: g.DisplayName,
			PhoneNumber: g.PhoneNumber,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(summaries),
		"guests": summaries,
	})
}

// SendInvitations triggers an invitation batch. An optional limit query
// parameter caps the run.
func (h *Webhook) SendInvitations(w http.ResponseWriter, r *http.Request) {
	h.runCampaign(w, r, h.bot.SendInvitations)
}

// SendReminders triggers a reminder batch.
func (h *Webhook) SendReminders(w http.ResponseWriter, r *http.Request) {
	h.runCampaign(w, r, h.bot.SendReminders)
}

func (h *Webhook) runCampaign(w http.ResponseWriter, r *http.Request, run func(context.Context, int) (int, error)) {
	sent, err := run(r.Context(), parseLimit(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Campaign run failed")
		writeError(w, http.StatusInternalServerError, "campaign run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

func (h *Webhook) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
