package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/store"
	"wedding-rsvp/internal/whatsapp"
)

// Config carries the content knobs for outbound messages. None of these
// affect control flow.
type Config struct {
	InvitationTemplate string
	ReminderTemplate   string
	InvitationImageURL string
	GroupInviteLink    string
	DateAndVenue       string
}

// Bot routes inbound guest events to state updates and replies, and drives
// outbound campaign sends. All dependencies are passed in at construction.
type Bot struct {
	store  store.GuestStore
	sender whatsapp.Sender
	cfg    *Config
	log    zerolog.Logger
}

func New(guestStore store.GuestStore, sender whatsapp.Sender, cfg *Config, log zerolog.Logger) *Bot {
	return &Bot{
		store:  guestStore,
		sender: sender,
		cfg:    cfg,
		log:    log.With().Str("component", "bot").Logger(),
	}
}

// HandleEvent dispatches one normalized inbound event. It never returns an
// error and never panics outward: a malformed event must not take down the
// webhook or block the events behind it.
func (b *Bot) HandleEvent(ctx context.Context, evt whatsapp.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("Recovered from panic while handling event")
		}
	}()

	switch ev := evt.(type) {
	case whatsapp.ButtonPressed:
		b.handleButton(ctx, ev)
	case whatsapp.TextMessage:
		b.handleText(ctx, ev)
	case whatsapp.DeliveryStatus:
		b.handleStatus(ctx, ev)
	default:
		b.log.Debug().Type("event", evt).Msg("Ignoring unhandled event type")
	}
}

// handleButton records an RSVP button press and acknowledges it.
func (b *Bot) handleButton(ctx context.Context, ev whatsapp.ButtonPressed) {
	guest, err := b.store.GuestByPhone(ctx, ev.From)
	if errors.Is(err, store.ErrNotFound) {
		b.log.Warn().Str("phone", ev.From).Msg("Button press from unknown number")
		b.reply(ctx, ev.From, replyUnknownGuest)
		return
	}
	if err != nil {
		b.log.Error().Err(err).Str("phone", ev.From).Msg("Guest lookup failed")
		return
	}

	status, ok := models.ParseResponseTag(ev.Data)
	if !ok {
		b.log.Warn().Str("data", ev.Data).Str("guest", guest.FullName()).Msg("Unrecognized button tag")
		return
	}

	if err := b.store.UpdateResponse(ctx, guest, status, 0); err != nil {
		b.log.Error().Err(err).Str("guest", guest.FullName()).Msg("Failed to persist response")
	}
	b.log.Info().Str("guest", guest.FullName()).Str("response", string(status)).Msg("Guest responded")

	switch status {
	case models.ResponseComing:
		b.reply(ctx, ev.From, replyComing)
	case models.ResponseNotComing:
		b.reply(ctx, ev.From, replyNotComing)
	case models.ResponseUnsure:
		// Re-attach the buttons so the guest can answer again later.
		if _, err := b.sender.SendButtons(ctx, ev.From, replyUnsure, responseButtons()); err != nil {
			b.log.Error().Err(err).Str("phone", ev.From).Msg("Failed to send reply")
		}
	}
}

// handleStatus applies a delivery receipt to the matching campaign track.
// Receipts for unknown numbers or unknown trackers are not actionable and
// are dropped without a reply.
func (b *Bot) handleStatus(ctx context.Context, ev whatsapp.DeliveryStatus) {
	guest, err := b.store.GuestByPhone(ctx, ev.Recipient)
	if errors.Is(err, store.ErrNotFound) {
		b.log.Debug().Str("phone", ev.Recipient).Msg("Delivery status for unknown number")
		return
	}
	if err != nil {
		b.log.Error().Err(err).Str("phone", ev.Recipient).Msg("Guest lookup failed")
		return
	}

	b.backfillName(ctx, guest, ev.SenderName)

	var current models.SendState
	var update func(context.Context, *models.Guest, models.SendState) error
	switch ev.Tracker {
	case trackerInvitation:
		current, update = guest.InvitationState, b.store.UpdateInvitationState
	case trackerReminder:
		current, update = guest.ReminderState, b.store.UpdateReminderState
	default:
		b.log.Debug().Str("tracker", ev.Tracker).Msg("Delivery status with unknown tracker")
		return
	}

	var next models.SendState
	switch ev.Status {
	case whatsapp.StatusSent:
		next = models.SendSent
	case whatsapp.StatusDelivered:
		next = models.SendReceived
	case whatsapp.StatusRead:
		next = models.SendRead
	case whatsapp.StatusFailed:
		next = models.SendError
	default:
		b.log.Debug().Str("status", ev.Status).Msg("Unknown delivery status value")
		return
	}

	if next == models.SendError {
		b.log.Error().
			Str("guest", guest.FullName()).
			Str("tracker", ev.Tracker).
			Msg("Message delivery failed")
	}

	if !models.CanAdvance(current, next) {
		b.log.Debug().
			Str("guest", guest.FullName()).
			Str("from", string(current)).
			Str("to", string(next)).
			Msg("Ignoring out-of-order delivery status")
		return
	}

	if err := update(ctx, guest, next); err != nil {
		b.log.Error().Err(err).Str("guest", guest.FullName()).Msg("Failed to persist delivery state")
	}
}

// handleText processes a free-text message. After an invitation has been
// tracked for the guest, a bare number is taken as the party-size answer;
// anything else gets the fixed not-understood reply.
func (b *Bot) handleText(ctx context.Context, ev whatsapp.TextMessage) {
	guest, err := b.store.GuestByPhone(ctx, ev.From)
	if errors.Is(err, store.ErrNotFound) {
		b.log.Warn().Str("phone", ev.From).Msg("Message from unknown number")
		b.reply(ctx, ev.From, replyUnknownGuest)
		return
	}
	if err != nil {
		b.log.Error().Err(err).Str("phone", ev.From).Msg("Guest lookup failed")
		return
	}

	b.backfillName(ctx, guest, ev.SenderName)

	text := strings.TrimSpace(ev.Text)
	count, parseErr := strconv.Atoi(text)
	if guest.InvitationState == "" || parseErr != nil {
		b.reply(ctx, ev.From, replyNotUnderstood)
		return
	}

	if count <= 0 {
		b.reply(ctx, ev.From, replyInvalidCount)
		return
	}

	if err := b.store.UpdateResponse(ctx, guest, models.ResponseComing, count); err != nil {
		b.log.Error().Err(err).Str("guest", guest.FullName()).Msg("Failed to persist guest count")
	}
	b.log.Info().Str("guest", guest.FullName()).Int("count", count).Msg("Guest count recorded")

	confirmation := replyCountSaved
	if b.cfg.GroupInviteLink != "" {
		confirmation += "\n" + b.cfg.GroupInviteLink
	}
	b.reply(ctx, ev.From, confirmation)
}

// backfillName records the WhatsApp profile name the first time we see it.
func (b *Bot) backfillName(ctx context.Context, guest *models.Guest, name string) {
	if guest.WhatsAppName != "" || name == "" {
		return
	}
	if err := b.store.UpdateWhatsAppName(ctx, guest, name); err != nil {
		b.log.Error().Err(err).Str("guest", guest.FullName()).Msg("Failed to record WhatsApp name")
		return
	}
	guest.WhatsAppName = name
}

func (b *Bot) reply(ctx context.Context, to, text string) {
	if _, err := b.sender.SendText(ctx, to, text); err != nil {
		b.log.Error().Err(err).Str("phone", to).Msg("Failed to send reply")
	}
}
