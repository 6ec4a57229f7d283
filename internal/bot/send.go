package bot

import (
	"context"

	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/whatsapp"
)

// campaign binds one outbound message wave to its template, tracker tag and
// the guest field it advances.
type campaign struct {
	name     string
	template string
	tracker  string
	pending  func(context.Context) ([]*models.Guest, error)
	update   func(context.Context, *models.Guest, models.SendState) error
}

// SendInvitations sends the invitation template to every guest still waiting
// for one, up to limit when limit > 0. It returns the number of guests whose
// dispatch was acknowledged by the transport.
func (b *Bot) SendInvitations(ctx context.Context, limit int) (int, error) {
	return b.runCampaign(ctx, limit, campaign{
		name:     "invitation",
		template: b.cfg.InvitationTemplate,
		tracker:  trackerInvitation,
		pending:  b.store.ListPendingInvitations,
		update:   b.store.UpdateInvitationState,
	})
}

// SendReminders is the reminder-wave counterpart of SendInvitations,
// covering guests who were invited but have no reminder attempt yet.
func (b *Bot) SendReminders(ctx context.Context, limit int) (int, error) {
	return b.runCampaign(ctx, limit, campaign{
		name:     "reminder",
		template: b.cfg.ReminderTemplate,
		tracker:  trackerReminder,
		pending:  b.store.ListPendingReminders,
		update:   b.store.UpdateReminderState,
	})
}

// runCampaign walks the pending list sequentially. One guest's failure never
// aborts the batch: the guest stays pending and is picked up by the next run.
func (b *Bot) runCampaign(ctx context.Context, limit int, c campaign) (int, error) {
	guests, err := c.pending(ctx)
	if err != nil {
		return 0, err
	}
	if limit > 0 && len(guests) > limit {
		guests = guests[:limit]
	}

	sent := 0
	for _, guest := range guests {
		displayName := guest.DisplayName
		if displayName == "" {
			displayName = guest.FullName()
		}

		b.log.Info().
			Str("campaign", c.name).
			Str("guest", guest.FullName()).
			Str("phone", guest.PhoneNumber).
			Msg("Sending campaign message")

		msgID, err := b.sender.SendTemplate(ctx, guest.PhoneNumber, whatsapp.Template{
			Name:           c.template,
			HeaderImageURL: b.cfg.InvitationImageURL,
			BodyParams:     []string{displayName, b.cfg.DateAndVenue, invitationEmoji},
			ButtonPayloads: responseButtonPayloads(),
		}, c.tracker)
		if err != nil {
			b.log.Error().Err(err).
				Str("campaign", c.name).
				Str("guest", guest.FullName()).
				Msg("Failed to send campaign message")
			continue
		}
		sent++

		// Provisional state: delivery confirmation arrives later via webhook.
		if err := c.update(ctx, guest, models.SendProcessed); err != nil {
			// The guest stays pending and may receive a duplicate on the
			// next run; the sheet needs a manual fix.
			b.log.Error().Err(err).
				Str("campaign", c.name).
				Str("guest", guest.FullName()).
				Msg("Sent but failed to mark as processed")
			continue
		}

		b.log.Info().
			Str("campaign", c.name).
			Str("guest", guest.FullName()).
			Str("message_id", msgID).
			Msg("Campaign message dispatched")
	}

	b.log.Info().Str("campaign", c.name).Int("sent", sent).Msg("Campaign run finished")
	return sent, nil
}
