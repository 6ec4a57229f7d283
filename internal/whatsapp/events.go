package whatsapp

import (
	"encoding/json"
	"fmt"
)

// Transport delivery status values as reported on webhook callbacks.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// Event is one normalized inbound event. Concrete types are ButtonPressed,
// TextMessage and DeliveryStatus; consumers type-switch on it.
type Event interface{}

// ButtonPressed is a guest tapping a quick-reply button. Data carries the
// opaque tag the button was created with.
type ButtonPressed struct {
	From       string
	SenderName string
	Data       string
}

// TextMessage is a free-text message from a guest.
type TextMessage struct {
	From       string
	SenderName string
	Text       string
}

// DeliveryStatus reports progress of an earlier outbound message. Tracker is
// the tag attached at dispatch time; Status is one of the Status* values.
// SenderName is filled when the notification carried a contact profile.
type DeliveryStatus struct {
	Recipient  string
	SenderName string
	Tracker    string
	Status     string
}

// webhookPayload mirrors the Cloud API webhook notification envelope,
// reduced to the fields the bot consumes.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Button struct {
						Payload string `json:"payload"`
						Text    string `json:"text"`
					} `json:"button"`
					Interactive struct {
						Type        string `json:"type"`
						ButtonReply struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"button_reply"`
					} `json:"interactive"`
				} `json:"messages"`
				Statuses []struct {
					Status      string `json:"status"`
					RecipientID string `json:"recipient_id"`
					Tracker     string `json:"biz_opaque_callback_data"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseEvents decodes a webhook notification body into normalized events,
// in payload order. Message kinds the bot does not handle (media, location,
// reactions) are skipped, not errors.
func ParseEvents(body []byte) ([]Event, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	var events []Event
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value

			names := make(map[string]string, len(value.Contacts))
			for _, c := range value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, msg := range value.Messages {
				switch msg.Type {
				case "text":
					events = append(events, TextMessage{
						From:       msg.From,
						SenderName: names[msg.From],
						Text:       msg.Text.Body,
					})
				case "button":
					// Quick-reply press on a template message.
					events = append(events, ButtonPressed{
						From:       msg.From,
						SenderName: names[msg.From],
						Data:       msg.Button.Payload,
					})
				case "interactive":
					if msg.Interactive.Type != "button_reply" {
						continue
					}
					events = append(events, ButtonPressed{
						From:       msg.From,
						SenderName: names[msg.From],
						Data:       msg.Interactive.ButtonReply.ID,
					})
				}
			}

			for _, st := range value.Statuses {
				events = append(events, DeliveryStatus{
					Recipient:  st.RecipientID,
					SenderName: names[st.RecipientID],
					Tracker:    st.Tracker,
					Status:     st.Status,
				})
			}
		}
	}
	return events, nil
}
