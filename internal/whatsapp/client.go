package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// defaultBaseURL is the Graph API root for the WhatsApp Business Cloud API.
const defaultBaseURL = "https://graph.facebook.com/v19.0"

// Button is one quick-reply choice attached to an interactive message.
// Data is the opaque tag echoed back when the guest presses it.
type Button struct {
	Data  string
	Title string
}

// Template describes a pre-approved message template send.
type Template struct {
	Name           string
	Language       string
	HeaderImageURL string
	BodyParams     []string
	ButtonPayloads []string
}

// Sender is the outbound messaging surface the bot depends on. The tracker
// tag rides along with the dispatch and comes back on delivery-status
// callbacks so they can be routed to the right guest field.
type Sender interface {
	SendText(ctx context.Context, to, text string) (string, error)
	SendButtons(ctx context.Context, to, text string, buttons []Button) (string, error)
	SendTemplate(ctx context.Context, to string, tmpl Template, tracker string) (string, error)
}

// Client implements Sender against the Cloud API messages endpoint.
type Client struct {
	baseURL string
	phoneID string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a Cloud API client for the given business phone number id.
func NewClient(phoneID, token string, log zerolog.Logger) *Client {
	return newClient(defaultBaseURL, phoneID, token, log)
}

func newClient(baseURL, phoneID, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		phoneID: phoneID,
		token:   token,
		http:    &http.Client{},
		log:     log.With().Str("component", "whatsapp").Logger(),
	}
}

type textPayload struct {
	Body string `json:"body"`
}

type outboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textPayload `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
	Template         *template    `json:"template,omitempty"`
	Tracker          string       `json:"biz_opaque_callback_data,omitempty"`
}

type interactive struct {
	Type   string            `json:"type"`
	Body   textPayload       `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveAction struct {
	Buttons []replyButton `json:"buttons"`
}

type replyButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type template struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	SubType    string              `json:"sub_type,omitempty"`
	Index      string              `json:"index,omitempty"`
	Parameters []templateParameter `json:"parameters,omitempty"`
}

type templateParameter struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Payload string         `json:"payload,omitempty"`
	Image   *imageEnvelope `json:"image,omitempty"`
}

type imageEnvelope struct {
	Link string `json:"link"`
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, text string) (string, error) {
	return c.send(ctx, &outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: text},
	})
}

// SendButtons sends a text message with quick-reply buttons attached.
func (c *Client) SendButtons(ctx context.Context, to, text string, buttons []Button) (string, error) {
	action := interactiveAction{}
	for _, b := range buttons {
		action.Buttons = append(action.Buttons, replyButton{
			Type:  "reply",
			Reply: buttonReply{ID: b.Data, Title: b.Title},
		})
	}
	return c.send(ctx, &outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &interactive{
			Type:   "button",
			Body:   textPayload{Body: text},
			Action: action,
		},
	})
}

// SendTemplate sends a pre-approved template message with the tracker tag
// attached for delivery-status correlation.
func (c *Client) SendTemplate(ctx context.Context, to string, tmpl Template, tracker string) (string, error) {
	var components []templateComponent
	if tmpl.HeaderImageURL != "" {
		components = append(components, templateComponent{
			Type: "header",
			Parameters: []templateParameter{
				{Type: "image", Image: &imageEnvelope{Link: tmpl.HeaderImageURL}},
			},
		})
	}
	if len(tmpl.BodyParams) > 0 {
		body := templateComponent{Type: "body"}
		for _, p := range tmpl.BodyParams {
			body.Parameters = append(body.Parameters, templateParameter{Type: "text", Text: p})
		}
		components = append(components, body)
	}
	for i, payload := range tmpl.ButtonPayloads {
		components = append(components, templateComponent{
			Type:       "button",
			SubType:    "quick_reply",
			Index:      strconv.Itoa(i),
			Parameters: []templateParameter{{Type: "payload", Payload: payload}},
		})
	}

	language := tmpl.Language
	if language == "" {
		language = "he"
	}
	return c.send(ctx, &outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: &template{
			Name:       tmpl.Name,
			Language:   templateLanguage{Code: language},
			Components: components,
		},
		Tracker: tracker,
	})
}

// send posts one message to the Cloud API and returns the assigned message id.
func (c *Client) send(ctx context.Context, msg *outboundMessage) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("cloud api returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Messages) == 0 {
		return "", fmt.Errorf("cloud api accepted the send but returned no message id")
	}

	c.log.Debug().
		Str("to", msg.To).
		Str("type", msg.Type).
		Str("message_id", result.Messages[0].ID).
		Msg("Message dispatched")
	return result.Messages[0].ID, nil
}
