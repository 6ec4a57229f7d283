package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrapValue(value string) []byte {
	return []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{"id": "1", "changes": [{"field": "messages", "value": ` + value + `}]}]
	}`)
}

func TestParseEventsTextMessage(t *testing.T) {
	body := wrapValue(`{
		"contacts": [{"wa_id": "972501234567", "profile": {"name": "Ruth"}}],
		"messages": [{"from": "972501234567", "id": "wamid.1", "type": "text", "text": {"body": "5"}}]
	}`)

	events, err := ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	msg, ok := events[0].(TextMessage)
	require.True(t, ok)
	assert.Equal(t, "972501234567", msg.From)
	assert.Equal(t, "Ruth", msg.SenderName)
	assert.Equal(t, "5", msg.Text)
}

func TestParseEventsTemplateButton(t *testing.T) {
	body := wrapValue(`{
		"contacts": [{"wa_id": "972501234567", "profile": {"name": "Ruth"}}],
		"messages": [{"from": "972501234567", "type": "button", "button": {"payload": "COMING", "text": "מגיע"}}]
	}`)

	events, err := ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	btn, ok := events[0].(ButtonPressed)
	require.True(t, ok)
	assert.Equal(t, "COMING", btn.Data)
	assert.Equal(t, "Ruth", btn.SenderName)
}

func TestParseEventsInteractiveReply(t *testing.T) {
	body := wrapValue(`{
		"messages": [{"from": "972501234567", "type": "interactive",
			"interactive": {"type": "button_reply", "button_reply": {"id": "UNSURE", "title": "לא יודע"}}}]
	}`)

	events, err := ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	btn, ok := events[0].(ButtonPressed)
	require.True(t, ok)
	assert.Equal(t, "UNSURE", btn.Data)
}

func TestParseEventsDeliveryStatus(t *testing.T) {
	body := wrapValue(`{
		"statuses": [{"id": "wamid.2", "status": "delivered", "recipient_id": "972501234567",
			"biz_opaque_callback_data": "INVITATION"}]
	}`)

	events, err := ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	st, ok := events[0].(DeliveryStatus)
	require.True(t, ok)
	assert.Equal(t, "972501234567", st.Recipient)
	assert.Equal(t, "INVITATION", st.Tracker)
	assert.Equal(t, StatusDelivered, st.Status)
}

func TestParseEventsSkipsUnhandledKinds(t *testing.T) {
	body := wrapValue(`{
		"messages": [
			{"from": "972501234567", "type": "image"},
			{"from": "972501234567", "type": "interactive", "interactive": {"type": "list_reply"}},
			{"from": "972501234567", "type": "text", "text": {"body": "hi"}}
		]
	}`)

	events, err := ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.IsType(t, TextMessage{}, events[0])
}

func TestParseEventsPreservesOrder(t *testing.T) {
	body := wrapValue(`{
		"messages": [{"from": "972501234567", "type": "text", "text": {"body": "hi"}}],
		"statuses": [{"status": "sent", "recipient_id": "972501234567", "biz_opaque_callback_data": "REMINDER"}]
	}`)

	events, err := ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.IsType(t, TextMessage{}, events[0])
	assert.IsType(t, DeliveryStatus{}, events[1])
}

func TestParseEventsBadPayload(t *testing.T) {
	_, err := ParseEvents([]byte("not json"))
	assert.Error(t, err)
}

func TestParseEventsEmptyPayload(t *testing.T) {
	events, err := ParseEvents([]byte(`{"object": "whatsapp_business_account", "entry": []}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}
