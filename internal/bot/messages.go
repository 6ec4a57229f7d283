package bot

import (
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/whatsapp"
)

// Guest-facing reply texts. These are the only texts a guest ever sees from
// the bot; internal errors never leak into the conversation.
const (
	replyUnknownGuest  = "סליחה, יש תקלה בהזמנה שלך. פנה למארגנים בפרטי."
	replyComing        = "תודה רבה! מחכים לראותכם 😊\nכמה אורחים יגיעו? (אנא הקישו מספר)"
	replyNotComing     = "מצטערים, תודה על התשובה!"
	replyUnsure        = "אין בעיה, נשמח שתלחצו פה כשתדעו 😊"
	replyNotUnderstood = "סליחה, ההודעה לא תקינה. אם יש בעיה פנו למארגנים בפרטי."
	replyInvalidCount  = "תנו כמות חיובית של מוזמנים בבקשה."
	replyCountSaved    = "מושלם! שמחים ונרגשים לראות אתכם 😇"

	invitationEmoji = "😊"
)

// Tracker tags attached to outbound campaign sends so delivery-status
// callbacks can be routed back to the right guest field.
const (
	trackerInvitation = "INVITATION"
	trackerReminder   = "REMINDER"
)

// responseButtons builds the three RSVP quick-reply buttons. The data tags
// are the internal response tags; the titles are the guest-facing labels.
func responseButtons() []whatsapp.Button {
	statuses := []models.ResponseStatus{
		models.ResponseComing,
		models.ResponseNotComing,
		models.ResponseUnsure,
	}
	buttons := make([]whatsapp.Button, 0, len(statuses))
	for _, s := range statuses {
		buttons = append(buttons, whatsapp.Button{Data: string(s), Title: s.Label()})
	}
	return buttons
}

// responseButtonPayloads lists the same tags in template quick-reply form.
func responseButtonPayloads() []string {
	var payloads []string
	for _, b := range responseButtons() {
		payloads = append(payloads, b.Data)
	}
	return payloads
}
