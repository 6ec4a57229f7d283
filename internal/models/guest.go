package models

import "strings"

// Guest represents a single invitee row in the guest list.
// Absent optional fields are zero values: an empty SendState or
// ResponseStatus means "not yet", ExpectedGuests == 0 means "no count given".
type Guest struct {
	FirstName       string
	LastName        string
	DisplayName     string
	PhoneNumber     string
	WhatsAppName    string
	ShouldSend      bool
	InvitationState SendState
	ReminderState   SendState
	Response        ResponseStatus
	ExpectedGuests  int

	// RowIndex is the store-assigned position of this guest, used for
	// targeted field updates. It carries no meaning beyond addressing.
	RowIndex int
}

// FullName returns the guest's first and last name joined for logging.
func (g *Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// SendState tracks delivery progress of one outbound campaign message
// (invitation or reminder) for a guest.
type SendState string

const (
	// SendProcessed means dispatch was attempted; no transport confirmation yet.
	SendProcessed SendState = "PROCESSED"
	SendSent      SendState = "SENT"
	SendReceived  SendState = "RECEIVED"
	SendRead      SendState = "READ"
	SendError     SendState = "ERROR"
)

// sendStateGlyphs maps each state to the glyph shown in the guest sheet.
var sendStateGlyphs = map[SendState]string{
	SendProcessed: "⏱",
	SendSent:      "✔",
	SendReceived:  "✔✔",
	SendRead:      "☑☑",
	SendError:     "❌",
}

// Glyph returns the sheet display form of the state.
func (s SendState) Glyph() string {
	return sendStateGlyphs[s]
}

// ParseSendStateGlyph converts a sheet cell back into a SendState.
// An empty cell is valid and means "not yet attempted".
func ParseSendStateGlyph(cell string) (SendState, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return "", true
	}
	for state, glyph := range sendStateGlyphs {
		if cell == glyph {
			return state, true
		}
	}
	return "", false
}

// sendStateRank orders the normal delivery progression. READ is terminal;
// ERROR sits outside the ranking.
var sendStateRank = map[SendState]int{
	SendProcessed: 1,
	SendSent:      2,
	SendReceived:  3,
	SendRead:      4,
}

// CanAdvance reports whether a delivery track may move from cur to next.
// Tracking only moves forward; ERROR is reachable from any non-terminal
// state and is absorbing.
func CanAdvance(cur, next SendState) bool {
	if cur == SendError || next == "" {
		return false
	}
	if next == SendError {
		return cur != SendRead
	}
	return sendStateRank[next] > sendStateRank[cur]
}

// ResponseStatus is the guest's RSVP answer. Unlike SendState it has no
// ordering: a guest may change their answer at any time.
type ResponseStatus string

const (
	ResponseComing    ResponseStatus = "COMING"
	ResponseNotComing ResponseStatus = "NOT_COMING"
	ResponseUnsure    ResponseStatus = "UNSURE"
)

// responseLabels holds the guest-facing labels, in the invitation's language.
var responseLabels = map[ResponseStatus]string{
	ResponseComing:    "מגיע",
	ResponseNotComing: "לא מגיע",
	ResponseUnsure:    "לא יודע",
}

// Label returns the display form of the response, used both on reply
// buttons and in the guest sheet.
func (r ResponseStatus) Label() string {
	return responseLabels[r]
}

// ParseResponseTag decodes a button data tag into a ResponseStatus.
func ParseResponseTag(tag string) (ResponseStatus, bool) {
	switch ResponseStatus(tag) {
	case ResponseComing, ResponseNotComing, ResponseUnsure:
		return ResponseStatus(tag), true
	}
	return "", false
}

// ParseResponseLabel converts a sheet cell back into a ResponseStatus.
// An empty cell is valid and means "no answer yet".
func ParseResponseLabel(cell string) (ResponseStatus, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return "", true
	}
	for status, label := range responseLabels {
		if cell == label {
			return status, true
		}
	}
	return "", false
}
