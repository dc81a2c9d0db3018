package models

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser        Sender = "user"
	SenderCounterpart Sender = "gale"
)

// MessageStatus tracks delivery progress for user messages. Counterpart
// messages carry no status (empty string).
type MessageStatus string

const (
	StatusSending MessageStatus = "sending"
	StatusSent    MessageStatus = "sent"
	StatusSeen    MessageStatus = "seen"
	StatusError   MessageStatus = "error"
)

// CanTransitionTo reports whether moving to next is a forward transition.
// Statuses only ever advance: sending -> sent -> seen, with error reachable
// from any non-terminal state. A message never moves backward.
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	rank := func(st MessageStatus) int {
		switch st {
		case StatusSending:
			return 0
		case StatusSent:
			return 1
		case StatusSeen:
			return 2
		case StatusError:
			return 3
		}
		return -1
	}
	cur, nxt := rank(s), rank(next)
	if cur < 0 || nxt < 0 {
		return false
	}
	if s == StatusSeen || s == StatusError {
		return false
	}
	return nxt > cur
}

// Message is the atomic unit of the conversation log.
//
// ID is unique across the whole persisted log and never reused. Time is the
// display timestamp captured at creation; Date is a date-only string used
// purely as a grouping key. IsContinuation marks fragments after the first
// when a long counterpart reply is split into several bubbles.
type Message struct {
	ID             string        `json:"id"`
	Text           string        `json:"text"`
	Time           string        `json:"time"`
	From           Sender        `json:"from"`
	Date           string        `json:"date"`
	IsContinuation bool          `json:"isContinuation"`
	Status         MessageStatus `json:"status,omitempty"`
}

// InitialLoad is the result of reading the persisted log at session start.
type InitialLoad struct {
	Messages          []Message
	HasMore           bool
	UserHasInteracted bool
}

// MoreLoad is the result of paging further back into the persisted log.
type MoreLoad struct {
	Messages []Message
	HasMore  bool
}
