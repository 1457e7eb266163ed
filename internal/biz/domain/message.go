package domain

import "time"

// MessageKind discriminates the payload of an inbound message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindEvent MessageKind = "event"
	KindOther MessageKind = "other"
)

// EventSubscribe is the platform event fired when a user follows the account.
const EventSubscribe = "subscribe"

// InboundMessage is one parsed message pushed by the WeChat platform.
// UserID and CreatedAt are common to every kind; exactly one of the
// payload fields is meaningful for a given Kind.
type InboundMessage struct {
	UserID    string
	CreatedAt time.Time
	Kind      MessageKind

	Content   string // KindText: the text body
	EventName string // KindEvent: subscribe, unsubscribe, ...
	RawKind   string // KindOther: image, voice, video, location, link
}

// NewTextMessage builds a text-kind inbound message.
func NewTextMessage(userID string, createdAt time.Time, content string) InboundMessage {
	return InboundMessage{UserID: userID, CreatedAt: createdAt, Kind: KindText, Content: content}
}

// NewEventMessage builds an event-kind inbound message.
func NewEventMessage(userID string, createdAt time.Time, eventName string) InboundMessage {
	return InboundMessage{UserID: userID, CreatedAt: createdAt, Kind: KindEvent, EventName: eventName}
}

// NewOtherMessage builds an inbound message of a kind the bot cannot reply to.
func NewOtherMessage(userID string, createdAt time.Time, rawKind string) InboundMessage {
	return InboundMessage{UserID: userID, CreatedAt: createdAt, Kind: KindOther, RawKind: rawKind}
}

// IsText reports whether the message carries a text body.
func (m InboundMessage) IsText() bool {
	return m.Kind == KindText
}
