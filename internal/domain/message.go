// Package domain holds the core types shared by all leobot subsystems.
package domain

import "time"

// Entity annotation types carried on a message.
const (
	EntityMention     = "mention"      // @username reference in text
	EntityTextMention = "text_mention" // mention of a user without a username
)

// UserRef identifies a chat user.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	IsBot    bool   `json:"isBot,omitempty"`
}

// Button is one inline keyboard button attached to a message.
// Exactly the fields identity resolution cares about: an attached user,
// opaque callback data, or a link URL.
type Button struct {
	Label string   `json:"label,omitempty"`
	Data  string   `json:"data,omitempty"`
	URL   string   `json:"url,omitempty"`
	User  *UserRef `json:"user,omitempty"`
}

// Entity is a structured annotation on message text (mentions and the like).
type Entity struct {
	Type string   `json:"type"`
	User *UserRef `json:"user,omitempty"`
}

// InboundMessage is a message received from the chat transport, normalized
// into explicit optional fields. Absent substructures are nil rather than
// probed at runtime.
type InboundMessage struct {
	ID           string     `json:"id"`
	Text         string     `json:"text"` // text or caption, whichever was set
	Sender       *UserRef   `json:"sender,omitempty"`
	ChatID       int64      `json:"chatId"`
	ChatUsername string     `json:"chatUsername,omitempty"`
	ButtonRows   [][]Button `json:"buttonRows,omitempty"`
	Entities     []Entity   `json:"entities,omitempty"`
	ForwardFrom  *UserRef   `json:"forwardFrom,omitempty"` // original sender of a forwarded message
	ReplyTo      *UserRef   `json:"replyTo,omitempty"`     // sender of the message this one replies to
	Timestamp    time.Time  `json:"timestamp"`
}
