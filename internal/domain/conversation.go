package domain

import "time"

// Turn roles.
const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// Stage is the lifecycle stage of a conversation.
type Stage string

const (
	StageAwaitingFirstReply Stage = "awaiting_first_reply"
	StageActive             Stage = "active"
)

// Turn is one role-tagged unit of dialogue content.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the per-identity lifecycle state. StartedAt is set once at
// creation and never mutated; there is no terminal stage.
type Conversation struct {
	Identity  int64     `json:"identity"`
	Stage     Stage     `json:"stage"`
	StartedAt time.Time `json:"startedAt"`
}
