package models

import "time"

// ConversationState tracks where a dialogue is in its turn-taking cycle.
type ConversationState string

const (
	StateNew                   ConversationState = "NEW"
	StateActive                ConversationState = "ACTIVE"
	StateAwaitingClarification ConversationState = "AWAITING_CLARIFICATION"
)

// TurnRole identifies who produced a turn.
type TurnRole string

const (
	RoleUser  TurnRole = "user"
	RoleAgent TurnRole = "agent"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role      TurnRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation holds multi-turn dialogue state. Turns are append-only and
// chronological; callers must serialize writes per conversation ID.
type Conversation struct {
	ID        string            `json:"conversationId"`
	FileID    string            `json:"fileId,omitempty"` // bound flight log, empty when unbound
	State     ConversationState `json:"state"`
	Turns     []Turn            `json:"turns"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
