package domain

import "encoding/json"

// Role is the speaker of a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ReasoningMessage is one turn in an LLM conversation.
// ReasoningDetails is opaque model state; it is copied byte for byte and never inspected.
type ReasoningMessage struct {
	Role             Role            `json:"role"`
	Content          string          `json:"content"`
	ReasoningDetails json.RawMessage `json:"reasoning_details,omitempty"`
}
