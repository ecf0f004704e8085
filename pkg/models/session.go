package models

import "time"

// SessionStatus represents the lifecycle state of a runtime session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusHandedOff SessionStatus = "handed_off"
	SessionStatusExpired   SessionStatus = "expired"
)

// History entry roles.
const (
	HistoryRoleUser = "user"
	HistoryRoleBot  = "bot"
)

// HistoryEntry is one appended message in a session's conversation log.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the mutable runtime state for one (flow, contact) pair. At most
// one active session exists per pair; all read-modify-write cycles on it are
// serialized by the session manager.
type Session struct {
	ID             string         `json:"id"`
	FlowID         string         `json:"flow_id"         validate:"required"`
	TenantID       string         `json:"tenant_id"       validate:"required"`
	ContactID      string         `json:"contact_id"      validate:"required"`
	ConversationID string         `json:"conversation_id,omitempty"`
	CurrentNodeID  string         `json:"current_node_id"`
	AwaitingInput  bool           `json:"awaiting_input"` // Parked on a question node, next inbound is the answer
	Variables      map[string]any `json:"variables"`
	History        []HistoryEntry `json:"history"`
	Status         SessionStatus  `json:"status"`
	TriggerType    TriggerType    `json:"trigger_type"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// AppendHistory adds an entry to the session's conversation log.
func (s *Session) AppendHistory(role, content string) {
	s.History = append(s.History, HistoryEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// SetVariables merges updates into the variable bag, last write wins.
func (s *Session) SetVariables(updates map[string]any) {
	if len(updates) == 0 {
		return
	}

	if s.Variables == nil {
		s.Variables = make(map[string]any, len(updates))
	}

	for k, v := range updates {
		s.Variables[k] = v
	}
}
