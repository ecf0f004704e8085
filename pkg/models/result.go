package models

import "time"

// ResponseType classifies an outgoing response intent.
type ResponseType string

const (
	ResponseTypeMessage ResponseType = "message"
	ResponseTypeButtons ResponseType = "buttons"
	ResponseTypeList    ResponseType = "list"
	ResponseTypeMedia   ResponseType = "media"
)

// Response is an intent-to-respond produced by a node execution. Actual
// delivery is the channel transport's job.
type Response struct {
	Type     ResponseType `json:"type"`
	Content  string       `json:"content"`
	Buttons  []Button     `json:"buttons,omitempty"`
	MediaURL string       `json:"media_url,omitempty"`
}

// ScheduledAdvance asks a scheduler collaborator to resume the session at the
// given node after the delay. The engine currently advances immediately and
// publishes this as an event; the variant exists so real wait scheduling can
// take over without changing node semantics.
type ScheduledAdvance struct {
	NodeID string        `json:"node_id"`
	Delay  time.Duration `json:"delay"`
}

// ExecutionResult is the outcome of executing a single node.
type ExecutionResult struct {
	Success          bool              `json:"success"`
	Response         *Response         `json:"response,omitempty"`
	NextNodeID       string            `json:"next_node_id,omitempty"`
	AwaitInput       bool              `json:"await_input,omitempty"` // Park the session on this node until the next inbound message
	Handoff          bool              `json:"handoff,omitempty"`
	SessionEnded     bool              `json:"session_ended,omitempty"`
	VariableUpdates  map[string]any    `json:"variable_updates,omitempty"`
	ScheduledAdvance *ScheduledAdvance `json:"scheduled_advance,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// ProcessResult is the aggregate outcome of processing one inbound message,
// possibly spanning several chained node executions.
type ProcessResult struct {
	Success      bool       `json:"success"`
	Matched      bool       `json:"matched"` // False when no active flow claimed the message
	FlowID       string     `json:"flow_id,omitempty"`
	SessionID    string     `json:"session_id,omitempty"`
	Responses    []Response `json:"responses,omitempty"`
	Handoff      bool       `json:"handoff,omitempty"`
	SessionEnded bool       `json:"session_ended,omitempty"`
	Error        string     `json:"error,omitempty"`
}
