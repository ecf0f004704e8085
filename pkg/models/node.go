package models

// NodeType tags a flow node with its execution strategy.
type NodeType string

const (
	NodeTypeStart       NodeType = "start"
	NodeTypeMessage     NodeType = "message"
	NodeTypeButtons     NodeType = "buttons"
	NodeTypeQuestion    NodeType = "question"
	NodeTypeCondition   NodeType = "condition"
	NodeTypeDelay       NodeType = "delay"
	NodeTypeAction      NodeType = "action"
	NodeTypeWebhook     NodeType = "webhook"
	NodeTypeAssignAgent NodeType = "assign_agent"
	NodeTypeEnd         NodeType = "end"
)

// Button is a quick-reply option attached to a message or buttons node.
type Button struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ActionSpec configures a delegated side effect performed by an action node.
type ActionSpec struct {
	Kind  string `json:"kind"` // add_tag, update_field
	Tag   string `json:"tag,omitempty"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// WebhookSpec configures an outbound HTTP call performed by a webhook node.
type WebhookSpec struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// NodeData is the type-specific payload of a node. Only the fields relevant
// to the node's type are set; the rest stay at their zero values.
type NodeData struct {
	Message        string       `json:"message,omitempty"`
	MediaURL       string       `json:"media_url,omitempty"`
	Buttons        []Button     `json:"buttons,omitempty"`
	VariableName   string       `json:"variable_name,omitempty"`
	Conditions     []Condition  `json:"conditions,omitempty"`
	DelaySeconds   int          `json:"delay_seconds,omitempty"`
	Action         *ActionSpec  `json:"action,omitempty"`
	Webhook        *WebhookSpec `json:"webhook,omitempty"`
	HandoffMessage string       `json:"handoff_message,omitempty"`
}

// FlowNode represents a single step in a flow.
type FlowNode struct {
	ID        string   `json:"id"   validate:"required"`
	Type      NodeType `json:"type" validate:"required"`
	Data      NodeData `json:"data"`
	PositionX int      `json:"position_x"` // Builder canvas metadata, unused by the engine
	PositionY int      `json:"position_y"`
}

// Connection is a directed edge between two nodes. SourceHandle disambiguates
// multiple outgoing edges from a condition node: it holds the condition ID for
// a matched branch, and "else" (or empty) for the default branch.
type Connection struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
}

// ElseHandle is the reserved source handle for a condition node's default branch.
const ElseHandle = "else"
