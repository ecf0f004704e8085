// Package models defines the core domain models for conversational flow automation.
package models

import "time"

// FlowStatus represents the lifecycle state of a flow.
type FlowStatus string

const (
	FlowStatusDraft  FlowStatus = "draft"  // Editable, never matched by the trigger matcher
	FlowStatusActive FlowStatus = "active" // Executable, eligible for trigger matching
	FlowStatusPaused FlowStatus = "paused" // Temporarily disabled, sessions expired on transition
)

// Channel identifies the messaging channel a flow is bound to.
type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
	ChannelEmail     Channel = "email"
)

// TriggerType selects which inbound messages start or continue a flow.
type TriggerType string

const (
	TriggerAnyMessage      TriggerType = "any_message"
	TriggerKeyword         TriggerType = "keyword"
	TriggerNewConversation TriggerType = "new_conversation"
	TriggerTemplateReply   TriggerType = "template_reply"
)

// TriggerConfig is the matching rule attached to a flow.
type TriggerConfig struct {
	Type     TriggerType `json:"type"`
	Keywords []string    `json:"keywords,omitempty"`
}

// DefaultMessages are tenant-configured texts used outside normal node flow.
type DefaultMessages struct {
	Welcome  string `json:"welcome,omitempty"`
	Fallback string `json:"fallback,omitempty"`
	OffHours string `json:"off_hours,omitempty"`
}

// Flow represents a tenant's conversational program: a directed graph of typed
// nodes plus the trigger rule that selects it for inbound messages.
type Flow struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"        validate:"required"`
	Name            string          `json:"name"             validate:"required,min=3"`
	Channel         Channel         `json:"channel"          validate:"required,oneof=whatsapp instagram email"`
	Status          FlowStatus      `json:"status"           validate:"required,oneof=draft active paused"`
	Trigger         TriggerConfig   `json:"trigger"`
	Nodes           []*FlowNode     `json:"nodes"`
	Connections     []*Connection   `json:"connections"`
	DefaultMessages DefaultMessages `json:"default_messages"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// NodeByID returns the node with the given ID, or nil when absent.
func (f *Flow) NodeByID(id string) *FlowNode {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// StartNode returns the flow's start node, or nil when the flow has none.
func (f *Flow) StartNode() *FlowNode {
	for _, node := range f.Nodes {
		if node.Type == NodeTypeStart {
			return node
		}
	}

	return nil
}

// OutgoingConnections returns all connections leaving the given node,
// preserving definition order.
func (f *Flow) OutgoingConnections(nodeID string) []*Connection {
	var out []*Connection

	for _, conn := range f.Connections {
		if conn.SourceNodeID == nodeID {
			out = append(out, conn)
		}
	}

	return out
}

// ConnectionByHandle returns the outgoing connection of the node whose source
// handle matches, or nil. An empty handle matches connections with no handle.
func (f *Flow) ConnectionByHandle(nodeID, handle string) *Connection {
	for _, conn := range f.Connections {
		if conn.SourceNodeID == nodeID && conn.SourceHandle == handle {
			return conn
		}
	}

	return nil
}
