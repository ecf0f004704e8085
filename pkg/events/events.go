// Package events defines event types and structures for flow and session
// lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/relayhq/chatflow/pkg/models"
)

type EventType string

// Kafka topics.
const Topic = "chatflow.events"                           // Topic for flow and session lifecycle events
const InboundMessageTopic = "chatflow.messages.inbound"   // Topic for inbound contact messages
const OutboundMessageTopic = "chatflow.messages.outbound" // Topic for responses to deliver

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Flow lifecycle events.
	FlowActivatedEvent   EventType = "flow.activated"
	FlowDeactivatedEvent EventType = "flow.deactivated"

	// Session lifecycle events.
	SessionStartedEvent   EventType = "session.started"
	SessionCompletedEvent EventType = "session.completed"
	SessionHandedOffEvent EventType = "session.handed_off"
	SessionExpiredEvent   EventType = "session.expired"

	// Execution events.
	NodeExecutedEvent    EventType = "node.executed"
	ResponseEmittedEvent EventType = "response.emitted"
	DelayRequestedEvent  EventType = "delay.requested"

	// Contact side effects delegated to the CRM.
	ContactTagAddedEvent     EventType = "contact.tag.added"
	ContactFieldUpdatedEvent EventType = "contact.field.updated"
	MessageReceivedEventType EventType = "message.received"
	MessageOutboundEventType EventType = "message.outbound"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id"`
	FlowID    string         `json:"flow_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type FlowActivated struct {
	BaseEvent

	FlowName string `json:"flow_name"`
}

func (f FlowActivated) GetType() EventType {
	return FlowActivatedEvent
}

type FlowDeactivated struct {
	BaseEvent

	FlowName        string `json:"flow_name"`
	SessionsExpired int    `json:"sessions_expired"`
}

func (f FlowDeactivated) GetType() EventType {
	return FlowDeactivatedEvent
}

type SessionStarted struct {
	BaseEvent

	SessionID   string             `json:"session_id"`
	ContactID   string             `json:"contact_id"`
	TriggerType models.TriggerType `json:"trigger_type"`
}

func (s SessionStarted) GetType() EventType {
	return SessionStartedEvent
}

type SessionCompleted struct {
	BaseEvent

	SessionID  string `json:"session_id"`
	ContactID  string `json:"contact_id"`
	DurationMs int64  `json:"duration_ms"`
}

func (s SessionCompleted) GetType() EventType {
	return SessionCompletedEvent
}

type SessionHandedOff struct {
	BaseEvent

	SessionID string `json:"session_id"`
	ContactID string `json:"contact_id"`
	NodeID    string `json:"node_id"`
}

func (s SessionHandedOff) GetType() EventType {
	return SessionHandedOffEvent
}

type SessionExpired struct {
	BaseEvent

	SessionID string `json:"session_id"`
	ContactID string `json:"contact_id"`
	Reason    string `json:"reason"`
}

func (s SessionExpired) GetType() EventType {
	return SessionExpiredEvent
}

type NodeExecuted struct {
	BaseEvent

	SessionID  string          `json:"session_id"`
	NodeID     string          `json:"node_id"`
	NodeType   models.NodeType `json:"node_type"`
	NextNodeID string          `json:"next_node_id,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

func (n NodeExecuted) GetType() EventType {
	return NodeExecutedEvent
}

type ResponseEmitted struct {
	BaseEvent

	SessionID string          `json:"session_id"`
	ContactID string          `json:"contact_id"`
	Channel   models.Channel  `json:"channel"`
	Response  models.Response `json:"response"`
}

func (r ResponseEmitted) GetType() EventType {
	return ResponseEmittedEvent
}

type DelayRequested struct {
	BaseEvent

	SessionID  string `json:"session_id"`
	NodeID     string `json:"node_id"`
	NextNodeID string `json:"next_node_id"`
	DelayMs    int64  `json:"delay_ms"`
}

func (d DelayRequested) GetType() EventType {
	return DelayRequestedEvent
}

type ContactTagAdded struct {
	BaseEvent

	SessionID string `json:"session_id"`
	ContactID string `json:"contact_id"`
	Tag       string `json:"tag"`
}

func (c ContactTagAdded) GetType() EventType {
	return ContactTagAddedEvent
}

type ContactFieldUpdated struct {
	BaseEvent

	SessionID string `json:"session_id"`
	ContactID string `json:"contact_id"`
	Field     string `json:"field"`
	Value     any    `json:"value"`
}

func (c ContactFieldUpdated) GetType() EventType {
	return ContactFieldUpdatedEvent
}

// MessageReceived carries an inbound contact message from the channel
// gateway to the worker.
type MessageReceived struct {
	BaseEvent

	Message models.InboundMessage `json:"message"`
}

func (m MessageReceived) GetType() EventType {
	return MessageReceivedEventType
}

// OutboundMessage carries one response intent to the channel gateway for
// delivery to the contact.
type OutboundMessage struct {
	BaseEvent

	SessionID string          `json:"session_id"`
	ContactID string          `json:"contact_id"`
	Channel   models.Channel  `json:"channel"`
	Response  models.Response `json:"response"`
}

func (m OutboundMessage) GetType() EventType {
	return MessageOutboundEventType
}

func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		Metadata:  make(map[string]any),
	}
}
