// Package web provides HTTP request and response types for the flow API.
package web

import "github.com/relayhq/chatflow/pkg/models"

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CreateFlowRequest represents the request body for creating a new flow.
// Flows are created as drafts; activation is a separate call.
type CreateFlowRequest struct {
	TenantID        string                 `json:"tenant_id"        validate:"required"`
	Name            string                 `json:"name"             validate:"required,min=3"`
	Channel         string                 `json:"channel"          validate:"required,oneof=whatsapp instagram email"`
	Trigger         models.TriggerConfig   `json:"trigger"`
	Nodes           []*models.FlowNode     `json:"nodes"`
	Connections     []*models.Connection   `json:"connections"`
	DefaultMessages models.DefaultMessages `json:"default_messages"`
}

// UpdateFlowRequest represents the request body for updating an existing flow.
// All fields are optional to support partial updates; nodes and connections
// are replaced wholesale when present.
type UpdateFlowRequest struct {
	Name            *string                 `json:"name,omitempty" validate:"omitempty,min=3"`
	Trigger         *models.TriggerConfig   `json:"trigger,omitempty"`
	Nodes           []*models.FlowNode      `json:"nodes,omitempty"`
	Connections     []*models.Connection    `json:"connections,omitempty"`
	DefaultMessages *models.DefaultMessages `json:"default_messages,omitempty"`
}

// IngestMessageRequest represents one inbound contact message posted by a
// channel gateway.
type IngestMessageRequest struct {
	TenantID       string         `json:"tenant_id"       validate:"required"`
	Channel        string         `json:"channel"         validate:"required,oneof=whatsapp instagram email"`
	ContactID      string         `json:"contact_id"      validate:"required"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Content        string         `json:"content"`
	Kind           string         `json:"kind,omitempty"`
	SenderName     string         `json:"sender_name,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ToModel converts the request into the engine's inbound message type.
func (r *IngestMessageRequest) ToModel() *models.InboundMessage {
	kind := models.MessageKind(r.Kind)
	if kind == "" {
		kind = models.MessageKindText
	}

	return &models.InboundMessage{
		TenantID:       r.TenantID,
		Channel:        models.Channel(r.Channel),
		ContactID:      r.ContactID,
		ConversationID: r.ConversationID,
		Content:        r.Content,
		Kind:           kind,
		SenderName:     r.SenderName,
		Metadata:       r.Metadata,
	}
}
