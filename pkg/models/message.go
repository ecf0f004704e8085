package models

// MessageKind is the media kind of an inbound message.
type MessageKind string

const (
	MessageKindText     MessageKind = "text"
	MessageKindImage    MessageKind = "image"
	MessageKindAudio    MessageKind = "audio"
	MessageKindVideo    MessageKind = "video"
	MessageKindDocument MessageKind = "document"
)

// Metadata keys carried on inbound messages.
const (
	MetadataFirstMessage  = "is_first_message"
	MetadataTemplateReply = "is_template_reply"
)

// InboundMessage is the context of one message received from a channel.
type InboundMessage struct {
	TenantID       string         `json:"tenant_id"       validate:"required"`
	Channel        Channel        `json:"channel"         validate:"required,oneof=whatsapp instagram email"`
	ContactID      string         `json:"contact_id"      validate:"required"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Content        string         `json:"content"`
	Kind           MessageKind    `json:"kind"`
	SenderName     string         `json:"sender_name,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// IsFirstMessage reports whether the channel marked this message as the first
// of its conversation.
func (m *InboundMessage) IsFirstMessage() bool {
	return metadataFlag(m.Metadata, MetadataFirstMessage)
}

// IsTemplateReply reports whether the channel marked this message as a reply
// to a template.
func (m *InboundMessage) IsTemplateReply() bool {
	return metadataFlag(m.Metadata, MetadataTemplateReply)
}

// SessionTrigger derives the trigger type recorded on a new session from the
// message metadata flags.
func (m *InboundMessage) SessionTrigger() TriggerType {
	switch {
	case m.IsFirstMessage():
		return TriggerNewConversation
	case m.IsTemplateReply():
		return TriggerTemplateReply
	default:
		return TriggerAnyMessage
	}
}

func metadataFlag(metadata map[string]any, key string) bool {
	if metadata == nil {
		return false
	}

	flag, ok := metadata[key].(bool)

	return ok && flag
}
