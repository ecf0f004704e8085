package flow

import (
	"log/slog"
	"strings"

	"github.com/relayhq/chatflow/pkg/models"
)

// TriggerMatcher selects which of a tenant's active flows claims an inbound
// message.
type TriggerMatcher struct {
	logger *slog.Logger
}

// NewTriggerMatcher creates a new trigger matcher.
func NewTriggerMatcher(logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		logger: logger.With("module", "trigger_matcher"),
	}
}

// Match iterates the given flows in order and returns the first whose trigger
// matches the message, or nil when no flow qualifies. Callers pass flows in
// creation order so matching stays deterministic.
func (tm *TriggerMatcher) Match(flows []*models.Flow, message *models.InboundMessage) *models.Flow {
	for _, flow := range flows {
		if flow.Status != models.FlowStatusActive {
			continue
		}

		if tm.matches(flow.Trigger, message) {
			tm.logger.Debug("Matched inbound message to flow",
				"flow_id", flow.ID,
				"trigger_type", flow.Trigger.Type,
				"contact_id", message.ContactID)

			return flow
		}
	}

	return nil
}

func (tm *TriggerMatcher) matches(trigger models.TriggerConfig, message *models.InboundMessage) bool {
	switch trigger.Type {
	case models.TriggerKeyword:
		return matchesKeyword(trigger.Keywords, message.Content)
	case models.TriggerNewConversation:
		return message.IsFirstMessage()
	case models.TriggerTemplateReply:
		return message.IsTemplateReply()
	case models.TriggerAnyMessage:
		return true
	default:
		// Unknown or unset trigger types match permissively.
		return true
	}
}

// matchesKeyword reports whether any configured keyword is a case-insensitive
// substring of the content.
func matchesKeyword(keywords []string, content string) bool {
	lowered := strings.ToLower(content)

	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}

		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}

	return false
}
