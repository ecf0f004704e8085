// Package actions dispatches node side effects that belong to the CRM rather
// than the flow engine: contact tagging, contact field updates, and outbound
// webhook calls.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/relayhq/chatflow/pkg/eventbus"
	"github.com/relayhq/chatflow/pkg/events"
	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/template"
)

// Supported action kinds.
const (
	KindAddTag      = "add_tag"
	KindUpdateField = "update_field"
)

const defaultWebhookTimeout = 10 * time.Second

// Dispatcher executes delegated actions. Tag and field updates are published
// as events for the CRM to apply; webhooks are called directly with a bounded
// timeout.
type Dispatcher struct {
	logger    *slog.Logger
	publisher eventbus.EventPublisher
	client    *resty.Client
}

func NewDispatcher(logger *slog.Logger, publisher eventbus.EventPublisher) *Dispatcher {
	return &Dispatcher{
		logger:    logger.With("module", "actions"),
		publisher: publisher,
		client: resty.New().
			SetTimeout(defaultWebhookTimeout).
			SetRetryCount(2).
			SetRetryWaitTime(200 * time.Millisecond),
	}
}

// Dispatch performs one contact-side action. Unknown kinds are an error so
// invalid flow definitions surface instead of silently dropping side effects.
func (d *Dispatcher) Dispatch(ctx context.Context, session *models.Session, spec models.ActionSpec) error {
	switch spec.Kind {
	case KindAddTag:
		event := events.ContactTagAdded{
			BaseEvent: events.NewBaseEvent(events.ContactTagAddedEvent, session.TenantID),
			SessionID: session.ID,
			ContactID: session.ContactID,
			Tag:       spec.Tag,
		}
		event.FlowID = session.FlowID

		return d.publisher.Publish(ctx, session.ContactID, event)
	case KindUpdateField:
		event := events.ContactFieldUpdated{
			BaseEvent: events.NewBaseEvent(events.ContactFieldUpdatedEvent, session.TenantID),
			SessionID: session.ID,
			ContactID: session.ContactID,
			Field:     spec.Field,
			Value:     template.Render(spec.Value, session.Variables),
		}
		event.FlowID = session.FlowID

		return d.publisher.Publish(ctx, session.ContactID, event)
	default:
		return fmt.Errorf("unknown action kind: %q", spec.Kind)
	}
}

// CallWebhook posts the session state to the configured URL. The response
// body is ignored; only transport or HTTP errors are reported.
func (d *Dispatcher) CallWebhook(ctx context.Context, session *models.Session, spec models.WebhookSpec) error {
	method := spec.Method
	if method == "" {
		method = "POST"
	}

	url := template.Render(spec.URL, session.Variables)

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeaders(spec.Headers).
		SetBody(map[string]any{
			"session_id":      session.ID,
			"flow_id":         session.FlowID,
			"tenant_id":       session.TenantID,
			"contact_id":      session.ContactID,
			"conversation_id": session.ConversationID,
			"variables":       session.Variables,
		}).
		Execute(method, url)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	d.logger.DebugContext(ctx, "webhook delivered",
		"session_id", session.ID,
		"status_code", resp.StatusCode(),
	)

	return nil
}
