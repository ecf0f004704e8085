package nodes

import (
	"context"
	"log/slog"

	"github.com/relayhq/chatflow/pkg/actions"
	"github.com/relayhq/chatflow/pkg/models"
)

// WebhookExecutor calls the configured URL and advances. Delivery failures are
// logged and never block flow advancement.
type WebhookExecutor struct {
	logger     *slog.Logger
	dispatcher *actions.Dispatcher
}

func (e *WebhookExecutor) Execute(ctx context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	if node.Data.Webhook != nil {
		if err := e.dispatcher.CallWebhook(ctx, ec.Session, *node.Data.Webhook); err != nil {
			e.logger.WarnContext(ctx, "webhook call failed",
				"session_id", ec.Session.ID,
				"node_id", node.ID,
				"url", node.Data.Webhook.URL,
				"error", err,
			)
		}
	}

	return models.ExecutionResult{
		Success:    true,
		NextNodeID: nextNodeID(ec.Flow, node.ID),
	}
}
