package nodes

import (
	"context"
	"log/slog"

	"github.com/relayhq/chatflow/pkg/actions"
	"github.com/relayhq/chatflow/pkg/models"
)

// ActionExecutor dispatches a delegated side effect and advances. A failed
// dispatch is logged and never blocks flow advancement.
type ActionExecutor struct {
	logger     *slog.Logger
	dispatcher *actions.Dispatcher
}

func (e *ActionExecutor) Execute(ctx context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	if node.Data.Action != nil {
		if err := e.dispatcher.Dispatch(ctx, ec.Session, *node.Data.Action); err != nil {
			e.logger.WarnContext(ctx, "delegated action failed",
				"session_id", ec.Session.ID,
				"node_id", node.ID,
				"action_kind", node.Data.Action.Kind,
				"error", err,
			)
		}
	}

	return models.ExecutionResult{
		Success:    true,
		NextNodeID: nextNodeID(ec.Flow, node.ID),
	}
}
