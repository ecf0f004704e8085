package nodes

import (
	"context"
	"time"

	"github.com/relayhq/chatflow/pkg/models"
)

// DelayExecutor advances immediately while reporting the requested wait as a
// ScheduledAdvance, so a real scheduler can take over resumption later without
// changing node semantics.
type DelayExecutor struct{}

func (e *DelayExecutor) Execute(_ context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	next := nextNodeID(ec.Flow, node.ID)

	result := models.ExecutionResult{
		Success:    true,
		NextNodeID: next,
	}

	if node.Data.DelaySeconds > 0 && next != "" {
		result.ScheduledAdvance = &models.ScheduledAdvance{
			NodeID: next,
			Delay:  time.Duration(node.Data.DelaySeconds) * time.Second,
		}
	}

	return result
}
