package nodes

import (
	"context"

	"github.com/relayhq/chatflow/pkg/models"
)

// EndExecutor terminates the session. No response, no next node.
type EndExecutor struct{}

func (e *EndExecutor) Execute(_ context.Context, _ ExecutionContext, _ *models.FlowNode) models.ExecutionResult {
	return models.ExecutionResult{
		Success:      true,
		SessionEnded: true,
	}
}
