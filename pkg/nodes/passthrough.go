package nodes

import (
	"context"

	"github.com/relayhq/chatflow/pkg/models"
)

// PassThroughExecutor advances via the node's sole outgoing connection without
// producing a response. It serves start nodes and any unrecognized node type.
type PassThroughExecutor struct{}

func (e *PassThroughExecutor) Execute(_ context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	return models.ExecutionResult{
		Success:    true,
		NextNodeID: nextNodeID(ec.Flow, node.ID),
	}
}
