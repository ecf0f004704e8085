package nodes

import (
	"context"

	"github.com/relayhq/chatflow/pkg/models"
)

// ConditionExecutor evaluates the node's conditions in array order and routes
// to the connection whose source handle matches the first true condition. When
// none match it takes the else/default edge.
type ConditionExecutor struct{}

func (e *ConditionExecutor) Execute(_ context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	for _, condition := range node.Data.Conditions {
		if !condition.Evaluate(ec.Session.Variables) {
			continue
		}

		if conn := ec.Flow.ConnectionByHandle(node.ID, condition.ID); conn != nil {
			return models.ExecutionResult{
				Success:    true,
				NextNodeID: conn.TargetNodeID,
			}
		}
	}

	return models.ExecutionResult{
		Success:    true,
		NextNodeID: elseTarget(ec.Flow, node.ID),
	}
}

// elseTarget picks the default branch: the outgoing connection tagged "else",
// or the first untagged one.
func elseTarget(flow *models.Flow, nodeID string) string {
	if conn := flow.ConnectionByHandle(nodeID, models.ElseHandle); conn != nil {
		return conn.TargetNodeID
	}

	if conn := flow.ConnectionByHandle(nodeID, ""); conn != nil {
		return conn.TargetNodeID
	}

	return ""
}
