package nodes

import (
	"context"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/template"
)

const defaultHandoffMessage = "One of our agents will continue this conversation shortly."

// AssignAgentExecutor hands the conversation to a human. Terminal for the
// session: no next node is resolved.
type AssignAgentExecutor struct{}

func (e *AssignAgentExecutor) Execute(_ context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	message := node.Data.HandoffMessage
	if message == "" {
		message = defaultHandoffMessage
	}

	return models.ExecutionResult{
		Success: true,
		Response: &models.Response{
			Type:    models.ResponseTypeMessage,
			Content: template.Render(message, ec.Session.Variables),
		},
		Handoff: true,
	}
}
