package nodes

import (
	"context"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/template"
)

const defaultAnswerVariable = "response"

// QuestionExecutor is stateful across two turns. On the first visit it emits
// the interpolated question and parks the session awaiting input. On the next
// inbound message it stores the answer under the configured variable name and
// advances.
type QuestionExecutor struct{}

func (e *QuestionExecutor) Execute(_ context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	if ec.Session.AwaitingInput {
		return storeAnswer(ec, node)
	}

	return models.ExecutionResult{
		Success: true,
		Response: &models.Response{
			Type:    models.ResponseTypeMessage,
			Content: template.Render(node.Data.Message, ec.Session.Variables),
		},
		AwaitInput: true,
	}
}

// storeAnswer records the inbound content as the parked node's answer and
// resolves the outgoing connection.
func storeAnswer(ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	variableName := node.Data.VariableName
	if variableName == "" {
		variableName = defaultAnswerVariable
	}

	return models.ExecutionResult{
		Success:         true,
		NextNodeID:      nextNodeID(ec.Flow, node.ID),
		VariableUpdates: map[string]any{variableName: ec.Input},
	}
}
