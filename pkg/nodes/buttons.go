package nodes

import (
	"context"

	"github.com/relayhq/chatflow/pkg/models"
)

// ButtonsExecutor presents quick-reply options and waits for the contact's
// pick, question-style: first visit emits the buttons and parks the session,
// the next inbound message is stored as the answer and the flow advances.
type ButtonsExecutor struct{}

func (e *ButtonsExecutor) Execute(_ context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	if ec.Session.AwaitingInput {
		return storeAnswer(ec, node)
	}

	response := buildMessageResponse(node.Data, ec.Session.Variables)
	response.Type = models.ResponseTypeButtons
	response.Buttons = renderButtons(node.Data.Buttons, ec.Session.Variables)

	return models.ExecutionResult{
		Success:    true,
		Response:   &response,
		AwaitInput: true,
	}
}
