package nodes

import (
	"context"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/template"
)

// MessageExecutor sends one interpolated message and advances. When the node
// carries buttons the response type is buttons; a media URL makes it media.
type MessageExecutor struct{}

func (e *MessageExecutor) Execute(_ context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult {
	response := buildMessageResponse(node.Data, ec.Session.Variables)

	return models.ExecutionResult{
		Success:    true,
		Response:   &response,
		NextNodeID: nextNodeID(ec.Flow, node.ID),
	}
}

func buildMessageResponse(data models.NodeData, variables map[string]any) models.Response {
	response := models.Response{
		Type:    models.ResponseTypeMessage,
		Content: template.Render(data.Message, variables),
	}

	switch {
	case len(data.Buttons) > 0:
		response.Type = models.ResponseTypeButtons
		response.Buttons = renderButtons(data.Buttons, variables)
	case data.MediaURL != "":
		response.Type = models.ResponseTypeMedia
		response.MediaURL = data.MediaURL
	}

	return response
}

func renderButtons(buttons []models.Button, variables map[string]any) []models.Button {
	rendered := make([]models.Button, len(buttons))
	for i, button := range buttons {
		rendered[i] = models.Button{
			ID:   button.ID,
			Text: template.Render(button.Text, variables),
		}
	}

	return rendered
}
