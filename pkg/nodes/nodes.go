// Package nodes provides the per-type node executors that interpret a single
// flow step against a session.
package nodes

import (
	"context"
	"log/slog"

	"github.com/relayhq/chatflow/pkg/actions"
	"github.com/relayhq/chatflow/pkg/models"
)

// ExecutionContext carries everything an executor may need for one step: the
// flow definition, the session being driven, and the inbound message content
// of the current turn.
type ExecutionContext struct {
	Flow    *models.Flow
	Session *models.Session
	Input   string
}

type Executor interface {
	Execute(ctx context.Context, ec ExecutionContext, node *models.FlowNode) models.ExecutionResult
}

// Registry maps node types to their executors. Unknown types fall back to
// generic pass-through behavior so a single unrecognized node never fails the
// whole interpretation cycle.
type Registry struct {
	executors map[models.NodeType]Executor
	fallback  Executor
}

func NewRegistry(logger *slog.Logger, dispatcher *actions.Dispatcher) *Registry {
	passThrough := &PassThroughExecutor{}

	return &Registry{
		executors: map[models.NodeType]Executor{
			models.NodeTypeStart:       passThrough,
			models.NodeTypeMessage:     &MessageExecutor{},
			models.NodeTypeButtons:     &ButtonsExecutor{},
			models.NodeTypeQuestion:    &QuestionExecutor{},
			models.NodeTypeCondition:   &ConditionExecutor{},
			models.NodeTypeDelay:       &DelayExecutor{},
			models.NodeTypeAction:      &ActionExecutor{logger: logger, dispatcher: dispatcher},
			models.NodeTypeWebhook:     &WebhookExecutor{logger: logger, dispatcher: dispatcher},
			models.NodeTypeAssignAgent: &AssignAgentExecutor{},
			models.NodeTypeEnd:         &EndExecutor{},
		},
		fallback: passThrough,
	}
}

// ExecutorFor returns the executor registered for the node type, or the
// pass-through fallback.
func (r *Registry) ExecutorFor(nodeType models.NodeType) Executor {
	if executor, ok := r.executors[nodeType]; ok {
		return executor
	}

	return r.fallback
}

// nextNodeID resolves the node's outgoing connection target. Flows eligible
// for activation carry exactly one outgoing connection per non-branching node;
// if several exist anyway the first in definition order wins.
func nextNodeID(flow *models.Flow, nodeID string) string {
	outgoing := flow.OutgoingConnections(nodeID)
	if len(outgoing) == 0 {
		return ""
	}

	return outgoing[0].TargetNodeID
}
