// Package flow implements the conversational flow interpreter: trigger
// matching, session lifecycle, and the node-by-node state machine driven by
// inbound messages.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/relayhq/chatflow/pkg/eventbus"
	"github.com/relayhq/chatflow/pkg/events"
	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/nodes"
	"github.com/relayhq/chatflow/pkg/otelhelper"
	"github.com/relayhq/chatflow/pkg/persistence"
)

// maxChainedExecutions bounds how many nodes one inbound message may drive
// through. Validated flows cannot loop without a question node parking the
// session, so the cap only fires on invalid graphs.
const maxChainedExecutions = 64

// Engine processes inbound messages end to end: trigger match, session
// resolve, chained node execution, persist. One inbound message is one unit
// of work, serialized per (flow, contact) pair.
type Engine struct {
	persistence persistence.Persistence
	matcher     *TriggerMatcher
	sessions    *SessionManager
	registry    *nodes.Registry
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewEngine(
	logger *slog.Logger,
	persist persistence.Persistence,
	registry *nodes.Registry,
	publisher eventbus.EventPublisher,
) *Engine {
	return &Engine{
		persistence: persist,
		matcher:     NewTriggerMatcher(logger),
		sessions:    NewSessionManager(persist.SessionRepository(), logger),
		registry:    registry,
		publisher:   publisher,
		tracer:      otel.Tracer("chatflow.engine"),
		logger:      logger.With("module", "engine"),
	}
}

// ProcessMessage runs the full pipeline for one inbound message. A message no
// active flow claims yields Matched=false, not an error. Persistence failures
// are returned as errors so callers can retry; the stored session keeps its
// pre-transition state in that case.
func (e *Engine) ProcessMessage(ctx context.Context, message *models.InboundMessage) (*models.ProcessResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.process_message",
		attribute.String(otelhelper.TenantIDKey, message.TenantID),
		attribute.String(otelhelper.ContactIDKey, message.ContactID),
		attribute.String(otelhelper.ChannelKey, string(message.Channel)),
	)
	defer span.End()

	flows, err := e.persistence.FlowRepository().ActiveFlows(ctx, message.TenantID, message.Channel)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load active flows: %w", err)
	}

	flow := e.matcher.Match(flows, message)
	if flow == nil {
		e.logger.Debug("No flow matched inbound message",
			"tenant_id", message.TenantID,
			"contact_id", message.ContactID,
			"channel", message.Channel)

		return &models.ProcessResult{Success: true, Matched: false}, nil
	}

	span.SetAttributes(attribute.String(otelhelper.FlowIDKey, flow.ID))

	var result *models.ProcessResult

	err = e.sessions.WithLock(flow.ID, message.ContactID, func() error {
		session, created, err := e.sessions.Resolve(ctx, flow, message)
		if err != nil {
			return err
		}

		if created {
			e.publish(ctx, session.ContactID, events.SessionStarted{
				BaseEvent:   e.baseEvent(events.SessionStartedEvent, session),
				SessionID:   session.ID,
				ContactID:   session.ContactID,
				TriggerType: session.TriggerType,
			})
		}

		result, err = e.advance(ctx, flow, session, message)

		return err
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return result, nil
}

// advance drives the session through chained node executions until a node
// parks it awaiting input, a terminal fires, no outgoing edge resolves, or
// the chain cap is hit. The session is persisted once, after the chain.
func (e *Engine) advance(ctx context.Context, flow *models.Flow, session *models.Session, message *models.InboundMessage) (*models.ProcessResult, error) {
	node := flow.NodeByID(session.CurrentNodeID)
	if node == nil {
		// The flow was edited underneath a live session. Fail this message
		// and leave the stored session untouched for operator inspection.
		e.logger.Error("Session parked on a node that no longer exists",
			"session_id", session.ID,
			"flow_id", flow.ID,
			"node_id", session.CurrentNodeID)

		return &models.ProcessResult{
			Matched:   true,
			FlowID:    flow.ID,
			SessionID: session.ID,
			Error:     fmt.Sprintf("current node %s not found in flow %s", session.CurrentNodeID, flow.ID),
		}, nil
	}

	session.AppendHistory(models.HistoryRoleUser, message.Content)

	result := &models.ProcessResult{
		Matched:   true,
		FlowID:    flow.ID,
		SessionID: session.ID,
	}

	for executions := 0; ; executions++ {
		if executions == maxChainedExecutions {
			// Only a cyclic graph can chain this deep; validation rejects
			// those, so a live one means the flow was corrupted after
			// activation. Abort without saving so the stored session keeps
			// its pre-chain state.
			e.logger.Error("Chained execution limit reached",
				"session_id", session.ID,
				"flow_id", flow.ID,
				"node_id", node.ID)

			result.Responses = nil
			result.Error = fmt.Sprintf("chained execution limit reached in flow %s", flow.ID)

			return result, nil
		}

		nodeResult := e.executeNode(ctx, flow, session, node, message.Content)

		session.SetVariables(nodeResult.VariableUpdates)
		session.AwaitingInput = nodeResult.AwaitInput

		if nodeResult.Response != nil {
			result.Responses = append(result.Responses, *nodeResult.Response)
			session.AppendHistory(models.HistoryRoleBot, nodeResult.Response.Content)

			e.publish(ctx, session.ContactID, events.ResponseEmitted{
				BaseEvent: e.baseEvent(events.ResponseEmittedEvent, session),
				SessionID: session.ID,
				ContactID: session.ContactID,
				Channel:   flow.Channel,
				Response:  *nodeResult.Response,
			})
		}

		if nodeResult.ScheduledAdvance != nil {
			e.publish(ctx, session.ContactID, events.DelayRequested{
				BaseEvent:  e.baseEvent(events.DelayRequestedEvent, session),
				SessionID:  session.ID,
				NodeID:     node.ID,
				NextNodeID: nodeResult.ScheduledAdvance.NodeID,
				DelayMs:    nodeResult.ScheduledAdvance.Delay.Milliseconds(),
			})
		}

		if nodeResult.AwaitInput {
			break
		}

		if nodeResult.SessionEnded {
			session.Status = models.SessionStatusCompleted
			result.SessionEnded = true

			e.publish(ctx, session.ContactID, events.SessionCompleted{
				BaseEvent:  e.baseEvent(events.SessionCompletedEvent, session),
				SessionID:  session.ID,
				ContactID:  session.ContactID,
				DurationMs: time.Since(session.CreatedAt).Milliseconds(),
			})

			break
		}

		if nodeResult.Handoff {
			session.Status = models.SessionStatusHandedOff
			result.Handoff = true

			e.publish(ctx, session.ContactID, events.SessionHandedOff{
				BaseEvent: e.baseEvent(events.SessionHandedOffEvent, session),
				SessionID: session.ID,
				ContactID: session.ContactID,
				NodeID:    node.ID,
			})

			break
		}

		if nodeResult.NextNodeID == "" {
			break
		}

		next := flow.NodeByID(nodeResult.NextNodeID)
		if next == nil {
			e.logger.Error("Node resolved a connection to a missing target",
				"session_id", session.ID,
				"flow_id", flow.ID,
				"node_id", node.ID,
				"target_node_id", nodeResult.NextNodeID)

			// The chain is abandoned unsaved, so a retry re-executes the
			// nodes above. Dropping the accumulated responses keeps callers
			// from delivering messages the retry would repeat.
			result.Responses = nil
			result.Error = fmt.Sprintf("node %s not found in flow %s", nodeResult.NextNodeID, flow.ID)

			return result, nil
		}

		session.CurrentNodeID = next.ID
		node = next
	}

	session.UpdatedAt = time.Now().UTC()

	if err := e.persistence.SessionRepository().Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session %s: %w", session.ID, err)
	}

	result.Success = true

	return result, nil
}

func (e *Engine) executeNode(ctx context.Context, flow *models.Flow, session *models.Session, node *models.FlowNode, input string) models.ExecutionResult {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.execute_node",
		attribute.String(otelhelper.SessionIDKey, session.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	started := time.Now()

	nodeResult := e.registry.ExecutorFor(node.Type).Execute(ctx, nodes.ExecutionContext{
		Flow:    flow,
		Session: session,
		Input:   input,
	}, node)

	e.publish(ctx, session.ContactID, events.NodeExecuted{
		BaseEvent:  e.baseEvent(events.NodeExecutedEvent, session),
		SessionID:  session.ID,
		NodeID:     node.ID,
		NodeType:   node.Type,
		NextNodeID: nodeResult.NextNodeID,
		DurationMs: time.Since(started).Milliseconds(),
	})

	return nodeResult
}

func (e *Engine) baseEvent(eventType events.EventType, session *models.Session) events.BaseEvent {
	base := events.NewBaseEvent(eventType, session.TenantID)
	base.FlowID = session.FlowID

	return base
}

// publish sends an event best-effort. Event delivery failures are logged and
// never fail message processing.
func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.GetType(),
			"error", err)
	}
}
