package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/relayhq/chatflow/pkg/eventbus"
	"github.com/relayhq/chatflow/pkg/events"
	"github.com/relayhq/chatflow/pkg/flow"
	"github.com/relayhq/chatflow/pkg/persistence"
	"github.com/relayhq/chatflow/pkg/services"
)

// WorkerManager consumes inbound contact messages, runs them through the flow
// engine, and publishes the produced responses for channel gateways to
// deliver.
type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *flow.Engine
	messages    eventbus.MessageBus
	sweeper     *services.SessionSweeper
}

func NewWorkerManager(
	id string,
	persistence persistence.Persistence,
	engine *flow.Engine,
	messages eventbus.MessageBus,
	sweeper *services.SessionSweeper,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:          id,
		logger:      logger.With("module", "chatflow-worker", "worker_id", id),
		persistence: persistence,
		engine:      engine,
		messages:    messages,
		sweeper:     sweeper,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	err := w.messages.HandleInbound(w.handleMessageReceived)
	if err != nil {
		return err
	}

	err = w.messages.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to message bus", "error", err)

		return err
	}

	err = w.sweeper.Start()
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to start session sweeper", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")
	w.sweeper.Stop()

	return nil
}

func (w *WorkerManager) handleMessageReceived(ctx context.Context, received *events.MessageReceived) error {
	logger := w.logger.With(
		"tenant_id", received.Message.TenantID,
		"contact_id", received.Message.ContactID,
		"event_id", received.ID,
	)
	logger.InfoContext(ctx, "Processing inbound message")

	result, err := w.engine.ProcessMessage(ctx, &received.Message)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to process inbound message", "error", err)

		return err
	}

	if !result.Matched {
		logger.DebugContext(ctx, "No active flow matched the message")

		return nil
	}

	if !result.Success {
		// Broken flow graph, not a transient fault. Redelivery would just
		// re-execute the same chain, so ack without delivering anything.
		logger.ErrorContext(ctx, "Flow execution failed",
			"flow_id", result.FlowID,
			"session_id", result.SessionID,
			"detail", result.Error)

		return nil
	}

	for _, response := range result.Responses {
		outbound := &events.OutboundMessage{
			BaseEvent: events.NewBaseEvent(events.MessageOutboundEventType, received.Message.TenantID),
			SessionID: result.SessionID,
			ContactID: received.Message.ContactID,
			Channel:   received.Message.Channel,
			Response:  response,
		}
		outbound.FlowID = result.FlowID

		if err := w.messages.PublishOutbound(ctx, outbound); err != nil {
			logger.ErrorContext(ctx, "Failed to publish outbound message", "error", err)

			return err
		}
	}

	logger.InfoContext(ctx, "Inbound message processed",
		"flow_id", result.FlowID,
		"session_id", result.SessionID,
		"responses", len(result.Responses),
		"session_ended", result.SessionEnded,
		"handoff", result.Handoff)

	return nil
}
