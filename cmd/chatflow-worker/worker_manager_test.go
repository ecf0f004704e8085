package main

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/chatflow/pkg/actions"
	"github.com/relayhq/chatflow/pkg/eventbus"
	"github.com/relayhq/chatflow/pkg/events"
	"github.com/relayhq/chatflow/pkg/flow"
	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/nodes"
	"github.com/relayhq/chatflow/pkg/persistence"
	"github.com/relayhq/chatflow/pkg/persistence/file"
	"github.com/relayhq/chatflow/pkg/services"
)

type mockMessageBus struct {
	outbound []*events.OutboundMessage
}

func (m *mockMessageBus) PublishInbound(ctx context.Context, received *events.MessageReceived) error {
	return nil
}

func (m *mockMessageBus) PublishOutbound(ctx context.Context, outbound *events.OutboundMessage) error {
	m.outbound = append(m.outbound, outbound)

	return nil
}

func (m *mockMessageBus) HandleInbound(handler eventbus.InboundMessageHandler) error {
	return nil
}

func (m *mockMessageBus) Subscribe(ctx context.Context) error {
	return nil
}

func (m *mockMessageBus) Close() error {
	return nil
}

func setupWorkerManager(t *testing.T) (*WorkerManager, *mockMessageBus, persistence.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	persist := file.NewPersistence(t.TempDir())
	registry := nodes.NewRegistry(logger, actions.NewDispatcher(logger, nil))
	engine := flow.NewEngine(logger, persist, registry, nil)
	sweeper := services.NewSessionSweeper(logger, persist.SessionRepository(), 24*time.Hour, "@every 5m")
	messages := &mockMessageBus{}

	manager := NewWorkerManager("test-worker-1", persist, engine, messages, sweeper, logger)

	return manager, messages, persist
}

func activeFlow() *models.Flow {
	now := time.Now().UTC()

	return &models.Flow{
		ID:       "f1",
		TenantID: "tenant-1",
		Name:     "Welcome Flow",
		Channel:  models.ChannelWhatsApp,
		Status:   models.FlowStatusActive,
		Trigger:  models.TriggerConfig{Type: models.TriggerAnyMessage},
		Nodes: []*models.FlowNode{
			{ID: "start-1", Type: models.NodeTypeStart},
			{ID: "msg-1", Type: models.NodeTypeMessage, Data: models.NodeData{Message: "Hello!"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{ID: "c1", SourceNodeID: "start-1", TargetNodeID: "msg-1"},
			{ID: "c2", SourceNodeID: "msg-1", TargetNodeID: "end-1"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func inboundEvent(content string) *events.MessageReceived {
	return &events.MessageReceived{
		BaseEvent: events.NewBaseEvent(events.MessageReceivedEventType, "tenant-1"),
		Message: models.InboundMessage{
			TenantID:  "tenant-1",
			Channel:   models.ChannelWhatsApp,
			ContactID: "contact-1",
			Content:   content,
			Kind:      models.MessageKindText,
		},
	}
}

func TestNewWorkerManager(t *testing.T) {
	manager, messages, persist := setupWorkerManager(t)

	assert.NotNil(t, manager)
	assert.Equal(t, "test-worker-1", manager.id)
	assert.Equal(t, persist, manager.persistence)
	assert.Equal(t, messages, manager.messages)
	assert.NotNil(t, manager.logger)
}

func TestWorkerManager_HandleMessageReceived(t *testing.T) {
	manager, messages, persist := setupWorkerManager(t)

	require.NoError(t, persist.FlowRepository().Save(t.Context(), activeFlow()))

	err := manager.handleMessageReceived(t.Context(), inboundEvent("hello"))
	require.NoError(t, err)

	require.Len(t, messages.outbound, 1)

	outbound := messages.outbound[0]
	assert.Equal(t, "tenant-1", outbound.TenantID)
	assert.Equal(t, "f1", outbound.FlowID)
	assert.Equal(t, "contact-1", outbound.ContactID)
	assert.Equal(t, models.ChannelWhatsApp, outbound.Channel)
	assert.Equal(t, "Hello!", outbound.Response.Content)
	assert.NotEmpty(t, outbound.SessionID)
}

func TestWorkerManager_HandleMessageReceived_NoMatch(t *testing.T) {
	manager, messages, _ := setupWorkerManager(t)

	err := manager.handleMessageReceived(t.Context(), inboundEvent("hello"))
	require.NoError(t, err)

	assert.Empty(t, messages.outbound)
}

func TestWorkerManager_HandleMessageReceived_FailedExecutionDeliversNothing(t *testing.T) {
	manager, messages, persist := setupWorkerManager(t)

	// The message node's outgoing edge points at a node the flow lost.
	broken := activeFlow()
	broken.Connections = []*models.Connection{
		{ID: "c1", SourceNodeID: "start-1", TargetNodeID: "msg-1"},
		{ID: "c2", SourceNodeID: "msg-1", TargetNodeID: "ghost"},
	}
	require.NoError(t, persist.FlowRepository().Save(t.Context(), broken))

	// A broken graph is acked, not redelivered, and nothing reaches the
	// contact.
	err := manager.handleMessageReceived(t.Context(), inboundEvent("hello"))
	require.NoError(t, err)

	assert.Empty(t, messages.outbound)
}
