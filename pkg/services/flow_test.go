package services_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/chatflow/pkg/eventbus"
	"github.com/relayhq/chatflow/pkg/events"
	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
	"github.com/relayhq/chatflow/pkg/persistence/file"
	"github.com/relayhq/chatflow/pkg/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newService(t *testing.T) (*services.Flow, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return services.NewFlow(p, nil), p
}

func draftFlow() *models.Flow {
	return &models.Flow{
		TenantID: "tenant-1",
		Name:     "Welcome Flow",
		Channel:  models.ChannelWhatsApp,
		Trigger:  models.TriggerConfig{Type: models.TriggerAnyMessage},
		Nodes: []*models.FlowNode{
			{ID: "start-1", Type: models.NodeTypeStart},
			{ID: "msg-1", Type: models.NodeTypeMessage, Data: models.NodeData{Message: "hi"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{SourceNodeID: "start-1", TargetNodeID: "msg-1"},
			{SourceNodeID: "msg-1", TargetNodeID: "end-1"},
		},
	}
}

func activeSession(flowID, contactID string) *models.Session {
	now := time.Now().UTC()

	return &models.Session{
		ID:            "session-" + contactID,
		FlowID:        flowID,
		TenantID:      "tenant-1",
		ContactID:     contactID,
		CurrentNodeID: "start-1",
		Status:        models.SessionStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCreate_DefaultsToDraft(t *testing.T) {
	service, _ := newService(t)

	created, err := service.Create(t.Context(), draftFlow())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.FlowStatusDraft, created.Status)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCreate_RejectsInvalidStruct(t *testing.T) {
	service, _ := newService(t)

	f := draftFlow()
	f.Name = "ab" // min=3

	_, err := service.Create(t.Context(), f)
	assert.True(t, services.IsValidationError(err))
}

func TestCreate_HalfBuiltDraftIsAllowed(t *testing.T) {
	service, _ := newService(t)

	f := draftFlow()
	f.Nodes = f.Nodes[:1] // no end node yet
	f.Connections = nil

	_, err := service.Create(t.Context(), f)
	assert.NoError(t, err)
}

func TestActivate_ValidatesGraph(t *testing.T) {
	service, _ := newService(t)

	f := draftFlow()
	f.Nodes = f.Nodes[:2] // no end node
	f.Connections = f.Connections[:1]

	created, err := service.Create(t.Context(), f)
	require.NoError(t, err)

	_, err = service.Activate(t.Context(), created.ID)
	assert.True(t, services.IsValidationError(err))
	assert.ErrorContains(t, err, "no end node")
}

func TestActivate_TransitionsToActive(t *testing.T) {
	service, _ := newService(t)

	created, err := service.Create(t.Context(), draftFlow())
	require.NoError(t, err)

	activated, err := service.Activate(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusActive, activated.Status)

	_, err = service.Activate(t.Context(), created.ID)
	assert.ErrorIs(t, err, services.ErrFlowAlreadyActive)
}

func TestDeactivate_ExpiresActiveSessions(t *testing.T) {
	service, p := newService(t)

	created, err := service.Create(t.Context(), draftFlow())
	require.NoError(t, err)
	_, err = service.Activate(t.Context(), created.ID)
	require.NoError(t, err)

	for _, contact := range []string{"c1", "c2"} {
		require.NoError(t, p.SessionRepository().Save(t.Context(), activeSession(created.ID, contact)))
	}

	deactivated, expired, err := service.Deactivate(t.Context(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, models.FlowStatusPaused, deactivated.Status)
	assert.Equal(t, 2, expired)

	count, err := p.SessionRepository().ActiveCountByFlow(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, _, err = service.Deactivate(t.Context(), created.ID)
	assert.ErrorIs(t, err, services.ErrFlowNotActive)
}

func TestDelete_ForbiddenWithActiveSessions(t *testing.T) {
	service, p := newService(t)

	created, err := service.Create(t.Context(), draftFlow())
	require.NoError(t, err)

	require.NoError(t, p.SessionRepository().Save(t.Context(), activeSession(created.ID, "c1")))

	err = service.Delete(t.Context(), created.ID)
	assert.ErrorIs(t, err, services.ErrFlowHasActiveSessions)
}

func TestDelete_SoftDeletes(t *testing.T) {
	service, _ := newService(t)

	created, err := service.Create(t.Context(), draftFlow())
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	_, err = service.FetchByID(t.Context(), created.ID)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestUpdate_PreservesTenantAndCreation(t *testing.T) {
	service, _ := newService(t)

	created, err := service.Create(t.Context(), draftFlow())
	require.NoError(t, err)

	patch := draftFlow()
	patch.TenantID = "someone-else"
	patch.Name = "Renamed Flow"

	updated, err := service.Update(t.Context(), created.ID, patch)
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", updated.TenantID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Renamed Flow", updated.Name)
}

func TestSessionSweeper_Sweep(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	stale := activeSession("flow-1", "c1")
	stale.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, p.SessionRepository().Save(t.Context(), stale))

	fresh := activeSession("flow-1", "c2")
	require.NoError(t, p.SessionRepository().Save(t.Context(), fresh))

	sweeper := services.NewSessionSweeper(testLogger(), p.SessionRepository(), 24*time.Hour, "")

	expired, err := sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := p.SessionRepository().GetByID(t.Context(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusExpired, got.Status)

	got, err = p.SessionRepository().GetByID(t.Context(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, got.Status)
}

type capturePublisher struct {
	published []eventbus.Event
}

func (c *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	c.published = append(c.published, event)

	return nil
}

func TestDeactivate_PublishesSessionExpiredEvents(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	publisher := &capturePublisher{}
	service := services.NewFlow(p, publisher)

	created, err := service.Create(t.Context(), draftFlow())
	require.NoError(t, err)

	_, err = service.Activate(t.Context(), created.ID)
	require.NoError(t, err)

	require.NoError(t, p.SessionRepository().Save(t.Context(), activeSession(created.ID, "contact-1")))
	require.NoError(t, p.SessionRepository().Save(t.Context(), activeSession(created.ID, "contact-2")))

	completed := activeSession(created.ID, "contact-3")
	completed.Status = models.SessionStatusCompleted
	require.NoError(t, p.SessionRepository().Save(t.Context(), completed))

	_, expired, err := service.Deactivate(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	// One expiry event per session that was active, none for the completed
	// one, plus the flow-level event.
	var expiredIDs []string

	sawDeactivated := false

	for _, event := range publisher.published {
		switch e := event.(type) {
		case events.SessionExpired:
			expiredIDs = append(expiredIDs, e.SessionID)
			assert.Equal(t, "flow_deactivated", e.Reason)
		case events.FlowDeactivated:
			sawDeactivated = true
		}
	}

	assert.ElementsMatch(t, []string{"session-contact-1", "session-contact-2"}, expiredIDs)
	assert.True(t, sawDeactivated)
}
