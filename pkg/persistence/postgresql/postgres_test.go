package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
	"github.com/relayhq/chatflow/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"sessions", "flows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("chatflow_test"),
			postgres.WithUsername("chatflow"),
			postgres.WithPassword("chatflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func testFlow(tenantID string) *models.Flow {
	now := time.Now().UTC().Truncate(time.Microsecond)

	return &models.Flow{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		Name:     "Welcome Flow",
		Channel:  models.ChannelWhatsApp,
		Status:   models.FlowStatusActive,
		Trigger: models.TriggerConfig{
			Type:     models.TriggerKeyword,
			Keywords: []string{"hello", "hi"},
		},
		Nodes: []*models.FlowNode{
			{ID: "start-1", Type: models.NodeTypeStart},
			{ID: "msg-1", Type: models.NodeTypeMessage, Data: models.NodeData{Message: "Hi {{name}}!"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{ID: "c1", SourceNodeID: "start-1", TargetNodeID: "msg-1"},
			{ID: "c2", SourceNodeID: "msg-1", TargetNodeID: "end-1"},
		},
		DefaultMessages: models.DefaultMessages{Fallback: "Sorry, I did not get that."},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func testSession(flowID, tenantID, contactID string) *models.Session {
	now := time.Now().UTC().Truncate(time.Microsecond)

	return &models.Session{
		ID:             uuid.New().String(),
		FlowID:         flowID,
		TenantID:       tenantID,
		ContactID:      contactID,
		ConversationID: uuid.New().String(),
		CurrentNodeID:  "start-1",
		Variables:      map[string]any{"name": "Ana"},
		History:        []models.HistoryEntry{},
		Status:         models.SessionStatusActive,
		TriggerType:    models.TriggerKeyword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'flows')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "flows table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'sessions')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "sessions table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestFlowRepository_SaveAndGet(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	flow := testFlow("tenant-1")

	err := p.FlowRepository().Save(ctx, flow)
	require.NoError(t, err)

	got, err := p.FlowRepository().GetByID(ctx, flow.ID)
	require.NoError(t, err)

	assert.Equal(t, flow.ID, got.ID)
	assert.Equal(t, flow.Name, got.Name)
	assert.Equal(t, models.ChannelWhatsApp, got.Channel)
	assert.Equal(t, models.TriggerKeyword, got.Trigger.Type)
	assert.Equal(t, []string{"hello", "hi"}, got.Trigger.Keywords)
	assert.Len(t, got.Nodes, 3)
	assert.Len(t, got.Connections, 2)
	assert.Equal(t, "Sorry, I did not get that.", got.DefaultMessages.Fallback)
}

func TestFlowRepository_GetByID_NotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.FlowRepository().GetByID(ctx, uuid.New().String())
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestFlowRepository_ActiveFlows_CreationOrder(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	first := testFlow("tenant-1")
	first.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)

	second := testFlow("tenant-1")
	second.CreatedAt = time.Now().UTC().Add(-1 * time.Hour)

	draft := testFlow("tenant-1")
	draft.Status = models.FlowStatusDraft

	otherChannel := testFlow("tenant-1")
	otherChannel.Channel = models.ChannelInstagram

	for _, f := range []*models.Flow{second, first, draft, otherChannel} {
		require.NoError(t, p.FlowRepository().Save(ctx, f))
	}

	active, err := p.FlowRepository().ActiveFlows(ctx, "tenant-1", models.ChannelWhatsApp)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)
}

func TestFlowRepository_Delete_Soft(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	flow := testFlow("tenant-1")
	require.NoError(t, p.FlowRepository().Save(ctx, flow))

	err := p.FlowRepository().Delete(ctx, flow.ID)
	require.NoError(t, err)

	_, err = p.FlowRepository().GetByID(ctx, flow.ID)
	assert.True(t, persistence.IsFlowNotFound(err))

	flows, err := p.FlowRepository().List(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Empty(t, flows)

	err = p.FlowRepository().Delete(ctx, flow.ID)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestSessionRepository_SaveAndGet(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	flow := testFlow("tenant-1")
	require.NoError(t, p.FlowRepository().Save(ctx, flow))

	session := testSession(flow.ID, "tenant-1", "contact-1")
	session.AppendHistory(models.HistoryRoleUser, "hello")

	require.NoError(t, p.SessionRepository().Save(ctx, session))

	got, err := p.SessionRepository().GetByID(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "start-1", got.CurrentNodeID)
	assert.Equal(t, "Ana", got.Variables["name"])
	require.Len(t, got.History, 1)
	assert.Equal(t, models.HistoryRoleUser, got.History[0].Role)
	assert.Equal(t, models.SessionStatusActive, got.Status)
}

func TestSessionRepository_ActiveByFlowAndContact(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	flow := testFlow("tenant-1")
	require.NoError(t, p.FlowRepository().Save(ctx, flow))

	completed := testSession(flow.ID, "tenant-1", "contact-1")
	completed.Status = models.SessionStatusCompleted
	require.NoError(t, p.SessionRepository().Save(ctx, completed))

	active := testSession(flow.ID, "tenant-1", "contact-1")
	require.NoError(t, p.SessionRepository().Save(ctx, active))

	got, err := p.SessionRepository().ActiveByFlowAndContact(ctx, flow.ID, "contact-1")
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = p.SessionRepository().ActiveByFlowAndContact(ctx, flow.ID, "contact-2")
	assert.True(t, persistence.IsSessionNotFound(err))
}

func TestSessionRepository_UniqueActivePair(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	flow := testFlow("tenant-1")
	require.NoError(t, p.FlowRepository().Save(ctx, flow))

	first := testSession(flow.ID, "tenant-1", "contact-1")
	require.NoError(t, p.SessionRepository().Save(ctx, first))

	second := testSession(flow.ID, "tenant-1", "contact-1")
	err := p.SessionRepository().Save(ctx, second)
	assert.Error(t, err, "a second active session for the same pair must be rejected")
}

func TestSessionRepository_ExpireActiveByFlow(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	flow := testFlow("tenant-1")
	require.NoError(t, p.FlowRepository().Save(ctx, flow))

	for _, contact := range []string{"contact-1", "contact-2"} {
		require.NoError(t, p.SessionRepository().Save(ctx, testSession(flow.ID, "tenant-1", contact)))
	}

	completed := testSession(flow.ID, "tenant-1", "contact-3")
	completed.Status = models.SessionStatusCompleted
	require.NoError(t, p.SessionRepository().Save(ctx, completed))

	expired, err := p.SessionRepository().ExpireActiveByFlow(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	count, err := p.SessionRepository().ActiveCountByFlow(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	got, err := p.SessionRepository().GetByID(ctx, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, got.Status)
}

func TestSessionRepository_ExpireIdleBefore(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	flow := testFlow("tenant-1")
	require.NoError(t, p.FlowRepository().Save(ctx, flow))

	stale := testSession(flow.ID, "tenant-1", "contact-1")
	stale.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, p.SessionRepository().Save(ctx, stale))

	fresh := testSession(flow.ID, "tenant-1", "contact-2")
	require.NoError(t, p.SessionRepository().Save(ctx, fresh))

	expired, err := p.SessionRepository().ExpireIdleBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := p.SessionRepository().GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusExpired, got.Status)

	got, err = p.SessionRepository().GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, got.Status)
}
