package file

import (
	"testing"
	"time"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlow(id, tenantID string, status models.FlowStatus, createdAt time.Time) *models.Flow {
	return &models.Flow{
		ID:       id,
		TenantID: tenantID,
		Name:     "Flow " + id,
		Channel:  models.ChannelWhatsApp,
		Status:   status,
		Nodes: []*models.FlowNode{
			{ID: "n-start", Type: models.NodeTypeStart},
			{ID: "n-end", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{ID: "c1", SourceNodeID: "n-start", TargetNodeID: "n-end"},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestFlowRepository_SaveAndGetByID(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.FlowRepository()

	flow := testFlow("flow-1", "tenant-1", models.FlowStatusDraft, time.Now().UTC())
	require.NoError(t, repo.Save(t.Context(), flow))

	fetched, err := repo.GetByID(t.Context(), "flow-1")
	require.NoError(t, err)
	assert.Equal(t, "Flow flow-1", fetched.Name)
	assert.Len(t, fetched.Nodes, 2)
}

func TestFlowRepository_GetByID_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.FlowRepository().GetByID(t.Context(), "ghost")
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestFlowRepository_ActiveFlows_FiltersAndOrders(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.FlowRepository()
	base := time.Now().UTC()

	second := testFlow("flow-2", "tenant-1", models.FlowStatusActive, base.Add(time.Minute))
	first := testFlow("flow-1", "tenant-1", models.FlowStatusActive, base)
	draft := testFlow("flow-3", "tenant-1", models.FlowStatusDraft, base)
	otherTenant := testFlow("flow-4", "tenant-2", models.FlowStatusActive, base)
	otherChannel := testFlow("flow-5", "tenant-1", models.FlowStatusActive, base)
	otherChannel.Channel = models.ChannelEmail

	for _, f := range []*models.Flow{second, first, draft, otherTenant, otherChannel} {
		require.NoError(t, repo.Save(t.Context(), f))
	}

	active, err := repo.ActiveFlows(t.Context(), "tenant-1", models.ChannelWhatsApp)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "flow-1", active[0].ID, "ordered by creation time")
	assert.Equal(t, "flow-2", active[1].ID)
}

func TestFlowRepository_Delete_SoftDeletes(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.FlowRepository()

	flow := testFlow("flow-1", "tenant-1", models.FlowStatusActive, time.Now().UTC())
	require.NoError(t, repo.Save(t.Context(), flow))
	require.NoError(t, repo.Delete(t.Context(), "flow-1"))

	_, err := repo.GetByID(t.Context(), "flow-1")
	assert.True(t, persistence.IsFlowNotFound(err))

	active, err := repo.ActiveFlows(t.Context(), "tenant-1", models.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Empty(t, active)

	err = repo.Delete(t.Context(), "flow-1")
	assert.True(t, persistence.IsFlowNotFound(err), "double delete reports not found")
}

func testSession(id, flowID, contactID string, status models.SessionStatus) *models.Session {
	now := time.Now().UTC()

	return &models.Session{
		ID:            id,
		FlowID:        flowID,
		TenantID:      "tenant-1",
		ContactID:     contactID,
		CurrentNodeID: "n-start",
		Status:        status,
		TriggerType:   models.TriggerAnyMessage,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestSessionRepository_SaveAndLookup(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.SessionRepository()

	session := testSession("sess-1", "flow-1", "contact-1", models.SessionStatusActive)
	session.Variables = map[string]any{"name": "Ada"}
	require.NoError(t, repo.Save(t.Context(), session))

	fetched, err := repo.ActiveByFlowAndContact(t.Context(), "flow-1", "contact-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", fetched.ID)
	assert.Equal(t, "Ada", fetched.Variables["name"])

	_, err = repo.ActiveByFlowAndContact(t.Context(), "flow-1", "contact-2")
	assert.True(t, persistence.IsSessionNotFound(err))
}

func TestSessionRepository_ActiveByFlowAndContact_IgnoresTerminalStatuses(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.SessionRepository()

	require.NoError(t, repo.Save(t.Context(), testSession("sess-1", "flow-1", "contact-1", models.SessionStatusCompleted)))
	require.NoError(t, repo.Save(t.Context(), testSession("sess-2", "flow-1", "contact-1", models.SessionStatusHandedOff)))

	_, err := repo.ActiveByFlowAndContact(t.Context(), "flow-1", "contact-1")
	assert.True(t, persistence.IsSessionNotFound(err))
}

func TestSessionRepository_ExpireActiveByFlow(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.SessionRepository()

	require.NoError(t, repo.Save(t.Context(), testSession("sess-1", "flow-1", "contact-1", models.SessionStatusActive)))
	require.NoError(t, repo.Save(t.Context(), testSession("sess-2", "flow-1", "contact-2", models.SessionStatusActive)))
	require.NoError(t, repo.Save(t.Context(), testSession("sess-3", "flow-1", "contact-3", models.SessionStatusCompleted)))
	require.NoError(t, repo.Save(t.Context(), testSession("sess-4", "flow-2", "contact-1", models.SessionStatusActive)))

	expired, err := repo.ExpireActiveByFlow(t.Context(), "flow-1")
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	count, err := repo.ActiveCountByFlow(t.Context(), "flow-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	untouched, err := repo.GetByID(t.Context(), "sess-4")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, untouched.Status, "other flows untouched")
}

func TestSessionRepository_ExpireIdleBefore(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.SessionRepository()

	stale := testSession("sess-1", "flow-1", "contact-1", models.SessionStatusActive)
	stale.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	fresh := testSession("sess-2", "flow-1", "contact-2", models.SessionStatusActive)

	require.NoError(t, repo.Save(t.Context(), stale))
	require.NoError(t, repo.Save(t.Context(), fresh))

	expired, err := repo.ExpireIdleBefore(t.Context(), time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	staleAfter, err := repo.GetByID(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusExpired, staleAfter.Status)

	freshAfter, err := repo.GetByID(t.Context(), "sess-2")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, freshAfter.Status)
}
