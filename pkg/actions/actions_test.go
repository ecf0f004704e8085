package actions_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/chatflow/pkg/actions"
	"github.com/relayhq/chatflow/pkg/eventbus"
	"github.com/relayhq/chatflow/pkg/events"
	"github.com/relayhq/chatflow/pkg/models"
)

type capturePublisher struct {
	published []eventbus.Event
}

func (c *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	c.published = append(c.published, event)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testSession() *models.Session {
	return &models.Session{
		ID:        "session-1",
		FlowID:    "flow-1",
		TenantID:  "tenant-1",
		ContactID: "contact-1",
		Variables: map[string]any{"plan": "pro", "name": "Ana"},
	}
}

func TestDispatch_AddTag(t *testing.T) {
	publisher := &capturePublisher{}
	dispatcher := actions.NewDispatcher(testLogger(), publisher)

	err := dispatcher.Dispatch(t.Context(), testSession(), models.ActionSpec{
		Kind: actions.KindAddTag,
		Tag:  "vip",
	})
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)

	event, ok := publisher.published[0].(events.ContactTagAdded)
	require.True(t, ok)
	assert.Equal(t, "vip", event.Tag)
	assert.Equal(t, "contact-1", event.ContactID)
	assert.Equal(t, "session-1", event.SessionID)
	assert.Equal(t, "flow-1", event.FlowID)
}

func TestDispatch_UpdateField_RendersValue(t *testing.T) {
	publisher := &capturePublisher{}
	dispatcher := actions.NewDispatcher(testLogger(), publisher)

	err := dispatcher.Dispatch(t.Context(), testSession(), models.ActionSpec{
		Kind:  actions.KindUpdateField,
		Field: "subscription",
		Value: "plan-{{plan}}",
	})
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)

	event, ok := publisher.published[0].(events.ContactFieldUpdated)
	require.True(t, ok)
	assert.Equal(t, "subscription", event.Field)
	assert.Equal(t, "plan-pro", event.Value)
}

func TestDispatch_UnknownKind(t *testing.T) {
	dispatcher := actions.NewDispatcher(testLogger(), &capturePublisher{})

	err := dispatcher.Dispatch(t.Context(), testSession(), models.ActionSpec{Kind: "launch_rocket"})
	assert.ErrorContains(t, err, "unknown action kind")
}

func TestCallWebhook_PostsSessionState(t *testing.T) {
	var (
		gotMethod string
		gotHeader string
		gotBody   map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Api-Key")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dispatcher := actions.NewDispatcher(testLogger(), &capturePublisher{})

	err := dispatcher.CallWebhook(t.Context(), testSession(), models.WebhookSpec{
		URL:     server.URL,
		Method:  "POST",
		Headers: map[string]string{"X-Api-Key": "secret"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, "session-1", gotBody["session_id"])
	assert.Equal(t, "contact-1", gotBody["contact_id"])
}

func TestCallWebhook_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dispatcher := actions.NewDispatcher(testLogger(), &capturePublisher{})

	err := dispatcher.CallWebhook(t.Context(), testSession(), models.WebhookSpec{URL: server.URL})
	assert.ErrorContains(t, err, "webhook returned status 500")
}
