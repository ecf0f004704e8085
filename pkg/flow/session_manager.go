package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
)

// lockEntry holds a per-(flow, contact) mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// SessionManager resolves the active session for a (flow, contact) pair and
// serializes all read-modify-write cycles on it. Locks are reference counted
// so the map only holds entries for pairs currently being processed.
type SessionManager struct {
	sessions persistence.SessionRepository
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewSessionManager(sessions persistence.SessionRepository, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		logger:   logger.With("module", "session_manager"),
		locks:    make(map[string]*lockEntry),
	}
}

// WithLock runs fn while holding the exclusive lock for the pair. Concurrent
// inbound messages for the same contact on the same flow are serialized here;
// different pairs never contend.
func (m *SessionManager) WithLock(flowID, contactID string, fn func() error) error {
	key := flowID + ":" + contactID

	entry := m.acquire(key)
	entry.mu.Lock()

	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	return fn()
}

func (m *SessionManager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}

	entry.refs++

	return entry
}

func (m *SessionManager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Resolve returns the pair's active session, creating one positioned on the
// flow's start node when none exists. The second return value reports whether
// a new session was created. Callers must hold the pair's lock.
func (m *SessionManager) Resolve(ctx context.Context, flow *models.Flow, message *models.InboundMessage) (*models.Session, bool, error) {
	session, err := m.sessions.ActiveByFlowAndContact(ctx, flow.ID, message.ContactID)
	if err == nil {
		return session, false, nil
	}

	if !persistence.IsSessionNotFound(err) {
		return nil, false, fmt.Errorf("failed to look up active session: %w", err)
	}

	start := flow.StartNode()
	if start == nil {
		return nil, false, fmt.Errorf("flow %s: %w", flow.ID, ErrMissingStartNode)
	}

	now := time.Now().UTC()
	session = &models.Session{
		ID:             uuid.New().String(),
		FlowID:         flow.ID,
		TenantID:       flow.TenantID,
		ContactID:      message.ContactID,
		ConversationID: message.ConversationID,
		CurrentNodeID:  start.ID,
		Variables:      make(map[string]any),
		History:        []models.HistoryEntry{},
		Status:         models.SessionStatusActive,
		TriggerType:    message.SessionTrigger(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	m.logger.Debug("Created session",
		"session_id", session.ID,
		"flow_id", flow.ID,
		"contact_id", message.ContactID,
		"trigger_type", session.TriggerType)

	return session, true, nil
}
