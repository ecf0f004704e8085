package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
)

// SessionRepository stores session documents as JSON values. The active
// session of a (flow, contact) pair is resolvable through a pointer key so
// the hot-path lookup is one GET.
type SessionRepository struct {
	client *backend.Client
	prefix string
}

func (sr *SessionRepository) sessionKey(id string) string {
	return sr.prefix + "session:" + id
}

func (sr *SessionRepository) indexKey() string {
	return sr.prefix + "sessions"
}

func (sr *SessionRepository) activeKey(flowID, contactID string) string {
	return sr.prefix + "session:active:" + flowID + ":" + contactID
}

// GetByID returns the session or ErrSessionNotFound.
func (sr *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	data, err := sr.client.Get(ctx, sr.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, persistence.NewSessionError("GetByID", id, persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewSessionError("GetByID", id, err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, persistence.NewSessionError("GetByID", id, fmt.Errorf("failed to decode session: %w", err))
	}

	return &session, nil
}

// ActiveByFlowAndContact resolves the pointer key and loads the session.
func (sr *SessionRepository) ActiveByFlowAndContact(ctx context.Context, flowID, contactID string) (*models.Session, error) {
	id, err := sr.client.Get(ctx, sr.activeKey(flowID, contactID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, persistence.NewSessionError("ActiveByFlowAndContact", "", persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewSessionError("ActiveByFlowAndContact", "", err)
	}

	session, err := sr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// The pointer can outlive a session that was expired through a bulk
	// transition; treat anything non-active as not found.
	if session.Status != models.SessionStatusActive {
		return nil, persistence.NewSessionError("ActiveByFlowAndContact", id, persistence.ErrSessionNotFound)
	}

	return session, nil
}

// ListByFlow returns all sessions referencing the flow.
func (sr *SessionRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.Session, error) {
	sessions, err := sr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Session, 0)

	for _, session := range sessions {
		if session.FlowID == flowID {
			filtered = append(filtered, session)
		}
	}

	return filtered, nil
}

// ActiveCountByFlow counts active sessions for the flow.
func (sr *SessionRepository) ActiveCountByFlow(ctx context.Context, flowID string) (int, error) {
	sessions, err := sr.ListByFlow(ctx, flowID)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, session := range sessions {
		if session.Status == models.SessionStatusActive {
			count++
		}
	}

	return count, nil
}

// Save writes the whole session record and maintains the active pointer.
func (sr *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, fmt.Errorf("failed to encode session: %w", err))
	}

	pipe := sr.client.TxPipeline()
	pipe.Set(ctx, sr.sessionKey(session.ID), data, 0)
	pipe.SAdd(ctx, sr.indexKey(), session.ID)

	if session.Status == models.SessionStatusActive {
		pipe.Set(ctx, sr.activeKey(session.FlowID, session.ContactID), session.ID, 0)
	} else {
		pipe.Del(ctx, sr.activeKey(session.FlowID, session.ContactID))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	return nil
}

// ExpireActiveByFlow transitions all active sessions of a flow to expired.
func (sr *SessionRepository) ExpireActiveByFlow(ctx context.Context, flowID string) (int, error) {
	sessions, err := sr.ListByFlow(ctx, flowID)
	if err != nil {
		return 0, err
	}

	return sr.expire(ctx, sessions, func(*models.Session) bool { return true })
}

// ExpireIdleBefore transitions active sessions untouched since the cutoff to expired.
func (sr *SessionRepository) ExpireIdleBefore(ctx context.Context, cutoff time.Time) (int, error) {
	sessions, err := sr.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	return sr.expire(ctx, sessions, func(s *models.Session) bool {
		return s.UpdatedAt.Before(cutoff)
	})
}

func (sr *SessionRepository) expire(ctx context.Context, sessions []*models.Session, match func(*models.Session) bool) (int, error) {
	expired := 0

	for _, session := range sessions {
		if session.Status != models.SessionStatusActive || !match(session) {
			continue
		}

		session.Status = models.SessionStatusExpired
		session.UpdatedAt = time.Now().UTC()

		if err := sr.Save(ctx, session); err != nil {
			return expired, err
		}

		expired++
	}

	return expired, nil
}

func (sr *SessionRepository) loadAll(ctx context.Context) ([]*models.Session, error) {
	ids, err := sr.client.SMembers(ctx, sr.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list session index: %w", err)
	}

	sessions := make([]*models.Session, 0, len(ids))

	for _, id := range ids {
		session, err := sr.GetByID(ctx, id)
		if err != nil {
			if persistence.IsSessionNotFound(err) {
				continue
			}

			return nil, err
		}

		sessions = append(sessions, session)
	}

	return sessions, nil
}
