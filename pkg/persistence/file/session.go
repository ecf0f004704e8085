package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
)

// SessionRepository handles session-related file operations.
type SessionRepository struct {
	root string
}

// NewSessionRepository creates a new session repository under the given root.
func NewSessionRepository(root string) *SessionRepository {
	return &SessionRepository{root: root}
}

func (sr *SessionRepository) dir() string {
	return path.Join(sr.root, "sessions")
}

func (sr *SessionRepository) filePath(id string) string {
	return path.Join(sr.dir(), id+".json")
}

// GetByID returns the session stored under the given ID.
func (sr *SessionRepository) GetByID(_ context.Context, id string) (*models.Session, error) {
	data, err := os.ReadFile(sr.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewSessionError("GetByID", id, persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewSessionError("GetByID", id, err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, persistence.NewSessionError("GetByID", id, fmt.Errorf("failed to decode session file: %w", err))
	}

	return &session, nil
}

// ActiveByFlowAndContact returns the active session for the pair, or
// ErrSessionNotFound when none exists.
func (sr *SessionRepository) ActiveByFlowAndContact(ctx context.Context, flowID, contactID string) (*models.Session, error) {
	sessions, err := sr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, session := range sessions {
		if session.FlowID == flowID && session.ContactID == contactID && session.Status == models.SessionStatusActive {
			return session, nil
		}
	}

	return nil, persistence.NewSessionError("ActiveByFlowAndContact", "", persistence.ErrSessionNotFound)
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

// Save writes the session document as one atomic whole-record write.
func (sr *SessionRepository) Save(_ context.Context, session *models.Session) error {
	if err := os.MkdirAll(sr.dir(), 0o755); err != nil {
		return persistence.NewSessionError("Save", session.ID, fmt.Errorf("failed to create sessions directory: %w", err))
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, fmt.Errorf("failed to encode session: %w", err))
	}

	tmp := sr.filePath(session.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return persistence.NewSessionError("Save", session.ID, fmt.Errorf("failed to write session file: %w", err))
	}

	if err := os.Rename(tmp, sr.filePath(session.ID)); err != nil {
		return persistence.NewSessionError("Save", session.ID, fmt.Errorf("failed to commit session file: %w", err))
	}

	return nil
}

// ExpireActiveByFlow transitions all active sessions of a flow to expired.
func (sr *SessionRepository) ExpireActiveByFlow(ctx context.Context, flowID string) (int, error) {
	sessions, err := sr.ListByFlow(ctx, flowID)
	if err != nil {
		return 0, err
	}

	expired := 0

	for _, session := range sessions {
		if session.Status != models.SessionStatusActive {
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

// ExpireIdleBefore transitions active sessions untouched since the cutoff to expired.
func (sr *SessionRepository) ExpireIdleBefore(ctx context.Context, cutoff time.Time) (int, error) {
	sessions, err := sr.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0

	for _, session := range sessions {
		if session.Status != models.SessionStatusActive || !session.UpdatedAt.Before(cutoff) {
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

func (sr *SessionRepository) loadAll(_ context.Context) ([]*models.Session, error) {
	root := os.DirFS(sr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}

	sessions := make([]*models.Session, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		data, err := fs.ReadFile(root, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read session file %s: %w", file, err)
		}

		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, fmt.Errorf("failed to decode session file %s: %w", file, err)
		}

		sessions = append(sessions, &session)
	}

	return sessions, nil
}
