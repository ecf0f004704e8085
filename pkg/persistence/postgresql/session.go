package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
)

// SessionRepository handles session-related database operations.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

const sessionColumns = `
	id
  , flow_id
  , tenant_id
  , contact_id
  , conversation_id
  , current_node_id
  , awaiting_input
  , variables
  , history
  , status
  , trigger_type
  , created_at
  , updated_at
`

// GetByID returns the session or ErrSessionNotFound.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSessionError("GetByID", id, persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewSessionError("GetByID", id, err)
	}

	return session, nil
}

// ActiveByFlowAndContact returns the single active session for the pair, or
// ErrSessionNotFound. The partial unique index on (flow_id, contact_id)
// guarantees at most one row matches.
func (r *SessionRepository) ActiveByFlowAndContact(ctx context.Context, flowID, contactID string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE flow_id = $1 AND contact_id = $2 AND status = 'active'`

	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, flowID, contactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSessionError("ActiveByFlowAndContact", "", persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewSessionError("ActiveByFlowAndContact", "", err)
	}

	return session, nil
}

// ListByFlow returns all sessions of a flow, newest first.
func (r *SessionRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE flow_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	sessions := make([]*models.Session, 0)

	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// ActiveCountByFlow returns how many sessions of the flow are still active.
func (r *SessionRepository) ActiveCountByFlow(ctx context.Context, flowID string) (int, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE flow_id = $1 AND status = 'active'`

	var count int
	if err := r.db.QueryRowContext(ctx, query, flowID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}

	return count, nil
}

// Save upserts the session row.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	variablesJSON, err := json.Marshal(session.Variables)
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, fmt.Errorf("failed to encode variables: %w", err))
	}

	historyJSON, err := json.Marshal(session.History)
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, fmt.Errorf("failed to encode history: %w", err))
	}

	query := `
		INSERT INTO sessions (id, flow_id, tenant_id, contact_id, conversation_id, current_node_id, awaiting_input, variables, history, status, trigger_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			current_node_id = EXCLUDED.current_node_id
		  , awaiting_input = EXCLUDED.awaiting_input
		  , variables = EXCLUDED.variables
		  , history = EXCLUDED.history
		  , status = EXCLUDED.status
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.FlowID,
		session.TenantID,
		session.ContactID,
		session.ConversationID,
		session.CurrentNodeID,
		session.AwaitingInput,
		variablesJSON,
		historyJSON,
		string(session.Status),
		string(session.TriggerType),
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	return nil
}

// ExpireActiveByFlow marks all active sessions of a flow as expired and
// returns how many rows changed.
func (r *SessionRepository) ExpireActiveByFlow(ctx context.Context, flowID string) (int, error) {
	query := `UPDATE sessions SET status = 'expired', updated_at = NOW() WHERE flow_id = $1 AND status = 'active'`

	result, err := r.db.ExecContext(ctx, query, flowID)
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return int(affected), nil
}

// ExpireIdleBefore marks active sessions with no activity since the cutoff as
// expired and returns how many rows changed.
func (r *SessionRepository) ExpireIdleBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `UPDATE sessions SET status = 'expired', updated_at = NOW() WHERE status = 'active' AND updated_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire idle sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return int(affected), nil
}

func (r *SessionRepository) scanSession(row rowScanner) (*models.Session, error) {
	var (
		session       models.Session
		variablesJSON []byte
		historyJSON   []byte
		status        string
		triggerType   string
	)

	err := row.Scan(
		&session.ID,
		&session.FlowID,
		&session.TenantID,
		&session.ContactID,
		&session.ConversationID,
		&session.CurrentNodeID,
		&session.AwaitingInput,
		&variablesJSON,
		&historyJSON,
		&status,
		&triggerType,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	session.Status = models.SessionStatus(status)
	session.TriggerType = models.TriggerType(triggerType)

	if err := json.Unmarshal(variablesJSON, &session.Variables); err != nil {
		return nil, fmt.Errorf("failed to decode variables: %w", err)
	}

	if err := json.Unmarshal(historyJSON, &session.History); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	return &session, nil
}
