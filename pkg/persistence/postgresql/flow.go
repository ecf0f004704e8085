package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
)

// FlowRepository handles flow-related database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

const flowColumns = `
	id
  , tenant_id
  , name
  , channel
  , status
  , trigger_config
  , nodes
  , connections
  , default_messages
  , created_at
  , updated_at
  , deleted_at
`

// GetByID returns the flow or ErrFlowNotFound.
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE id = $1 AND deleted_at IS NULL`

	flow, err := r.scanFlow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("GetByID", id, err)
	}

	return flow, nil
}

// List returns all flows of a tenant, newest first.
func (r *FlowRepository) List(ctx context.Context, tenantID string) ([]*models.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	return r.queryFlows(ctx, query, tenantID)
}

// ActiveFlows returns a tenant's active flows for a channel ordered by
// creation time.
func (r *FlowRepository) ActiveFlows(ctx context.Context, tenantID string, channel models.Channel) ([]*models.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE tenant_id = $1 AND channel = $2 AND status = 'active' AND deleted_at IS NULL
		ORDER BY created_at ASC
	`

	return r.queryFlows(ctx, query, tenantID, string(channel))
}

// Save upserts the flow row.
func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	triggerJSON, err := json.Marshal(flow.Trigger)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to encode trigger: %w", err))
	}

	nodesJSON, err := json.Marshal(flow.Nodes)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to encode nodes: %w", err))
	}

	connectionsJSON, err := json.Marshal(flow.Connections)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to encode connections: %w", err))
	}

	defaultsJSON, err := json.Marshal(flow.DefaultMessages)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to encode default messages: %w", err))
	}

	query := `
		INSERT INTO flows (id, tenant_id, name, channel, status, trigger_config, nodes, connections, default_messages, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id
		  , name = EXCLUDED.name
		  , channel = EXCLUDED.channel
		  , status = EXCLUDED.status
		  , trigger_config = EXCLUDED.trigger_config
		  , nodes = EXCLUDED.nodes
		  , connections = EXCLUDED.connections
		  , default_messages = EXCLUDED.default_messages
		  , updated_at = EXCLUDED.updated_at
		  , deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		flow.ID,
		flow.TenantID,
		flow.Name,
		string(flow.Channel),
		string(flow.Status),
		triggerJSON,
		nodesJSON,
		connectionsJSON,
		defaultsJSON,
		flow.CreatedAt,
		flow.UpdatedAt,
		flow.DeletedAt,
	)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}

// Delete soft-deletes the flow by setting deleted_at.
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE flows SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return persistence.NewFlowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewFlowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewFlowError("Delete", id, persistence.ErrFlowNotFound)
	}

	return nil
}

func (r *FlowRepository) queryFlows(ctx context.Context, query string, args ...any) ([]*models.Flow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := r.scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return flows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *FlowRepository) scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow            models.Flow
		channel         string
		status          string
		triggerJSON     []byte
		nodesJSON       []byte
		connectionsJSON []byte
		defaultsJSON    []byte
	)

	err := row.Scan(
		&flow.ID,
		&flow.TenantID,
		&flow.Name,
		&channel,
		&status,
		&triggerJSON,
		&nodesJSON,
		&connectionsJSON,
		&defaultsJSON,
		&flow.CreatedAt,
		&flow.UpdatedAt,
		&flow.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	flow.Channel = models.Channel(channel)
	flow.Status = models.FlowStatus(status)

	if err := json.Unmarshal(triggerJSON, &flow.Trigger); err != nil {
		return nil, fmt.Errorf("failed to decode trigger: %w", err)
	}

	if err := json.Unmarshal(nodesJSON, &flow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes: %w", err)
	}

	if err := json.Unmarshal(connectionsJSON, &flow.Connections); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}

	if err := json.Unmarshal(defaultsJSON, &flow.DefaultMessages); err != nil {
		return nil, fmt.Errorf("failed to decode default messages: %w", err)
	}

	return &flow, nil
}
