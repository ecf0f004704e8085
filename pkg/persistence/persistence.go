// Package persistence provides the data storage abstraction for flows and sessions.
package persistence

import (
	"context"
	"time"

	"github.com/relayhq/chatflow/pkg/models"
)

// Persistence is the storage entry point. Implementations exist for the file
// system, PostgreSQL and Redis.
type Persistence interface {
	FlowRepository() FlowRepository
	SessionRepository() SessionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowRepository stores flow definitions.
type FlowRepository interface {
	// GetByID returns the flow or ErrFlowNotFound.
	GetByID(ctx context.Context, id string) (*models.Flow, error)

	// List returns all flows of a tenant, newest first.
	List(ctx context.Context, tenantID string) ([]*models.Flow, error)

	// ActiveFlows returns a tenant's active flows for a channel, ordered by
	// creation time. The trigger matcher relies on this order being stable.
	ActiveFlows(ctx context.Context, tenantID string, channel models.Channel) ([]*models.Flow, error)

	Save(ctx context.Context, flow *models.Flow) error

	// Delete soft-deletes the flow.
	Delete(ctx context.Context, id string) error
}

// SessionRepository stores runtime sessions.
type SessionRepository interface {
	// GetByID returns the session or ErrSessionNotFound.
	GetByID(ctx context.Context, id string) (*models.Session, error)

	// ActiveByFlowAndContact returns the single active session for the pair,
	// or ErrSessionNotFound when none exists.
	ActiveByFlowAndContact(ctx context.Context, flowID, contactID string) (*models.Session, error)

	// ListByFlow returns all sessions referencing a flow.
	ListByFlow(ctx context.Context, flowID string) ([]*models.Session, error)

	// ActiveCountByFlow counts sessions in active status for a flow.
	ActiveCountByFlow(ctx context.Context, flowID string) (int, error)

	Save(ctx context.Context, session *models.Session) error

	// ExpireActiveByFlow transitions all active sessions of a flow to expired
	// and returns how many were affected. Used when a flow is deactivated.
	ExpireActiveByFlow(ctx context.Context, flowID string) (int, error)

	// ExpireIdleBefore transitions active sessions not updated since the
	// cutoff to expired and returns how many were affected.
	ExpireIdleBefore(ctx context.Context, cutoff time.Time) (int, error)
}
