// Package redis provides Redis-backed persistence for flows and sessions.
// Records are stored as JSON values; a pointer key per (flow, contact) pair
// makes the active-session lookup a single GET.
package redis

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/relayhq/chatflow/pkg/persistence"
)

const defaultPrefix = "chatflow:"

// Persistence implements the persistence.Persistence interface on Redis.
type Persistence struct {
	client      *backend.Client
	flowRepo    *FlowRepository
	sessionRepo *SessionRepository
}

// NewPersistence creates a Redis persistence from a connection URL
// (redis://host:port/db).
func NewPersistence(url string) (*Persistence, error) {
	opts, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return NewFromClient(backend.NewClient(opts)), nil
}

// NewFromClient creates a Redis persistence from an existing client.
func NewFromClient(client *backend.Client) *Persistence {
	return &Persistence{
		client:      client,
		flowRepo:    &FlowRepository{client: client, prefix: defaultPrefix},
		sessionRepo: &SessionRepository{client: client, prefix: defaultPrefix},
	}
}

// FlowRepository returns the flow repository implementation.
func (rp *Persistence) FlowRepository() persistence.FlowRepository {
	return rp.flowRepo
}

// SessionRepository returns the session repository implementation.
func (rp *Persistence) SessionRepository() persistence.SessionRepository {
	return rp.sessionRepo
}

// HealthCheck pings the server.
func (rp *Persistence) HealthCheck(ctx context.Context) error {
	if err := rp.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the client connection.
func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}
