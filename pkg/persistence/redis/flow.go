package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
)

// FlowRepository stores flow documents as JSON values.
type FlowRepository struct {
	client *backend.Client
	prefix string
}

func (fr *FlowRepository) flowKey(id string) string {
	return fr.prefix + "flow:" + id
}

func (fr *FlowRepository) indexKey() string {
	return fr.prefix + "flows"
}

// GetByID returns the flow or ErrFlowNotFound. Soft-deleted flows are
// reported as not found.
func (fr *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	data, err := fr.client.Get(ctx, fr.flowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("GetByID", id, err)
	}

	var flow models.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, persistence.NewFlowError("GetByID", id, fmt.Errorf("failed to decode flow: %w", err))
	}

	if flow.DeletedAt != nil {
		return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
	}

	return &flow, nil
}

// List returns all flows of a tenant, newest first.
func (fr *FlowRepository) List(ctx context.Context, tenantID string) ([]*models.Flow, error) {
	flows, err := fr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Flow, 0, len(flows))

	for _, flow := range flows {
		if flow.TenantID == tenantID {
			filtered = append(filtered, flow)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	return filtered, nil
}

// ActiveFlows returns a tenant's active flows for a channel ordered by
// creation time.
func (fr *FlowRepository) ActiveFlows(ctx context.Context, tenantID string, channel models.Channel) ([]*models.Flow, error) {
	flows, err := fr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Flow, 0)

	for _, flow := range flows {
		if flow.TenantID == tenantID && flow.Channel == channel && flow.Status == models.FlowStatusActive {
			filtered = append(filtered, flow)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	return filtered, nil
}

// Save writes the flow document and registers it in the flow index.
func (fr *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to encode flow: %w", err))
	}

	pipe := fr.client.TxPipeline()
	pipe.Set(ctx, fr.flowKey(flow.ID), data, 0)
	pipe.SAdd(ctx, fr.indexKey(), flow.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}

// Delete soft-deletes the flow by stamping DeletedAt.
func (fr *FlowRepository) Delete(ctx context.Context, id string) error {
	flow, err := fr.GetByID(ctx, id)
	if err != nil {
		return persistence.NewFlowError("Delete", id, persistence.ErrFlowNotFound)
	}

	now := time.Now().UTC()
	flow.DeletedAt = &now

	return fr.Save(ctx, flow)
}

func (fr *FlowRepository) loadAll(ctx context.Context) ([]*models.Flow, error) {
	ids, err := fr.client.SMembers(ctx, fr.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flow index: %w", err)
	}

	flows := make([]*models.Flow, 0, len(ids))

	for _, id := range ids {
		flow, err := fr.GetByID(ctx, id)
		if err != nil {
			if persistence.IsFlowNotFound(err) {
				continue
			}

			return nil, err
		}

		flows = append(flows, flow)
	}

	return flows, nil
}
