package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
)

// FlowRepository handles flow-related file operations.
type FlowRepository struct {
	root string
}

// NewFlowRepository creates a new flow repository under the given root.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

func (fr *FlowRepository) dir() string {
	return path.Join(fr.root, "flows")
}

func (fr *FlowRepository) filePath(id string) string {
	return path.Join(fr.dir(), id+".json")
}

// GetByID returns the flow stored under the given ID. Soft-deleted flows are
// reported as not found.
func (fr *FlowRepository) GetByID(_ context.Context, id string) (*models.Flow, error) {
	data, err := os.ReadFile(fr.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("GetByID", id, err)
	}

	var flow models.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, persistence.NewFlowError("GetByID", id, fmt.Errorf("failed to decode flow file: %w", err))
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
// creation time, the stable order the trigger matcher depends on.
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

// Save writes the flow document, creating the directory on first use.
func (fr *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	if err := os.MkdirAll(fr.dir(), 0o755); err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to create flows directory: %w", err))
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to encode flow: %w", err))
	}

	if err := os.WriteFile(fr.filePath(flow.ID), data, 0o644); err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to write flow file: %w", err))
	}

	return nil
}

// Delete soft-deletes the flow by stamping DeletedAt.
func (fr *FlowRepository) Delete(ctx context.Context, id string) error {
	data, err := os.ReadFile(fr.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewFlowError("Delete", id, persistence.ErrFlowNotFound)
		}

		return persistence.NewFlowError("Delete", id, err)
	}

	var flow models.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return persistence.NewFlowError("Delete", id, fmt.Errorf("failed to decode flow file: %w", err))
	}

	if flow.DeletedAt != nil {
		return persistence.NewFlowError("Delete", id, persistence.ErrFlowNotFound)
	}

	now := time.Now().UTC()
	flow.DeletedAt = &now

	return fr.Save(ctx, &flow)
}

func (fr *FlowRepository) loadAll(_ context.Context) ([]*models.Flow, error) {
	root := os.DirFS(fr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.Flow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		data, err := fs.ReadFile(root, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read flow file %s: %w", file, err)
		}

		var flow models.Flow
		if err := json.Unmarshal(data, &flow); err != nil {
			return nil, fmt.Errorf("failed to decode flow file %s: %w", file, err)
		}

		if flow.DeletedAt == nil {
			flows = append(flows, &flow)
		}
	}

	return flows, nil
}
