package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/relayhq/chatflow/pkg/eventbus"
	"github.com/relayhq/chatflow/pkg/events"
	"github.com/relayhq/chatflow/pkg/flow"
	"github.com/relayhq/chatflow/pkg/models"
	"github.com/relayhq/chatflow/pkg/persistence"
)

// Flow is the flow lifecycle service: CRUD, activation, deactivation, and
// session listing. Graph validation runs at activation time so drafts can be
// saved half-built.
type Flow struct {
	persistence persistence.Persistence
	graph       *flow.Validator
	validate    *validator.Validate
	publisher   eventbus.EventPublisher
}

// NewFlow creates a new flow service.
func NewFlow(persistence persistence.Persistence, publisher eventbus.EventPublisher) *Flow {
	return &Flow{
		persistence: persistence,
		graph:       flow.NewValidator(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		publisher:   publisher,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves all of a tenant's flows, newest first.
func (s *Flow) List(ctx context.Context, tenantID string) ([]*models.Flow, error) {
	if tenantID == "" {
		return nil, NewValidationError("List", "TENANT_REQUIRED", "tenant ID is required", ErrInvalidRequest)
	}

	return s.persistence.FlowRepository().List(ctx, tenantID)
}

// FetchByID retrieves a flow by its ID.
func (s *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	return s.persistence.FlowRepository().GetByID(ctx, id)
}

// Create adds a new flow to the repository. New flows start as drafts unless
// a status is given, and an activating create must carry a valid graph.
func (s *Flow) Create(ctx context.Context, f *models.Flow) (*models.Flow, error) {
	if f == nil {
		return nil, ErrFlowNil
	}

	now := time.Now().UTC()
	f.ID = uuid.New().String()
	f.CreatedAt = now
	f.UpdatedAt = now

	if f.Status == "" {
		f.Status = models.FlowStatusDraft
	}

	if err := s.validate.Struct(f); err != nil {
		return nil, NewValidationError("Create", "INVALID_FLOW", err.Error(), ErrInvalidRequest)
	}

	if f.Status == models.FlowStatusActive {
		if err := s.graph.Validate(f); err != nil {
			return nil, NewValidationError("Create", "INVALID_GRAPH", err.Error(), ErrInvalidGraph)
		}
	}

	if err := s.persistence.FlowRepository().Save(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	return f, nil
}

// Update modifies an existing flow. Tenant and creation time are preserved
// from the stored record; an active flow must keep a valid graph.
func (s *Flow) Update(ctx context.Context, flowID string, f *models.Flow) (*models.Flow, error) {
	if f == nil {
		return nil, ErrFlowNil
	}

	existing, err := s.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	f.ID = flowID
	f.TenantID = existing.TenantID
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = time.Now().UTC()

	if f.Status == "" {
		f.Status = existing.Status
	}

	if err := s.validate.Struct(f); err != nil {
		return nil, NewValidationError("Update", "INVALID_FLOW", err.Error(), ErrInvalidRequest)
	}

	if f.Status == models.FlowStatusActive {
		if err := s.graph.Validate(f); err != nil {
			return nil, NewValidationError("Update", "INVALID_GRAPH", err.Error(), ErrInvalidGraph)
		}
	}

	if err := s.persistence.FlowRepository().Save(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to update flow: %w", err)
	}

	return f, nil
}

// Activate validates the flow's graph and makes it eligible for trigger
// matching.
func (s *Flow) Activate(ctx context.Context, flowID string) (*models.Flow, error) {
	f, err := s.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if f.Status == models.FlowStatusActive {
		return nil, ErrFlowAlreadyActive
	}

	if err := s.graph.Validate(f); err != nil {
		return nil, NewValidationError("Activate", "INVALID_GRAPH", err.Error(), ErrInvalidGraph)
	}

	f.Status = models.FlowStatusActive
	f.UpdatedAt = time.Now().UTC()

	if err := s.persistence.FlowRepository().Save(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to activate flow: %w", err)
	}

	s.publishFlowEvent(ctx, events.FlowActivated{
		BaseEvent: s.baseEvent(events.FlowActivatedEvent, f),
		FlowName:  f.Name,
	})

	return f, nil
}

// Deactivate pauses the flow and bulk-expires its active sessions. A paused
// flow is never returned by the trigger matcher.
func (s *Flow) Deactivate(ctx context.Context, flowID string) (*models.Flow, int, error) {
	f, err := s.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, 0, err
	}

	if f.Status != models.FlowStatusActive {
		return nil, 0, ErrFlowNotActive
	}

	f.Status = models.FlowStatusPaused
	f.UpdatedAt = time.Now().UTC()

	if err := s.persistence.FlowRepository().Save(ctx, f); err != nil {
		return nil, 0, fmt.Errorf("failed to deactivate flow: %w", err)
	}

	sessions, err := s.persistence.SessionRepository().ListByFlow(ctx, flowID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions of flow %s: %w", flowID, err)
	}

	expired, err := s.persistence.SessionRepository().ExpireActiveByFlow(ctx, flowID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to expire sessions of flow %s: %w", flowID, err)
	}

	for _, session := range sessions {
		if session.Status != models.SessionStatusActive {
			continue
		}

		s.publishFlowEvent(ctx, events.SessionExpired{
			BaseEvent: s.baseEvent(events.SessionExpiredEvent, f),
			SessionID: session.ID,
			ContactID: session.ContactID,
			Reason:    "flow_deactivated",
		})
	}

	s.publishFlowEvent(ctx, events.FlowDeactivated{
		BaseEvent:       s.baseEvent(events.FlowDeactivatedEvent, f),
		FlowName:        f.Name,
		SessionsExpired: expired,
	})

	return f, expired, nil
}

// Delete soft-deletes a flow. Flows with active sessions cannot be deleted;
// deactivate them first.
func (s *Flow) Delete(ctx context.Context, flowID string) error {
	if _, err := s.persistence.FlowRepository().GetByID(ctx, flowID); err != nil {
		return err
	}

	active, err := s.persistence.SessionRepository().ActiveCountByFlow(ctx, flowID)
	if err != nil {
		return fmt.Errorf("failed to count active sessions of flow %s: %w", flowID, err)
	}

	if active > 0 {
		return ErrFlowHasActiveSessions
	}

	return s.persistence.FlowRepository().Delete(ctx, flowID)
}

// Sessions lists all sessions of a flow, newest first.
func (s *Flow) Sessions(ctx context.Context, flowID string) ([]*models.Session, error) {
	if _, err := s.persistence.FlowRepository().GetByID(ctx, flowID); err != nil {
		return nil, err
	}

	return s.persistence.SessionRepository().ListByFlow(ctx, flowID)
}

func (s *Flow) baseEvent(eventType events.EventType, f *models.Flow) events.BaseEvent {
	base := events.NewBaseEvent(eventType, f.TenantID)
	base.FlowID = f.ID

	return base
}

func (s *Flow) publishFlowEvent(ctx context.Context, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	// Lifecycle events are observability signals, not part of the mutation.
	_ = s.publisher.Publish(ctx, string(event.GetType()), event)
}
