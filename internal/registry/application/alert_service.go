package application

import (
	"context"
	"errors"

	"ocean-sentinel/internal/observability/metrics"
	"ocean-sentinel/internal/registry/application/events"
	registry "ocean-sentinel/internal/registry/domain"
	"ocean-sentinel/internal/registry/infrastructure/memory"
)

// AlertService owns the alert registry: creation with emergency
// classification, delivery status transitions and the reverse-chronological
// read queries.
type AlertService struct {
	store *memory.AlertStore
	acl   *registry.AccessList
	bus   EventBus
	clock Clock
}

// AlertServiceOption customizes the service.
type AlertServiceOption func(*AlertService)

// WithAlertClock overrides the default clock.
func WithAlertClock(clock Clock) AlertServiceOption {
	return func(s *AlertService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewAlertService constructs an alert service.
func NewAlertService(store *memory.AlertStore, acl *registry.AccessList, bus EventBus, opts ...AlertServiceOption) (*AlertService, error) {
	if store == nil {
		return nil, errors.New("alerts: nil store")
	}
	if acl == nil {
		return nil, errors.New("alerts: nil access list")
	}
	if bus == nil {
		return nil, errors.New("alerts: nil event bus")
	}
	service := &AlertService{store: store, acl: acl, bus: bus, clock: systemClock{}}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create records a new alert for a threat and returns its ID. Requires the
// sender role. The emergency classification is decided against the threshold
// in force at creation and never changes afterwards.
func (s *AlertService) Create(ctx context.Context, caller registry.Principal, input registry.AlertInput) (uint64, error) {
	if err := s.acl.Authorize(caller, registry.RoleSender); err != nil {
		return 0, err
	}
	if err := input.Validate(); err != nil {
		return 0, err
	}

	now := s.clock.Now().UTC()
	id, emergency := s.store.Insert(registry.Alert{
		ThreatID:   input.ThreatID,
		Message:    input.Message,
		Severity:   input.Severity,
		Channels:   input.Channels,
		Recipients: input.Recipients,
		Sender:     caller,
		CreatedAt:  now,
	})

	metrics.IncAlertCreated(emergency)
	s.emit(ctx, events.AlertCreated{
		AlertID:     id,
		ThreatID:    input.ThreatID,
		Severity:    input.Severity,
		IsEmergency: emergency,
		Sender:      caller,
		OccurredAt:  now,
	})
	if emergency {
		s.emit(ctx, events.EmergencyAlert{
			AlertID:    id,
			ThreatID:   input.ThreatID,
			Severity:   input.Severity,
			Message:    input.Message,
			OccurredAt: now,
		})
	}
	return id, nil
}

// UpdateStatus transitions the alert to newStatus. Requires the sender role.
// failureReason is stored only on a transition into failed; a transition into
// delivered stamps the delivery time and emits the delivery-latency event.
func (s *AlertService) UpdateStatus(ctx context.Context, caller registry.Principal, id uint64, newStatus registry.AlertStatus, failureReason string) error {
	if err := s.acl.Authorize(caller, registry.RoleSender); err != nil {
		return err
	}
	if !newStatus.Valid() {
		return registry.ErrInvalidStatus
	}

	now := s.clock.Now().UTC()
	result, err := s.store.UpdateStatus(id, newStatus, failureReason, now)
	if err != nil {
		return err
	}
	s.emit(ctx, events.AlertStatusUpdated{
		AlertID:    id,
		ThreatID:   result.Alert.ThreatID,
		OldStatus:  result.OldStatus,
		NewStatus:  newStatus,
		OccurredAt: now,
	})
	if newStatus == registry.AlertDelivered {
		s.emit(ctx, events.AlertDelivered{
			AlertID:     id,
			ThreatID:    result.Alert.ThreatID,
			DeliveredAt: result.Alert.DeliveredAt,
			Latency:     result.Alert.DeliveredAt.Sub(result.Alert.CreatedAt),
			OccurredAt:  now,
		})
	}
	return nil
}

// Get loads an alert by ID.
func (s *AlertService) Get(ctx context.Context, id uint64) (registry.Alert, error) {
	_ = ctx
	return s.store.Get(id)
}

// ForThreat returns every alert ID created against a threat, unpaginated, in
// creation order.
func (s *AlertService) ForThreat(ctx context.Context, threatID uint64) []uint64 {
	_ = ctx
	return s.store.ForThreat(threatID)
}

// ListRecent pages over the bounded recent window, most recent first.
func (s *AlertService) ListRecent(ctx context.Context, offset, limit int) ([]uint64, error) {
	_ = ctx
	if err := registry.ValidatePage(offset, limit); err != nil {
		return nil, err
	}
	return s.store.ListRecent(offset, limit), nil
}

// ListEmergency pages over the emergency index, most recent first.
func (s *AlertService) ListEmergency(ctx context.Context, offset, limit int) ([]uint64, error) {
	_ = ctx
	if err := registry.ValidatePage(offset, limit); err != nil {
		return nil, err
	}
	return s.store.ListEmergency(offset, limit), nil
}

// ListByStatus scans for alerts in a status, most recent first.
func (s *AlertService) ListByStatus(ctx context.Context, status registry.AlertStatus, offset, limit int) ([]uint64, error) {
	_ = ctx
	if !status.Valid() {
		return nil, registry.ErrInvalidStatus
	}
	if err := registry.ValidatePage(offset, limit); err != nil {
		return nil, err
	}
	return s.store.ListByStatus(status, offset, limit), nil
}

// SetEmergencyThreshold changes the classification threshold for future
// alerts. Owner only.
func (s *AlertService) SetEmergencyThreshold(ctx context.Context, caller registry.Principal, value int) error {
	_ = ctx
	if err := s.acl.AuthorizeOwner(caller); err != nil {
		return err
	}
	return s.store.SetEmergencyThreshold(value)
}

// EmergencyThreshold returns the threshold currently in force.
func (s *AlertService) EmergencyThreshold(ctx context.Context) int {
	_ = ctx
	return s.store.EmergencyThreshold()
}

// Stats summarizes the registry.
func (s *AlertService) Stats(ctx context.Context) registry.AlertStats {
	_ = ctx
	return s.store.Stats()
}

// emit publishes one event per committed state change, same contract as
// ThreatService.emit.
func (s *AlertService) emit(ctx context.Context, event any) {
	metrics.IncRegistryEvent(eventName(event))
	_ = s.bus.Publish(ctx, event)
}
