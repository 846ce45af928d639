package application

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"ocean-sentinel/internal/observability/metrics"
	"ocean-sentinel/internal/registry/application/events"
	registry "ocean-sentinel/internal/registry/domain"
	"ocean-sentinel/internal/registry/infrastructure/memory"
)

// EventBus publishes registry events to the notification pipeline.
type EventBus interface {
	Publish(ctx context.Context, event any) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// ThreatService owns the threat registry: role-gated mutations over the
// threat store plus paginated reads. Every mutation is validated and
// authorized up front, applied as one atomic store operation, and followed by
// exactly one event emission per state change.
type ThreatService struct {
	store *memory.ThreatStore
	acl   *registry.AccessList
	bus   EventBus
	clock Clock
}

// ThreatServiceOption customizes the service.
type ThreatServiceOption func(*ThreatService)

// WithThreatClock overrides the default clock.
func WithThreatClock(clock Clock) ThreatServiceOption {
	return func(s *ThreatService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewThreatService constructs a threat service.
func NewThreatService(store *memory.ThreatStore, acl *registry.AccessList, bus EventBus, opts ...ThreatServiceOption) (*ThreatService, error) {
	if store == nil {
		return nil, errors.New("threats: nil store")
	}
	if acl == nil {
		return nil, errors.New("threats: nil access list")
	}
	if bus == nil {
		return nil, errors.New("threats: nil event bus")
	}
	service := &ThreatService{store: store, acl: acl, bus: bus, clock: systemClock{}}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Register records a new threat and returns its ID. Requires the reporter
// role. No state changes on any validation or authorization failure.
func (s *ThreatService) Register(ctx context.Context, caller registry.Principal, input registry.ThreatInput) (uint64, error) {
	if err := s.acl.Authorize(caller, registry.RoleReporter); err != nil {
		return 0, err
	}
	if err := input.Validate(); err != nil {
		return 0, err
	}

	now := s.clock.Now().UTC()
	id := s.store.Insert(registry.Threat{
		Type:               input.Type,
		Severity:           input.Severity,
		Confidence:         input.Confidence,
		LatitudeE6:         input.LatitudeE6,
		LongitudeE6:        input.LongitudeE6,
		Description:        input.Description,
		Reporter:           caller,
		CreatedAt:          now,
		Status:             registry.ThreatActive,
		DataHash:           input.DataHash,
		AffectedPopulation: input.AffectedPopulation,
	})

	metrics.IncThreatRegistered(string(input.Type))
	s.emit(ctx, events.ThreatRegistered{
		ThreatID:   id,
		Type:       input.Type,
		Severity:   input.Severity,
		Confidence: input.Confidence,
		Reporter:   caller,
		OccurredAt: now,
	})
	return id, nil
}

// UpdateStatus transitions the threat to newStatus. Requires the reporter
// role. Any status may move to any other; only re-setting the current value
// is rejected.
func (s *ThreatService) UpdateStatus(ctx context.Context, caller registry.Principal, id uint64, newStatus registry.ThreatStatus) error {
	if err := s.acl.Authorize(caller, registry.RoleReporter); err != nil {
		return err
	}
	if !newStatus.Valid() {
		return registry.ErrInvalidStatus
	}

	old, err := s.store.UpdateStatus(id, newStatus)
	if err != nil {
		return err
	}
	s.emit(ctx, events.ThreatStatusUpdated{
		ThreatID:   id,
		OldStatus:  old,
		NewStatus:  newStatus,
		OccurredAt: s.clock.Now().UTC(),
	})
	return nil
}

// Verify records the human verdict for a threat, at most once. Requires the
// verifier role. An illegitimate verdict moves a still-active threat to
// false_positive through the same transition UpdateStatus performs; a threat
// already under investigation keeps its status.
func (s *ThreatService) Verify(ctx context.Context, caller registry.Principal, id uint64, legitimate bool) error {
	if err := s.acl.Authorize(caller, registry.RoleVerifier); err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	result, err := s.store.Verify(id, caller, now, legitimate)
	if err != nil {
		return err
	}
	if result.StatusChanged {
		s.emit(ctx, events.ThreatStatusUpdated{
			ThreatID:   id,
			OldStatus:  result.OldStatus,
			NewStatus:  registry.ThreatFalsePositive,
			OccurredAt: now,
		})
	}
	s.emit(ctx, events.ThreatVerified{
		ThreatID:   id,
		Verifier:   caller,
		Legitimate: legitimate,
		OccurredAt: now,
	})
	return nil
}

// Get loads a threat by ID.
func (s *ThreatService) Get(ctx context.Context, id uint64) (registry.Threat, error) {
	_ = ctx
	return s.store.Get(id)
}

// ListActive pages over the active set in insertion order.
func (s *ThreatService) ListActive(ctx context.Context, offset, limit int) ([]uint64, error) {
	_ = ctx
	if err := registry.ValidatePage(offset, limit); err != nil {
		return nil, err
	}
	return s.store.ListActive(offset, limit), nil
}

// ListByType pages over threats of a type in registration order.
func (s *ThreatService) ListByType(ctx context.Context, threatType registry.ThreatType, offset, limit int) ([]uint64, error) {
	_ = ctx
	if !threatType.Valid() {
		return nil, registry.ErrInvalidThreatType
	}
	if err := registry.ValidatePage(offset, limit); err != nil {
		return nil, err
	}
	return s.store.ListByType(threatType, offset, limit), nil
}

// ListBySeverity pages over threats at or above minSeverity in registration
// order.
func (s *ThreatService) ListBySeverity(ctx context.Context, minSeverity, offset, limit int) ([]uint64, error) {
	_ = ctx
	if minSeverity < registry.MinSeverity || minSeverity > registry.MaxSeverity {
		return nil, registry.ErrInvalidSeverity
	}
	if err := registry.ValidatePage(offset, limit); err != nil {
		return nil, err
	}
	return s.store.ListBySeverity(minSeverity, offset, limit), nil
}

// All returns every threat in registration order, for report exports.
func (s *ThreatService) All(ctx context.Context) []registry.Threat {
	_ = ctx
	return s.store.All()
}

// Stats summarizes the registry.
func (s *ThreatService) Stats(ctx context.Context) registry.ThreatStats {
	_ = ctx
	return s.store.Stats()
}

// emit publishes one event per committed state change. Publish failures are
// the dispatcher's concern (outbox retry, DLQ); the committed mutation is
// never reported as failed.
func (s *ThreatService) emit(ctx context.Context, event any) {
	metrics.IncRegistryEvent(eventName(event))
	_ = s.bus.Publish(ctx, event)
}

// eventName returns the bare type name of an event for metric labels.
func eventName(event any) string {
	t := reflect.TypeOf(event)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.String()
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
