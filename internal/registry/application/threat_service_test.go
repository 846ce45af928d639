package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ocean-sentinel/internal/registry/application/events"
	registry "ocean-sentinel/internal/registry/domain"
	"ocean-sentinel/internal/registry/infrastructure/memory"
)

type recordingBus struct {
	mu     sync.Mutex
	events []any
}

func (b *recordingBus) Publish(ctx context.Context, event any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) all() []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]any, len(b.events))
	copy(out, b.events)
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testACL(t *testing.T) *registry.AccessList {
	t.Helper()
	acl, err := registry.NewAccessList("owner")
	if err != nil {
		t.Fatalf("new access list: %v", err)
	}
	for role, principal := range map[registry.Role]registry.Principal{
		registry.RoleReporter: "reporter-1",
		registry.RoleVerifier: "verifier-1",
		registry.RoleSender:   "sender-1",
	} {
		if err := acl.Grant("owner", role, principal); err != nil {
			t.Fatalf("grant %s: %v", role, err)
		}
	}
	return acl
}

func newTestThreatService(t *testing.T) (*ThreatService, *recordingBus, *fakeClock) {
	t.Helper()
	bus := &recordingBus{}
	clock := newFakeClock()
	service, err := NewThreatService(memory.NewThreatStore(), testACL(t), bus, WithThreatClock(clock))
	if err != nil {
		t.Fatalf("new threat service: %v", err)
	}
	return service, bus, clock
}

func threatInput() registry.ThreatInput {
	return registry.ThreatInput{
		Type:        registry.ThreatStorm,
		Severity:    4,
		Confidence:  90,
		LatitudeE6:  37774900,
		LongitudeE6: -122419400,
		Description: "storm cell off the coast",
		DataHash:    "0xfeed",
	}
}

func TestThreatServiceRegister(t *testing.T) {
	service, bus, clock := newTestThreatService(t)
	ctx := context.Background()

	id, err := service.Register(ctx, "reporter-1", threatInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}

	threat, err := service.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if threat.Reporter != "reporter-1" || threat.Status != registry.ThreatActive {
		t.Fatalf("unexpected threat %+v", threat)
	}
	if !threat.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("expected creation time from clock, got %v", threat.CreatedAt)
	}

	published := bus.all()
	if len(published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(published))
	}
	registered, ok := published[0].(events.ThreatRegistered)
	if !ok {
		t.Fatalf("expected ThreatRegistered, got %T", published[0])
	}
	if registered.ThreatID != id || registered.Type != registry.ThreatStorm {
		t.Fatalf("unexpected event %+v", registered)
	}
}

func TestThreatServiceRegisterAuthorizationBeforeValidation(t *testing.T) {
	service, bus, _ := newTestThreatService(t)
	ctx := context.Background()

	// An unauthorized caller is rejected even with invalid input; the access
	// check runs first and nothing is recorded or published.
	bad := threatInput()
	bad.Severity = 0
	if _, err := service.Register(ctx, "stranger", bad); !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := service.Register(ctx, "reporter-1", bad); !errors.Is(err, registry.ErrInvalidSeverity) {
		t.Fatalf("expected ErrInvalidSeverity, got %v", err)
	}
	if got := len(bus.all()); got != 0 {
		t.Fatalf("expected no events on failure, got %d", got)
	}
	if stats := service.Stats(ctx); stats.Total != 0 {
		t.Fatalf("expected empty registry, got %+v", stats)
	}
}

func TestThreatServiceUpdateStatus(t *testing.T) {
	service, bus, _ := newTestThreatService(t)
	ctx := context.Background()
	id, _ := service.Register(ctx, "reporter-1", threatInput())

	if err := service.UpdateStatus(ctx, "verifier-1", id, registry.ThreatResolved); !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("expected verifier to be rejected, got %v", err)
	}
	if err := service.UpdateStatus(ctx, "reporter-1", id, "bogus"); !errors.Is(err, registry.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := service.UpdateStatus(ctx, "reporter-1", id, registry.ThreatActive); !errors.Is(err, registry.ErrStatusUnchanged) {
		t.Fatalf("expected ErrStatusUnchanged, got %v", err)
	}

	if err := service.UpdateStatus(ctx, "reporter-1", id, registry.ThreatInvestigating); err != nil {
		t.Fatalf("update status: %v", err)
	}
	published := bus.all()
	last, ok := published[len(published)-1].(events.ThreatStatusUpdated)
	if !ok {
		t.Fatalf("expected ThreatStatusUpdated, got %T", published[len(published)-1])
	}
	if last.OldStatus != registry.ThreatActive || last.NewStatus != registry.ThreatInvestigating {
		t.Fatalf("unexpected event %+v", last)
	}
}

func TestThreatServiceVerifyLegitimate(t *testing.T) {
	service, bus, clock := newTestThreatService(t)
	ctx := context.Background()
	id, _ := service.Register(ctx, "reporter-1", threatInput())
	clock.advance(time.Hour)

	if err := service.Verify(ctx, "reporter-1", id, true); !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("expected reporter to be rejected, got %v", err)
	}
	if err := service.Verify(ctx, "verifier-1", id, true); err != nil {
		t.Fatalf("verify: %v", err)
	}

	threat, _ := service.Get(ctx, id)
	if !threat.Verified || threat.Verifier != "verifier-1" || threat.Status != registry.ThreatActive {
		t.Fatalf("unexpected threat after verify %+v", threat)
	}
	if !threat.VerifiedAt.Equal(clock.Now()) {
		t.Fatalf("expected verification time from clock, got %v", threat.VerifiedAt)
	}

	published := bus.all()
	verified, ok := published[len(published)-1].(events.ThreatVerified)
	if !ok {
		t.Fatalf("expected ThreatVerified, got %T", published[len(published)-1])
	}
	if !verified.Legitimate || verified.Verifier != "verifier-1" {
		t.Fatalf("unexpected event %+v", verified)
	}

	if err := service.Verify(ctx, "verifier-1", id, false); !errors.Is(err, registry.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestThreatServiceVerifyIllegitimateEmitsBothEvents(t *testing.T) {
	service, bus, _ := newTestThreatService(t)
	ctx := context.Background()
	id, _ := service.Register(ctx, "reporter-1", threatInput())

	if err := service.Verify(ctx, "verifier-1", id, false); err != nil {
		t.Fatalf("verify: %v", err)
	}
	threat, _ := service.Get(ctx, id)
	if threat.Status != registry.ThreatFalsePositive {
		t.Fatalf("expected false_positive, got %s", threat.Status)
	}

	// The status transition event precedes the verification event.
	published := bus.all()
	if len(published) != 3 {
		t.Fatalf("expected 3 events, got %d", len(published))
	}
	statusEvent, ok := published[1].(events.ThreatStatusUpdated)
	if !ok {
		t.Fatalf("expected ThreatStatusUpdated second, got %T", published[1])
	}
	if statusEvent.NewStatus != registry.ThreatFalsePositive {
		t.Fatalf("unexpected status event %+v", statusEvent)
	}
	if _, ok := published[2].(events.ThreatVerified); !ok {
		t.Fatalf("expected ThreatVerified last, got %T", published[2])
	}
}

func TestThreatServiceListValidation(t *testing.T) {
	service, _, _ := newTestThreatService(t)
	ctx := context.Background()

	if _, err := service.ListActive(ctx, 0, 0); !errors.Is(err, registry.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := service.ListActive(ctx, -1, 10); !errors.Is(err, registry.ErrInvalidOffset) {
		t.Fatalf("expected ErrInvalidOffset, got %v", err)
	}
	if _, err := service.ListByType(ctx, "tsunami", 0, 10); !errors.Is(err, registry.ErrInvalidThreatType) {
		t.Fatalf("expected ErrInvalidThreatType, got %v", err)
	}
	if _, err := service.ListBySeverity(ctx, 0, 0, 10); !errors.Is(err, registry.ErrInvalidSeverity) {
		t.Fatalf("expected ErrInvalidSeverity, got %v", err)
	}
	if _, err := service.ListBySeverity(ctx, 6, 0, 10); !errors.Is(err, registry.ErrInvalidSeverity) {
		t.Fatalf("expected ErrInvalidSeverity for 6, got %v", err)
	}
}

func TestThreatServiceOwnerActsInAllRoles(t *testing.T) {
	service, _, _ := newTestThreatService(t)
	ctx := context.Background()

	id, err := service.Register(ctx, "owner", threatInput())
	if err != nil {
		t.Fatalf("owner register: %v", err)
	}
	if err := service.Verify(ctx, "owner", id, true); err != nil {
		t.Fatalf("owner verify: %v", err)
	}
}
