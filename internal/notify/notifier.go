package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"ocean-sentinel/internal/registry/application/events"
	registry "ocean-sentinel/internal/registry/domain"
)

// AlertReader loads alert records.
type AlertReader interface {
	Get(ctx context.Context, id uint64) (registry.Alert, error)
}

// ThreatReader loads threat records.
type ThreatReader interface {
	Get(ctx context.Context, id uint64) (registry.Threat, error)
}

// Clock provides time for scheduling.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier sends emergency-alert notifications via a channel and handles
// escalation when an emergency alert is still undelivered after a delay.
type Notifier struct {
	alerts         AlertReader
	threats        ThreatReader
	channel        Channel
	template       *Template
	escalation     time.Duration
	clock          Clock
	mu             sync.Mutex
	timers         map[uint64]*time.Timer
	sent           map[string]sendRecord
	cooldown       time.Duration
	dedupeWindow   time.Duration
	requestTimeout time.Duration
}

// Option configures the notifier.
type Option func(*Notifier)

// WithEscalation configures escalation delay.
func WithEscalation(after time.Duration) Option {
	return func(n *Notifier) {
		if after > 0 {
			n.escalation = after
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithRequestTimeout overrides the default timeout for escalation checks.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.requestTimeout = timeout
		}
	}
}

// WithCooldown sets a minimum interval between notifications for the same
// alert and event.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// NewNotifier constructs an emergency notifier.
func NewNotifier(alerts AlertReader, threats ThreatReader, channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if alerts == nil {
		return nil, errors.New("notifier: nil alert reader")
	}
	if threats == nil {
		return nil, errors.New("notifier: nil threat reader")
	}
	if channel == nil {
		return nil, errors.New("notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		alerts:         alerts,
		threats:        threats,
		channel:        channel,
		template:       template,
		clock:          systemClock{},
		timers:         make(map[uint64]*time.Timer),
		sent:           make(map[string]sendRecord),
		requestTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// HandleEmergency pushes an emergency alert out and arms escalation.
func (n *Notifier) HandleEmergency(ctx context.Context, event events.EmergencyAlert) error {
	if n == nil || n.channel == nil {
		return nil
	}
	alert, err := n.alerts.Get(ctx, event.AlertID)
	if err != nil {
		return err
	}
	n.dispatch(ctx, "emergency", alert)
	n.scheduleEscalation(alert.ID)
	return nil
}

// HandleStatusUpdated reacts to delivery outcomes: a delivered emergency
// cancels escalation, a failed one notifies.
func (n *Notifier) HandleStatusUpdated(ctx context.Context, event events.AlertStatusUpdated) error {
	if n == nil {
		return nil
	}
	switch event.NewStatus {
	case registry.AlertDelivered:
		n.cancelEscalation(event.AlertID)
	case registry.AlertFailed:
		alert, err := n.alerts.Get(ctx, event.AlertID)
		if err != nil {
			return err
		}
		if alert.IsEmergency {
			n.dispatch(ctx, "failed", alert)
		}
	}
	return nil
}

// Close stops all pending escalation timers.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	timers := n.timers
	n.timers = make(map[uint64]*time.Timer)
	n.mu.Unlock()
	for _, timer := range timers {
		if timer != nil {
			timer.Stop()
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, eventType string, alert registry.Alert) {
	threat, err := n.threats.Get(ctx, alert.ThreatID)
	if err != nil {
		threat = registry.Threat{ID: alert.ThreatID}
	}
	content, err := n.template.Render(buildTemplateData(eventType, alert, threat))
	if err != nil {
		return
	}
	if !n.shouldSend(alert.ID, eventType, content) {
		return
	}
	if err := n.channel.Send(ctx, content); err != nil {
		return
	}
	n.markSent(alert.ID, eventType, content)
}

func (n *Notifier) scheduleEscalation(alertID uint64) {
	if n == nil || n.escalation <= 0 || alertID == 0 {
		return
	}
	n.mu.Lock()
	if existing, ok := n.timers[alertID]; ok && existing != nil {
		existing.Stop()
	}
	timer := time.AfterFunc(n.escalation, func() {
		n.runEscalation(alertID)
	})
	n.timers[alertID] = timer
	n.mu.Unlock()
}

func (n *Notifier) cancelEscalation(alertID uint64) {
	if n == nil || alertID == 0 {
		return
	}
	n.mu.Lock()
	timer := n.timers[alertID]
	delete(n.timers, alertID)
	n.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

func (n *Notifier) runEscalation(alertID uint64) {
	if n == nil || alertID == 0 {
		return
	}
	n.mu.Lock()
	delete(n.timers, alertID)
	n.mu.Unlock()

	ctx := context.Background()
	if n.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.requestTimeout)
		defer cancel()
	}

	alert, err := n.alerts.Get(ctx, alertID)
	if err != nil {
		return
	}
	if alert.Status == registry.AlertDelivered {
		return
	}
	n.dispatch(ctx, "escalated", alert)
}

func buildTemplateData(eventType string, alert registry.Alert, threat registry.Threat) TemplateData {
	createdAt := alert.CreatedAt
	if createdAt.IsZero() {
		createdAt = threat.CreatedAt
	}
	return TemplateData{
		AlertID:     alert.ID,
		ThreatID:    alert.ThreatID,
		ThreatType:  string(threat.Type),
		Severity:    alert.Severity,
		Message:     alert.Message,
		Location:    formatLocation(threat.LatitudeE6, threat.LongitudeE6),
		CreatedAt:   createdAt.UTC().Format(time.RFC3339),
		AlertStatus: string(alert.Status),
		Suggestion:  suggestionFor(alert.Severity),
		Event:       eventType,
		EventLabel:  eventLabel(eventType),
	}
}

func eventLabel(event string) string {
	switch event {
	case "emergency":
		return "Emergency"
	case "failed":
		return "Delivery Failed"
	case "escalated":
		return "Escalated"
	default:
		return event
	}
}

func suggestionFor(severity int) string {
	switch {
	case severity >= 5:
		return "Evacuate the affected area and engage emergency services."
	case severity >= 4:
		return "Investigate immediately and mitigate risk."
	case severity >= 3:
		return "Verify the condition and take action if needed."
	default:
		return "Monitor the situation."
	}
}

func formatLocation(latE6, lonE6 int64) string {
	return fmt.Sprintf("%.6f, %.6f", float64(latE6)/1e6, float64(lonE6)/1e6)
}

func (n *Notifier) shouldSend(alertID uint64, eventType, content string) bool {
	if n == nil {
		return false
	}
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	key := notificationKey(alertID, eventType)
	now := n.clock.Now().UTC()
	hash := hashContent(content)

	n.mu.Lock()
	record, ok := n.sent[key]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(alertID uint64, eventType, content string) {
	if n == nil {
		return
	}
	key := notificationKey(alertID, eventType)
	n.mu.Lock()
	n.sent[key] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func notificationKey(alertID uint64, eventType string) string {
	return fmt.Sprintf("%d|%s", alertID, eventType)
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
