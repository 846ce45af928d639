package memory

import (
	"sync"
	"time"

	registry "ocean-sentinel/internal/registry/domain"
)

// AlertStore is the in-memory alert ledger. Like ThreatStore it keeps the
// primary map and every derived index consistent under one mutex, including
// the bounded recent window and the append-only emergency list. The emergency
// threshold lives here so classification is decided under the same lock that
// commits the record.
type AlertStore struct {
	mu          sync.RWMutex
	nextID      uint64
	records     map[uint64]*registry.Alert
	order       []uint64
	statusCount map[registry.AlertStatus]uint64
	emergency   []uint64
	recent      []uint64
	byThreat    map[uint64][]uint64
	threshold   int
}

// DefaultEmergencyThreshold is the severity at which alerts classify as
// emergencies unless the owner configures otherwise.
const DefaultEmergencyThreshold = 4

// NewAlertStore constructs an empty alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		nextID:      1,
		records:     make(map[uint64]*registry.Alert),
		statusCount: make(map[registry.AlertStatus]uint64),
		byThreat:    make(map[uint64][]uint64),
		threshold:   DefaultEmergencyThreshold,
	}
}

// Insert assigns the next ID, classifies the alert against the threshold in
// force and updates every index. The recent window evicts its oldest entry
// once full. Returns the new ID and the emergency classification.
func (s *AlertStore) Insert(alert registry.Alert) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert.ID = s.nextID
	s.nextID++
	alert.Status = registry.AlertPending
	alert.IsEmergency = alert.Severity >= s.threshold

	stored := copyAlert(&alert)
	s.records[stored.ID] = &stored
	s.order = append(s.order, stored.ID)
	s.statusCount[registry.AlertPending]++
	s.byThreat[stored.ThreatID] = append(s.byThreat[stored.ThreatID], stored.ID)
	if len(s.recent) == registry.RecentWindowSize {
		s.recent = append(s.recent[1:], stored.ID)
	} else {
		s.recent = append(s.recent, stored.ID)
	}
	if stored.IsEmergency {
		s.emergency = append(s.emergency, stored.ID)
	}
	return stored.ID, stored.IsEmergency
}

// Get returns a copy of the alert.
func (s *AlertStore) Get(id uint64) (registry.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return registry.Alert{}, registry.ErrNotFound
	}
	return copyAlert(record), nil
}

// StatusResult reports the outcome of a status transition.
type StatusResult struct {
	Alert     registry.Alert
	OldStatus registry.AlertStatus
}

// UpdateStatus moves the alert to newStatus. A transition into failed stores
// failureReason; a transition into delivered stamps deliveredAt. Setting the
// current status again is rejected.
func (s *AlertStore) UpdateStatus(id uint64, newStatus registry.AlertStatus, failureReason string, now time.Time) (StatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return StatusResult{}, registry.ErrNotFound
	}
	if record.Status == newStatus {
		return StatusResult{}, registry.ErrStatusUnchanged
	}

	old := record.Status
	s.statusCount[old]--
	s.statusCount[newStatus]++
	record.Status = newStatus
	switch newStatus {
	case registry.AlertFailed:
		record.FailureReason = failureReason
	case registry.AlertDelivered:
		record.DeliveredAt = now
	}
	return StatusResult{Alert: copyAlert(record), OldStatus: old}, nil
}

// ForThreat returns the full adjacency list for a threat in creation order.
func (s *AlertStore) ForThreat(threatID uint64) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byThreat[threatID]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// ListRecent pages over the bounded recent window, most recent first.
func (s *AlertStore) ListRecent(offset, limit int) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pageReverse(s.recent, offset, limit)
}

// ListEmergency pages over the emergency index, most recent first.
func (s *AlertStore) ListEmergency(offset, limit int) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pageReverse(s.emergency, offset, limit)
}

// ListByStatus scans the ledger for alerts in the given status, most recent
// first.
func (s *AlertStore) ListByStatus(status registry.AlertStatus, offset, limit int) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []uint64
	for _, id := range s.order {
		if s.records[id].Status == status {
			matched = append(matched, id)
		}
	}
	return pageReverse(matched, offset, limit)
}

// SetEmergencyThreshold changes the classification threshold for alerts
// created after the call. Existing classifications are untouched.
func (s *AlertStore) SetEmergencyThreshold(value int) error {
	if value < registry.MinSeverity || value > registry.MaxSeverity {
		return registry.ErrInvalidThreshold
	}
	s.mu.Lock()
	s.threshold = value
	s.mu.Unlock()
	return nil
}

// EmergencyThreshold returns the threshold currently in force.
func (s *AlertStore) EmergencyThreshold() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// Stats reads the counters; the average delivery time is a scan over
// delivered alerts (zero when none delivered).
func (s *AlertStore) Stats() registry.AlertStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total time.Duration
	var delivered int64
	for _, record := range s.records {
		if record.Status == registry.AlertDelivered && !record.DeliveredAt.IsZero() {
			total += record.DeliveredAt.Sub(record.CreatedAt)
			delivered++
		}
	}
	var avg time.Duration
	if delivered > 0 {
		avg = total / time.Duration(delivered)
	}
	return registry.AlertStats{
		Total:           uint64(len(s.order)),
		Successful:      s.statusCount[registry.AlertDelivered],
		Failed:          s.statusCount[registry.AlertFailed],
		EmergencyCount:  uint64(len(s.emergency)),
		AvgDeliveryTime: avg,
	}
}

// copyAlert deep-copies an alert so readers never alias store slices.
func copyAlert(record *registry.Alert) registry.Alert {
	out := *record
	out.Channels = append([]registry.Channel(nil), record.Channels...)
	out.Recipients = append([]string(nil), record.Recipients...)
	return out
}
