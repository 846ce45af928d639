package memory

import (
	"sync"
	"time"

	registry "ocean-sentinel/internal/registry/domain"
)

// ThreatStore is the in-memory threat ledger: the primary record map plus
// every derived index. A single mutex serializes writers so each mutation
// lands on the records, the counters and the indices in one step.
type ThreatStore struct {
	mu          sync.RWMutex
	nextID      uint64
	records     map[uint64]*registry.Threat
	order       []uint64
	statusCount map[registry.ThreatStatus]uint64
	typeCount   map[registry.ThreatType]uint64
	active      []uint64
	activePos   map[uint64]int
}

// NewThreatStore constructs an empty threat store.
func NewThreatStore() *ThreatStore {
	return &ThreatStore{
		nextID:      1,
		records:     make(map[uint64]*registry.Threat),
		statusCount: make(map[registry.ThreatStatus]uint64),
		typeCount:   make(map[registry.ThreatType]uint64),
		activePos:   make(map[uint64]int),
	}
}

// Insert assigns the next ID and stores the threat with all indices updated.
// The caller supplies a validated record with Status set to ThreatActive.
func (s *ThreatStore) Insert(threat registry.Threat) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	threat.ID = s.nextID
	s.nextID++

	stored := threat
	s.records[stored.ID] = &stored
	s.order = append(s.order, stored.ID)
	s.statusCount[stored.Status]++
	s.typeCount[stored.Type]++
	if stored.Status == registry.ThreatActive {
		s.appendActiveLocked(stored.ID)
	}
	return stored.ID
}

// All returns copies of every threat in registration order.
func (s *ThreatStore) All() []registry.Threat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]registry.Threat, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out
}

// Get returns a copy of the threat.
func (s *ThreatStore) Get(id uint64) (registry.Threat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return registry.Threat{}, registry.ErrNotFound
	}
	return *record, nil
}

// UpdateStatus moves the threat to newStatus, keeping counters and the active
// set consistent. Setting the current status again is rejected.
func (s *ThreatStore) UpdateStatus(id uint64, newStatus registry.ThreatStatus) (registry.ThreatStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return "", registry.ErrNotFound
	}
	if record.Status == newStatus {
		return "", registry.ErrStatusUnchanged
	}
	old := record.Status
	s.applyStatusLocked(record, newStatus)
	return old, nil
}

// VerifyResult reports the outcome of a verification.
type VerifyResult struct {
	Threat        registry.Threat
	StatusChanged bool
	OldStatus     registry.ThreatStatus
}

// Verify marks the threat verified exactly once. When the verdict is not
// legitimate and the threat is still active, it takes the same transition to
// false_positive that UpdateStatus would, in the same atomic step.
func (s *ThreatStore) Verify(id uint64, verifier registry.Principal, at time.Time, legitimate bool) (VerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return VerifyResult{}, registry.ErrNotFound
	}
	if record.Verified {
		return VerifyResult{}, registry.ErrAlreadyVerified
	}

	record.Verified = true
	record.Verifier = verifier
	record.VerifiedAt = at

	result := VerifyResult{OldStatus: record.Status}
	if !legitimate && record.Status == registry.ThreatActive {
		s.applyStatusLocked(record, registry.ThreatFalsePositive)
		result.StatusChanged = true
	}
	result.Threat = *record
	return result, nil
}

// ListActive pages over the active-set index in insertion order.
func (s *ThreatStore) ListActive(offset, limit int) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pageForward(s.active, offset, limit)
}

// ListByType pages over all threats of the given type in registration order.
// Full linear scan over the ledger by design.
func (s *ThreatStore) ListByType(threatType registry.ThreatType, offset, limit int) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []uint64
	for _, id := range s.order {
		if s.records[id].Type == threatType {
			matched = append(matched, id)
		}
	}
	return pageForward(matched, offset, limit)
}

// ListBySeverity pages over all threats with severity >= minSeverity in
// registration order.
func (s *ThreatStore) ListBySeverity(minSeverity, offset, limit int) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []uint64
	for _, id := range s.order {
		if s.records[id].Severity >= minSeverity {
			matched = append(matched, id)
		}
	}
	return pageForward(matched, offset, limit)
}

// Stats reads the counters; the verified count is a full scan.
func (s *ThreatStore) Stats() registry.ThreatStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var verified uint64
	for _, record := range s.records {
		if record.Verified {
			verified++
		}
	}
	return registry.ThreatStats{
		Total:    uint64(len(s.order)),
		Active:   s.statusCount[registry.ThreatActive],
		Resolved: s.statusCount[registry.ThreatResolved],
		Verified: verified,
	}
}

// applyStatusLocked moves record to newStatus and maintains the per-status
// counters and the active set. Caller holds the write lock.
func (s *ThreatStore) applyStatusLocked(record *registry.Threat, newStatus registry.ThreatStatus) {
	old := record.Status
	s.statusCount[old]--
	s.statusCount[newStatus]++
	if old == registry.ThreatActive {
		s.removeActiveLocked(record.ID)
	}
	if newStatus == registry.ThreatActive {
		s.appendActiveLocked(record.ID)
	}
	record.Status = newStatus
}

func (s *ThreatStore) appendActiveLocked(id uint64) {
	s.activePos[id] = len(s.active)
	s.active = append(s.active, id)
}

// removeActiveLocked removes id with swap-with-last-and-truncate; the order
// of the active set is not significant.
func (s *ThreatStore) removeActiveLocked(id uint64) {
	pos, ok := s.activePos[id]
	if !ok {
		return
	}
	last := len(s.active) - 1
	moved := s.active[last]
	s.active[pos] = moved
	s.activePos[moved] = pos
	s.active = s.active[:last]
	delete(s.activePos, id)
}

// pageForward slices ids at offset in original order, truncated to the
// available length. An offset beyond the end yields an empty page.
func pageForward(ids []uint64, offset, limit int) []uint64 {
	if offset >= len(ids) {
		return nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	page := make([]uint64, end-offset)
	copy(page, ids[offset:end])
	return page
}

// pageReverse slices ids at offset counting from the newest entry backwards.
func pageReverse(ids []uint64, offset, limit int) []uint64 {
	if offset >= len(ids) {
		return nil
	}
	start := len(ids) - 1 - offset
	var page []uint64
	for i := start; i >= 0 && len(page) < limit; i-- {
		page = append(page, ids[i])
	}
	return page
}
