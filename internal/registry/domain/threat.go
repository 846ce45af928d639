package registry

import "time"

// ThreatType classifies a detected environmental hazard.
type ThreatType string

const (
	ThreatStorm          ThreatType = "storm"
	ThreatPollution      ThreatType = "pollution"
	ThreatErosion        ThreatType = "erosion"
	ThreatAlgalBloom     ThreatType = "algal_bloom"
	ThreatIllegalDumping ThreatType = "illegal_dumping"
	ThreatAnomaly        ThreatType = "anomaly"
)

// ThreatStatus tracks the investigation lifecycle of a threat.
type ThreatStatus string

const (
	ThreatActive        ThreatStatus = "active"
	ThreatInvestigating ThreatStatus = "investigating"
	ThreatResolved      ThreatStatus = "resolved"
	ThreatFalsePositive ThreatStatus = "false_positive"
)

// ThreatStatuses lists every threat status in a stable order.
var ThreatStatuses = []ThreatStatus{ThreatActive, ThreatInvestigating, ThreatResolved, ThreatFalsePositive}

// Valid returns true when the type is a known threat type.
func (t ThreatType) Valid() bool {
	switch t {
	case ThreatStorm, ThreatPollution, ThreatErosion, ThreatAlgalBloom, ThreatIllegalDumping, ThreatAnomaly:
		return true
	default:
		return false
	}
}

// Valid returns true when the status is a known threat status.
func (s ThreatStatus) Valid() bool {
	switch s {
	case ThreatActive, ThreatInvestigating, ThreatResolved, ThreatFalsePositive:
		return true
	default:
		return false
	}
}

// Threat is a recorded environmental hazard. The core fields are immutable
// after registration; only Status and the verification fields mutate.
type Threat struct {
	ID                 uint64       `json:"id"`
	Type               ThreatType   `json:"type"`
	Severity           int          `json:"severity"`
	Confidence         int          `json:"confidence"`
	LatitudeE6         int64        `json:"latitude_e6"`
	LongitudeE6        int64        `json:"longitude_e6"`
	Description        string       `json:"description"`
	Reporter           Principal    `json:"reporter"`
	CreatedAt          time.Time    `json:"created_at"`
	Status             ThreatStatus `json:"status"`
	DataHash           string       `json:"data_hash"`
	AffectedPopulation int64        `json:"affected_population"`
	Verified           bool         `json:"verified"`
	Verifier           Principal    `json:"verifier,omitempty"`
	VerifiedAt         time.Time    `json:"verified_at,omitempty"`
}

// ThreatInput carries the caller-supplied fields of a new threat.
type ThreatInput struct {
	Type               ThreatType
	Severity           int
	Confidence         int
	LatitudeE6         int64
	LongitudeE6        int64
	Description        string
	DataHash           string
	AffectedPopulation int64
}

// Validate checks registration invariants.
func (in ThreatInput) Validate() error {
	if !in.Type.Valid() {
		return ErrInvalidThreatType
	}
	if in.Severity < MinSeverity || in.Severity > MaxSeverity {
		return ErrInvalidSeverity
	}
	if in.Confidence < 0 || in.Confidence > 100 {
		return ErrInvalidConfidence
	}
	if in.Description == "" {
		return ErrEmptyDescription
	}
	if in.DataHash == "" {
		return ErrEmptyDataHash
	}
	if in.AffectedPopulation < 0 {
		return ErrNegativePopulation
	}
	return nil
}

// ThreatStats summarizes the threat registry.
type ThreatStats struct {
	Total    uint64 `json:"total"`
	Active   uint64 `json:"active"`
	Resolved uint64 `json:"resolved"`
	Verified uint64 `json:"verified"`
}

// Severity bounds shared by threats and alerts.
const (
	MinSeverity = 1
	MaxSeverity = 5
)

// Pagination bounds for list queries.
const (
	MinPageLimit = 1
	MaxPageLimit = 100
)

// ValidatePage checks offset/limit bounds for list queries.
func ValidatePage(offset, limit int) error {
	if offset < 0 {
		return ErrInvalidOffset
	}
	if limit < MinPageLimit || limit > MaxPageLimit {
		return ErrInvalidLimit
	}
	return nil
}
