package registry

import "errors"

// Authorization and referential errors.
var (
	ErrUnauthorized = errors.New("registry: unauthorized")
	ErrNotFound     = errors.New("registry: not found")
)

// State transition errors.
var (
	ErrStatusUnchanged = errors.New("registry: status unchanged")
	ErrAlreadyVerified = errors.New("registry: already verified")
)

// Input validation errors.
var (
	ErrInvalidThreatType  = errors.New("registry: invalid threat type")
	ErrInvalidStatus      = errors.New("registry: invalid status")
	ErrInvalidSeverity    = errors.New("registry: severity out of range")
	ErrInvalidConfidence  = errors.New("registry: confidence out of range")
	ErrEmptyDescription   = errors.New("registry: empty description")
	ErrEmptyDataHash      = errors.New("registry: empty data hash")
	ErrNegativePopulation = errors.New("registry: negative affected population")
	ErrEmptyMessage       = errors.New("registry: empty message")
	ErrMessageTooLong     = errors.New("registry: message too long")
	ErrNoChannels         = errors.New("registry: no channels")
	ErrInvalidChannel     = errors.New("registry: invalid channel")
	ErrNoRecipients       = errors.New("registry: no recipients")
	ErrTooManyRecipients  = errors.New("registry: too many recipients")
	ErrInvalidOffset      = errors.New("registry: negative offset")
	ErrInvalidLimit       = errors.New("registry: limit out of range")
	ErrInvalidThreshold   = errors.New("registry: threshold out of range")
	ErrInvalidPrincipal   = errors.New("registry: invalid principal")
	ErrInvalidRole        = errors.New("registry: invalid role")
)

// IsInvalidInput reports whether err belongs to the input validation class.
func IsInvalidInput(err error) bool {
	for _, candidate := range []error{
		ErrInvalidThreatType, ErrInvalidStatus, ErrInvalidSeverity, ErrInvalidConfidence,
		ErrEmptyDescription, ErrEmptyDataHash, ErrNegativePopulation,
		ErrEmptyMessage, ErrMessageTooLong, ErrNoChannels, ErrInvalidChannel,
		ErrNoRecipients, ErrTooManyRecipients, ErrInvalidOffset, ErrInvalidLimit,
		ErrInvalidThreshold, ErrInvalidPrincipal, ErrInvalidRole,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
