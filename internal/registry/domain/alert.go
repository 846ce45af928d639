package registry

import "time"

// AlertStatus tracks the delivery lifecycle of an alert.
type AlertStatus string

const (
	AlertPending   AlertStatus = "pending"
	AlertSent      AlertStatus = "sent"
	AlertDelivered AlertStatus = "delivered"
	AlertFailed    AlertStatus = "failed"
)

// AlertStatuses lists every alert status in a stable order.
var AlertStatuses = []AlertStatus{AlertPending, AlertSent, AlertDelivered, AlertFailed}

// Valid returns true when the status is a known alert status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertPending, AlertSent, AlertDelivered, AlertFailed:
		return true
	default:
		return false
	}
}

// Channel is a delivery channel tag.
type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Valid returns true when the channel is supported.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelEmail, ChannelSMS, ChannelPush:
		return true
	default:
		return false
	}
}

// Bounds on alert payload collections.
const (
	MaxMessageLength = 1000
	MaxRecipients    = 1000
)

// RecentWindowSize bounds the most-recently-created alert index.
const RecentWindowSize = 1000

// Alert is a notification record tied to a threat. IsEmergency is computed
// once at creation from the threshold in force and never changes afterwards.
type Alert struct {
	ID            uint64      `json:"id"`
	ThreatID      uint64      `json:"threat_id"`
	Message       string      `json:"message"`
	Severity      int         `json:"severity"`
	Channels      []Channel   `json:"channels"`
	Recipients    []string    `json:"recipients"`
	Sender        Principal   `json:"sender"`
	CreatedAt     time.Time   `json:"created_at"`
	Status        AlertStatus `json:"status"`
	DeliveredAt   time.Time   `json:"delivered_at,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	IsEmergency   bool        `json:"is_emergency"`
}

// AlertInput carries the caller-supplied fields of a new alert.
// Referential integrity of ThreatID is the caller's responsibility.
type AlertInput struct {
	ThreatID   uint64
	Message    string
	Severity   int
	Channels   []Channel
	Recipients []string
}

// Validate checks creation invariants.
func (in AlertInput) Validate() error {
	if in.Message == "" {
		return ErrEmptyMessage
	}
	if len(in.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if in.Severity < MinSeverity || in.Severity > MaxSeverity {
		return ErrInvalidSeverity
	}
	if len(in.Channels) == 0 {
		return ErrNoChannels
	}
	for _, channel := range in.Channels {
		if !channel.Valid() {
			return ErrInvalidChannel
		}
	}
	if len(in.Recipients) == 0 {
		return ErrNoRecipients
	}
	if len(in.Recipients) > MaxRecipients {
		return ErrTooManyRecipients
	}
	return nil
}

// AlertStats summarizes the alert registry.
type AlertStats struct {
	Total           uint64        `json:"total"`
	Successful      uint64        `json:"successful"`
	Failed          uint64        `json:"failed"`
	EmergencyCount  uint64        `json:"emergency_count"`
	AvgDeliveryTime time.Duration `json:"avg_delivery_time"`
}
