package eventing

import (
	"crypto/rand"
	"fmt"
)

// NewEventID returns a random identifier in UUIDv4 form. IDs are opaque;
// the format only needs to be collision-resistant and greppable in logs.
func NewEventID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", buf[0:4], buf[4:6], buf[6:8], buf[8:10], buf[10:16])
}

func newEventID() string {
	return NewEventID()
}
