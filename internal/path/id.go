package path

import "github.com/google/uuid"

// NewPathID returns an opaque identifier for a shared path. A random UUID
// carries 122 bits of entropy, which makes a collision check against
// existing ids unnecessary.
func NewPathID() string {
	return uuid.New().String()
}
