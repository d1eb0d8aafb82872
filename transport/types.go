package transport

import (
	"time"

	"github.com/opd-ai/rovlink/message"
)

// Handler processes a received message. Handlers run on the transmitter loop
// and must not block. Sending from a handler blocks once the operation queue
// is full, so replies belong on another goroutine. A returned error is
// reported as a warning.
type Handler func(msg *message.Message) error

// Link defines the operations collaborators use to talk to the remote end.
// Transmitter satisfies it; tests substitute recording fakes.
type Link interface {
	// Send writes a message; high priority messages are resent until acked.
	Send(msg *message.Message) error

	// SendValue sends a high priority subtype/value pair.
	SendValue(sub message.Subtype, value uint16) error

	// SendPeriodicValue sends a best-effort subtype/value pair.
	SendPeriodicValue(sub message.Subtype, value uint16) error

	// EnableAutoPing starts or stops the keepalive.
	EnableAutoPing(enable bool) error

	// RegisterHandler registers a handler for a message type.
	RegisterHandler(msgType message.Type, handler Handler) error

	// Close shuts down the link.
	Close() error
}

// Snapshot is a consistent view of the engine state taken on the loop.
type Snapshot struct {
	Timeout  time.Duration
	Pending  []message.Type
	Resends  uint32
	Status   ConnectionStatus
	AutoPing bool
}
