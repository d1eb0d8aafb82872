package transport

import "errors"

var (
	// ErrUnknownType indicates a valid frame arrived for a type without a handler.
	ErrUnknownType = errors.New("no handler for message type")

	// ErrUnmatchedAck indicates an ACK named a type with no outstanding message.
	// Duplicate and late ACKs produce it after a slot has already closed.
	ErrUnmatchedAck = errors.New("ack without outstanding message")

	// ErrDisplaced indicates a pending high priority message was replaced by a
	// newer message of the same type before it was acknowledged.
	ErrDisplaced = errors.New("pending message displaced")

	// ErrSocket wraps bind, send and receive failures.
	ErrSocket = errors.New("socket error")

	// ErrNotOpen indicates an operation that needs an open socket.
	ErrNotOpen = errors.New("transmitter not open")

	// ErrClosed indicates the transmitter has been shut down.
	ErrClosed = errors.New("transmitter closed")

	// ErrReservedType indicates an attempt to replace the ACK handler.
	ErrReservedType = errors.New("message type handler is reserved")

	// ErrNilMessage indicates Send was called without a message.
	ErrNilMessage = errors.New("message is nil")
)
