// Package limits provides centralized datagram size limits for the link protocol.
// This ensures consistent validation across the codec and the transmitter.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxDatagram is the largest frame that fits one UDP datagram on an
	// Ethernet MTU without IP fragmentation (1500 - 20 IPv4 - 8 UDP).
	MaxDatagram = 1472

	// MinFrame is the smallest valid frame: a bare type tag.
	MinFrame = 1

	// UDPOverhead is the IPv4 + UDP header size added to every datagram on the wire.
	// It is used to report total (on-the-wire) byte rates next to payload rates.
	UDPOverhead = 28

	// ReadBuffer is the size of the receive buffer. It is larger than MaxDatagram
	// so oversized datagrams are detected instead of silently truncated.
	ReadBuffer = 2048
)

var (
	// ErrFrameEmpty indicates an empty frame was provided
	ErrFrameEmpty = errors.New("empty frame")

	// ErrFrameTooLarge indicates a frame exceeds the datagram limit
	ErrFrameTooLarge = errors.New("frame too large")
)

// ValidateFrameSize validates a frame against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateFrameSize(frame []byte, maxSize int) error {
	if len(frame) < MinFrame {
		return ErrFrameEmpty
	}
	if len(frame) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFrameTooLarge, len(frame), maxSize)
	}
	return nil
}

// ValidateDatagram validates a frame against MaxDatagram.
func ValidateDatagram(frame []byte) error {
	return ValidateFrameSize(frame, MaxDatagram)
}

// WireSize returns the number of bytes a datagram of n payload bytes occupies on the wire.
func WireSize(n int) int {
	return n + UDPOverhead
}
