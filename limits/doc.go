// Package limits provides centralized frame size constants and validation functions
// for the vehicle link protocol.
//
// # Datagram Bounds
//
// Every frame travels in exactly one UDP datagram; there is no fragmentation or
// reassembly. The limits are:
//
//   - MinFrame (1 byte): a frame always carries at least its type tag.
//
//   - MaxDatagram (1472 bytes): the largest UDP payload that fits an Ethernet MTU
//     without IP fragmentation. Variable-length frames (media, debug text) are
//     bounded by this value.
//
//   - UDPOverhead (28 bytes): IPv4 and UDP header bytes, used when reporting
//     total network rates next to payload rates.
//
// # Validation Functions
//
//	err := limits.ValidateDatagram(frame)
//	if err != nil {
//	    // ErrFrameEmpty or ErrFrameTooLarge
//	}
//
// For custom size limits, use the generic ValidateFrameSize function:
//
//	err := limits.ValidateFrameSize(data, 512)
package limits
