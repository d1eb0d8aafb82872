package transport

import "time"

// ConnectionStatus describes whether frames are arriving from the remote end.
type ConnectionStatus int

const (
	// StatusUnknown is the state before the first valid frame.
	StatusUnknown ConnectionStatus = iota
	// StatusOK means valid frames arrived recently.
	StatusOK
	// StatusLost means no valid frame arrived for Config.ConnectionLostAfter.
	StatusLost
)

// String returns the status name.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusLost:
		return "lost"
	default:
		return "unknown"
	}
}

// NetworkRate reports bytes per second over the last rate interval. Payload
// counts UDP payload bytes, Total adds the IP and UDP headers.
type NetworkRate struct {
	PayloadRx int
	TotalRx   int
	PayloadTx int
	TotalTx   int
}

// Events holds the optional callbacks a Transmitter invokes. All callbacks run
// on the transmitter loop and must not block; a slow callback stalls the link.
type Events struct {
	// OnRoundTrip receives the time from the first send of a high priority
	// message to its ACK, including any resends.
	OnRoundTrip func(rtt time.Duration)

	// OnTimeoutAdapted receives the initial resend timeout when the link
	// opens and the new one after each adaptation.
	OnTimeoutAdapted func(timeout time.Duration)

	// OnResent receives the cumulative number of resent frames.
	OnResent func(total uint32)

	// OnSocketError receives bind, send and receive failures wrapped in ErrSocket.
	OnSocketError func(err error)

	// OnWarning receives non-fatal protocol anomalies: message.ErrInvalidFrame,
	// ErrUnknownType, ErrUnmatchedAck, ErrDisplaced and handler failures.
	OnWarning func(err error)

	// OnUptime, OnLoadAvg and OnWlan receive the decoded STATS samples.
	OnUptime  func(uptime time.Duration)
	OnLoadAvg func(avg float64)
	OnWlan    func(percent int)

	OnNetworkRate      func(rate NetworkRate)
	OnConnectionStatus func(status ConnectionStatus)
}
