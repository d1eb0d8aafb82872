package transport

import "time"

// adaptTimeout derives the next resend timeout from a round trip sample.
// A timeout comfortably above twice the round trip decays by 10 %; otherwise
// it jumps to twice the round trip. The result never drops below floor.
func adaptTimeout(current, rtt, floor time.Duration) time.Duration {
	if 2*rtt < current {
		current -= current / 10
	} else {
		current = 2 * rtt
	}
	if current < floor {
		current = floor
	}
	return current
}
