package transport

import "time"

const (
	// DefaultInitialTimeout is the resend timeout used before any round trip
	// has been measured.
	DefaultInitialTimeout = 200 * time.Millisecond

	// DefaultMinTimeout is the floor of the adaptive resend timeout.
	DefaultMinTimeout = 20 * time.Millisecond

	// DefaultAutoPingInterval is the keepalive period.
	DefaultAutoPingInterval = time.Second

	// DefaultRateInterval is the network rate reporting period.
	DefaultRateInterval = time.Second

	// DefaultConnectionLostAfter is how long the link may stay silent before
	// it is reported lost.
	DefaultConnectionLostAfter = 3 * time.Second

	// DefaultQueueSize bounds the number of operations waiting for the loop.
	DefaultQueueSize = 256
)

// Config holds the tunables of a Transmitter.
type Config struct {
	// LocalAddr is the address Open binds to. Empty means any interface,
	// ephemeral port.
	LocalAddr string

	InitialTimeout time.Duration
	MinTimeout     time.Duration

	// AutoPing starts the keepalive as soon as the socket is attached.
	AutoPing         bool
	AutoPingInterval time.Duration

	RateInterval        time.Duration
	ConnectionLostAfter time.Duration

	QueueSize int
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		LocalAddr:           ":0",
		InitialTimeout:      DefaultInitialTimeout,
		MinTimeout:          DefaultMinTimeout,
		AutoPingInterval:    DefaultAutoPingInterval,
		RateInterval:        DefaultRateInterval,
		ConnectionLostAfter: DefaultConnectionLostAfter,
		QueueSize:           DefaultQueueSize,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LocalAddr == "" {
		c.LocalAddr = d.LocalAddr
	}
	if c.MinTimeout <= 0 {
		c.MinTimeout = d.MinTimeout
	}
	if c.InitialTimeout <= 0 {
		c.InitialTimeout = d.InitialTimeout
	}
	if c.InitialTimeout < c.MinTimeout {
		c.InitialTimeout = c.MinTimeout
	}
	if c.AutoPingInterval <= 0 {
		c.AutoPingInterval = d.AutoPingInterval
	}
	if c.RateInterval <= 0 {
		c.RateInterval = d.RateInterval
	}
	if c.ConnectionLostAfter <= 0 {
		c.ConnectionLostAfter = d.ConnectionLostAfter
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	return c
}
