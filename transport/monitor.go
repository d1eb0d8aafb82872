package transport

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/rovlink/limits"
)

// linkMonitor accumulates traffic counters and tracks the connection status.
// It is loop-owned state.
type linkMonitor struct {
	payloadRx, totalRx int
	payloadTx, totalTx int

	status    ConnectionStatus
	lastFrame time.Time
	timer     *clock.Timer
}

func (m *linkMonitor) reset(now time.Time) {
	*m = linkMonitor{lastFrame: now}
}

func (m *linkMonitor) received(n int) {
	m.payloadRx += n
	m.totalRx += limits.WireSize(n)
}

func (m *linkMonitor) sent(n int) {
	m.payloadTx += n
	m.totalTx += limits.WireSize(n)
}

// rate converts the counters to bytes per second and zeroes them.
func (m *linkMonitor) rate(interval time.Duration) NetworkRate {
	perSecond := func(n int) int {
		return int(int64(n) * int64(time.Second) / int64(interval))
	}
	r := NetworkRate{
		PayloadRx: perSecond(m.payloadRx),
		TotalRx:   perSecond(m.totalRx),
		PayloadTx: perSecond(m.payloadTx),
		TotalTx:   perSecond(m.totalTx),
	}
	m.payloadRx, m.totalRx, m.payloadTx, m.totalTx = 0, 0, 0, 0
	return r
}

func (m *linkMonitor) stop() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// frameReceived records a valid frame and restores the connection status.
func (t *Transmitter) frameReceived() {
	t.monitor.lastFrame = t.clock.Now()
	if t.monitor.status != StatusOK {
		t.setStatus(StatusOK)
	}
}

func (t *Transmitter) setStatus(status ConnectionStatus) {
	t.log.WithFields(logrus.Fields{
		"function": "setStatus",
		"previous": t.monitor.status.String(),
		"status":   status.String(),
	}).Info("Connection status changed")

	t.monitor.status = status
	if t.events.OnConnectionStatus != nil {
		t.events.OnConnectionStatus(status)
	}
}

func (t *Transmitter) scheduleRateTick() {
	t.monitor.timer = t.schedule(t.config.RateInterval, t.rateTick)
}

// rateTick reports the network rate and declares the link lost when no valid
// frame arrived for ConnectionLostAfter.
func (t *Transmitter) rateTick() {
	if t.monitor.timer == nil {
		return
	}

	rate := t.monitor.rate(t.config.RateInterval)
	if t.events.OnNetworkRate != nil {
		t.events.OnNetworkRate(rate)
	}

	silent := t.clock.Since(t.monitor.lastFrame)
	if t.monitor.status != StatusLost && silent >= t.config.ConnectionLostAfter {
		t.setStatus(StatusLost)
	}

	t.scheduleRateTick()
}
