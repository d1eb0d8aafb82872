package transport

import (
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/rovlink/message"
)

// autoPing is the keepalive schedule. It is loop-owned state.
type autoPing struct {
	enabled    bool
	timer      *clock.Timer
	generation uint64
}

// EnableAutoPing starts or stops sending a PING every AutoPingInterval. Pings
// are high priority, so they keep sampling the round trip time and tuning the
// resend timeout while no other traffic flows.
func (t *Transmitter) EnableAutoPing(enable bool) error {
	return t.post(func() {
		t.setAutoPing(enable)
	})
}

func (t *Transmitter) setAutoPing(enable bool) {
	t.stopAutoPing()
	t.autoPing.enabled = enable
	if enable {
		t.scheduleAutoPing()
	}

	t.log.WithFields(logrus.Fields{
		"function": "setAutoPing",
		"enabled":  enable,
		"interval": t.config.AutoPingInterval,
	}).Debug("Auto ping changed")
}

func (t *Transmitter) stopAutoPing() {
	if t.autoPing.timer != nil {
		t.autoPing.timer.Stop()
		t.autoPing.timer = nil
	}
	t.autoPing.generation++
	t.autoPing.enabled = false
}

func (t *Transmitter) scheduleAutoPing() {
	gen := t.autoPing.generation
	t.autoPing.timer = t.schedule(t.config.AutoPingInterval, func() {
		t.autoPingTick(gen)
	})
}

func (t *Transmitter) autoPingTick(gen uint64) {
	if !t.autoPing.enabled || t.autoPing.generation != gen {
		return
	}
	t.send(message.NewPing())
	t.scheduleAutoPing()
}
