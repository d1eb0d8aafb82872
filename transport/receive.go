package transport

import (
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/rovlink/message"
)

// handleDatagram implements the inbound half of the delivery state machine:
// validate, acknowledge high priority frames, then dispatch.
func (t *Transmitter) handleDatagram(data []byte, from net.Addr) {
	t.monitor.received(len(data))

	if t.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		t.log.WithFields(logrus.Fields{
			"function": "handleDatagram",
			"from":     addrString(from),
			"data":     hex.EncodeToString(data),
		}).Trace("Datagram received")
	}

	msg, err := message.Decode(data)
	if err != nil {
		t.warn(fmt.Errorf("from %s: %w", addrString(from), err))
		return
	}

	t.frameReceived()

	// The ACK itself is never high priority, so acks are not acked.
	if msg.HighPriority() {
		t.send(message.NewACK(msg.Type()))
	}

	t.dispatch(msg)
}

// dispatch invokes the registered handler for the message type.
func (t *Transmitter) dispatch(msg *message.Message) {
	handler, ok := t.handler(msg.Type())
	if !ok {
		t.warn(fmt.Errorf("%w: %s", ErrUnknownType, msg.Type()))
		return
	}

	if err := handler(msg); err != nil {
		t.warn(fmt.Errorf("%s handler: %w", msg.Type(), err))
	}
}

// handleAck closes the slot named by an ACK, measures the round trip and
// adapts the shared resend timeout.
func (t *Transmitter) handleAck(msg *message.Message) error {
	acked, err := msg.AckedType()
	if err != nil {
		return err
	}

	slot := t.slots.get(acked)
	if slot.state != slotAwaitingAck {
		return fmt.Errorf("%w: %s", ErrUnmatchedAck, acked)
	}

	rtt := t.clock.Since(slot.started).Truncate(time.Millisecond)
	slot.clear()

	previous := t.timeout
	t.timeout = adaptTimeout(t.timeout, rtt, t.config.MinTimeout)

	t.log.WithFields(logrus.Fields{
		"function": "handleAck",
		"type":     acked.String(),
		"rtt":      rtt,
		"previous": previous,
		"timeout":  t.timeout,
	}).Debug("Message acknowledged")

	if t.events.OnRoundTrip != nil {
		t.events.OnRoundTrip(rtt)
	}
	if t.events.OnTimeoutAdapted != nil {
		t.events.OnTimeoutAdapted(t.timeout)
	}
	return nil
}

// handlePing exists so pings are not reported as unhandled; the implicit ACK
// is all a ping needs.
func (t *Transmitter) handlePing(*message.Message) error {
	return nil
}

// handleStats converts the STATS samples to their natural units.
func (t *Transmitter) handleStats(msg *message.Message) error {
	stats, err := msg.Stats()
	if err != nil {
		return err
	}

	if t.events.OnUptime != nil {
		t.events.OnUptime(stats.Uptime())
	}
	if t.events.OnLoadAvg != nil {
		t.events.OnLoadAvg(stats.LoadAvg())
	}
	if t.events.OnWlan != nil {
		t.events.OnWlan(stats.Wlan())
	}
	return nil
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return "<nil>"
	}
	return addr.String()
}
