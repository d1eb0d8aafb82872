package transport

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/opd-ai/rovlink/message"
)

// slotState is the delivery state of one message type.
type slotState int

const (
	slotIdle slotState = iota
	slotAwaitingAck
)

func (s slotState) String() string {
	if s == slotAwaitingAck {
		return "awaiting-ack"
	}
	return "idle"
}

// deliverySlot tracks the single outstanding high priority message of one type.
// Only the transmitter loop touches it.
type deliverySlot struct {
	state   slotState
	pending *message.Message
	timer   *clock.Timer
	// generation invalidates resend callbacks scheduled before the last
	// rearm or clear.
	generation uint64
	// started is the round trip stopwatch. It runs from the first send after
	// Idle and is not restarted by overwrites or resends.
	started time.Time
	// resends counts resends of the current delivery.
	resends int
}

// hold stores msg as the pending message and reports the message it displaced.
func (s *deliverySlot) hold(msg *message.Message, now time.Time) (displaced *message.Message) {
	if s.state == slotAwaitingAck {
		displaced = s.pending
	} else {
		s.state = slotAwaitingAck
		s.started = now
		s.resends = 0
	}
	s.pending = msg
	return displaced
}

// stopTimer cancels the resend timer and invalidates callbacks already in flight.
func (s *deliverySlot) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

// clear cancels the timer, drops the pending message and returns to Idle.
func (s *deliverySlot) clear() {
	s.stopTimer()
	s.pending = nil
	s.started = time.Time{}
	s.resends = 0
	s.state = slotIdle
}

// slotTable holds one slot per message type, indexed by the type tag.
type slotTable [message.TypeCount]deliverySlot

func (st *slotTable) get(t message.Type) *deliverySlot {
	return &st[t]
}

// pending lists the types currently awaiting an ACK.
func (st *slotTable) pending() []message.Type {
	var out []message.Type
	for i := range st {
		if st[i].state == slotAwaitingAck {
			out = append(out, message.Type(i))
		}
	}
	return out
}

// clearAll releases every slot.
func (st *slotTable) clearAll() {
	for i := range st {
		st[i].clear()
	}
}
