// Package transport implements the reliable delivery engine of the vehicle
// link: a UDP endpoint that frames messages, acknowledges and resends high
// priority messages, measures round trip times and adapts its resend timeout.
//
// # Architecture
//
// A Transmitter owns one net.PacketConn, a delivery slot per message type and
// a single resend timeout shared by every type. One loop goroutine owns all of
// that state. The socket reader and the timers never touch it; they post work
// to the loop, so no engine state needs a lock:
//
//	tx := transport.New(
//	    transport.WithConfig(cfg),
//	    transport.WithEvents(transport.Events{
//	        OnRoundTrip: func(rtt time.Duration) { ... },
//	    }),
//	)
//	if err := tx.Open("vehicle.local", 8500); err != nil {
//	    log.Fatal(err)
//	}
//	defer tx.Close()
//
//	tx.EnableAutoPing(true)
//	tx.SendValue(message.SubtypeEnableVideo, 1)
//
// # Delivery
//
// Best-effort messages are written once. A high priority message is written
// and kept in its type's slot; the slot's timer resends the identical bytes
// every timeout until the matching ACK arrives. Only the latest message of a
// type is tracked: sending a new one replaces the pending one, which then has
// no delivery guarantee.
//
// The round trip stopwatch starts at the first send after the slot was idle and
// is not restarted by resends. On ACK the timeout decays by 10 % when twice the
// round trip is below it, otherwise it becomes twice the round trip, and it
// never falls below Config.MinTimeout (20 ms by default).
//
// # Handlers
//
// Handlers are registered per type and run on the loop:
//
//	tx.RegisterHandler(message.TypeValue, func(m *message.Message) error {
//	    sub, v, err := m.Value()
//	    ...
//	})
//
// ACK, PING and STATS are handled internally. High priority frames are
// acknowledged before their handler runs, whether a handler exists or not.
//
// # Error Handling
//
// Nothing in this package is fatal. Invalid frames, frames without a handler,
// unmatched ACKs and displaced messages are logged through logrus and reported
// via Events.OnWarning; socket failures are wrapped in ErrSocket and reported
// via Events.OnSocketError. A failed write of a pending message is retried by
// its resend timer.
package transport
