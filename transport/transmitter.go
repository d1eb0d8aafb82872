package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/rovlink/message"
)

const (
	stateCreated int32 = iota
	stateOpen
	stateClosed
)

// Transmitter is the reliable delivery engine. It owns a UDP socket, one
// delivery slot per message type and a single adaptive resend timeout shared
// by all types.
//
// All engine state is owned by one loop goroutine. Public methods post work to
// the loop and return without waiting for the network.
type Transmitter struct {
	config Config
	clock  clock.Clock
	events Events
	log    *logrus.Entry

	mu       sync.RWMutex
	handlers map[message.Type]Handler

	conn   net.PacketConn
	remote net.Addr

	// loop-owned state
	slots    slotTable
	timeout  time.Duration
	resends  uint32
	autoPing autoPing
	monitor  linkMonitor

	ops    chan func()
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lifecycle sync.Mutex
	state     atomic.Int32
	closeErr  error
}

var _ Link = (*Transmitter)(nil)

// Option configures a Transmitter.
type Option func(*Transmitter)

// WithConfig replaces the default configuration. Zero fields take defaults.
func WithConfig(c Config) Option {
	return func(t *Transmitter) {
		t.config = c.withDefaults()
	}
}

// WithClock injects the clock driving timers and stopwatches.
func WithClock(c clock.Clock) Option {
	return func(t *Transmitter) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithEvents sets the event callbacks.
func WithEvents(ev Events) Option {
	return func(t *Transmitter) {
		t.events = ev
	}
}

// WithLogger sets the log entry used by the transmitter.
func WithLogger(entry *logrus.Entry) Option {
	return func(t *Transmitter) {
		if entry != nil {
			t.log = entry
		}
	}
}

// New creates a Transmitter with the built-in ACK, PING and STATS handlers.
// The socket is not bound until Open or Attach.
func New(opts ...Option) *Transmitter {
	t := &Transmitter{
		config:   DefaultConfig(),
		clock:    clock.New(),
		log:      logrus.WithField("component", "transmitter"),
		handlers: make(map[message.Type]Handler),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.timeout = t.config.InitialTimeout
	t.ops = make(chan func(), t.config.QueueSize)
	t.ctx, t.cancel = context.WithCancel(context.Background())

	t.handlers[message.TypeACK] = t.handleAck
	t.handlers[message.TypePing] = t.handlePing
	t.handlers[message.TypeStats] = t.handleStats

	return t
}

// Open resolves the remote endpoint, binds the local socket and starts the engine.
func (t *Transmitter) Open(host string, port uint16) error {
	remote, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		err = fmt.Errorf("%w: resolve %s:%d: %v", ErrSocket, host, port, err)
		t.reportSocketError(err)
		return err
	}

	conn, err := net.ListenPacket("udp", t.config.LocalAddr)
	if err != nil {
		err = fmt.Errorf("%w: bind %s: %v", ErrSocket, t.config.LocalAddr, err)
		t.reportSocketError(err)
		return err
	}

	if err := t.Attach(conn, remote); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// Attach starts the engine on a caller-supplied socket. The transmitter takes
// ownership of conn and closes it on Close.
func (t *Transmitter) Attach(conn net.PacketConn, remote net.Addr) error {
	if conn == nil || remote == nil {
		return fmt.Errorf("%w: nil socket or remote address", ErrSocket)
	}
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	switch t.state.Load() {
	case stateClosed:
		return ErrClosed
	case stateOpen:
		return fmt.Errorf("%w: already open", ErrSocket)
	}

	t.conn = conn
	t.remote = remote
	t.monitor.reset(t.clock.Now())

	t.log.WithFields(logrus.Fields{
		"function": "Attach",
		"local":    conn.LocalAddr().String(),
		"remote":   remote.String(),
		"timeout":  t.timeout,
	}).Info("Transmitter opened")

	t.wg.Add(2)
	t.state.Store(stateOpen)
	go t.run()
	go t.readLoop()

	return t.post(func() {
		if t.events.OnTimeoutAdapted != nil {
			t.events.OnTimeoutAdapted(t.timeout)
		}
		t.scheduleRateTick()
		if t.config.AutoPing {
			t.setAutoPing(true)
		}
	})
}

// LocalAddr returns the bound local address, or nil before Open.
func (t *Transmitter) LocalAddr() net.Addr {
	if t.state.Load() == stateCreated || t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// RemoteAddr returns the remote endpoint, or nil before Open.
func (t *Transmitter) RemoteAddr() net.Addr {
	if t.state.Load() == stateCreated || t.remote == nil {
		return nil
	}
	return t.remote
}

// Close stops all timers, drops pending messages and closes the socket.
func (t *Transmitter) Close() error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	prev := t.state.Swap(stateClosed)
	if prev == stateClosed {
		return t.closeErr
	}
	t.cancel()
	if prev != stateOpen {
		return nil
	}

	t.closeErr = t.conn.Close()
	t.wg.Wait()

	t.log.WithFields(logrus.Fields{
		"function": "Close",
		"resends":  t.resends,
	}).Info("Transmitter closed")
	return t.closeErr
}

// run is the engine loop. It is the only goroutine touching loop-owned state.
func (t *Transmitter) run() {
	defer t.wg.Done()
	for {
		select {
		case op := <-t.ops:
			op()
		case <-t.ctx.Done():
			t.shutdown()
			return
		}
	}
}

func (t *Transmitter) shutdown() {
	t.slots.clearAll()
	t.stopAutoPing()
	t.monitor.stop()
}

// post queues fn for the loop.
func (t *Transmitter) post(fn func()) error {
	switch t.state.Load() {
	case stateCreated:
		return ErrNotOpen
	case stateClosed:
		return ErrClosed
	}
	select {
	case t.ops <- fn:
		return nil
	case <-t.ctx.Done():
		return ErrClosed
	}
}

// schedule runs fn on the loop once d has elapsed on the transmitter clock.
func (t *Transmitter) schedule(d time.Duration, fn func()) *clock.Timer {
	return t.clock.AfterFunc(d, func() {
		_ = t.post(fn)
	})
}

// RegisterHandler registers a handler for a message type, replacing any
// previous one. A nil handler removes the registration. The ACK handler is
// part of the delivery engine and cannot be replaced.
func (t *Transmitter) RegisterHandler(msgType message.Type, handler Handler) error {
	if !msgType.Valid() {
		return fmt.Errorf("%w: %s", message.ErrInvalidFrame, msgType)
	}
	if msgType == message.TypeACK {
		return ErrReservedType
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if handler == nil {
		delete(t.handlers, msgType)
		return nil
	}
	t.handlers[msgType] = handler
	return nil
}

func (t *Transmitter) handler(msgType message.Type) (Handler, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handlers[msgType]
	return h, ok
}

// Send writes msg to the remote end. High priority messages are kept in their
// type's slot and resent every timeout until acknowledged; a newer message of
// the same type replaces an unacknowledged one.
func (t *Transmitter) Send(msg *message.Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	return t.post(func() {
		t.send(msg)
	})
}

// SendValue sends a high priority subtype/value pair.
func (t *Transmitter) SendValue(sub message.Subtype, value uint16) error {
	return t.Send(message.NewValue(sub, value))
}

// SendPeriodicValue sends a best-effort subtype/value pair. It is never resent
// or acknowledged, so a lost sample is simply superseded by the next one.
func (t *Transmitter) SendPeriodicValue(sub message.Subtype, value uint16) error {
	return t.Send(message.NewPeriodicValue(sub, value))
}

// SendPing sends a keepalive.
func (t *Transmitter) SendPing() error {
	return t.Send(message.NewPing())
}

// SendStats sends vehicle statistics.
func (t *Transmitter) SendStats(s message.Stats) error {
	return t.Send(message.NewStats(s))
}

// SendCameraAndSpeed sends the combined control sample.
func (t *Transmitter) SendCameraAndSpeed(cs message.CameraAndSpeed) error {
	return t.Send(message.NewCameraAndSpeed(cs))
}

// SendMotor reports the motor duty percentages best effort.
func (t *Transmitter) SendMotor(right, left int8) error {
	return t.Send(message.NewMotor(right, left))
}

// SendStatus sends the vehicle status bits.
func (t *Transmitter) SendStatus(bits uint8) error {
	return t.Send(message.NewStatus(bits))
}

// SendIMU sends one set of inertial samples best effort.
func (t *Transmitter) SendIMU(samples [message.IMUSamples]int16) error {
	return t.Send(message.NewIMU(samples))
}

// SendMedia sends an opaque media chunk best effort.
func (t *Transmitter) SendMedia(chunk []byte) error {
	msg, err := message.NewMedia(chunk)
	if err != nil {
		return err
	}
	return t.Send(msg)
}

// SendDebug sends a debug text line best effort.
func (t *Transmitter) SendDebug(text string) error {
	msg, err := message.NewDebug(text)
	if err != nil {
		return err
	}
	return t.Send(msg)
}

// Snapshot returns the engine state as seen by the loop.
func (t *Transmitter) Snapshot() (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := t.post(func() {
		reply <- Snapshot{
			Timeout:  t.timeout,
			Pending:  t.slots.pending(),
			Resends:  t.resends,
			Status:   t.monitor.status,
			AutoPing: t.autoPing.enabled,
		}
	}); err != nil {
		return Snapshot{}, err
	}

	select {
	case s := <-reply:
		return s, nil
	case <-t.ctx.Done():
		return Snapshot{}, ErrClosed
	}
}

// Flush waits until every operation queued before it has run, so messages
// passed to Send have been written to the socket. It does not wait for ACKs.
func (t *Transmitter) Flush() error {
	done := make(chan struct{})
	if err := t.post(func() { close(done) }); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-t.ctx.Done():
		return ErrClosed
	}
}

// send implements the outbound half of the delivery state machine.
func (t *Transmitter) send(msg *message.Message) {
	t.write(msg)

	if !msg.HighPriority() {
		return
	}

	slot := t.slots.get(msg.Type())
	if displaced := slot.hold(msg, t.clock.Now()); displaced != nil {
		// Latest wins: the displaced message loses its delivery guarantee.
		t.log.WithFields(logrus.Fields{
			"function": "send",
			"type":     msg.Type().String(),
		}).Debug("Replacing unacknowledged message")
		t.notify(fmt.Errorf("%w: %s", ErrDisplaced, displaced))
	}
	t.armResend(msg.Type())
}

// armResend (re)starts the resend timer of a slot at the current timeout.
func (t *Transmitter) armResend(msgType message.Type) {
	slot := t.slots.get(msgType)
	slot.stopTimer()
	gen := slot.generation
	slot.timer = t.schedule(t.timeout, func() {
		t.resend(msgType, gen)
	})
}

// resend writes the pending bytes of a slot again. Callbacks from a timer
// that was rearmed or cleared in the meantime are ignored.
func (t *Transmitter) resend(msgType message.Type, gen uint64) {
	slot := t.slots.get(msgType)
	if slot.state != slotAwaitingAck || slot.generation != gen {
		return
	}

	t.write(slot.pending)
	slot.resends++
	t.resends++

	t.log.WithFields(logrus.Fields{
		"function": "resend",
		"type":     msgType.String(),
		"timeout":  t.timeout,
		"attempt":  slot.resends,
		"resends":  t.resends,
	}).Debug("Resent unacknowledged message")

	if t.events.OnResent != nil {
		t.events.OnResent(t.resends)
	}
	t.armResend(msgType)
}

// write puts one frame on the socket. Failures are reported, never fatal: a
// pending message is retried by its resend timer.
func (t *Transmitter) write(msg *message.Message) {
	frame := msg.Bytes()
	n, err := t.conn.WriteTo(frame, t.remote)
	if err != nil {
		t.reportSocketError(fmt.Errorf("%w: write %s to %s: %v", ErrSocket, msg.Type(), t.remote, err))
		return
	}
	t.monitor.sent(n)
}

func (t *Transmitter) reportSocketError(err error) {
	t.log.WithFields(logrus.Fields{
		"function": "reportSocketError",
		"error":    err.Error(),
	}).Error("Socket error")

	if t.events.OnSocketError != nil {
		t.events.OnSocketError(err)
	}
}

func (t *Transmitter) warn(err error) {
	t.log.WithFields(logrus.Fields{
		"function": "warn",
		"error":    err.Error(),
	}).Warn("Protocol warning")

	t.notify(err)
}

func (t *Transmitter) notify(err error) {
	if t.events.OnWarning != nil {
		t.events.OnWarning(err)
	}
}
