package transport

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var (
	peerAddr  = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8500}
	localAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
)

// fakeConn is an in-memory net.PacketConn recording every write and serving
// reads from the inbound channel.
type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	writeErr error

	inbound chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrom(b []byte) (int, net.Addr, error) {
	select {
	case d := <-c.inbound:
		return copy(b, d), peerAddr, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteTo(b []byte, _ net.Addr) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) LocalAddr() net.Addr { return localAddr }

func (c *fakeConn) SetDeadline(time.Time) error { return nil }

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) inject(frame []byte) {
	c.inbound <- frame
}

func (c *fakeConn) setWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *fakeConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// recorder collects every event a transmitter emits.
type recorder struct {
	mu       sync.Mutex
	rtts     []time.Duration
	timeouts []time.Duration
	resent   []uint32
	warnings []error
	sockErrs []error
	uptimes  []time.Duration
	loads    []float64
	wlans    []int
	rates    []NetworkRate
	statuses []ConnectionStatus
}

func (r *recorder) events() Events {
	lock := func(fn func()) {
		r.mu.Lock()
		defer r.mu.Unlock()
		fn()
	}
	return Events{
		OnRoundTrip:      func(d time.Duration) { lock(func() { r.rtts = append(r.rtts, d) }) },
		OnTimeoutAdapted: func(d time.Duration) { lock(func() { r.timeouts = append(r.timeouts, d) }) },
		OnResent:         func(n uint32) { lock(func() { r.resent = append(r.resent, n) }) },
		OnWarning:        func(err error) { lock(func() { r.warnings = append(r.warnings, err) }) },
		OnSocketError:    func(err error) { lock(func() { r.sockErrs = append(r.sockErrs, err) }) },
		OnUptime:         func(d time.Duration) { lock(func() { r.uptimes = append(r.uptimes, d) }) },
		OnLoadAvg:        func(v float64) { lock(func() { r.loads = append(r.loads, v) }) },
		OnWlan:           func(v int) { lock(func() { r.wlans = append(r.wlans, v) }) },
		OnNetworkRate:    func(v NetworkRate) { lock(func() { r.rates = append(r.rates, v) }) },
		OnConnectionStatus: func(s ConnectionStatus) {
			lock(func() { r.statuses = append(r.statuses, s) })
		},
	}
}

func (r *recorder) roundTrips() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.rtts...)
}

func (r *recorder) adaptedTimeouts() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.timeouts...)
}

func (r *recorder) warned() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.warnings...)
}

func (r *recorder) resentCounts() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.resent...)
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// testConfig disables the background rate tick so mock clock advances only
// fire the timers a test is interested in.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateInterval = time.Hour
	cfg.ConnectionLostAfter = 2 * time.Hour
	return cfg
}

// newDetached returns a transmitter wired to a fake socket without running
// its loop. Tests call the loop methods directly; timers scheduled on the mock
// clock cannot reach the loop because nothing is open.
func newDetached(t *testing.T, cfg Config) (*Transmitter, *clock.Mock, *fakeConn, *recorder) {
	t.Helper()
	mock := clock.NewMock()
	rec := &recorder{}
	tx := New(WithConfig(cfg), WithClock(mock), WithEvents(rec.events()), WithLogger(quietLogger()))

	conn := newFakeConn()
	tx.conn = conn
	tx.remote = peerAddr
	tx.monitor.reset(mock.Now())
	return tx, mock, conn, rec
}

// newRunning returns a transmitter with a running loop on a fake socket.
func newRunning(t *testing.T, cfg Config) (*Transmitter, *clock.Mock, *fakeConn, *recorder) {
	t.Helper()
	mock := clock.NewMock()
	rec := &recorder{}
	tx := New(WithConfig(cfg), WithClock(mock), WithEvents(rec.events()), WithLogger(quietLogger()))

	conn := newFakeConn()
	require.NoError(t, tx.Attach(conn, peerAddr))
	t.Cleanup(func() { _ = tx.Close() })
	return tx, mock, conn, rec
}

// barrier waits until every operation queued before it has run on the loop.
func barrier(t *testing.T, tx *Transmitter) Snapshot {
	t.Helper()
	s, err := tx.Snapshot()
	require.NoError(t, err)
	return s
}

func waitWrites(t *testing.T, conn *fakeConn, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return conn.count() >= n }, 2*time.Second, time.Millisecond,
		"expected at least %d writes", n)
}
