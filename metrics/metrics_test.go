package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/rovlink/message"
	"github.com/opd-ai/rovlink/transport"
)

func TestInstrumentUpdatesMetrics(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	ev := c.Instrument(transport.Events{})

	ev.OnRoundTrip(30 * time.Millisecond)
	ev.OnTimeoutAdapted(180 * time.Millisecond)
	ev.OnResent(1)
	ev.OnResent(2)
	ev.OnSocketError(errors.New("boom"))
	ev.OnUptime(5 * time.Minute)
	ev.OnLoadAvg(4.2)
	ev.OnWlan(87)
	ev.OnNetworkRate(transport.NetworkRate{PayloadRx: 1, TotalRx: 29, PayloadTx: 2, TotalTx: 30})
	ev.OnConnectionStatus(transport.StatusOK)

	assert.Equal(t, 1, testutil.CollectAndCount(c.RoundTrip))
	assert.InDelta(t, 0.18, testutil.ToFloat64(c.Timeout), 1e-9)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Resends))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SocketErrors))
	assert.Equal(t, 300.0, testutil.ToFloat64(c.VehicleUptime))
	assert.InDelta(t, 4.2, testutil.ToFloat64(c.VehicleLoad), 1e-9)
	assert.Equal(t, 87.0, testutil.ToFloat64(c.VehicleWlan))
	assert.Equal(t, 29.0, testutil.ToFloat64(c.Rate.WithLabelValues("rx", "total")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Rate.WithLabelValues("tx", "payload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Status))
}

func TestTimeoutGaugeSeededOnOpen(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	tx := transport.New(transport.WithEvents(c.Instrument(transport.Events{})))
	t.Cleanup(func() { _ = tx.Close() })

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, tx.Attach(conn, conn.LocalAddr()))
	_, err = tx.Snapshot()
	require.NoError(t, err)

	assert.InDelta(t, transport.DefaultInitialTimeout.Seconds(), testutil.ToFloat64(c.Timeout), 1e-9)
}

func TestInstrumentChainsCallbacks(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	var rtts []time.Duration
	var statuses []transport.ConnectionStatus
	ev := c.Instrument(transport.Events{
		OnRoundTrip:        func(d time.Duration) { rtts = append(rtts, d) },
		OnConnectionStatus: func(s transport.ConnectionStatus) { statuses = append(statuses, s) },
	})

	ev.OnRoundTrip(10 * time.Millisecond)
	ev.OnConnectionStatus(transport.StatusLost)
	ev.OnWarning(transport.ErrDisplaced)

	assert.Equal(t, []time.Duration{10 * time.Millisecond}, rtts)
	assert.Equal(t, []transport.ConnectionStatus{transport.StatusLost}, statuses)
}

func TestWarningKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("from peer: %w", message.ErrInvalidFrame), KindInvalidFrame},
		{fmt.Errorf("%w: MOTOR", transport.ErrUnknownType), KindUnknownType},
		{fmt.Errorf("ACK handler: %w", fmt.Errorf("%w: PING", transport.ErrUnmatchedAck)), KindUnmatchedAck},
		{fmt.Errorf("%w: VALUE", transport.ErrDisplaced), KindDisplaced},
		{errors.New("VALUE handler: bad subtype"), KindHandler},
	}

	c := NewCollector(prometheus.NewRegistry())
	ev := c.Instrument(transport.Events{})
	for _, tt := range tests {
		assert.Equal(t, tt.want, WarningKind(tt.err), tt.err.Error())
		ev.OnWarning(tt.err)
	}
	for _, tt := range tests {
		assert.Equal(t, 1.0, testutil.ToFloat64(c.Warnings.WithLabelValues(tt.want)), tt.want)
	}
}

func TestCollectorHealth(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	ev := c.Instrument(transport.Events{})

	h := c.Health()
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "unknown", h.Link)

	ev.OnConnectionStatus(transport.StatusLost)
	assert.Equal(t, "unhealthy", c.Health().Status)

	ev.OnConnectionStatus(transport.StatusOK)
	assert.Equal(t, "ok", c.Health().Link)
}

func TestServerEndpoints(t *testing.T) {
	srv := NewServer("127.0.0.1:0", "/metrics")
	c := NewCollector(srv.Registry())
	srv.SetHealthCheck(c.Health)
	ev := c.Instrument(transport.Events{})
	ev.OnResent(1)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "rovlink_link_resends_total 1")
	assert.Contains(t, string(body), "go_goroutines")

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var h HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", h.Status)

	ev.OnConnectionStatus(transport.StatusLost)
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServerServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer("", "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/metrics"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerRunBindFailure(t *testing.T) {
	srv := NewServer("127.0.0.1:99999", "/metrics")
	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "Server closed"))
}
