package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/rovlink/limits"
)

// readDeadline bounds each blocking read so the reader notices shutdown.
const readDeadline = 100 * time.Millisecond

// readLoop drains datagrams from the socket and hands each one to the engine
// loop. It never touches engine state itself.
func (t *Transmitter) readLoop() {
	defer t.wg.Done()

	buffer := make([]byte, limits.ReadBuffer)

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		data, addr, err := t.readPacketData(buffer)
		if err != nil {
			if t.handleReadError(err) {
				return
			}
			continue
		}

		if err := t.post(func() {
			t.handleDatagram(data, addr)
		}); err != nil {
			return
		}
	}
}

// readPacketData reads one datagram into a fresh slice.
func (t *Transmitter) readPacketData(buffer []byte) ([]byte, net.Addr, error) {
	_ = t.conn.SetReadDeadline(time.Now().Add(readDeadline))

	n, addr, err := t.conn.ReadFrom(buffer)
	if err != nil {
		return nil, nil, err
	}

	data := make([]byte, n)
	copy(data, buffer[:n])
	return data, addr, nil
}

// handleReadError classifies a read failure and reports whether the reader
// must stop.
func (t *Transmitter) handleReadError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		// This is just a timeout, continue
		return false
	}
	if errors.Is(err, net.ErrClosed) || t.ctx.Err() != nil {
		return true
	}

	t.log.WithFields(logrus.Fields{
		"function": "handleReadError",
		"error":    err.Error(),
	}).Debug("Read failed")

	reportErr := fmt.Errorf("%w: read: %v", ErrSocket, err)
	return t.post(func() {
		t.reportSocketError(reportErr)
	}) != nil
}
