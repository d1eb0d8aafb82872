package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/rovlink/message"
	"github.com/opd-ai/rovlink/transport"
)

// flusher is implemented by links that can wait for queued sends to be
// written, such as *transport.Transmitter.
type flusher interface {
	Flush() error
}

// Console drives the link from text commands and prints what the vehicle
// reports.
type Console struct {
	link transport.Link
	log  *logrus.Entry

	outMu sync.Mutex
	out   io.Writer

	// cs is the last camera and drive sample; camera and drive commands
	// each update half of it.
	cs message.CameraAndSpeed
}

// New creates a console writing its output to out. Commands fail with
// transport.ErrNotOpen until Register binds a link.
func New(out io.Writer, log *logrus.Entry) *Console {
	if log == nil {
		log = logrus.WithField("component", "controller")
	}
	return &Console{out: out, log: log}
}

// Register binds the console to link and installs handlers printing every
// report the vehicle sends.
func (c *Console) Register(link transport.Link) error {
	c.link = link
	handlers := map[message.Type]transport.Handler{
		message.TypeValue:         c.printValue,
		message.TypePeriodicValue: c.printValue,
		message.TypeStatus:        c.printStatus,
		message.TypeMotor:         c.printMotor,
		message.TypeIMU:           c.printIMU,
		message.TypeDebug:         c.printDebug,
		message.TypeMedia:         c.countMedia,
	}
	for t, h := range handlers {
		if err := c.link.RegisterHandler(t, h); err != nil {
			return fmt.Errorf("register %s handler: %w", t, err)
		}
	}
	return nil
}

// Events returns callbacks printing link telemetry.
func (c *Console) Events() transport.Events {
	return transport.Events{
		OnRoundTrip: func(rtt time.Duration) {
			c.printf("rtt %s", rtt)
		},
		OnUptime: func(d time.Duration) {
			c.printf("vehicle uptime %s", d)
		},
		OnLoadAvg: func(v float64) {
			c.printf("vehicle load %.1f", v)
		},
		OnWlan: func(v int) {
			c.printf("vehicle wlan %d%%", v)
		},
		OnNetworkRate: func(r transport.NetworkRate) {
			c.printf("rate rx %d/%d B/s tx %d/%d B/s", r.PayloadRx, r.TotalRx, r.PayloadTx, r.TotalTx)
		},
		OnConnectionStatus: func(s transport.ConnectionStatus) {
			c.printf("link %s", s)
		},
	}
}

// Run executes one command per line of in until EOF or ctx is cancelled.
// Command errors are printed and do not stop the console; a closed link does.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := c.flush(); err != nil {
					return err
				}
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := c.Execute(line); err != nil {
				if errors.Is(err, transport.ErrClosed) {
					return err
				}
				c.printf("error: %v", err)
			}
		}
	}
}

// Execute parses and performs one command. Blank lines and lines starting
// with # are ignored.
func (c *Console) Execute(line string) error {
	if trimmed := trimComment(line); trimmed == "" {
		return nil
	}

	cmd, err := ParseCommand(line)
	if err != nil {
		return err
	}
	if c.link == nil && cmd.Kind != KindHelp {
		return transport.ErrNotOpen
	}

	c.log.WithFields(logrus.Fields{
		"function": "Execute",
		"line":     line,
	}).Debug("Executing command")

	switch cmd.Kind {
	case KindPing:
		return c.link.Send(message.NewPing())
	case KindValue:
		return c.link.SendValue(cmd.Subtype, cmd.Value)
	case KindPeriodic:
		return c.link.SendPeriodicValue(cmd.Subtype, cmd.Value)
	case KindVideo:
		return c.link.SendValue(message.SubtypeEnableVideo, boolValue(cmd.On))
	case KindLights:
		return c.link.SendValue(message.SubtypeEnableLED, boolValue(cmd.On))
	case KindCamera:
		c.cs.CameraX, c.cs.CameraY = cmd.X, cmd.Y
		return c.link.Send(message.NewCameraAndSpeed(c.cs))
	case KindDrive:
		c.cs.MotorRight, c.cs.MotorLeft = cmd.X, cmd.Y
		return c.link.Send(message.NewCameraAndSpeed(c.cs))
	case KindStop:
		c.cs.MotorRight, c.cs.MotorLeft = 0, 0
		return c.link.Send(message.NewCameraAndSpeed(c.cs))
	case KindDebug:
		msg, err := message.NewDebug(cmd.Text)
		if err != nil {
			return err
		}
		return c.link.Send(msg)
	case KindAutoPing:
		return c.link.EnableAutoPing(cmd.On)
	case KindHelp:
		c.printf("commands:\n%s", Usage())
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnknownCommand, cmd.Kind)
}

// flush lets the last commands reach the socket before input ends the
// session.
func (c *Console) flush() error {
	f, ok := c.link.(flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil && !errors.Is(err, transport.ErrClosed) {
		return err
	}
	return nil
}

func (c *Console) printValue(msg *message.Message) error {
	sub, v, err := msg.Value()
	if err != nil {
		return err
	}
	c.printf("%s %s=%d", msg.Type(), sub, v)
	return nil
}

func (c *Console) printStatus(msg *message.Message) error {
	bits, err := msg.Status()
	if err != nil {
		return err
	}
	c.printf("status video=%t audio=%t lights=%t",
		bits&message.StatusVideoEnabled != 0,
		bits&message.StatusAudioEnabled != 0,
		bits&message.StatusLightsEnabled != 0)
	return nil
}

func (c *Console) printMotor(msg *message.Message) error {
	right, left, err := msg.Motor()
	if err != nil {
		return err
	}
	c.printf("motor right=%d%% left=%d%%", right, left)
	return nil
}

func (c *Console) printIMU(msg *message.Message) error {
	samples, err := msg.IMU()
	if err != nil {
		return err
	}
	c.printf("imu %v", samples)
	return nil
}

func (c *Console) printDebug(msg *message.Message) error {
	text, err := msg.Debug()
	if err != nil {
		return err
	}
	c.printf("debug %s", text)
	return nil
}

// countMedia logs media chunks; decoding them is left to a media sink.
func (c *Console) countMedia(msg *message.Message) error {
	chunk, err := msg.Media()
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{
		"function": "countMedia",
		"bytes":    len(chunk),
	}).Trace("Media chunk received")
	return nil
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

func trimComment(line string) string {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ', '\t':
			continue
		case '#':
			return ""
		default:
			return line[i:]
		}
	}
	return ""
}

func boolValue(on bool) uint16 {
	if on {
		return 1
	}
	return 0
}
