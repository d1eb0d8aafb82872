package vehicle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/rovlink/message"
	"github.com/opd-ai/rovlink/telemetry"
	"github.com/opd-ai/rovlink/transport"
)

// MotorLimit bounds the motor duty percentage in either direction.
const MotorLimit = 100

// pairCenter is the byte value of zero in the speed/turn and camera XY
// halves of a VALUE. Each half spans 0..200.
const pairCenter = 100

// replyQueue bounds the replies waiting for Run. Replies beyond it are
// dropped; a newer one for the same state follows with the next command.
const replyQueue = 16

// Vehicle is the vehicle side of the link: it reports telemetry and applies
// the controller's commands.
type Vehicle struct {
	link     transport.Link
	sampler  *telemetry.Sampler
	interval time.Duration
	clock    clock.Clock
	log      *logrus.Entry

	replies chan *message.Message

	mu     sync.Mutex
	status uint8
	right  int8
	left   int8
	camera [2]int16
	safe   bool
}

// Option configures a Vehicle.
type Option func(*Vehicle)

// WithClock sets the clock driving the reporting ticker.
func WithClock(c clock.Clock) Option {
	return func(v *Vehicle) { v.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(v *Vehicle) { v.log = l }
}

// New creates a vehicle reporting a sample every interval. It is inert until
// Register binds it to a link.
func New(sampler *telemetry.Sampler, interval time.Duration, opts ...Option) *Vehicle {
	v := &Vehicle{
		sampler:  sampler,
		interval: interval,
		clock:    clock.New(),
		log:      logrus.WithField("component", "vehicle"),
		replies:  make(chan *message.Message, replyQueue),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Register binds the vehicle to link and installs the command handlers.
func (v *Vehicle) Register(link transport.Link) error {
	v.link = link
	handlers := map[message.Type]transport.Handler{
		message.TypeValue:          v.handleValue,
		message.TypeCameraAndSpeed: v.handleCameraAndSpeed,
		message.TypeDebug:          v.handleDebug,
	}
	for t, h := range handlers {
		if err := v.link.RegisterHandler(t, h); err != nil {
			return fmt.Errorf("register %s handler: %w", t, err)
		}
	}
	return nil
}

// Run sends a report every interval and forwards handler replies until ctx
// is cancelled or the link closes.
func (v *Vehicle) Run(ctx context.Context) error {
	if v.link == nil {
		return transport.ErrNotOpen
	}
	ticker := v.clock.Ticker(v.interval)
	defer ticker.Stop()

	v.log.WithFields(logrus.Fields{
		"function": "Run",
		"interval": v.interval,
	}).Info("Vehicle reporting started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := v.Report(); err != nil {
				if errors.Is(err, transport.ErrClosed) {
					return err
				}
				v.log.WithFields(logrus.Fields{
					"function": "Run",
					"error":    err.Error(),
				}).Warn("Report failed")
			}
		case msg := <-v.replies:
			if err := v.link.Send(msg); err != nil {
				if errors.Is(err, transport.ErrClosed) {
					return err
				}
				v.log.WithFields(logrus.Fields{
					"function": "Run",
					"type":     msg.Type().String(),
					"error":    err.Error(),
				}).Warn("Reply failed")
			}
		}
	}
}

type periodicValue struct {
	sub   message.Subtype
	value uint16
}

// Report samples the vehicle once and sends STATS plus the periodic values
// that do not fit in it.
func (v *Vehicle) Report() error {
	if v.link == nil {
		return transport.ErrNotOpen
	}
	sample, err := v.sampler.Sample()
	if err != nil {
		return fmt.Errorf("sample: %w", err)
	}

	if err := v.link.Send(message.NewStats(sample.Stats())); err != nil {
		return err
	}

	values := []periodicValue{
		{message.SubtypeUptime, clampU16(int64(sample.Uptime / time.Second))},
		{message.SubtypeSignalStrength, clampU16(int64(sample.WlanPercent))},
		{message.SubtypeCPUUsage, clampU16(int64(sample.CPUPercent))},
	}
	if sample.HasTemperature {
		values = append(values, periodicValue{message.SubtypeTemperature, clampU16(int64(sample.Temperature))})
	}
	for _, pv := range values {
		if err := v.link.SendPeriodicValue(pv.sub, pv.value); err != nil {
			return err
		}
	}

	v.log.WithFields(logrus.Fields{
		"function": "Report",
		"uptime":   sample.Uptime,
		"load":     sample.LoadAvg,
		"wlan":     sample.WlanPercent,
		"cpu":      sample.CPUPercent,
		"temp":     sample.Temperature,
	}).Trace("Report sent")
	return nil
}

// OnConnectionStatus puts the vehicle in its safe state when the link is
// lost and leaves it on the next frame.
func (v *Vehicle) OnConnectionStatus(s transport.ConnectionStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch s {
	case transport.StatusLost:
		if v.safe {
			return
		}
		v.safe = true
		v.right, v.left = 0, 0
		v.log.WithFields(logrus.Fields{
			"function": "OnConnectionStatus",
		}).Warn("Link lost, motors stopped")
	case transport.StatusOK:
		if !v.safe {
			return
		}
		v.safe = false
		v.log.WithFields(logrus.Fields{
			"function": "OnConnectionStatus",
		}).Info("Link restored, accepting commands")
	}
}

// State is a copy of the vehicle's actuator state.
type State struct {
	Status     uint8
	MotorRight int8
	MotorLeft  int8
	CameraX    int16
	CameraY    int16
	Safe       bool
}

// State returns the current actuator state.
func (v *Vehicle) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{
		Status:     v.status,
		MotorRight: v.right,
		MotorLeft:  v.left,
		CameraX:    v.camera[0],
		CameraY:    v.camera[1],
		Safe:       v.safe,
	}
}

func (v *Vehicle) handleValue(msg *message.Message) error {
	sub, value, err := msg.Value()
	if err != nil {
		return err
	}

	v.log.WithFields(logrus.Fields{
		"function": "handleValue",
		"subtype":  sub.String(),
		"value":    value,
	}).Info("Value received")

	var bit uint8
	switch sub {
	case message.SubtypeEnableVideo:
		bit = message.StatusVideoEnabled
	case message.SubtypeEnableLED:
		bit = message.StatusLightsEnabled
	case message.SubtypeSpeedTurn:
		v.applySpeedTurn(value)
		return nil
	case message.SubtypeCameraXY:
		v.applyCameraXY(value)
		return nil
	default:
		return nil
	}

	v.mu.Lock()
	if value != 0 {
		v.status |= bit
	} else {
		v.status &^= bit
	}
	status := v.status
	v.mu.Unlock()

	v.reply(message.NewStatus(status))
	return nil
}

func (v *Vehicle) handleCameraAndSpeed(msg *message.Message) error {
	cs, err := msg.CameraAndSpeed()
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.camera = [2]int16{cs.CameraX, cs.CameraY}
	if v.safe {
		v.mu.Unlock()
		return nil
	}
	v.right = clampMotor(cs.MotorRight)
	v.left = clampMotor(cs.MotorLeft)
	right, left := v.right, v.left
	v.mu.Unlock()

	v.log.WithFields(logrus.Fields{
		"function": "handleCameraAndSpeed",
		"camera_x": cs.CameraX,
		"camera_y": cs.CameraY,
		"right":    right,
		"left":     left,
	}).Debug("Drive command applied")

	v.reply(message.NewMotor(right, left))
	return nil
}

// applySpeedTurn mixes a packed speed/turn pair into the two motors. A
// positive turn speeds up the left side.
func (v *Vehicle) applySpeedTurn(value uint16) {
	hi, lo := message.UnpackPair(value)
	speed := int16(hi) - pairCenter
	turn := int16(lo) - pairCenter

	v.mu.Lock()
	if v.safe {
		v.mu.Unlock()
		return
	}
	v.right = clampMotor(speed - turn)
	v.left = clampMotor(speed + turn)
	right, left := v.right, v.left
	v.mu.Unlock()

	v.log.WithFields(logrus.Fields{
		"function": "applySpeedTurn",
		"speed":    speed,
		"turn":     turn,
		"right":    right,
		"left":     left,
	}).Debug("Speed and turn applied")

	v.reply(message.NewMotor(right, left))
}

// applyCameraXY points the camera from a packed pair. The camera follows
// commands even while the link is lost.
func (v *Vehicle) applyCameraXY(value uint16) {
	hi, lo := message.UnpackPair(value)
	x := int16(clampMotor(int16(hi) - pairCenter))
	y := int16(clampMotor(int16(lo) - pairCenter))

	v.mu.Lock()
	v.camera = [2]int16{x, y}
	v.mu.Unlock()

	v.log.WithFields(logrus.Fields{
		"function": "applyCameraXY",
		"camera_x": x,
		"camera_y": y,
	}).Debug("Camera moved")
}

func (v *Vehicle) handleDebug(msg *message.Message) error {
	text, err := msg.Debug()
	if err != nil {
		return err
	}
	v.log.WithFields(logrus.Fields{
		"function": "handleDebug",
		"text":     text,
	}).Info("Debug message")
	return nil
}

// reply hands msg to Run without blocking the link's loop.
func (v *Vehicle) reply(msg *message.Message) {
	select {
	case v.replies <- msg:
	default:
		v.log.WithFields(logrus.Fields{
			"function": "reply",
			"type":     msg.Type().String(),
		}).Warn("Reply queue full, dropping reply")
	}
}

func clampMotor(v int16) int8 {
	switch {
	case v > MotorLimit:
		return MotorLimit
	case v < -MotorLimit:
		return -MotorLimit
	default:
		return int8(v)
	}
}

func clampU16(v int64) uint16 {
	switch {
	case v < 0:
		return 0
	case v > 0xFFFF:
		return 0xFFFF
	default:
		return uint16(v)
	}
}
