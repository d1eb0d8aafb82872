package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/opd-ai/rovlink/limits"
)

var (
	// ErrInvalidFrame indicates a frame with a wrong length or a malformed header.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrWrongType indicates a typed accessor was used on a frame of another type.
	ErrWrongType = errors.New("wrong message type")
)

// Frame offsets shared by several layouts.
const (
	offsetTag     = 0
	offsetHeader  = 1 // acked type, subtype or status bits
	offsetPayload = 2 // first byte of fixed-position samples
)

// Message is a single encoded frame. It is immutable once constructed: the
// frame bytes are owned by the message and only copies are handed out.
type Message struct {
	frame []byte
}

// New builds a frame from a type tag and the bytes following it, validating
// the resulting length against the type's layout.
func New(t Type, body []byte) (*Message, error) {
	frame := make([]byte, 1+len(body))
	frame[offsetTag] = byte(t)
	copy(frame[1:], body)

	if err := validate(frame); err != nil {
		return nil, err
	}
	return &Message{frame: frame}, nil
}

// Decode parses a received datagram. The datagram is copied, so the caller may
// reuse its buffer. Tags inside the type domain always decode, even when no
// handler exists for them.
func Decode(data []byte) (*Message, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	return &Message{frame: frame}, nil
}

// validate checks the tag domain, the length implied by the type, the ACK
// header and the encoding of DEBUG text.
func validate(frame []byte) error {
	if err := limits.ValidateDatagram(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	t := Type(frame[offsetTag])
	if !t.Valid() {
		return fmt.Errorf("%w: type tag %d outside domain 0..%d", ErrInvalidFrame, byte(t), TypeCount-1)
	}

	if want, fixed := t.FixedLength(); fixed {
		if len(frame) != want {
			return fmt.Errorf("%w: %s frame is %d bytes, want %d", ErrInvalidFrame, t, len(frame), want)
		}
	} else if len(frame) < layouts[t].minLength {
		return fmt.Errorf("%w: %s frame is %d bytes, want at least %d", ErrInvalidFrame, t, len(frame), layouts[t].minLength)
	}

	if t == TypeACK && !Type(frame[offsetHeader]).Valid() {
		return fmt.Errorf("%w: ACK names type tag %d outside domain", ErrInvalidFrame, frame[offsetHeader])
	}
	if t == TypeDebug && !utf8.Valid(frame[1:]) {
		return fmt.Errorf("%w: DEBUG text is not valid UTF-8", ErrInvalidFrame)
	}
	return nil
}

// Type returns the frame's type tag.
func (m *Message) Type() Type {
	return Type(m.frame[offsetTag])
}

// HighPriority reports whether the frame must be acknowledged.
func (m *Message) HighPriority() bool {
	return m.Type().HighPriority()
}

// Len returns the frame length in bytes.
func (m *Message) Len() int {
	return len(m.frame)
}

// Bytes returns a copy of the encoded frame.
func (m *Message) Bytes() []byte {
	out := make([]byte, len(m.frame))
	copy(out, m.frame)
	return out
}

// Body returns a copy of the bytes following the type tag.
func (m *Message) Body() []byte {
	out := make([]byte, len(m.frame)-1)
	copy(out, m.frame[1:])
	return out
}

// String returns a short human readable description.
func (m *Message) String() string {
	return fmt.Sprintf("%s(%d bytes)", m.Type(), len(m.frame))
}

func (m *Message) expect(t Type) error {
	if m.Type() != t {
		return fmt.Errorf("%w: have %s, want %s", ErrWrongType, m.Type(), t)
	}
	return nil
}

// NewACK acknowledges a frame of type acked.
func NewACK(acked Type) *Message {
	return &Message{frame: []byte{byte(TypeACK), byte(acked)}}
}

// AckedType returns the type named by an ACK frame.
func (m *Message) AckedType() (Type, error) {
	if err := m.expect(TypeACK); err != nil {
		return 0, err
	}
	return Type(m.frame[offsetHeader]), nil
}

// NewPing returns a keepalive frame.
func NewPing() *Message {
	return &Message{frame: []byte{byte(TypePing)}}
}

// Stats holds the three single-byte samples of a STATS frame in their wire units.
type Stats struct {
	UptimeMinutes uint8
	LoadAvgX10    uint8
	WlanPercent   uint8
}

// Uptime returns the uptime sample in its natural unit.
func (s Stats) Uptime() time.Duration {
	return time.Duration(s.UptimeMinutes) * time.Minute
}

// LoadAvg returns the one-minute load average.
func (s Stats) LoadAvg() float64 {
	return float64(s.LoadAvgX10) / 10
}

// Wlan returns the signal strength percentage.
func (s Stats) Wlan() int {
	return int(s.WlanPercent)
}

// NewStats encodes the samples at offsets 2..4; byte 1 is reserved and zero.
func NewStats(s Stats) *Message {
	frame := make([]byte, 5)
	frame[offsetTag] = byte(TypeStats)
	frame[offsetPayload] = s.UptimeMinutes
	frame[offsetPayload+1] = s.LoadAvgX10
	frame[offsetPayload+2] = s.WlanPercent
	return &Message{frame: frame}
}

// Stats decodes the samples of a STATS frame.
func (m *Message) Stats() (Stats, error) {
	if err := m.expect(TypeStats); err != nil {
		return Stats{}, err
	}
	return Stats{
		UptimeMinutes: m.frame[offsetPayload],
		LoadAvgX10:    m.frame[offsetPayload+1],
		WlanPercent:   m.frame[offsetPayload+2],
	}, nil
}

// NewValue encodes a high priority subtype/value pair.
func NewValue(sub Subtype, value uint16) *Message {
	return newValue(TypeValue, sub, value)
}

// NewPeriodicValue encodes a best-effort subtype/value pair. It is never
// acknowledged or resent.
func NewPeriodicValue(sub Subtype, value uint16) *Message {
	return newValue(TypePeriodicValue, sub, value)
}

func newValue(t Type, sub Subtype, value uint16) *Message {
	frame := make([]byte, 4)
	frame[offsetTag] = byte(t)
	frame[offsetHeader] = byte(sub)
	binary.BigEndian.PutUint16(frame[offsetPayload:], value)
	return &Message{frame: frame}
}

// Value decodes a Value or PeriodicValue frame.
func (m *Message) Value() (Subtype, uint16, error) {
	if t := m.Type(); t != TypeValue && t != TypePeriodicValue {
		return 0, 0, fmt.Errorf("%w: have %s, want %s or %s", ErrWrongType, t, TypeValue, TypePeriodicValue)
	}
	return Subtype(m.frame[offsetHeader]), binary.BigEndian.Uint16(m.frame[offsetPayload:]), nil
}

// Subtype returns the subtype of a Value or PeriodicValue frame.
func (m *Message) Subtype() (Subtype, error) {
	sub, _, err := m.Value()
	return sub, err
}

// CameraAndSpeed is the combined control sample sent by the controller.
type CameraAndSpeed struct {
	CameraX    int16
	CameraY    int16
	MotorRight int16
	MotorLeft  int16
}

// NewCameraAndSpeed encodes four big endian int16 fields at offsets 2..9.
func NewCameraAndSpeed(cs CameraAndSpeed) *Message {
	frame := make([]byte, 10)
	frame[offsetTag] = byte(TypeCameraAndSpeed)
	for i, v := range []int16{cs.CameraX, cs.CameraY, cs.MotorRight, cs.MotorLeft} {
		binary.BigEndian.PutUint16(frame[offsetPayload+2*i:], uint16(v))
	}
	return &Message{frame: frame}
}

// CameraAndSpeed decodes a CAMERA_AND_SPEED frame.
func (m *Message) CameraAndSpeed() (CameraAndSpeed, error) {
	if err := m.expect(TypeCameraAndSpeed); err != nil {
		return CameraAndSpeed{}, err
	}
	field := func(i int) int16 {
		return int16(binary.BigEndian.Uint16(m.frame[offsetPayload+2*i:]))
	}
	return CameraAndSpeed{
		CameraX:    field(0),
		CameraY:    field(1),
		MotorRight: field(2),
		MotorLeft:  field(3),
	}, nil
}

// NewMotor encodes the right and left motor duty percentages.
func NewMotor(right, left int8) *Message {
	return &Message{frame: []byte{byte(TypeMotor), 0, byte(right), byte(left)}}
}

// Motor decodes a MOTOR frame.
func (m *Message) Motor() (right, left int8, err error) {
	if err := m.expect(TypeMotor); err != nil {
		return 0, 0, err
	}
	return int8(m.frame[offsetPayload]), int8(m.frame[offsetPayload+1]), nil
}

// NewStatus encodes vehicle status bits.
func NewStatus(bits uint8) *Message {
	return &Message{frame: []byte{byte(TypeStatus), bits}}
}

// Status decodes a STATUS frame.
func (m *Message) Status() (uint8, error) {
	if err := m.expect(TypeStatus); err != nil {
		return 0, err
	}
	return m.frame[offsetHeader], nil
}

// IMUSamples is the number of 16-bit samples in an IMU frame.
const IMUSamples = 9

// NewIMU encodes nine big endian int16 samples at offsets 2..19.
func NewIMU(samples [IMUSamples]int16) *Message {
	frame := make([]byte, 2+2*IMUSamples)
	frame[offsetTag] = byte(TypeIMU)
	for i, v := range samples {
		binary.BigEndian.PutUint16(frame[offsetPayload+2*i:], uint16(v))
	}
	return &Message{frame: frame}
}

// IMU decodes an IMU frame.
func (m *Message) IMU() ([IMUSamples]int16, error) {
	var out [IMUSamples]int16
	if err := m.expect(TypeIMU); err != nil {
		return out, err
	}
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(m.frame[offsetPayload+2*i:]))
	}
	return out, nil
}

// NewMedia wraps an opaque media chunk. The chunk must fit one datagram.
func NewMedia(chunk []byte) (*Message, error) {
	return New(TypeMedia, chunk)
}

// Media returns a copy of the media chunk.
func (m *Message) Media() ([]byte, error) {
	if err := m.expect(TypeMedia); err != nil {
		return nil, err
	}
	return m.Body(), nil
}

// NewDebug wraps a debug text line. The text must be valid UTF-8 and fit one
// datagram.
func NewDebug(text string) (*Message, error) {
	return New(TypeDebug, []byte(text))
}

// Debug returns the debug text.
func (m *Message) Debug() (string, error) {
	if err := m.expect(TypeDebug); err != nil {
		return "", err
	}
	return string(m.frame[1:]), nil
}

// PackPair packs two 8-bit quantities into one value, hi in the upper byte.
// Camera XY and speed/turn values travel this way.
func PackPair(hi, lo uint8) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

// UnpackPair splits a value produced by PackPair.
func UnpackPair(v uint16) (hi, lo uint8) {
	return uint8(v >> 8), uint8(v & 0x00ff)
}
