package message

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/rovlink/limits"
)

// TestStatsRoundTrip verifies the STATS sample encoding and unit conversion.
func TestStatsRoundTrip(t *testing.T) {
	frame := NewStats(Stats{UptimeMinutes: 5, LoadAvgX10: 42, WlanPercent: 87}).Bytes()
	assert.Equal(t, []byte{byte(TypeStats), 0, 5, 42, 87}, frame)

	msg, err := Decode(frame)
	require.NoError(t, err)

	stats, err := msg.Stats()
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, stats.Uptime())
	assert.InDelta(t, 4.2, stats.LoadAvg(), 1e-9)
	assert.Equal(t, 87, stats.Wlan())
}

// TestDecodeRejectsInvalidFrames tests length and header validation.
func TestDecodeRejectsInvalidFrames(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"nil", nil},
		{"stats too short", []byte{byte(TypeStats), 0, 5}},
		{"stats too long", []byte{byte(TypeStats), 0, 5, 42, 87, 1}},
		{"ack too short", []byte{byte(TypeACK)}},
		{"ack names unknown type", []byte{byte(TypeACK), byte(TypeCount)}},
		{"ping with body", []byte{byte(TypePing), 0}},
		{"value too short", []byte{byte(TypeValue), byte(SubtypeUptime), 1}},
		{"tag outside domain", []byte{byte(TypeCount)}},
		{"tag 255", []byte{255, 1, 2}},
		{"media without chunk", []byte{byte(TypeMedia)}},
		{"media over datagram", append([]byte{byte(TypeMedia)}, make([]byte, limits.MaxDatagram)...)},
		{"debug not utf-8", []byte{byte(TypeDebug), 'o', 0xff, 'k'}},
		{"debug truncated rune", []byte{byte(TypeDebug), 'h', 0xc3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.data)
			assert.Nil(t, msg)
			assert.True(t, errors.Is(err, ErrInvalidFrame), "error = %v", err)
		})
	}
}

// TestDecodeAcceptsEveryType verifies that each type decodes at its layout length.
func TestDecodeAcceptsEveryType(t *testing.T) {
	for tag := Type(0); tag < TypeCount; tag++ {
		t.Run(tag.String(), func(t *testing.T) {
			length, fixed := tag.FixedLength()
			if !fixed {
				length = 16
			}
			frame := make([]byte, length)
			frame[0] = byte(tag)

			msg, err := Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, tag, msg.Type())
			assert.Equal(t, length, msg.Len())
		})
	}
}

// TestDecodeCopiesInput ensures a decoded message does not alias the read buffer.
func TestDecodeCopiesInput(t *testing.T) {
	buf := NewValue(SubtypeCameraZoom, 7).Bytes()
	msg, err := Decode(buf)
	require.NoError(t, err)

	buf[3] = 99
	_, v, err := msg.Value()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), v)

	out := msg.Bytes()
	out[0] = byte(TypeDebug)
	assert.Equal(t, TypeValue, msg.Type())
}

func TestHighPriority(t *testing.T) {
	high := map[Type]bool{
		TypePing:           true,
		TypeValue:          true,
		TypeCameraAndSpeed: true,
		TypeStatus:         true,
	}
	for tag := Type(0); tag < TypeCount; tag++ {
		assert.Equal(t, high[tag], tag.HighPriority(), "type %s", tag)
	}
	assert.False(t, TypeCount.HighPriority())
	assert.False(t, NewACK(TypePing).HighPriority(), "ACK must never be acked")
}

// TestValueLayout verifies subtype position and big endian value encoding.
func TestValueLayout(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		want []byte
	}{
		{"value", NewValue(SubtypeEnableVideo, 1), []byte{byte(TypeValue), byte(SubtypeEnableVideo), 0x00, 0x01}},
		{"periodic", NewPeriodicValue(SubtypeTemperature, 0x1234), []byte{byte(TypePeriodicValue), byte(SubtypeTemperature), 0x12, 0x34}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Bytes())

			decoded, err := Decode(tt.want)
			require.NoError(t, err)
			sub, v, err := decoded.Value()
			require.NoError(t, err)
			assert.Equal(t, Subtype(tt.want[1]), sub)
			assert.Equal(t, uint16(tt.want[2])<<8|uint16(tt.want[3]), v)

			only, err := decoded.Subtype()
			require.NoError(t, err)
			assert.Equal(t, sub, only)
		})
	}
}

func TestAck(t *testing.T) {
	msg, err := Decode([]byte{byte(TypeACK), byte(TypeCameraAndSpeed)})
	require.NoError(t, err)

	acked, err := msg.AckedType()
	require.NoError(t, err)
	assert.Equal(t, TypeCameraAndSpeed, acked)

	_, err = NewPing().AckedType()
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestCameraAndSpeedSigned(t *testing.T) {
	in := CameraAndSpeed{CameraX: -180, CameraY: 90, MotorRight: -100, MotorLeft: 100}
	msg, err := Decode(NewCameraAndSpeed(in).Bytes())
	require.NoError(t, err)

	out, err := msg.CameraAndSpeed()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMotorStatusIMU(t *testing.T) {
	right, left, err := NewMotor(-20, 75).Motor()
	require.NoError(t, err)
	assert.Equal(t, int8(-20), right)
	assert.Equal(t, int8(75), left)

	bits, err := NewStatus(StatusVideoEnabled | StatusLightsEnabled).Status()
	require.NoError(t, err)
	assert.Equal(t, StatusVideoEnabled|StatusLightsEnabled, bits)

	samples := [IMUSamples]int16{1, -2, 3, -4, 5, -6, 7, -8, 32767}
	imu, err := NewIMU(samples).IMU()
	require.NoError(t, err)
	assert.Equal(t, samples, imu)
}

func TestVariableLengthFrames(t *testing.T) {
	media, err := NewMedia([]byte{0xde, 0xad})
	require.NoError(t, err)
	chunk, err := media.Media()
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte{0xde, 0xad}, chunk))

	_, err = NewMedia(nil)
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = NewMedia(make([]byte, limits.MaxDatagram))
	assert.ErrorIs(t, err, ErrInvalidFrame)

	dbg, err := NewDebug("motor driver reset")
	require.NoError(t, err)
	text, err := dbg.Debug()
	require.NoError(t, err)
	assert.Equal(t, "motor driver reset", text)

	dbg, err = NewDebug("température 42 °C")
	require.NoError(t, err)
	text, err = dbg.Debug()
	require.NoError(t, err)
	assert.Equal(t, "température 42 °C", text)

	_, err = NewDebug("bad \xff byte")
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestNewValidatesLength(t *testing.T) {
	_, err := New(TypeStats, []byte{0, 1})
	assert.ErrorIs(t, err, ErrInvalidFrame)

	msg, err := New(TypeStats, []byte{0, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, msg.Body())
}

func TestPackPair(t *testing.T) {
	v := PackPair(200, 17)
	assert.Equal(t, uint16(200<<8|17), v)
	hi, lo := UnpackPair(v)
	assert.Equal(t, uint8(200), hi)
	assert.Equal(t, uint8(17), lo)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "CAMERA_AND_SPEED", TypeCameraAndSpeed.String())
	assert.True(t, strings.HasPrefix(Type(200).String(), "TYPE("))
	assert.Equal(t, "ENABLE_VIDEO", SubtypeEnableVideo.String())

	sub, ok := ParseSubtype("CAMERA_XY")
	assert.True(t, ok)
	assert.Equal(t, SubtypeCameraXY, sub)

	_, ok = ParseSubtype("camera_xy")
	assert.False(t, ok)
}
