package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/rovlink/message"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"ping", Command{Kind: KindPing}},
		{"  PING  ", Command{Kind: KindPing}},
		{"value enable_video 1", Command{Kind: KindValue, Subtype: message.SubtypeEnableVideo, Value: 1}},
		{"value CAMERA_ZOOM 0x10", Command{Kind: KindValue, Subtype: message.SubtypeCameraZoom, Value: 16}},
		{"value 5 65535", Command{Kind: KindValue, Subtype: message.SubtypeDistance, Value: 65535}},
		{"periodic temperature 21", Command{Kind: KindPeriodic, Subtype: message.SubtypeTemperature, Value: 21}},
		{"video on", Command{Kind: KindVideo, On: true}},
		{"video OFF", Command{Kind: KindVideo}},
		{"lights 1", Command{Kind: KindLights, On: true}},
		{"camera 10 -5", Command{Kind: KindCamera, X: 10, Y: -5}},
		{"drive -32768 32767", Command{Kind: KindDrive, X: -32768, Y: 32767}},
		{"stop", Command{Kind: KindStop}},
		{"debug  hello  rover ", Command{Kind: KindDebug, Text: "hello  rover"}},
		{"autoping off", Command{Kind: KindAutoPing}},
		{"help", Command{Kind: KindHelp}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"fly 10", ErrUnknownCommand},
		{"", ErrUnknownCommand},
		{"ping now", ErrUsage},
		{"value enable_video", ErrUsage},
		{"value warp_drive 1", ErrUsage},
		{"value enable_video 70000", ErrUsage},
		{"value enable_video -1", ErrUsage},
		{"video maybe", ErrUsage},
		{"camera 1", ErrUsage},
		{"drive 40000 0", ErrUsage},
		{"drive fast slow", ErrUsage},
		{"debug", ErrUsage},
		{"debug    ", ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := ParseCommand(tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUsageListsEveryCommand(t *testing.T) {
	u := Usage()
	for name, spec := range commands {
		assert.Contains(t, u, spec.usage, name)
	}
}
