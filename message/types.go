package message

import "fmt"

// Type identifies the kind of a frame. It is the first byte of every frame.
type Type byte

const (
	// TypeACK acknowledges a high priority frame. Byte 1 names the acked type.
	TypeACK Type = iota
	// TypePing is a bare keepalive used to sample the round trip time.
	TypePing
	// TypeStats carries vehicle uptime, load average and WLAN signal samples.
	TypeStats
	// TypeValue carries a subtype tag and a 16-bit value. Resent until acked.
	TypeValue
	// TypePeriodicValue has the Value layout but is best effort.
	TypePeriodicValue
	// TypeCameraAndSpeed carries camera angles and motor speeds from the controller.
	TypeCameraAndSpeed
	// TypeMotor reports the current motor duty percentages from the vehicle.
	TypeMotor
	// TypeStatus carries vehicle status bits.
	TypeStatus
	// TypeIMU carries nine 16-bit inertial samples.
	TypeIMU
	// TypeMedia carries an opaque media chunk.
	TypeMedia
	// TypeDebug carries a debug text line.
	TypeDebug

	// TypeCount is the size of the type domain. Valid tags are 0..TypeCount-1.
	TypeCount
)

// Status bits carried by TypeStatus frames.
const (
	StatusVideoEnabled uint8 = 1 << iota
	StatusAudioEnabled
	StatusLightsEnabled
)

// layout describes the framing rules of one type.
type layout struct {
	name         string
	length       int // exact frame length, 0 for variable-length frames
	minLength    int // lower bound for variable-length frames
	highPriority bool
}

var layouts = [TypeCount]layout{
	TypeACK:            {name: "ACK", length: 2},
	TypePing:           {name: "PING", length: 1, highPriority: true},
	TypeStats:          {name: "STATS", length: 5},
	TypeValue:          {name: "VALUE", length: 4, highPriority: true},
	TypePeriodicValue:  {name: "PERIODIC_VALUE", length: 4},
	TypeCameraAndSpeed: {name: "CAMERA_AND_SPEED", length: 10, highPriority: true},
	TypeMotor:          {name: "MOTOR", length: 4},
	TypeStatus:         {name: "STATUS", length: 2, highPriority: true},
	TypeIMU:            {name: "IMU", length: 20},
	TypeMedia:          {name: "MEDIA", minLength: 2},
	TypeDebug:          {name: "DEBUG", minLength: 2},
}

// Valid reports whether t lies inside the registered type domain.
func (t Type) Valid() bool {
	return t < TypeCount
}

// HighPriority reports whether frames of this type are acknowledged and
// resent until acknowledged. It is a property of the type, never of an instance.
func (t Type) HighPriority() bool {
	return t.Valid() && layouts[t].highPriority
}

// FixedLength returns the exact frame length of the type and true, or 0 and
// false when the type has a variable length.
func (t Type) FixedLength() (int, bool) {
	if !t.Valid() || layouts[t].length == 0 {
		return 0, false
	}
	return layouts[t].length, true
}

// String returns the wire name of the type.
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TYPE(%d)", byte(t))
	}
	return layouts[t].name
}

// Subtype tags the quantity carried by Value and PeriodicValue frames.
type Subtype byte

const (
	SubtypeNone Subtype = iota
	SubtypeSignalStrength
	SubtypeCPUUsage
	SubtypeUptime
	SubtypeTemperature
	SubtypeDistance
	SubtypeBatteryCurrent
	SubtypeBatteryVoltage
	SubtypeEnableLED
	SubtypeEnableVideo
	SubtypeVideoSource
	SubtypeCameraXY
	SubtypeCameraZoom
	SubtypeCameraFocus
	SubtypeSpeedTurn
	SubtypeVideoQuality
	SubtypeSetPitch
	SubtypeMeasurementsRate

	subtypeCount
)

var subtypeNames = [subtypeCount]string{
	SubtypeNone:             "NONE",
	SubtypeSignalStrength:   "SIGNAL_STRENGTH",
	SubtypeCPUUsage:         "CPU_USAGE",
	SubtypeUptime:           "UPTIME",
	SubtypeTemperature:      "TEMPERATURE",
	SubtypeDistance:         "DISTANCE",
	SubtypeBatteryCurrent:   "BATTERY_CURRENT",
	SubtypeBatteryVoltage:   "BATTERY_VOLTAGE",
	SubtypeEnableLED:        "ENABLE_LED",
	SubtypeEnableVideo:      "ENABLE_VIDEO",
	SubtypeVideoSource:      "VIDEO_SOURCE",
	SubtypeCameraXY:         "CAMERA_XY",
	SubtypeCameraZoom:       "CAMERA_ZOOM",
	SubtypeCameraFocus:      "CAMERA_FOCUS",
	SubtypeSpeedTurn:        "SPEED_TURN",
	SubtypeVideoQuality:     "VIDEO_QUALITY",
	SubtypeSetPitch:         "SET_PITCH",
	SubtypeMeasurementsRate: "MEASUREMENTS_RATE",
}

// String returns the name of the subtype.
func (s Subtype) String() string {
	if s >= subtypeCount {
		return fmt.Sprintf("SUBTYPE(%d)", byte(s))
	}
	return subtypeNames[s]
}

// ParseSubtype resolves a subtype by its name, case-sensitive.
func ParseSubtype(name string) (Subtype, bool) {
	for i, n := range subtypeNames {
		if n == name {
			return Subtype(i), true
		}
	}
	return SubtypeNone, false
}
