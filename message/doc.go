// Package message defines the wire format of the vehicle link: a one-byte
// type tag followed by a type-specific body laid out at fixed byte offsets.
//
// # Wire Format
//
// All multi-byte fields are big endian. Every frame fits one UDP datagram.
//
//	ACK               [0]=0  [1]=acked type                         2 bytes
//	PING              [0]=1                                         1 byte
//	STATS             [0]=2  [1]=reserved [2]=uptime min
//	                         [3]=load avg x10 [4]=wlan %            5 bytes
//	VALUE             [0]=3  [1]=subtype [2..3]=uint16              4 bytes
//	PERIODIC_VALUE    [0]=4  same as VALUE                          4 bytes
//	CAMERA_AND_SPEED  [0]=5  [1]=reserved [2..9]=4 x int16         10 bytes
//	MOTOR             [0]=6  [1]=reserved [2]=right [3]=left        4 bytes
//	STATUS            [0]=7  [1]=status bits                        2 bytes
//	IMU               [0]=8  [1]=reserved [2..19]=9 x int16        20 bytes
//	MEDIA             [0]=9  [1..]=opaque chunk               2..1472 bytes
//	DEBUG             [0]=10 [1..]=UTF-8 text                 2..1472 bytes
//
// A frame whose length differs from the length implied by its type, whose
// tag lies outside the type domain, or whose DEBUG text is not valid UTF-8
// fails to decode with ErrInvalidFrame:
//
//	msg, err := message.Decode(datagram)
//	if errors.Is(err, message.ErrInvalidFrame) {
//	    // drop it
//	}
//
// # Priority
//
// PING, VALUE, CAMERA_AND_SPEED and STATUS are high priority: the receiver
// acknowledges them and the sender resends them until acknowledged. Priority
// is a property of the type; PERIODIC_VALUE exists so the same subtype/value
// pair can also travel best effort.
package message
