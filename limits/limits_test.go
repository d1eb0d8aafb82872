package limits

import (
	"errors"
	"strings"
	"testing"
)

// TestMaxDatagramFitsEthernetMTU verifies the datagram limit leaves room for headers.
func TestMaxDatagramFitsEthernetMTU(t *testing.T) {
	if MaxDatagram+UDPOverhead != 1500 {
		t.Errorf("MaxDatagram + UDPOverhead = %d, want 1500", MaxDatagram+UDPOverhead)
	}
	if ReadBuffer <= MaxDatagram {
		t.Errorf("ReadBuffer = %d must exceed MaxDatagram = %d", ReadBuffer, MaxDatagram)
	}
}

// TestValidateFrameSize tests the generic validation function.
func TestValidateFrameSize(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		maxSize int
		wantErr error
	}{
		{"nil frame", nil, 10, ErrFrameEmpty},
		{"empty frame", []byte{}, 10, ErrFrameEmpty},
		{"single tag", []byte{1}, 10, nil},
		{"at limit", make([]byte, 10), 10, nil},
		{"over limit", make([]byte, 11), 10, ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFrameSize(tt.frame, tt.maxSize)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidateDatagramErrorContext verifies that size errors carry the sizes involved.
func TestValidateDatagramErrorContext(t *testing.T) {
	err := ValidateDatagram(make([]byte, MaxDatagram+1))
	if err == nil {
		t.Fatal("expected error for oversized datagram")
	}
	if !strings.Contains(err.Error(), "1473") || !strings.Contains(err.Error(), "1472") {
		t.Errorf("error %q should contain actual and maximum size", err.Error())
	}
	if err := ValidateDatagram(make([]byte, MaxDatagram)); err != nil {
		t.Errorf("datagram at limit rejected: %v", err)
	}
}

func TestWireSize(t *testing.T) {
	if got := WireSize(5); got != 33 {
		t.Errorf("WireSize(5) = %d, want 33", got)
	}
}
