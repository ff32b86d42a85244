package imu

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

// frameOption mutates a freshly built frame, e.g. to corrupt a field.
type frameOption func([]byte)

// withHeaderExclusiveChecksum recomputes the checksum over [2,16) instead of
// the default header-inclusive [0,16) window.
func withHeaderExclusiveChecksum() frameOption {
	return func(frame []byte) {
		sum := Checksum(frame[2:checksumOffset])
		binary.LittleEndian.PutUint16(frame[checksumOffset:], sum)
	}
}

// withTrailer overrides the trailer byte.
func withTrailer(b byte) frameOption {
	return func(frame []byte) {
		frame[trailerOffset] = b
	}
}

// withBadChecksum sets a checksum that matches neither coverage window.
func withBadChecksum() frameOption {
	return func(frame []byte) {
		bad := binary.LittleEndian.Uint16(frame[checksumOffset:]) ^ 0x5A5A
		for bad == Checksum(frame[:checksumOffset]) || bad == Checksum(frame[2:checksumOffset]) {
			bad++
		}
		binary.LittleEndian.PutUint16(frame[checksumOffset:], bad)
	}
}

// buildFrame constructs a well-formed 19-byte frame carrying the given
// record and payload values, then applies any options.
func buildFrame(t *testing.T, rid RecordID, v1, v2, v3 float32, opts ...frameOption) []byte {
	t.Helper()

	frame := make([]byte, FrameLen)
	copy(frame, frameHeader)
	frame[2] = 0x00
	frame[3] = byte(rid)
	binary.LittleEndian.PutUint32(frame[payloadOffset:], math.Float32bits(v1))
	binary.LittleEndian.PutUint32(frame[payloadOffset+4:], math.Float32bits(v2))
	binary.LittleEndian.PutUint32(frame[payloadOffset+8:], math.Float32bits(v3))
	binary.LittleEndian.PutUint16(frame[checksumOffset:], Checksum(frame[:checksumOffset]))
	frame[trailerOffset] = trailerByte

	for _, opt := range opts {
		opt(frame)
	}
	return frame
}

func TestRecordIDValid(t *testing.T) {
	for rid := RecordID(0); rid < 10; rid++ {
		want := rid >= 1 && rid <= 3
		if got := rid.Valid(); got != want {
			t.Errorf("RecordID(%d).Valid() = %v, want %v", rid, got, want)
		}
	}
}

func TestRecordIDString(t *testing.T) {
	cases := map[RecordID]string{
		RecordAccel: "accel",
		RecordGyro:  "gyro",
		RecordEuler: "euler",
		7:           "unknown(0x07)",
	}
	for rid, want := range cases {
		if got := rid.String(); got != want {
			t.Errorf("RecordID(%d).String() = %q, want %q", rid, got, want)
		}
	}
}

func TestDecodeSampleBitExact(t *testing.T) {
	// Values chosen to have awkward float32 representations; the decode
	// must reproduce their exact bit patterns.
	v1 := float32(math.Pi)
	v2 := float32(-0.1)
	v3 := float32(1e-38)

	frame := buildFrame(t, RecordEuler, v1, v2, v3)
	captured := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	sample := decodeSample(frame, captured)

	if sample.Record != RecordEuler {
		t.Errorf("record = %v, want %v", sample.Record, RecordEuler)
	}
	if !sample.Captured.Equal(captured) {
		t.Errorf("captured = %v, want %v", sample.Captured, captured)
	}
	for i, want := range []float32{v1, v2, v3} {
		if gotBits, wantBits := math.Float32bits(sample.Values[i]), math.Float32bits(want); gotBits != wantBits {
			t.Errorf("value %d bits = 0x%08X, want 0x%08X", i+1, gotBits, wantBits)
		}
	}
}

func TestEncodeFrameIsValid(t *testing.T) {
	values := [3]float32{1.25, -2.5, 359.9}
	frame := EncodeFrame(RecordGyro, values)

	if len(frame) != FrameLen {
		t.Fatalf("frame length = %d, want %d", len(frame), FrameLen)
	}
	want := buildFrame(t, RecordGyro, values[0], values[1], values[2])
	for i := range frame {
		if frame[i] != want[i] {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, frame[i], want[i])
		}
	}
	if !checksumMatches(frame) {
		t.Error("encoded frame fails checksum validation")
	}
}

func TestSampleString(t *testing.T) {
	euler := Sample{Record: RecordEuler, Values: [3]float32{1, 2, 3}}
	if got := euler.String(); got != "euler roll=1.000 pitch=2.000 yaw=3.000" {
		t.Errorf("euler String() = %q", got)
	}

	accel := Sample{Record: RecordAccel, Values: [3]float32{1, 2, 3}}
	if got := accel.String(); got != "accel v1=1.000 v2=2.000 v3=3.000" {
		t.Errorf("accel String() = %q", got)
	}
}
