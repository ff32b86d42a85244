// Package imu decodes the fixed 19-byte USB telemetry frames emitted by the
// DM IMU family of devices.
//
// Wire format (all multi-byte fields little-endian):
//
//	[0:2]   header 0x55 0xAA
//	[2]     reserved
//	[3]     record id (1=accelerometer, 2=gyroscope, 3=euler angles)
//	[4:16]  three float32 payload values
//	[16:18] uint16 checksum (see crc.go for the coverage ambiguity)
//	[18]    trailer 0x0A
//
// There is no length prefix, so frame boundaries are recovered by scanning
// for the header and resynchronizing byte-by-byte after a failed candidate.
package imu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	// FrameLen is the fixed on-wire frame size in bytes.
	FrameLen = 19

	payloadOffset  = 4
	checksumOffset = 16
	trailerOffset  = 18
	trailerByte    = 0x0A
)

// frameHeader marks the start of every frame.
var frameHeader = []byte{0x55, 0xAA}

// RecordID selects the semantic meaning of a frame's three payload values.
type RecordID byte

const (
	RecordAccel RecordID = 1
	RecordGyro  RecordID = 2
	RecordEuler RecordID = 3
)

// Valid reports whether the record id is one the device is known to emit.
func (r RecordID) Valid() bool {
	return r == RecordAccel || r == RecordGyro || r == RecordEuler
}

func (r RecordID) String() string {
	switch r {
	case RecordAccel:
		return "accel"
	case RecordGyro:
		return "gyro"
	case RecordEuler:
		return "euler"
	default:
		return fmt.Sprintf("unknown(0x%02X)", byte(r))
	}
}

// Sample is one decoded telemetry record. Captured is the wall-clock time of
// the decode pass that produced it; the wire format carries no timestamp.
type Sample struct {
	Record   RecordID   `json:"record"`
	Values   [3]float32 `json:"values"`
	Captured time.Time  `json:"captured"`
}

func (s Sample) String() string {
	if s.Record == RecordEuler {
		return fmt.Sprintf("euler roll=%.3f pitch=%.3f yaw=%.3f", s.Values[0], s.Values[1], s.Values[2])
	}
	return fmt.Sprintf("%s v1=%.3f v2=%.3f v3=%.3f", s.Record, s.Values[0], s.Values[1], s.Values[2])
}

// EncodeFrame serializes one record the way the device does, checksumming
// the full prefix including the header.
func EncodeFrame(record RecordID, values [3]float32) []byte {
	frame := make([]byte, FrameLen)
	copy(frame, frameHeader)
	frame[3] = byte(record)
	for i, v := range values {
		binary.LittleEndian.PutUint32(frame[payloadOffset+4*i:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint16(frame[checksumOffset:], Checksum(frame[:checksumOffset]))
	frame[trailerOffset] = trailerByte
	return frame
}

// decodeSample extracts the payload of a validated frame. The float bits are
// taken verbatim from the wire; no rounding or unit conversion.
func decodeSample(frame []byte, captured time.Time) Sample {
	s := Sample{
		Record:   RecordID(frame[3]),
		Captured: captured,
	}
	for i := range s.Values {
		bits := binary.LittleEndian.Uint32(frame[payloadOffset+4*i:])
		s.Values[i] = math.Float32frombits(bits)
	}
	return s
}
