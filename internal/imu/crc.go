package imu

import "encoding/binary"

// The device checksum is a table-driven CRC-16 with the reflected 0xA001
// polynomial and initial accumulator 0xFFFF.
const (
	crcPoly uint16 = 0xA001
	crcInit uint16 = 0xFFFF
)

// crcTable is the 256-entry lookup driving Checksum.
var crcTable = makeCRCTable()

func makeCRCTable() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ crcPoly
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}

// Checksum computes the device CRC-16 over data.
func Checksum(data []byte) uint16 {
	crc := crcInit
	for _, b := range data {
		crc = (crc >> 8) ^ crcTable[byte(crc)^b]
	}
	return crc
}

// checksumMatches verifies a candidate frame's checksum. Two firmware
// variants disagree on whether the coverage window includes the two header
// bytes, so the header-inclusive window [0,16) is tried first and the
// header-exclusive window [2,16) accepted as a fallback.
func checksumMatches(frame []byte) bool {
	wire := binary.LittleEndian.Uint16(frame[checksumOffset:])
	if Checksum(frame[:checksumOffset]) == wire {
		return true
	}
	return Checksum(frame[len(frameHeader):checksumOffset]) == wire
}
