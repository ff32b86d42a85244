package imu

import "fmt"

// Stats holds cumulative counters of frame decode outcomes. Counters only
// grow for the lifetime of a Decoder; Reopen does not reset them.
type Stats struct {
	OK         uint64 `json:"ok"`
	CRCFailure uint64 `json:"crc_failure"`
	ShortFrame uint64 `json:"short_frame"`
	NoHeader   uint64 `json:"no_header"`
}

// Total returns the number of decode outcomes counted so far.
func (s Stats) Total() uint64 {
	return s.OK + s.CRCFailure + s.ShortFrame + s.NoHeader
}

// OKRate returns the fraction of outcomes that were successful decodes, or
// zero before any outcome has been counted.
func (s Stats) OKRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.OK) / float64(total)
}

func (s Stats) String() string {
	return fmt.Sprintf("ok=%d crc_fail=%d short=%d nohdr=%d ok_rate=%.3f",
		s.OK, s.CRCFailure, s.ShortFrame, s.NoHeader, s.OKRate())
}
