package imu

import "testing"

func TestStatsTotalAndRate(t *testing.T) {
	var zero Stats
	if zero.Total() != 0 {
		t.Errorf("zero Total() = %d", zero.Total())
	}
	if zero.OKRate() != 0 {
		t.Errorf("zero OKRate() = %f, want 0", zero.OKRate())
	}

	s := Stats{OK: 6, CRCFailure: 1, ShortFrame: 2, NoHeader: 1}
	if got := s.Total(); got != 10 {
		t.Errorf("Total() = %d, want 10", got)
	}
	if got := s.OKRate(); got != 0.6 {
		t.Errorf("OKRate() = %f, want 0.6", got)
	}
}

func TestStatsString(t *testing.T) {
	s := Stats{OK: 3, CRCFailure: 1}
	want := "ok=3 crc_fail=1 short=0 nohdr=0 ok_rate=0.750"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
