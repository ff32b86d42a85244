package main

import (
	"flag"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/imu.report/internal/imu"
	"github.com/banshee-data/imu.report/internal/serialport"
)

// TestFlagDefaults verifies the flags exist and carry the documented
// defaults.
func TestFlagDefaults(t *testing.T) {
	if *devMode != false {
		t.Errorf("expected dev default to be false, got %v", *devMode)
	}
	if *listen != ":8080" {
		t.Errorf("expected listen default to be :8080, got %q", *listen)
	}
	if *portPath != "/dev/ttyACM0" {
		t.Errorf("expected port default to be /dev/ttyACM0, got %q", *portPath)
	}
	if *baudRate != 921600 {
		t.Errorf("expected baud default to be 921600, got %d", *baudRate)
	}
	if *printInterval != 500*time.Millisecond {
		t.Errorf("expected print-interval default to be 500ms, got %v", *printInterval)
	}
	if *statsInterval != 10*time.Second {
		t.Errorf("expected stats-interval default to be 10s, got %v", *statsInterval)
	}
	if *readSleep != time.Millisecond {
		t.Errorf("expected read-sleep default to be 1ms, got %v", *readSleep)
	}
}

// TestFlagParsing verifies the flags parse correctly. This uses a separate
// FlagSet to avoid polluting the global flags.
func TestFlagParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantPort string
		wantBaud int
	}{
		{
			name:     "defaults",
			args:     []string{},
			wantPort: "/dev/ttyACM0",
			wantBaud: 921600,
		},
		{
			name:     "port and baud overridden",
			args:     []string{"--port=/dev/ttyUSB3", "--baud=115200"},
			wantPort: "/dev/ttyUSB3",
			wantBaud: 115200,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			port := fs.String("port", "/dev/ttyACM0", "Serial port device")
			baud := fs.Int("baud", 921600, "Serial baud rate")

			if err := fs.Parse(tc.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}

			if *port != tc.wantPort {
				t.Errorf("port = %q, want %q", *port, tc.wantPort)
			}
			if *baud != tc.wantBaud {
				t.Errorf("baud = %d, want %d", *baud, tc.wantBaud)
			}
		})
	}
}

// TestDevFeederFramesDecode verifies that the synthetic frames the dev-mode
// feeder produces are accepted by the decoder.
func TestDevFeederFramesDecode(t *testing.T) {
	feeder := &devFeeder{}
	dec, err := imu.OpenWithFactory(feeder, "dev:synthetic", serialport.Options{})
	if err != nil {
		t.Fatalf("failed to open decoder: %v", err)
	}
	defer dec.Close()

	values := [3]float32{12.5, -3.25, 180}
	feeder.port.AddReadData(imu.EncodeFrame(imu.RecordEuler, values))

	sample, err := dec.DecodeLatest(0)
	if err != nil {
		t.Fatalf("DecodeLatest: %v", err)
	}
	if sample == nil {
		t.Fatal("no sample decoded from synthetic frame")
	}
	if sample.Record != imu.RecordEuler {
		t.Errorf("record = %v, want euler", sample.Record)
	}
	if diff := cmp.Diff(values, sample.Values); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}
