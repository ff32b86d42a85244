package serialport

import (
	"errors"
	"testing"
)

func TestTestablePortNonBlockingRead(t *testing.T) {
	port := NewTestablePort()

	buf := make([]byte, 16)
	n, err := port.Read(buf)
	if n != 0 || err != nil {
		t.Errorf("Read on empty port = (%d, %v), want (0, nil)", n, err)
	}

	port.AddReadData([]byte{1, 2, 3})
	n, err = port.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 3 {
		t.Errorf("Read n = %d, want 3", n)
	}
}

func TestTestablePortReadErrorOnce(t *testing.T) {
	port := NewTestablePort()
	wantErr := errors.New("boom")
	port.ReadError = wantErr

	if _, err := port.Read(make([]byte, 1)); !errors.Is(err, wantErr) {
		t.Errorf("first Read err = %v, want %v", err, wantErr)
	}
	if _, err := port.Read(make([]byte, 1)); err != nil {
		t.Errorf("second Read err = %v, want nil (error is one-shot)", err)
	}
}

func TestTestablePortClose(t *testing.T) {
	port := NewTestablePort()
	if err := port.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := port.Read(make([]byte, 1)); err == nil {
		t.Error("Read on closed port should fail")
	}
	if _, err := port.Write([]byte{1}); err == nil {
		t.Error("Write on closed port should fail")
	}
}

func TestMockFactoryRecordsCalls(t *testing.T) {
	port := NewTestablePort()
	factory := NewMockFactory(port)

	got, err := factory.Open("/dev/ttyACM0", Options{BaudRate: 921600})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != port {
		t.Error("Open did not return the configured port")
	}
	if factory.OpenCount() != 1 {
		t.Errorf("OpenCount = %d, want 1", factory.OpenCount())
	}
	last := factory.LastCall()
	if last == nil || last.Path != "/dev/ttyACM0" || last.Opts.BaudRate != 921600 {
		t.Errorf("LastCall = %+v", last)
	}
}

func TestMockFactoryError(t *testing.T) {
	factory := NewMockFactory(nil)
	factory.Error = errors.New("no such device")

	if _, err := factory.Open("/dev/ttyACM0", Options{}); err == nil {
		t.Error("Open should propagate the configured error")
	}
}
