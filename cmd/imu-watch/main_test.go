package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/banshee-data/imu.report/internal/imu"
	"github.com/banshee-data/imu.report/internal/serialport"
)

func newTestModel(t *testing.T) (model, *serialport.TestablePort) {
	t.Helper()

	port := serialport.NewTestablePort()
	dec, err := imu.OpenWithFactory(serialport.NewMockFactory(port), "/dev/ttyTEST0", serialport.Options{})
	if err != nil {
		t.Fatalf("failed to open decoder: %v", err)
	}
	t.Cleanup(func() { dec.Close() })

	return model{dec: dec, refresh: time.Millisecond}, port
}

func TestTickDecodesAndRenders(t *testing.T) {
	m, port := newTestModel(t)
	port.AddReadData(imu.EncodeFrame(imu.RecordEuler, [3]float32{1.5, -2, 90}))

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(model)
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}
	if m.sample == nil {
		t.Fatal("no sample decoded on tick")
	}
	if m.sample.Record != imu.RecordEuler {
		t.Errorf("record = %v, want euler", m.sample.Record)
	}

	view := m.View()
	for _, want := range []string{"roll", "pitch", "yaw", "ok=1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTickKeepsLastSampleWhenIdle(t *testing.T) {
	m, port := newTestModel(t)
	port.AddReadData(imu.EncodeFrame(imu.RecordGyro, [3]float32{1, 2, 3}))

	next, _ := m.Update(tickMsg(time.Now()))
	m = next.(model)
	first := m.sample

	// Nothing queued: the displayed sample must not be cleared.
	next, _ = m.Update(tickMsg(time.Now()))
	m = next.(model)
	if m.sample != first {
		t.Error("idle tick replaced the displayed sample")
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t)

	for _, key := range []string{"q", "ctrl+c"} {
		var msg tea.KeyMsg
		if key == "ctrl+c" {
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("key %q did not quit", key)
		}
	}
}

func TestPortErrorShownAndRecoverable(t *testing.T) {
	m, port := newTestModel(t)
	port.ReadError = errTest

	next, _ := m.Update(tickMsg(time.Now()))
	m = next.(model)
	if m.portErr == nil {
		t.Fatal("port error not captured")
	}
	if !strings.Contains(m.View(), "port error") {
		t.Error("view does not show the port error")
	}

	// The error is one-shot; the next tick clears it.
	next, _ = m.Update(tickMsg(time.Now()))
	m = next.(model)
	if m.portErr != nil {
		t.Errorf("port error not cleared after recovery: %v", m.portErr)
	}
}

var errTest = errors.New("simulated read failure")
