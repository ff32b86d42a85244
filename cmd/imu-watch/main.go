// Command imu-watch shows live IMU telemetry in the terminal. Unlike imud it
// polls the decoder from the UI loop itself, so there is no background
// goroutine touching the port.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/banshee-data/imu.report/internal/imu"
	"github.com/banshee-data/imu.report/internal/serialport"
)

var (
	devMode  = flag.Bool("dev", false, "Feed synthetic frames instead of opening a serial port")
	portPath = flag.String("port", "/dev/ttyACM0", "Serial port device (ignored in dev mode)")
	baudRate = flag.Int("baud", 921600, "Serial baud rate")
	refresh  = flag.Duration("refresh", 50*time.Millisecond, "UI refresh interval")
)

type tickMsg time.Time

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	dec     *imu.Decoder
	refresh time.Duration

	sample  *imu.Sample
	portErr error
}

func (m model) Init() tea.Cmd {
	return tick(m.refresh)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.portErr = m.dec.Reopen()
			return m, nil
		}

	case tickMsg:
		sample, err := m.dec.DecodeLatest(0)
		if err != nil {
			m.portErr = err
		} else {
			m.portErr = nil
			if sample != nil {
				m.sample = sample
			}
		}
		return m, tick(m.refresh)
	}
	return m, nil
}

func axisLabels(record imu.RecordID) [3]string {
	if record == imu.RecordEuler {
		return [3]string{"roll ", "pitch", "yaw  "}
	}
	return [3]string{"x", "y", "z"}
}

func (m model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "imu-watch  %s\n\n", m.dec.Port())

	if m.portErr != nil {
		fmt.Fprintf(&b, "  port error: %v  (press r to reopen)\n\n", m.portErr)
	}

	if m.sample == nil {
		b.WriteString("  waiting for first frame...\n\n")
	} else {
		fmt.Fprintf(&b, "  %s @ %s\n", m.sample.Record, m.sample.Captured.Format("15:04:05.000"))
		labels := axisLabels(m.sample.Record)
		for i, v := range m.sample.Values {
			fmt.Fprintf(&b, "    %s %10.3f\n", labels[i], v)
		}
		b.WriteString("\n")
	}

	st := m.dec.Stats()
	fmt.Fprintf(&b, "  frames ok=%d crc=%d short=%d nohdr=%d (%.1f%% ok)\n\n",
		st.OK, st.CRCFailure, st.ShortFrame, st.NoHeader, 100*st.OKRate())
	b.WriteString("  q: quit   r: reopen port\n")
	return b.String()
}

// startSyntheticFeed pushes euler frames onto an in-memory port so the UI
// can be tried without hardware.
func startSyntheticFeed(ctx context.Context, port *serialport.TestablePort) {
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()

		start := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				t := time.Since(start).Seconds()
				port.AddReadData(imu.EncodeFrame(imu.RecordEuler, [3]float32{
					float32(20 * math.Sin(t)),
					float32(10 * math.Cos(t/2)),
					float32(math.Mod(30*t, 360)),
				}))
			}
		}
	}()
}

func main() {
	flag.Parse()

	opts := serialport.Options{BaudRate: *baudRate}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var dec *imu.Decoder
	var err error
	if *devMode {
		port := serialport.NewTestablePort()
		dec, err = imu.OpenWithFactory(serialport.NewMockFactory(port), "dev:synthetic", opts)
		if err == nil {
			startSyntheticFeed(ctx, port)
		}
	} else {
		dec, err = imu.Open(*portPath, opts)
	}
	if err != nil {
		log.Fatalf("failed to open serial port: %v", err)
	}
	defer dec.Close()

	p := tea.NewProgram(model{dec: dec, refresh: *refresh})
	if _, err := p.Run(); err != nil {
		log.Fatalf("UI error: %v", err)
	}
}
