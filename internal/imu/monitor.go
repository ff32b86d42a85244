package imu

import (
	"context"
	"sync/atomic"
	"time"
)

// Monitor runs a Decoder on a dedicated goroutine and publishes the most
// recent sample and a counter snapshot for other goroutines to read at
// their own cadence.
//
// The Decoder, its buffer, and its counters are owned exclusively by the
// goroutine running Run; readers only ever touch the two published cells.
// Publication is an atomic pointer swap, so a reader never observes a
// partially written sample, and superseded samples are simply overwritten
// rather than queued.
type Monitor struct {
	dec       *Decoder
	readSleep time.Duration

	latest atomic.Pointer[Sample]
	stats  atomic.Pointer[Stats]
	reopen chan struct{}
}

// NewMonitor wraps dec in a Monitor. readSleep limits how hard the drain
// loop spins between polls; values <= 0 default to one millisecond.
func NewMonitor(dec *Decoder, readSleep time.Duration) *Monitor {
	if readSleep <= 0 {
		readSleep = time.Millisecond
	}
	return &Monitor{
		dec:       dec,
		readSleep: readSleep,
		reopen:    make(chan struct{}, 1),
	}
}

// Run drains the port until the context is cancelled or the port fails.
// Port I/O errors are returned to the caller, who may Reopen the decoder
// and call Run again; byte-level anomalies are counted, never returned.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-m.reopen:
			if err := m.dec.Reopen(); err != nil {
				return err
			}

		default:
			sample, err := m.dec.DecodeLatest(0)
			if err != nil {
				m.publishStats()
				return err
			}
			if sample != nil {
				m.latest.Store(sample)
			}
			m.publishStats()
			time.Sleep(m.readSleep)
		}
	}
}

func (m *Monitor) publishStats() {
	snapshot := m.dec.Stats()
	m.stats.Store(&snapshot)
}

// Latest returns the most recently published sample, or nil if no frame has
// been decoded yet.
func (m *Monitor) Latest() *Sample {
	return m.latest.Load()
}

// Stats returns the most recently published counter snapshot.
func (m *Monitor) Stats() Stats {
	if s := m.stats.Load(); s != nil {
		return *s
	}
	return Stats{}
}

// RequestReopen asks the goroutine running Run to close and reopen the
// port. The reopen happens on the owning goroutine, keeping the decoder
// single-writer. Requests made while one is already pending coalesce.
func (m *Monitor) RequestReopen() {
	select {
	case m.reopen <- struct{}{}:
	default:
	}
}
