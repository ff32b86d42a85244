package imu

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/banshee-data/imu.report/internal/serialport"
)

// ErrClosed is returned by decode calls after Close, or after a Reopen that
// failed to open the port.
var ErrClosed = errors.New("imu: serial port not open")

// readChunk bounds a single read from the port. The device produces frames
// at a few kHz at most, so one chunk comfortably covers any backlog between
// polls.
const readChunk = 4096

// Reason tags the outcome of a single decode attempt.
type Reason int

const (
	// ReasonOK accompanies a decoded sample.
	ReasonOK Reason = iota
	// ReasonNoHeader means no frame header was found in the buffered bytes.
	ReasonNoHeader
	// ReasonShort means a header was found but the rest of the frame has
	// not arrived yet.
	ReasonShort
	// ReasonCRCFailure means a candidate frame failed the checksum under
	// both coverage windows.
	ReasonCRCFailure
)

func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonNoHeader:
		return "nohdr"
	case ReasonShort:
		return "short"
	case ReasonCRCFailure:
		return "crc"
	default:
		return "unknown"
	}
}

// Decoder turns the byte stream from a serial port into Samples. It owns the
// accumulation buffer and the outcome counters exclusively; it is not safe
// for concurrent use. For a background-reader arrangement see Monitor, which
// confines the Decoder to one goroutine and publishes results atomically.
type Decoder struct {
	factory serialport.Factory
	path    string
	opts    serialport.Options

	port    serialport.Port // nil when closed
	buf     []byte
	scratch []byte
	stats   Stats

	now func() time.Time
}

// Open opens the serial port at path and returns a Decoder reading from it.
func Open(path string, opts serialport.Options) (*Decoder, error) {
	return OpenWithFactory(serialport.SystemFactory{}, path, opts)
}

// OpenWithFactory is Open with an injected port factory. The factory is
// retained so Reopen can re-create the port with the same path and options.
func OpenWithFactory(factory serialport.Factory, path string, opts serialport.Options) (*Decoder, error) {
	normalized, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	port, err := factory.Open(path, normalized)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		factory: factory,
		path:    path,
		opts:    normalized,
		port:    port,
		scratch: make([]byte, readChunk),
		now:     time.Now,
	}, nil
}

// IsOpen reports whether the underlying port is open.
func (d *Decoder) IsOpen() bool {
	return d.port != nil
}

// Port returns the path the decoder was opened with.
func (d *Decoder) Port() string {
	return d.path
}

// Stats returns a snapshot of the cumulative outcome counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// ResetStats zeroes the outcome counters.
func (d *Decoder) ResetStats() {
	d.stats = Stats{}
}

// Close releases the serial port. It is idempotent: closing an already
// closed decoder is a no-op.
func (d *Decoder) Close() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	return err
}

// Reopen closes the port and reopens it with the same path and options. The
// accumulation buffer is discarded, since its bytes belong to the old
// connection; the outcome counters are kept.
func (d *Decoder) Reopen() error {
	d.Close()
	d.buf = d.buf[:0]

	port, err := d.factory.Open(d.path, d.opts)
	if err != nil {
		return err
	}
	d.port = port
	return nil
}

// DecodeLatest drains up to maxBytes from the port (all available bytes if
// maxBytes <= 0), decodes every complete frame in the buffer, and returns
// only the newest sample, or nil if no frame completed this pass. Counters
// are updated for every frame processed, including the interior samples
// that are superseded within the same pass; discarding those bounds the
// caller-observed latency when the device outruns the poll rate.
func (d *Decoder) DecodeLatest(maxBytes int) (*Sample, error) {
	if d.port == nil {
		return nil, ErrClosed
	}

	if err := d.fill(maxBytes); err != nil {
		return nil, err
	}

	samples := d.parseAll(d.now())
	if len(samples) == 0 {
		return nil, nil
	}
	latest := samples[len(samples)-1]
	return &latest, nil
}

// DecodeOne performs a single decode attempt and reports why no sample was
// produced: the returned reason is ReasonOK exactly when the sample is
// non-nil. It pulls at most one chunk of new bytes, so callers get
// per-attempt diagnostics instead of the batched draining of DecodeLatest.
func (d *Decoder) DecodeOne() (*Sample, Reason, error) {
	if d.port == nil {
		return nil, ReasonNoHeader, ErrClosed
	}

	if err := d.fillOnce(); err != nil {
		return nil, ReasonNoHeader, err
	}

	sample, reason := d.parseOne(d.now())
	return sample, reason, nil
}

// fill appends bytes from the port to the buffer until the port has nothing
// queued or maxBytes (when positive) have been read.
func (d *Decoder) fill(maxBytes int) error {
	read := 0
	for {
		chunk := len(d.scratch)
		if maxBytes > 0 {
			if remaining := maxBytes - read; remaining < chunk {
				chunk = remaining
			}
		}
		if chunk <= 0 {
			return nil
		}

		n, err := d.port.Read(d.scratch[:chunk])
		if n > 0 {
			d.buf = append(d.buf, d.scratch[:n]...)
			read += n
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// The testable port signals "nothing queued" with EOF; a
				// real non-blocking port returns (0, nil).
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// fillOnce performs a single read attempt.
func (d *Decoder) fillOnce() error {
	n, err := d.port.Read(d.scratch)
	if n > 0 {
		d.buf = append(d.buf, d.scratch[:n]...)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// retain keeps rest (a sub-slice of d.buf) as the new buffer contents.
func (d *Decoder) retain(rest []byte) {
	d.buf = append(d.buf[:0], rest...)
}

// parseAll decodes every complete frame currently buffered and updates the
// counters. After it returns, the buffer holds either nothing, a partial
// frame starting at a header, or a single trailing byte that may be the
// first half of a split header.
func (d *Decoder) parseAll(captured time.Time) []Sample {
	var samples []Sample
	buf := d.buf
	start := 0

	for {
		j := findHeader(buf, start)
		if j < 0 {
			// No header: keep only the last byte in case a header is split
			// across this read and the next.
			if len(buf) > 0 {
				d.stats.NoHeader++
				d.retain(buf[len(buf)-1:])
			} else {
				d.retain(nil)
			}
			break
		}

		if len(buf)-j < FrameLen {
			// Partial frame: keep from the header onward and wait for the
			// rest.
			d.stats.ShortFrame++
			d.retain(buf[j:])
			break
		}

		frame := buf[j : j+FrameLen]
		start = j + 1 // resynchronize one byte forward on any rejection

		if frame[trailerOffset] != trailerByte {
			continue
		}
		if !RecordID(frame[3]).Valid() {
			continue
		}
		if !checksumMatches(frame) {
			d.stats.CRCFailure++
			continue
		}

		d.stats.OK++
		samples = append(samples, decodeSample(frame, captured))

		// Consume the frame and restart the scan for any further frames in
		// the same pass.
		buf = buf[j+FrameLen:]
		start = 0
	}

	return samples
}

// parseOne is the single-attempt variant of parseAll: it stops at the first
// outcome worth reporting. Trailer and record-id rejections resynchronize
// silently within the same attempt, as they do in parseAll.
func (d *Decoder) parseOne(captured time.Time) (*Sample, Reason) {
	buf := d.buf
	start := 0

	for {
		j := findHeader(buf, start)
		if j < 0 {
			if len(buf) > 0 {
				d.stats.NoHeader++
				d.retain(buf[len(buf)-1:])
			}
			return nil, ReasonNoHeader
		}

		if len(buf)-j < FrameLen {
			d.stats.ShortFrame++
			d.retain(buf[j:])
			return nil, ReasonShort
		}

		frame := buf[j : j+FrameLen]
		start = j + 1

		if frame[trailerOffset] != trailerByte {
			continue
		}
		if !RecordID(frame[3]).Valid() {
			continue
		}
		if !checksumMatches(frame) {
			d.stats.CRCFailure++
			d.retain(buf[start:])
			return nil, ReasonCRCFailure
		}

		d.stats.OK++
		sample := decodeSample(frame, captured)
		d.retain(buf[j+FrameLen:])
		return &sample, ReasonOK
	}
}

// findHeader returns the index of the first header occurrence at or after
// start, or -1.
func findHeader(buf []byte, start int) int {
	if start > len(buf) {
		return -1
	}
	idx := bytes.Index(buf[start:], frameHeader)
	if idx < 0 {
		return -1
	}
	return start + idx
}
