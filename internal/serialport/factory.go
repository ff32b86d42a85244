package serialport

import (
	"fmt"

	"go.bug.st/serial"
)

// SystemFactory opens real serial ports via go.bug.st/serial.
type SystemFactory struct{}

// Open opens the port at path in non-blocking mode. A read timeout of zero
// makes Read return immediately with whatever bytes the driver has queued,
// which is the contract the decoder's polling loop relies on.
func (SystemFactory) Open(path string, opts Options) (Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(0); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set non-blocking read mode: %w", err)
	}

	// Drop whatever accumulated in the driver buffer before we attached, so
	// the first decode pass starts near the live edge of the stream.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to reset input buffer: %w", err)
	}

	return port, nil
}
