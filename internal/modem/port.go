package modem

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Port is the serial channel to the GSM modem. It is the one abstraction the
// driver is written against, so tests can script a port in memory.
//
// Read must be non-blocking-ish: it returns (0, nil) when no bytes are
// pending rather than blocking indefinitely, which lets the driver poll
// against its own deadlines. [Open] configures the real port accordingly.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	Close() error
}

// portReadTimeout bounds a single Read on the real serial port. Short enough
// that driver deadlines stay accurate, long enough to avoid a busy spin.
const portReadTimeout = 100 * time.Millisecond

// Open opens the modem TTY at the given baud rate, 8N1.
func Open(device string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	if err := port.SetReadTimeout(portReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
	}
	return port, nil
}
