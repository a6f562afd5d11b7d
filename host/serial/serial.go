package serial

import (
	"io"
	"time"
)

// Port is a serial connection to the robot.
// Native ports use github.com/tarm/serial; tests substitute pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate. USB CDC boards ignore it.
	Baud int

	// ReadTimeout bounds each Read (0 = blocking)
	ReadTimeout time.Duration
}

// DefaultBaud matches the robot's console speed.
const DefaultBaud = 115200

// DefaultConfig returns the configuration for the robot's console port.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}
