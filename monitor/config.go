package monitor

import (
	"time"

	serial "github.com/luhtfiimanal/go-linux-serial"
)

// Fixed settings of the console monitor.
const (
	DefaultDevice       = "/dev/ttyUSB0"
	DefaultBaudRate     = 115200
	DefaultReadTimeout  = time.Second
	DefaultDuration     = 20 * time.Second
	DefaultPollInterval = 10 * time.Millisecond
)

// Config describes which device to watch and for how long.
type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
	// Duration is the wall-clock time the loop runs before finishing.
	Duration time.Duration
	// PollInterval is the idle sleep when no input is waiting.
	PollInterval time.Duration
}

// DefaultConfig returns the settings the serial-monitor command runs with.
func DefaultConfig() Config {
	return Config{
		Device:       DefaultDevice,
		BaudRate:     DefaultBaudRate,
		ReadTimeout:  DefaultReadTimeout,
		Duration:     DefaultDuration,
		PollInterval: DefaultPollInterval,
	}
}

func (c Config) portConfig() serial.Config {
	return serial.Config{
		Device:      c.Device,
		BaudRate:    c.BaudRate,
		ReadTimeout: c.ReadTimeout,
	}
}
