// Package monitor prints timestamped text lines received on a serial port for
// a fixed period of time.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	serial "github.com/luhtfiimanal/go-linux-serial"
	"github.com/luhtfiimanal/go-linux-serial/internal/logger"
)

var (
	// ErrOpenPort marks a failure to acquire the serial port.
	ErrOpenPort = errors.New("open serial port")
	// ErrUnexpected marks any other failure that ended the run early.
	ErrUnexpected = errors.New("unexpected error")
)

// Port is the part of a serial port the monitor needs.
// Close must be safe to call more than once and from another goroutine.
type Port interface {
	InWaiting() (int, error)
	ReadLine() ([]byte, error)
	ResetInputBuffer() error
	IsOpen() bool
	Close() error
}

// Opener acquires a Port.
type Opener func(cfg serial.Config) (Port, error)

// OpenSerial opens a Linux serial port.
func OpenSerial(cfg serial.Config) (Port, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}

	return port, nil
}

// Monitor owns one serial port for the duration of Run.
type Monitor struct {
	cfg  Config
	out  io.Writer
	open Opener
	now  func() time.Time
}

// New creates a Monitor for cfg.
func New(cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:  cfg,
		out:  os.Stdout,
		open: OpenSerial,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run opens the port, prints every non-empty line until Duration has elapsed
// or ctx is cancelled, and closes the port. Each failure is printed once;
// the returned error only classifies it (ErrOpenPort or ErrUnexpected).
// Cancellation is a normal stop and returns nil.
func (m *Monitor) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = m.unexpected(ctx, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx = logger.WithKV(ctx, "device", m.cfg.Device)

	port, err := m.open(m.cfg.portConfig())
	if err != nil {
		m.printf("Error opening serial port: %v\n", err)
		return fmt.Errorf("%w: %w", ErrOpenPort, err)
	}
	defer m.closePort(ctx, port)

	logger.DebugKV(ctx, "serial port opened", "baud", m.cfg.BaudRate, "read_timeout", m.cfg.ReadTimeout)

	// Closing the port is what wakes a ReadLine blocked in its timeout.
	stop := context.AfterFunc(ctx, func() { m.closePort(ctx, port) })
	defer stop()

	m.printBanner()

	err = m.loop(ctx, port)
	switch {
	case ctx.Err() != nil:
		m.closePort(ctx, port)
		m.printf("\nMonitoring stopped by user.\n")
		return nil
	case err != nil:
		return m.unexpected(ctx, err)
	}

	m.closePort(ctx, port)
	m.printf("\nMonitoring complete.\n")

	return nil
}

func (m *Monitor) printBanner() {
	m.printf("=== Serial Monitor ===\n")
	m.printf("Port: %s, Baud: %d\n", m.cfg.Device, m.cfg.BaudRate)
	m.printf("Press Ctrl+C to exit\n")
	m.printf("%s\n", strings.Repeat("=", 50))
}

// loop polls the port until the deadline. It returns nil at the deadline,
// ctx.Err() on cancellation, and an error for failures that stop the loop.
func (m *Monitor) loop(ctx context.Context, port Port) error {
	if err := port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}

	start := m.now()
	for m.now().Sub(start) < m.cfg.Duration {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := port.InWaiting()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("query input buffer: %w", err)
		}

		if n == 0 {
			if !sleep(ctx, m.cfg.PollInterval) {
				return ctx.Err()
			}
			continue
		}

		line, err := m.readLine(port)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.printf("Error reading line: %v\n", err)
			continue
		}
		if line.Text == "" {
			continue
		}

		m.printf("%s\n", line)
	}

	return nil
}

func (m *Monitor) readLine(port Port) (LogLine, error) {
	raw, err := port.ReadLine()
	if err != nil {
		return LogLine{}, err
	}

	return LogLine{Time: m.now(), Text: Decode(raw)}, nil
}

// closePort closes port if it is still open.
func (m *Monitor) closePort(ctx context.Context, port Port) {
	if !port.IsOpen() {
		return
	}
	if err := port.Close(); err != nil {
		logger.WarnKV(ctx, "close serial port", "error", err)
		return
	}

	logger.DebugKV(ctx, "serial port closed")
}

func (m *Monitor) unexpected(ctx context.Context, err error) error {
	logger.DebugKV(ctx, "monitor stopped", "error", err)
	m.printf("Unexpected error: %v\n", err)

	return fmt.Errorf("%w: %w", ErrUnexpected, err)
}

func (m *Monitor) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

// sleep waits for d or until ctx is done. It reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
