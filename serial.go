package serial

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by reads and queries on a port that has been closed.
var ErrClosed = errors.New("serial port closed")

// Port provides line-oriented access to a Linux serial port.
// Close may be called from any goroutine and unblocks a pending ReadLine.
type Port struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	config    Config
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd

	mu      sync.Mutex
	pending []byte // bytes read past the last returned newline
}

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device   string
	BaudRate int
	// ReadTimeout bounds a single ReadLine call. Zero blocks until a newline.
	ReadTimeout time.Duration
}

// Open opens a serial port using the provided Config.
// The port is configured for raw 8N1 operation at the requested baud rate.
func Open(cfg Config) (*Port, error) {
	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	if err := configure(fd, cfg.BaudRate); err != nil {
		unix.Close(fd)
		return nil, err
	}

	// Create self-pipe for killability
	pipeFds := make([]int, 2)
	if err := unix.Pipe2(pipeFds, unix.O_CLOEXEC); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), cfg.Device),
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

func configure(fd, baudRate int) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baudToUnix(baudRate)

	// Reads are gated by poll, so VMIN=1 only matters for the read after it.
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}

	// Turn back into blocking mode now that config is done
	if err := unix.SetNonblock(fd, false); err != nil {
		return fmt.Errorf("set blocking: %w", err)
	}

	return nil
}

// WriteLine writes a line (with specified newline) to the serial port.
func (p *Port) WriteLine(line string, newline string) error {
	_, err := p.file.WriteString(line + newline)
	return err
}

// ReadLine returns the bytes up to and including the next '\n'.
// If ReadTimeout elapses first, whatever has arrived so far is returned,
// which may be empty. Bytes following the newline are kept for the next call.
func (p *Port) ReadLine() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if line, ok := p.cutLine(); ok {
		return line, nil
	}

	var deadline time.Time
	if p.config.ReadTimeout > 0 {
		deadline = time.Now().Add(p.config.ReadTimeout)
	}

	buf := make([]byte, 4096)
	for {
		if !p.IsOpen() {
			return nil, ErrClosed
		}

		timeout := -1
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return p.takePending(), nil
			}
			timeout = max(int(remaining.Milliseconds()), 1)
		}

		// Use poll to wait for data or kill signal
		pfd := []unix.PollFd{
			{Fd: int32(p.fd), Events: unix.POLLIN},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pfd, timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			continue
		}

		if pfd[1].Revents != 0 || !p.IsOpen() {
			return nil, ErrClosed
		}

		switch {
		case pfd[0].Revents&unix.POLLIN != 0:
			n, err := p.file.Read(buf)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", p.config.Device, err)
			}
			p.pending = append(p.pending, buf[:n]...)
			if line, ok := p.cutLine(); ok {
				return line, nil
			}
		case pfd[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0:
			return nil, fmt.Errorf("read %s: device hung up", p.config.Device)
		}
	}
}

// cutLine splits a complete line off the pending buffer. Callers hold p.mu.
func (p *Port) cutLine() ([]byte, bool) {
	idx := bytes.IndexByte(p.pending, '\n')
	if idx < 0 {
		return nil, false
	}
	line := bytes.Clone(p.pending[:idx+1])
	p.pending = p.pending[idx+1:]
	return line, true
}

func (p *Port) takePending() []byte {
	line := p.pending
	p.pending = nil
	return line
}

// InWaiting reports how many received bytes can be read without blocking.
func (p *Port) InWaiting() (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	n, err := unix.IoctlGetInt(p.fd, unix.TIOCINQ)
	if err != nil {
		return 0, fmt.Errorf("query input queue: %w", err)
	}

	p.mu.Lock()
	n += len(p.pending)
	p.mu.Unlock()

	return n, nil
}

// ResetInputBuffer discards received bytes that have not been read yet.
func (p *Port) ResetInputBuffer() error {
	if !p.IsOpen() {
		return ErrClosed
	}
	if err := unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
		return fmt.Errorf("flush input: %w", err)
	}

	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()

	return nil
}

// IsOpen reports whether Close has not been called yet.
func (p *Port) IsOpen() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Close closes the serial port and unblocks any ReadLine call.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll using self-pipe
		unix.Write(p.pipeW, []byte{1})
		err = p.file.Close()
		unix.Close(p.pipeR)
		unix.Close(p.pipeW)
	})
	return err
}

func baudToUnix(baud int) uint32 {
	switch baud {
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	default:
		return unix.B115200 // fallback
	}
}
