package monitor

import (
	"errors"
	"sync"

	serial "github.com/luhtfiimanal/go-linux-serial"
)

// read is one scripted ReadLine result.
type read struct {
	data  string
	err   error
	panic bool
}

// fakePort replays scripted reads. With blockWhenEmpty set, ReadLine waits
// for Close once the script is exhausted, like a device that never finishes
// a line.
type fakePort struct {
	mu             sync.Mutex
	reads          []read
	blockWhenEmpty bool
	inWaitingErr   error
	closeErr       error

	closed     chan struct{}
	closeOnce  sync.Once
	closeCalls int
	resetCalls int
}

func newFakePort(reads ...read) *fakePort {
	return &fakePort{reads: reads, closed: make(chan struct{})}
}

func (p *fakePort) InWaiting() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inWaitingErr != nil {
		return 0, p.inWaitingErr
	}
	if len(p.reads) > 0 || p.blockWhenEmpty {
		return 1, nil
	}

	return 0, nil
}

func (p *fakePort) ReadLine() ([]byte, error) {
	p.mu.Lock()
	if !p.isOpenLocked() {
		p.mu.Unlock()
		return nil, serial.ErrClosed
	}
	if len(p.reads) == 0 {
		p.mu.Unlock()
		if p.blockWhenEmpty {
			<-p.closed
			return nil, serial.ErrClosed
		}
		return nil, nil
	}
	r := p.reads[0]
	p.reads = p.reads[1:]
	p.mu.Unlock()

	if r.panic {
		panic(errors.New("driver exploded"))
	}

	return []byte(r.data), r.err
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetCalls++

	return nil
}

func (p *fakePort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.isOpenLocked()
}

func (p *fakePort) isOpenLocked() bool {
	select {
	case <-p.closed:
		return false
	default:
		return true
	}
}

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closeCalls++
		close(p.closed)
		p.mu.Unlock()
	})

	return p.closeErr
}

func (p *fakePort) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closeCalls
}

func (p *fakePort) opener() Opener {
	return func(serial.Config) (Port, error) {
		return p, nil
	}
}
