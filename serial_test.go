package serial

import (
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

// openPair creates a PTY pair and opens the slave side as a Port.
func openPair(t *testing.T, readTimeout time.Duration) (*os.File, *Port) {
	t.Helper()

	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	port, err := Open(Config{
		Device:      slave.Name(),
		BaudRate:    115200,
		ReadTimeout: readTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	return master, port
}

func TestPort_ReadLine(t *testing.T) {
	master, port := openPair(t, time.Second)

	_, err := master.Write([]byte("hello\r\n"))
	require.NoError(t, err)

	line, err := port.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "hello\r\n", string(line))
}

func TestPort_ReadLineKeepsRemainder(t *testing.T) {
	master, port := openPair(t, time.Second)

	_, err := master.Write([]byte("one\ntwo\n"))
	require.NoError(t, err)

	first, err := port.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "one\n", string(first))

	second, err := port.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "two\n", string(second))
}

func TestPort_ReadLineTimeout(t *testing.T) {
	_, port := openPair(t, 50*time.Millisecond)

	start := time.Now()
	line, err := port.ReadLine()
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Empty(t, line)
	require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	require.Less(t, elapsed, time.Second)
}

func TestPort_ReadLinePartialOnTimeout(t *testing.T) {
	master, port := openPair(t, 100*time.Millisecond)

	_, err := master.Write([]byte("abc"))
	require.NoError(t, err)

	line, err := port.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "abc", string(line))
}

func TestPort_InWaiting(t *testing.T) {
	master, port := openPair(t, time.Second)

	n, err := port.InWaiting()
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = master.Write([]byte("data\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := port.InWaiting()
		return err == nil && n == 5
	}, time.Second, 5*time.Millisecond)
}

func TestPort_ResetInputBuffer(t *testing.T) {
	master, port := openPair(t, 50*time.Millisecond)

	_, err := master.Write([]byte("stale\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := port.InWaiting()
		return err == nil && n > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, port.ResetInputBuffer())

	n, err := port.InWaiting()
	require.NoError(t, err)
	require.Zero(t, n)

	line, err := port.ReadLine()
	require.NoError(t, err)
	require.Empty(t, line)
}

func TestPort_WriteLine(t *testing.T) {
	master, port := openPair(t, time.Second)

	// Write a line using WriteLine
	line := "testline"
	newline := "\r\n"
	err := port.WriteLine(line, newline)
	require.NoError(t, err)

	// Read from master and check output
	buf := make([]byte, len(line)+len(newline))
	n, err := master.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(line)+len(newline), n)
	require.Equal(t, line+newline, string(buf))
}

func TestPort_CloseUnblocksReadLine(t *testing.T) {
	_, port := openPair(t, 0)

	errs := make(chan error, 1)
	go func() {
		_, err := port.ReadLine()
		errs <- err
	}()

	// Give the goroutine a chance to block
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, port.Close())
	require.False(t, port.IsOpen())

	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for ReadLine to return after Close")
	}

	// Should be a no-op due to closeOnce
	require.NoError(t, port.Close())

	_, err := port.InWaiting()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, port.ResetInputBuffer(), ErrClosed)
}

func TestPort_ErrorPropagation(t *testing.T) {
	master, port := openPair(t, 0)

	errs := make(chan error, 1)
	go func() {
		_, err := port.ReadLine()
		errs <- err
	}()

	// Simulate device disconnect by closing master
	require.NoError(t, master.Close())

	select {
	case err := <-errs:
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrClosed)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for error after device disconnect")
	}
}

func TestOpen_MissingDevice(t *testing.T) {
	_, err := Open(Config{Device: "/dev/does-not-exist", BaudRate: 115200})
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}
