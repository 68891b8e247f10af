// Package serial provides a minimal, Linux-only serial port for
// newline-delimited text coming from embedded devices such as an ESP32
// printing debug output over USB.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Line reads bounded by a read timeout, returning partial data on expiry
//   - Input queue queries (InWaiting) and flushes (ResetInputBuffer)
//   - Self-pipe mechanism so Close unblocks a pending read
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	port, err := serial.Open(serial.Config{
//	    Device:      "/dev/ttyUSB0",
//	    BaudRate:    115200,
//	    ReadTimeout: time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	if err := port.ResetInputBuffer(); err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    line, err := port.ReadLine()
//	    if err != nil {
//	        log.Println("Read error:", err)
//	        return
//	    }
//	    fmt.Printf("Received: %q\n", line)
//	}
//
// The monitor subpackage builds the timed console monitor on top of Port,
// and cmd/serial-monitor is its command-line entrypoint.
package serial
