// Package logger wraps zap with a process-wide sugared logger that writes
// console-encoded diagnostics to stderr, plus context helpers so the monitor
// can log without holding a logger of its own.
//
// Stdout is reserved for the monitor's own output; nothing here writes to it.
package logger
