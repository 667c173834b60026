package debug

import (
	"io"
	"log"
	"os"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (backend, detected device)
	LevelVerbose = 2 // Verbose (transactions, pin map)
	LevelTrace   = 3 // Trace (every GPIO call and delay)
)

var (
	level  int
	logger *log.Logger
)

// Init initializes the debug system with a level (0-3).
// 0 = no output
// 1 = important info (backend, detected device)
// 2 = verbose (command/address/data transactions)
// 3 = trace (GPIO, very low level)
//
// Output goes to stderr: stdout is reserved for the signature line.
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = log.New(os.Stderr, "[avrsig] ", log.LstdFlags|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output. It has no effect while debug is off.
func SetOutput(w io.Writer) {
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Info prints a level 1 message.
func Info(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] "+format, args...)
	}
}

// Value prints a named value (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO]   %s = %v", name, value)
	}
}

// Step prints a numbered step (level 1).
func Step(num int, description string) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] Step %d: %s", num, description)
	}
}

// Verbose prints a level 2 message.
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] "+format, args...)
	}
}

// Transaction prints one bus transaction (level 2).
func Transaction(kind string, value byte) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] %s 0x%02x", kind, value)
	}
}

// Trace prints a level 3 message.
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[TRACE] "+format, args...)
	}
}

// GPIO prints a GPIO operation (level 3).
func GPIO(operation string, pin int, value interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[GPIO] %s pin=%d value=%v", operation, pin, value)
	}
}

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[ERROR] %v", err)
	}
}
