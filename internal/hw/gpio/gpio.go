package gpio

import (
	"fmt"

	"github.com/cjeanneret/avrsig/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode selects the direction of a GPIO and, for inputs, its pull resistor.
type PinMode int

const (
	Input PinMode = iota
	InputPullUp
	InputPullDown
	Output
)

func (m PinMode) String() string {
	switch m {
	case Input:
		return "input"
	case InputPullUp:
		return "input-pullup"
	case InputPullDown:
		return "input-pulldown"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("PinMode(%d)", int(m))
	}
}

// IsInput reports whether m is one of the input variants.
func (m PinMode) IsInput() bool {
	return m != Output
}

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation,
// a simulated target, or a mock for development on PC.
//
// Writes made while a pin is an input are latched and become the
// driven level once the pin is switched to Output.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// Backend names accepted by NewDriver.
const (
	BackendRPi    = "rpio"
	BackendPeriph = "periph"
	BackendMock   = "mock"
)

// NewDriver creates a GPIO driver for the named backend.
func NewDriver(backend string) (Driver, error) {
	switch backend {
	case BackendMock:
		debug.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(), nil
	case BackendRPi, "":
		return NewRPiRealDriver()
	case BackendPeriph:
		return NewPeriphDriver()
	default:
		return nil, fmt.Errorf("unknown GPIO backend: %q", backend)
	}
}

// MockDriver is a test implementation that logs actions and echoes
// the last written level of each pin back on read.
type MockDriver struct {
	levels map[int]Level
	modes  map[int]PinMode
}

// NewMockDriver returns an empty MockDriver.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		levels: make(map[int]Level),
		modes:  make(map[int]PinMode),
	}
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	m.modes[pin] = mode
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.levels[pin] = level
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	level := m.levels[pin]
	debug.GPIO("ReadPin", pin, level)
	return level, nil
}

// Mode returns the last mode configured for pin (Input if never set).
func (m *MockDriver) Mode(pin int) PinMode {
	return m.modes[pin]
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
