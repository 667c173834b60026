package gpio

import (
	"fmt"

	"github.com/cjeanneret/avrsig/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
type RPiDriver struct {
	pins map[int]rpio.Pin
}

// NewRPiRealDriver creates a real GPIO driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Verbose("GPIO memory mapped successfully")

	return &RPiDriver{
		pins: make(map[int]rpio.Pin),
	}, nil
}

func (r *RPiDriver) pin(num int) rpio.Pin {
	p, ok := r.pins[num]
	if !ok {
		p = rpio.Pin(num)
		r.pins[num] = p
	}
	return p
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	p := r.pin(pin)

	// Pull is configured before the direction, like the bcm2835 library does.
	switch mode {
	case Input:
		p.PullOff()
		p.Input()
	case InputPullUp:
		p.PullUp()
		p.Input()
	case InputPullDown:
		p.PullDown()
		p.Input()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}

	return nil
}

// WritePin sets or clears the output latch. On the BCM2835 this works
// in any mode; the level appears on the line once the pin is an output.
func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p := r.pin(pin)
	if level == High {
		p.High()
	} else {
		p.Low()
	}

	return nil
}

func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	state := r.pin(pin).Read()
	debug.GPIO("ReadPin", pin, state)

	if state == rpio.High {
		return High, nil
	}
	return Low, nil
}

func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")

	// Reset all pins to input (safe state)
	for pin, p := range r.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		p.PullOff()
		p.Input()
	}

	return rpio.Close()
}
