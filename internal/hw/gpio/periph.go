package gpio

import (
	"fmt"

	"github.com/cjeanneret/avrsig/internal/debug"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// periphPin tracks the output latch that periph.io does not expose:
// Out sets direction and level together, so a level written while the
// pin is an input is kept until the pin is switched to Output.
type periphPin struct {
	io      pgpio.PinIO
	mode    PinMode
	pending pgpio.Level
}

// PeriphDriver drives pins through periph.io, using BCM numbering
// ("GPIO<n>" in the periph.io registry).
type PeriphDriver struct {
	pins map[int]*periphPin
}

// NewPeriphDriver initializes the periph.io host drivers.
func NewPeriphDriver() (*PeriphDriver, error) {
	debug.Info("Initializing real GPIO driver (periph.io)")

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph.io host: %w", err)
	}

	return &PeriphDriver{
		pins: make(map[int]*periphPin),
	}, nil
}

func (d *PeriphDriver) pin(num int) (*periphPin, error) {
	if p, ok := d.pins[num]; ok {
		return p, nil
	}
	name := fmt.Sprintf("GPIO%d", num)
	io := gpioreg.ByName(name)
	if io == nil {
		return nil, fmt.Errorf("failed to open pin %s", name)
	}
	p := &periphPin{io: io, mode: Input, pending: pgpio.Low}
	d.pins[num] = p
	return p, nil
}

func toPeriphLevel(l Level) pgpio.Level {
	if l == High {
		return pgpio.High
	}
	return pgpio.Low
}

func (d *PeriphDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	p, err := d.pin(pin)
	if err != nil {
		return err
	}

	switch mode {
	case Input:
		err = p.io.In(pgpio.Float, pgpio.NoEdge)
	case InputPullUp:
		err = p.io.In(pgpio.PullUp, pgpio.NoEdge)
	case InputPullDown:
		err = p.io.In(pgpio.PullDown, pgpio.NoEdge)
	case Output:
		err = p.io.Out(p.pending)
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	if err != nil {
		return fmt.Errorf("setup %s as %s: %w", p.io.Name(), mode, err)
	}
	p.mode = mode
	return nil
}

func (d *PeriphDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	p.pending = toPeriphLevel(level)
	if p.mode.IsInput() {
		return nil
	}
	if err := p.io.Out(p.pending); err != nil {
		return fmt.Errorf("write %s: %w", p.io.Name(), err)
	}
	return nil
}

func (d *PeriphDriver) ReadPin(pin int) (Level, error) {
	p, err := d.pin(pin)
	if err != nil {
		return Low, err
	}
	state := p.io.Read()
	debug.GPIO("ReadPin", pin, state)
	return Level(state == pgpio.High), nil
}

func (d *PeriphDriver) Close() error {
	debug.Trace("GPIO Close (periph.io)")

	var firstErr error
	for num, p := range d.pins {
		debug.Verbose("Resetting pin %d to input", num)
		if err := p.io.In(pgpio.Float, pgpio.NoEdge); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("reset %s: %w", p.io.Name(), err)
		}
		p.mode = Input
	}
	return firstErr
}
