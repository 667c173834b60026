package hvpp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/avrsig/internal/debug"
	"github.com/cjeanneret/avrsig/internal/hw/gpio"
)

// CmdReadSignature is the "read signature and calibration byte" command.
const CmdReadSignature = 0x08

// DefaultSettle is the minimum delay between two edges of the handshake.
const DefaultSettle = time.Microsecond

// ErrClosed is returned by transfers on an interface that left programming mode.
var ErrClosed = errors.New("programming interface closed")

// Config holds the hardware configuration of the interface.
type Config struct {
	Pins   PinMap
	Settle time.Duration       // delay between handshake edges. 0 = DefaultSettle.
	Sleep  func(time.Duration) // blocking wait. nil = time.Sleep.
}

// Interface drives the high-voltage parallel programming lines of an AVR.
//
// It is neither reentrant nor safe for concurrent use: the pins are a
// process-wide resource and at most one Interface may exist at a time.
//
// Programming mode is entered by Open. Close returns every line to a
// non-driving input and must run on every exit path.
type Interface struct {
	pins   [NumRoles]*gpio.Pin
	settle time.Duration
	sleep  func(time.Duration)
	closed bool
}

// Open binds the pins of cfg on drv and enters programming mode:
// OE and WR inactive (high), XA0, XA1, BS1, BS2, XTAL1 and PAGEL low,
// all of them outputs, data bus output, then one settle delay.
// Nothing is touched if the pin map is invalid.
func Open(drv gpio.Driver, cfg Config) (*Interface, error) {
	if err := cfg.Pins.Validate(); err != nil {
		return nil, err
	}

	ifc := &Interface{
		settle: cfg.Settle,
		sleep:  cfg.Sleep,
	}
	if ifc.settle <= 0 {
		ifc.settle = DefaultSettle
	}
	if ifc.sleep == nil {
		ifc.sleep = time.Sleep
	}

	for r := Role(0); r < NumRoles; r++ {
		p, err := gpio.NewPin(drv, cfg.Pins[r])
		if err != nil {
			ifc.release()
			return nil, fmt.Errorf("bind %s: %w", r, err)
		}
		ifc.pins[r] = p
	}

	if err := ifc.enterProgramming(); err != nil {
		ifc.release()
		return nil, fmt.Errorf("enter programming mode: %w", err)
	}
	return ifc, nil
}

func (ifc *Interface) enterProgramming() error {
	debug.Verbose("Entering programming mode")

	levels := map[Role]gpio.Level{
		OE:    gpio.High,
		WR:    gpio.High,
		XA0:   gpio.Low,
		XA1:   gpio.Low,
		BS1:   gpio.Low,
		BS2:   gpio.Low,
		XTAL1: gpio.Low,
		PageL: gpio.Low,
	}
	// Levels are latched before the direction changes so no line ever
	// drives an undefined state.
	for _, r := range controlRoles {
		if err := ifc.pins[r].Write(levels[r]); err != nil {
			return err
		}
	}
	for _, r := range controlRoles {
		if err := ifc.pins[r].SetMode(gpio.Output); err != nil {
			return err
		}
	}

	if err := ifc.writeDataPins(0); err != nil {
		return err
	}
	if err := ifc.setDataMode(gpio.Output); err != nil {
		return err
	}
	ifc.wait()
	return nil
}

// Close leaves programming mode: all 17 lines become plain inputs.
// It is safe to call more than once and right after Open. Every pin is
// attempted; the first error is returned.
func (ifc *Interface) Close() error {
	if ifc.closed {
		return nil
	}
	debug.Verbose("Leaving programming mode")
	return ifc.release()
}

func (ifc *Interface) release() error {
	ifc.closed = true
	var firstErr error
	for r, p := range ifc.pins {
		if p == nil {
			continue
		}
		if err := p.SetMode(gpio.Input); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release %s (pin %d): %w", Role(r), p.Num(), err)
		}
	}
	return firstErr
}

func (ifc *Interface) wait() {
	ifc.sleep(ifc.settle)
}

func (ifc *Interface) write(r Role, level gpio.Level) error {
	return ifc.pins[r].Write(level)
}

// setDataMode switches the eight data lines together.
func (ifc *Interface) setDataMode(mode gpio.PinMode) error {
	for i := 0; i < 8; i++ {
		if err := ifc.pins[DataRole(i)].SetMode(mode); err != nil {
			return err
		}
	}
	return nil
}

func (ifc *Interface) writeDataPins(value byte) error {
	for i := 0; i < 8; i++ {
		if err := ifc.write(DataRole(i), gpio.Level(value>>i&1 == 1)); err != nil {
			return err
		}
	}
	return nil
}

func (ifc *Interface) readDataPins() (byte, error) {
	var value byte
	for i := 0; i < 8; i++ {
		lvl, err := ifc.pins[DataRole(i)].Read()
		if err != nil {
			return 0, err
		}
		if lvl == gpio.High {
			value |= 1 << i
		}
	}
	return value, nil
}

// pulseXTAL1 clocks one byte into the target.
func (ifc *Interface) pulseXTAL1() error {
	ifc.wait()
	if err := ifc.write(XTAL1, gpio.High); err != nil {
		return err
	}
	ifc.wait()
	if err := ifc.write(XTAL1, gpio.Low); err != nil {
		return err
	}
	ifc.wait()
	return nil
}

// load puts value on the bus and latches it, with XA1 selecting
// command (high) or low address (low). The bus is an input afterwards.
func (ifc *Interface) load(isCommand bool, value byte) error {
	if ifc.closed {
		return ErrClosed
	}
	if err := ifc.writeDataPins(value); err != nil {
		return err
	}
	if err := ifc.setDataMode(gpio.Output); err != nil {
		return err
	}
	if err := ifc.write(XA1, gpio.Level(isCommand)); err != nil {
		return err
	}
	if err := ifc.pulseXTAL1(); err != nil {
		return err
	}
	if err := ifc.write(XA1, gpio.Low); err != nil {
		return err
	}
	return ifc.setDataMode(gpio.Input)
}

// SetCommand loads an instruction into the target.
func (ifc *Interface) SetCommand(c byte) error {
	debug.Transaction("command", c)
	return ifc.load(true, c)
}

// SetLowAddress loads the low address byte.
func (ifc *Interface) SetLowAddress(a byte) error {
	debug.Transaction("low address", a)
	return ifc.load(false, a)
}

// ReadData asks the target to drive the data bus and samples it.
// OE is released before returning, whatever the outcome of the sample.
func (ifc *Interface) ReadData() (byte, error) {
	if ifc.closed {
		return 0, ErrClosed
	}
	if err := ifc.setDataMode(gpio.Input); err != nil {
		return 0, err
	}
	if err := ifc.write(BS1, gpio.Low); err != nil {
		return 0, err
	}
	if err := ifc.write(OE, gpio.Low); err != nil {
		return 0, err
	}
	ifc.wait()

	value, readErr := ifc.readDataPins()

	if err := ifc.write(OE, gpio.High); err != nil {
		return 0, err
	}
	if err := ifc.write(BS1, gpio.Low); err != nil {
		return 0, err
	}
	if readErr != nil {
		return 0, readErr
	}
	debug.Transaction("read", value)
	return value, nil
}

// ReadSignature reads signature byte addr (0-2). Each call is a complete
// command, address, read transaction.
func (ifc *Interface) ReadSignature(addr byte) (byte, error) {
	if err := ifc.SetCommand(CmdReadSignature); err != nil {
		return 0, err
	}
	if err := ifc.SetLowAddress(addr); err != nil {
		return 0, err
	}
	return ifc.ReadData()
}

// ReadSignatureBytes reads the three signature bytes in order. ctx is
// only checked between transactions; a started one always completes.
func (ifc *Interface) ReadSignatureBytes(ctx context.Context) (Signature, error) {
	var sig Signature
	for i := range sig {
		if err := ctx.Err(); err != nil {
			return sig, err
		}
		b, err := ifc.ReadSignature(byte(i))
		if err != nil {
			return sig, fmt.Errorf("read signature byte %d: %w", i, err)
		}
		sig[i] = b
	}
	return sig, nil
}

// WarmUp performs one discarded signature read at address 0.
// Not required by the protocol; some setups use it to settle the bus.
func (ifc *Interface) WarmUp() error {
	debug.Verbose("Warm-up read")
	_, err := ifc.ReadSignature(0)
	return err
}

// Ready samples RDY/BSY. High means the target is idle.
func (ifc *Interface) Ready() (bool, error) {
	if ifc.closed {
		return false, ErrClosed
	}
	lvl, err := ifc.pins[RdyBsy].Read()
	return lvl == gpio.High, err
}
