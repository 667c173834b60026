// Package avrsim simulates the target side of the AVR high-voltage
// parallel programming interface behind a gpio.Driver.
//
// The simulated part latches a byte on every rising XTAL1 edge (XA1 high
// selects the command register, low the address register) and, while OE
// is low after a "read signature" command, drives the addressed signature
// byte onto the data bus. Every driver call is recorded as an Event.
package avrsim

import (
	"time"

	"github.com/cjeanneret/avrsig/internal/debug"
	"github.com/cjeanneret/avrsig/internal/hw/gpio"
	"github.com/cjeanneret/avrsig/internal/hw/hvpp"
)

// Op names a recorded driver call.
type Op string

const (
	OpSetup Op = "setup"
	OpWrite Op = "write"
	OpRead  Op = "read"
	OpSleep Op = "sleep"
	OpClose Op = "close"
)

// Event is one recorded call.
type Event struct {
	Op    Op
	Pin   int
	Mode  gpio.PinMode
	Level gpio.Level
	Delay time.Duration
}

// Load is a byte latched by an XTAL1 pulse.
type Load struct {
	Command bool
	Value   byte
}

// Target is a simulated AVR wired to the pins of a PinMap.
type Target struct {
	Signature hvpp.Signature

	pins   hvpp.PinMap
	roles  map[int]hvpp.Role
	modes  map[int]gpio.PinMode
	latch  map[int]gpio.Level
	events []Event
	loads  []Load

	command    byte
	address    byte
	contention int
}

// New returns a target presenting sig, wired according to pins.
func New(pins hvpp.PinMap, sig hvpp.Signature) *Target {
	t := &Target{
		Signature: sig,
		pins:      pins,
		roles:     make(map[int]hvpp.Role, hvpp.NumRoles),
		modes:     make(map[int]gpio.PinMode),
		latch:     make(map[int]gpio.Level),
	}
	for r := hvpp.Role(0); r < hvpp.NumRoles; r++ {
		t.roles[pins[r]] = r
	}
	return t
}

// NewATmega328P returns a target with signature 1e 95 0f on the default wiring.
func NewATmega328P() *Target {
	return New(hvpp.DefaultPinMap, hvpp.Signature{0x1e, 0x95, 0x0f})
}

func (t *Target) pin(r hvpp.Role) int { return t.pins[r] }

func (t *Target) dataIsOutput() bool {
	for i := 0; i < 8; i++ {
		if t.modes[t.pin(hvpp.DataRole(i))] == gpio.Output {
			return true
		}
	}
	return false
}

// driving reports whether the target currently drives the data bus.
func (t *Target) driving() bool {
	return t.modes[t.pin(hvpp.OE)] == gpio.Output && t.latch[t.pin(hvpp.OE)] == gpio.Low
}

func (t *Target) checkContention() {
	if t.driving() && t.dataIsOutput() {
		t.contention++
	}
}

func (t *Target) SetupPin(pin int, mode gpio.PinMode) error {
	debug.GPIO("SetupPin(sim)", pin, mode)
	t.events = append(t.events, Event{Op: OpSetup, Pin: pin, Mode: mode})
	t.modes[pin] = mode
	t.checkContention()
	return nil
}

func (t *Target) WritePin(pin int, level gpio.Level) error {
	debug.GPIO("WritePin(sim)", pin, level)
	t.events = append(t.events, Event{Op: OpWrite, Pin: pin, Level: level})

	prev := t.latch[pin]
	t.latch[pin] = level

	role, ok := t.roles[pin]
	if !ok || t.modes[pin] != gpio.Output {
		return nil
	}
	switch role {
	case hvpp.XTAL1:
		if prev == gpio.Low && level == gpio.High {
			t.clock()
		}
	case hvpp.OE:
		t.checkContention()
	}
	return nil
}

// clock latches the programmer-driven data bus into the register selected by XA1.
func (t *Target) clock() {
	var value byte
	for i := 0; i < 8; i++ {
		p := t.pin(hvpp.DataRole(i))
		if t.modes[p] == gpio.Output && t.latch[p] == gpio.High {
			value |= 1 << i
		}
	}
	isCommand := t.latch[t.pin(hvpp.XA1)] == gpio.High
	if isCommand {
		t.command = value
	} else {
		t.address = value
	}
	t.loads = append(t.loads, Load{Command: isCommand, Value: value})
}

func (t *Target) presented() byte {
	if t.command != hvpp.CmdReadSignature || int(t.address) >= len(t.Signature) {
		return 0xff
	}
	return t.Signature[t.address]
}

func (t *Target) ReadPin(pin int) (gpio.Level, error) {
	level := t.level(pin)
	debug.GPIO("ReadPin(sim)", pin, level)
	t.events = append(t.events, Event{Op: OpRead, Pin: pin, Level: level})
	return level, nil
}

func (t *Target) level(pin int) gpio.Level {
	mode := t.modes[pin]
	if mode == gpio.Output {
		return t.latch[pin]
	}
	role, ok := t.roles[pin]
	if !ok {
		return mode == gpio.InputPullUp
	}
	switch {
	case role == hvpp.RdyBsy:
		return gpio.High
	case role >= hvpp.Data0 && role <= hvpp.Data7 && t.driving():
		bit := uint(role - hvpp.Data0)
		return t.presented()>>bit&1 == 1
	default:
		return mode == gpio.InputPullUp
	}
}

// Sleep records a settle delay without waiting. It matches the
// hvpp.Config.Sleep signature.
func (t *Target) Sleep(d time.Duration) {
	t.events = append(t.events, Event{Op: OpSleep, Delay: d})
}

func (t *Target) Close() error {
	t.events = append(t.events, Event{Op: OpClose})
	return nil
}

// Events returns every recorded call in order.
func (t *Target) Events() []Event { return t.events }

// ResetEvents drops the recorded calls and loads; pin state is kept.
func (t *Target) ResetEvents() {
	t.events = nil
	t.loads = nil
}

// Loads returns the bytes latched by XTAL1 pulses, in order.
func (t *Target) Loads() []Load { return t.loads }

// Mode returns the current mode of the pin bound to r.
func (t *Target) Mode(r hvpp.Role) gpio.PinMode { return t.modes[t.pin(r)] }

// Level returns the latched programmer level of the pin bound to r.
func (t *Target) Level(r hvpp.Role) gpio.Level { return t.latch[t.pin(r)] }

// Contention returns how many times both sides drove the data bus at once.
func (t *Target) Contention() int { return t.contention }
