package avrsim

import (
	"testing"

	"github.com/cjeanneret/avrsig/internal/hw/gpio"
	"github.com/cjeanneret/avrsig/internal/hw/hvpp"
)

func drive(t *Target, r hvpp.Role, level gpio.Level) {
	_ = t.SetupPin(t.pin(r), gpio.Output)
	_ = t.WritePin(t.pin(r), level)
}

func putData(t *Target, v byte) {
	for i := 0; i < 8; i++ {
		drive(t, hvpp.DataRole(i), gpio.Level(v>>i&1 == 1))
	}
}

func releaseData(t *Target) {
	for i := 0; i < 8; i++ {
		_ = t.SetupPin(t.pin(hvpp.DataRole(i)), gpio.Input)
	}
}

func TestTarget_LatchesOnRisingEdge(t *testing.T) {
	sim := NewATmega328P()
	drive(sim, hvpp.OE, gpio.High)
	drive(sim, hvpp.XTAL1, gpio.Low)

	putData(sim, 0x08)
	drive(sim, hvpp.XA1, gpio.High)
	_ = sim.WritePin(sim.pin(hvpp.XTAL1), gpio.High)
	_ = sim.WritePin(sim.pin(hvpp.XTAL1), gpio.High) // no second edge
	_ = sim.WritePin(sim.pin(hvpp.XTAL1), gpio.Low)

	loads := sim.Loads()
	if len(loads) != 1 || loads[0] != (Load{Command: true, Value: 0x08}) {
		t.Fatalf("loads = %+v", loads)
	}
}

func TestTarget_PresentsSignatureWhileOELow(t *testing.T) {
	sim := NewATmega328P()
	drive(sim, hvpp.OE, gpio.High)
	drive(sim, hvpp.XTAL1, gpio.Low)

	putData(sim, 0x08)
	drive(sim, hvpp.XA1, gpio.High)
	_ = sim.WritePin(sim.pin(hvpp.XTAL1), gpio.High)
	_ = sim.WritePin(sim.pin(hvpp.XTAL1), gpio.Low)

	putData(sim, 0x01)
	drive(sim, hvpp.XA1, gpio.Low)
	_ = sim.WritePin(sim.pin(hvpp.XTAL1), gpio.High)
	_ = sim.WritePin(sim.pin(hvpp.XTAL1), gpio.Low)

	releaseData(sim)
	_ = sim.WritePin(sim.pin(hvpp.OE), gpio.Low)

	var got byte
	for i := 0; i < 8; i++ {
		lvl, _ := sim.ReadPin(sim.pin(hvpp.DataRole(i)))
		if lvl == gpio.High {
			got |= 1 << i
		}
	}
	if got != 0x95 {
		t.Errorf("presented %#x, want 0x95", got)
	}
	if sim.Contention() != 0 {
		t.Errorf("unexpected contention %d", sim.Contention())
	}
}

func TestTarget_DetectsContention(t *testing.T) {
	sim := NewATmega328P()
	putData(sim, 0x00)
	drive(sim, hvpp.OE, gpio.Low)
	if sim.Contention() == 0 {
		t.Error("driving OE low with an output data bus should count as contention")
	}
}

func TestTarget_SleepRecorded(t *testing.T) {
	sim := NewATmega328P()
	sim.Sleep(hvpp.DefaultSettle)
	ev := sim.Events()
	if len(ev) != 1 || ev[0].Op != OpSleep || ev[0].Delay != hvpp.DefaultSettle {
		t.Errorf("events = %+v", ev)
	}
}
