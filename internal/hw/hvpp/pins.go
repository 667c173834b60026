package hvpp

import (
	"errors"
	"fmt"
)

// Role is a logical signal of the parallel programming interface.
type Role int

const (
	RdyBsy Role = iota // RDY/BSY, driven by the target
	OE                 // output enable, active low
	WR                 // write pulse, active low
	BS1                // byte select 1
	BS2                // byte select 2
	XA0                // XTAL action bit 0
	XA1                // XTAL action bit 1, command/address select
	PageL              // program memory page latch
	XTAL1              // clock
	Data0
	Data1
	Data2
	Data3
	Data4
	Data5
	Data6
	Data7

	NumRoles
)

// controlRoles are the lines driven by the programmer while in programming mode.
var controlRoles = [...]Role{OE, WR, BS1, BS2, XA0, XA1, PageL, XTAL1}

var roleNames = [NumRoles]string{
	"rdy_bsy", "oe", "wr", "bs1", "bs2", "xa0", "xa1", "pagel", "xtal1",
	"data0", "data1", "data2", "data3", "data4", "data5", "data6", "data7",
}

func (r Role) String() string {
	if r < 0 || r >= NumRoles {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// DataRole returns the role of data bus bit i (0-7).
func DataRole(i int) Role {
	return Data0 + Role(i)
}

// ErrPinConflict is returned when a physical pin is bound to two roles.
var ErrPinConflict = errors.New("pin assigned to more than one role")

// PinMap binds every role to a BCM pin number.
type PinMap [NumRoles]int

// DefaultPinMap is the reference wiring on the Raspberry Pi P1 header:
// control on physical pins 3, 5, 7, 11, 13, 15, 19, 21, 23 and the data
// bus on 8, 10, 12, 16, 18, 22, 24, 26.
var DefaultPinMap = PinMap{
	RdyBsy: 2,
	OE:     3,
	WR:     4,
	BS1:    17,
	XA0:    27,
	XA1:    22,
	PageL:  10,
	XTAL1:  9,
	BS2:    11,
	Data0:  14,
	Data1:  15,
	Data2:  18,
	Data3:  23,
	Data4:  24,
	Data5:  25,
	Data6:  8,
	Data7:  7,
}

// Validate checks that pin numbers are non-negative and unique.
func (m PinMap) Validate() error {
	owner := make(map[int]Role, NumRoles)
	for r := Role(0); r < NumRoles; r++ {
		pin := m[r]
		if pin < 0 {
			return fmt.Errorf("%s: invalid pin %d", r, pin)
		}
		if prev, ok := owner[pin]; ok {
			return fmt.Errorf("pin %d used by %s and %s: %w", pin, prev, r, ErrPinConflict)
		}
		owner[pin] = r
	}
	return nil
}
