package gpio

// Pin is one physical digital line. It remembers the mode it was last
// configured with but never caches levels: Read always asks the driver.
type Pin struct {
	drv  Driver
	num  int
	mode PinMode
}

// NewPin binds pin number num on drv and configures it as Input.
func NewPin(drv Driver, num int) (*Pin, error) {
	p := &Pin{drv: drv, num: num}
	if err := p.SetMode(Input); err != nil {
		return nil, err
	}
	return p, nil
}

// Num returns the physical pin number.
func (p *Pin) Num() int { return p.num }

// Mode returns the last configured mode.
func (p *Pin) Mode() PinMode { return p.mode }

// SetMode reconfigures direction and pull resistor. Safe to repeat.
func (p *Pin) SetMode(mode PinMode) error {
	if err := p.drv.SetupPin(p.num, mode); err != nil {
		return err
	}
	p.mode = mode
	return nil
}

// Read returns the electrical level of the line.
func (p *Pin) Read() (Level, error) {
	return p.drv.ReadPin(p.num)
}

// Write drives the line. The pin is expected to be an Output; on an
// input the level is only latched.
func (p *Pin) Write(level Level) error {
	return p.drv.WritePin(p.num, level)
}
