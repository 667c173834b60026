package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cjeanneret/avrsig/internal/hw/hvpp"
	"gopkg.in/yaml.v3"
)

// MaxPin is the highest BCM GPIO number on the Raspberry Pi SoC.
const MaxPin = 53

// Supported backends.
var backends = map[string]bool{
	"rpio":   true,
	"periph": true,
	"mock":   true,
	"sim":    true,
}

// PinsConfig maps each programming signal to a BCM pin number.
type PinsConfig struct {
	RdyBsy int   `yaml:"rdy_bsy"`
	OE     int   `yaml:"oe"`
	WR     int   `yaml:"wr"`
	BS1    int   `yaml:"bs1"`
	BS2    int   `yaml:"bs2"`
	XA0    int   `yaml:"xa0"`
	XA1    int   `yaml:"xa1"`
	PageL  int   `yaml:"pagel"`
	XTAL1  int   `yaml:"xtal1"`
	Data   []int `yaml:"data"` // data0 .. data7
}

// Config aggregates all application configuration.
type Config struct {
	Backend    string      `yaml:"backend"`     // rpio, periph, mock or sim
	DebugLevel int         `yaml:"debug_level"` // 0-3 (0=off, 1=info, 2=verbose, 3=trace)
	SettleUs   int         `yaml:"settle_us"`   // delay between handshake edges (µs)
	WarmupRead bool        `yaml:"warmup_read"` // discard one signature read before the real ones
	Pins       *PinsConfig `yaml:"pins,omitempty"`
}

// DefaultPins is the reference wiring, taken from hvpp.DefaultPinMap.
func DefaultPins() PinsConfig {
	m := hvpp.DefaultPinMap
	pins := PinsConfig{
		RdyBsy: m[hvpp.RdyBsy],
		OE:     m[hvpp.OE],
		WR:     m[hvpp.WR],
		BS1:    m[hvpp.BS1],
		BS2:    m[hvpp.BS2],
		XA0:    m[hvpp.XA0],
		XA1:    m[hvpp.XA1],
		PageL:  m[hvpp.PageL],
		XTAL1:  m[hvpp.XTAL1],
		Data:   make([]int, 8),
	}
	for i := range pins.Data {
		pins.Data[i] = m[hvpp.DataRole(i)]
	}
	return pins
}

// Default returns the built-in configuration.
func Default() *Config {
	pins := DefaultPins()
	return &Config{
		Backend:  "rpio",
		SettleUs: 1,
		Pins:     &pins,
	}
}

// Load reads a YAML file and returns the configuration.
// An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML content over Default() and validates it. Keys left
// out, including individual pins, keep their default value.
func Parse(data []byte) (*Config, error) {
	cfg := *Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if cfg.Backend == "" {
		cfg.Backend = "rpio"
	}
	if cfg.SettleUs <= 0 {
		cfg.SettleUs = 1 // minimum pulse width
	}
	if cfg.Pins == nil {
		pins := DefaultPins()
		cfg.Pins = &pins
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges. Pin uniqueness is checked by the programming
// interface itself.
func (c *Config) Validate() error {
	if !backends[c.Backend] {
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	if c.DebugLevel < 0 || c.DebugLevel > 3 {
		return fmt.Errorf("debug_level must be between 0 and 3, got %d", c.DebugLevel)
	}
	if c.Pins == nil {
		return fmt.Errorf("pins are required")
	}
	if len(c.Pins.Data) != 8 {
		return fmt.Errorf("pins.data must list 8 pins, got %d", len(c.Pins.Data))
	}
	for name, pin := range c.Pins.named() {
		if pin < 0 || pin > MaxPin {
			return fmt.Errorf("pins.%s must be between 0 and %d, got %d", name, MaxPin, pin)
		}
	}
	return nil
}

// named returns every pin keyed by its YAML name.
func (p *PinsConfig) named() map[string]int {
	m := map[string]int{
		"rdy_bsy": p.RdyBsy,
		"oe":      p.OE,
		"wr":      p.WR,
		"bs1":     p.BS1,
		"bs2":     p.BS2,
		"xa0":     p.XA0,
		"xa1":     p.XA1,
		"pagel":   p.PageL,
		"xtal1":   p.XTAL1,
	}
	for i, pin := range p.Data {
		m[fmt.Sprintf("data[%d]", i)] = pin
	}
	return m
}

// Settle returns the delay between two handshake edges.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleUs) * time.Microsecond
}
