package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjeanneret/avrsig/internal/config"
	"github.com/cjeanneret/avrsig/internal/debug"
	"github.com/cjeanneret/avrsig/internal/hw/avrsim"
	"github.com/cjeanneret/avrsig/internal/hw/gpio"
	"github.com/cjeanneret/avrsig/internal/hw/hvpp"
)

// simSignature is what the sim backend presents (ATmega328P).
var simSignature = hvpp.Signature{0x1e, 0x95, 0x0f}

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "path to YAML config file (empty = built-in defaults)")
	backend := flag.String("backend", "", "override GPIO backend (rpio, periph, mock, sim)")
	debugLevel := flag.Int("debug", -1, "override debug level (0-3)")
	flag.Parse()

	// An interrupt cancels ctx instead of killing the process, so the
	// deferred teardown in run always executes.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if err := applyOverrides(cfg, *backend, *debugLevel); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}

	debug.Init(cfg.DebugLevel)
	debug.Value("Config path", *cfgPath)
	debug.Value("Backend", cfg.Backend)

	// Platform init failure is fatal before any pin is touched.
	debug.Step(1, "Initializing GPIO driver")
	drv, err := newDriver(cfg)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}

	debug.Step(2, "Reading device signature")
	err = run(ctx, cfg, drv, os.Stdout)

	if cerr := drv.Close(); cerr != nil {
		log.Printf("closing GPIO driver failed: %v", cerr)
	}

	switch {
	case errors.Is(err, context.Canceled):
		debug.Info("Interrupted, pins released")
	case err != nil:
		debug.Error(err)
		log.Printf("read signature failed: %v", err)
		os.Exit(1)
	}
}

// run enters programming mode, reads the three signature bytes and prints
// them to w. Programming mode is always left before returning.
func run(ctx context.Context, cfg *config.Config, drv gpio.Driver, w io.Writer) (err error) {
	ifc, err := hvpp.Open(drv, hvpp.Config{
		Pins:   pinMap(cfg.Pins),
		Settle: cfg.Settle(),
	})
	if err != nil {
		return fmt.Errorf("open programming interface: %w", err)
	}
	defer func() {
		if cerr := ifc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("leave programming mode: %w", cerr)
		}
	}()

	if cfg.WarmupRead {
		if err := ifc.WarmUp(); err != nil {
			return fmt.Errorf("warm-up read: %w", err)
		}
	}

	sig, err := ifc.ReadSignatureBytes(ctx)
	if err != nil {
		return err
	}

	if name, ok := sig.Device(); ok {
		debug.Info("Detected %s", name)
	} else {
		debug.Info("Unknown device signature %s", sig)
	}

	_, err = fmt.Fprintln(w, sig)
	return err
}

// applyOverrides mutates cfg with CLI overrides. Empty backend and negative
// debug level mean "use config value".
func applyOverrides(cfg *config.Config, backend string, debugLevel int) error {
	if backend != "" {
		cfg.Backend = backend
	}
	if debugLevel >= 0 {
		cfg.DebugLevel = debugLevel
	}
	return cfg.Validate()
}

// pinMap converts the configured wiring to the interface's role table.
func pinMap(p *config.PinsConfig) hvpp.PinMap {
	var m hvpp.PinMap
	m[hvpp.RdyBsy] = p.RdyBsy
	m[hvpp.OE] = p.OE
	m[hvpp.WR] = p.WR
	m[hvpp.BS1] = p.BS1
	m[hvpp.BS2] = p.BS2
	m[hvpp.XA0] = p.XA0
	m[hvpp.XA1] = p.XA1
	m[hvpp.PageL] = p.PageL
	m[hvpp.XTAL1] = p.XTAL1
	for i, pin := range p.Data {
		m[hvpp.DataRole(i)] = pin
	}
	return m
}

// newDriver selects a GPIO backend based on configuration.
func newDriver(cfg *config.Config) (gpio.Driver, error) {
	if cfg.Backend == "sim" {
		debug.Info("Using simulated target (%s)", simSignature)
		return avrsim.New(pinMap(cfg.Pins), simSignature), nil
	}
	return gpio.NewDriver(cfg.Backend)
}
