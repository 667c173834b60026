package debug

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestInit_OffProducesNothing(t *testing.T) {
	Init(LevelOff)
	logger = nil
	Info("hidden %d", 1)
	Trace("hidden")
	if level != LevelOff {
		t.Errorf("level = %d, want off", level)
	}
}

func TestLevels_Filtering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelVerbose)
	SetOutput(&buf)

	Info("backend %s", "mock")
	Transaction("command", 0x08)
	GPIO("WritePin", 9, true)
	Trace("too deep")

	out := buf.String()
	if !strings.Contains(out, "[INFO] backend mock") {
		t.Errorf("missing info line in %q", out)
	}
	if !strings.Contains(out, "command 0x08") {
		t.Errorf("missing transaction line in %q", out)
	}
	if strings.Contains(out, "[GPIO]") || strings.Contains(out, "too deep") {
		t.Errorf("trace output leaked at verbose level: %q", out)
	}
}

func TestError_Printed(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo)
	SetOutput(&buf)

	Error(errors.New("boom"))
	if !strings.Contains(buf.String(), "[ERROR] boom") {
		t.Errorf("expected error line, got %q", buf.String())
	}
}
