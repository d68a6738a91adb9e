package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	paused := PauseFunc(func(module string) bool { return module == ModuleMarket })
	if err := Guard(paused, ModuleMarket); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(paused, "other"); err != nil {
		t.Fatalf("unexpected error for unpaused module: %v", err)
	}
	if err := Guard(nil, ModuleMarket); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
	if err := Guard(paused, ""); err != nil {
		t.Fatalf("empty module must not block: %v", err)
	}
}
