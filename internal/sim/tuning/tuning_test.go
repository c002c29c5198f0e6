package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoTuning(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.TickRateHz != 5 || tu.ContainerSlots["HOPPER"] != 5 {
		t.Fatalf("tuning=%+v", tu)
	}
}

func TestLoad_FillsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 20\ncontainer_slots:\n  BARREL: 27\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.TickRateHz != 20 {
		t.Fatalf("tick_rate_hz=%d", tu.TickRateHz)
	}
	if tu.ContainerSlots["BARREL"] != 27 || tu.ContainerSlots["CHEST"] != 27 {
		t.Fatalf("container_slots=%v", tu.ContainerSlots)
	}
	if tu.SignalMaxNodes != Defaults().SignalMaxNodes || tu.RateLimits.SignalBurst != Defaults().RateLimits.SignalBurst {
		t.Fatalf("defaults not applied: %+v", tu)
	}
}

func TestLoad_Invalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for negative tick rate")
	}
	if err := os.WriteFile(p, []byte("tick_rate_hz: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected yaml error")
	}
}
