package world

import (
	"fmt"
	"testing"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/layout"
)

type recordingCraftLogger struct{ entries []CraftEntry }

func (l *recordingCraftLogger) WriteCraft(e CraftEntry) error {
	l.entries = append(l.entries, e)
	return nil
}

type recordingSignalLogger struct{ entries []SignalEntry }

func (l *recordingSignalLogger) WriteSignal(e SignalEntry) error {
	l.entries = append(l.entries, e)
	return nil
}

func loadTestCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

// newTestWorld builds a world from the repo layout with sequential attempt ids.
func newTestWorld(t *testing.T, cfg WorldConfig) (*World, *recordingCraftLogger) {
	t.Helper()
	l, err := layout.Load("../../../configs/layout.yaml")
	if err != nil {
		t.Fatalf("load layout: %v", err)
	}
	return newWorldWithLayout(t, cfg, l)
}

func newWorldWithLayout(t *testing.T, cfg WorldConfig, l layout.Layout) (*World, *recordingCraftLogger) {
	t.Helper()
	if cfg.ID == "" {
		cfg.ID = "test"
	}
	w, err := New(cfg, loadTestCatalogs(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := 0
	w.newAttemptID = func() string {
		n++
		return fmt.Sprintf("A%04d", n)
	}
	if err := w.ApplyLayout(l); err != nil {
		t.Fatalf("ApplyLayout: %v", err)
	}
	rec := &recordingCraftLogger{}
	w.SetCraftLogger(rec)
	return w, rec
}

func countAt(t *testing.T, w *World, pos Vec3i, item string) int {
	t.Helper()
	items, ok := w.ContainerContents(pos)
	if !ok {
		t.Fatalf("no container at %v", pos)
	}
	n := 0
	for _, s := range items {
		if s.Item == item {
			n += s.Count
		}
	}
	return n
}

func flip(pos [3]int, on bool) []SignalRequest {
	return []SignalRequest{{Pos: pos, On: on}}
}

func drain(ch <-chan protocol.CraftMsg) []protocol.CraftMsg {
	var out []protocol.CraftMsg
	for {
		select {
		case m := <-ch:
			out = append(out, m)
		default:
			return out
		}
	}
}
