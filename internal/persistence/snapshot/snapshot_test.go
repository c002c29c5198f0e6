package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	snap := SnapshotV1{
		Header:   Header{Version: Version, WorldID: "w1", Tick: 42},
		TickRate: 5,
		Blocks:   []BlockV1{{Pos: [3]int{0, 0, 0}, Block: "CRAFTING_TABLE"}},
		Containers: []ContainerV1{{
			Type:  "CHEST",
			Pos:   [3]int{1, 0, 0},
			Size:  27,
			Slots: []SlotV1{{Slot: 3, Item: "STICK", Count: 4}},
		}},
		Hoppers:  []HopperV1{{Pos: [3]int{0, 1, 0}, Facing: [3]int{0, -1, 0}}},
		Frames:   []FrameV1{{Pos: [3]int{-1, 0, 0}, Facing: [3]int{1, 0, 0}, Item: "STICK"}},
		Switches: []SwitchV1{{Pos: [3]int{0, 0, 2}, On: true}},
		Counters: CountersV1{Attempts: 3, Committed: 1},
	}
	path := PathFor(dir, snap.Header.Tick)
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got.Header != snap.Header {
		t.Fatalf("header=%+v want %+v", got.Header, snap.Header)
	}
	if len(got.Containers) != 1 || got.Containers[0].Slots[0].Item != "STICK" || got.Containers[0].Slots[0].Count != 4 {
		t.Fatalf("containers=%+v", got.Containers)
	}
	if len(got.Hoppers) != 1 || got.Hoppers[0].Facing != [3]int{0, -1, 0} {
		t.Fatalf("hoppers=%+v", got.Hoppers)
	}
	if got.Counters != snap.Counters {
		t.Fatalf("counters=%+v", got.Counters)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Tick != 42 || h.WorldID != "w1" {
		t.Fatalf("header=%+v", h)
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	for _, tick := range []uint64{5, 300, 40} {
		if err := WriteSnapshot(PathFor(dir, tick), SnapshotV1{Header: Header{Version: Version, Tick: tick}}); err != nil {
			t.Fatalf("WriteSnapshot: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "snapshots", "junk.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, tick, err := Latest(dir)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if tick != 300 || filepath.Base(path) != "300.snap.zst" {
		t.Fatalf("latest=%s tick=%d", path, tick)
	}

	if _, _, err := Latest(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty world dir")
	}
}

func TestReadSnapshot_RejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
