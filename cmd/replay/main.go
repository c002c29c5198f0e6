package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "autocraft.ai/internal/persistence/log"
	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/world"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst (default: latest under -world)")
		worldDir  = flag.String("world", "", "world directory containing snapshots/, signals/ and crafts/")
		configDir = flag.String("configs", "./configs", "config directory")
		toTick    = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if strings.TrimSpace(*worldDir) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	path := *snapPath
	if path == "" {
		p, _, err := snapshot.Latest(*worldDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest snapshot:", err)
			os.Exit(1)
		}
		path = p
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d world=%s tick=%d blocks=%d containers=%d switches=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick,
		len(snap.Blocks), len(snap.Containers), len(snap.Switches))

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	if snap.RecipesDigest != "" && snap.RecipesDigest != cats.Recipes.Digest {
		fmt.Fprintln(os.Stderr, "warning: recipes.json changed since snapshot; mismatches are expected")
	}

	w, err := world.New(world.WorldConfig{
		ID:                 snap.Header.WorldID,
		TickRateHz:         snap.TickRate,
		SnapshotEveryTicks: snap.SnapshotEveryTicks,
		SignalMaxNodes:     snap.SignalMaxNodes,
	}, cats)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		fmt.Fprintln(os.Stderr, "import snapshot:", err)
		os.Exit(1)
	}

	start := w.CurrentTick()
	signals, err := readSignals(filepath.Join(*worldDir, "signals"), start)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read signals:", err)
		os.Exit(1)
	}
	want, err := readCrafts(filepath.Join(*worldDir, "crafts"), start)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read crafts:", err)
		os.Exit(1)
	}

	checked, err := replay(w, signals, want, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d attempts (from snapshot tick=%d to tick=%d)\n", checked, start, w.CurrentTick())
}

type recorder struct {
	entries []world.CraftEntry
}

func (r *recorder) WriteCraft(e world.CraftEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

// replay steps w through every tick that has a logged signal or attempt and
// compares the attempts it produces with the logged ones. Attempt ids are
// random per run and are not compared.
func replay(w *world.World, signals map[uint64][]world.SignalRequest, want map[uint64][]world.CraftEntry, toTick uint64) (int, error) {
	last := w.CurrentTick()
	for t := range signals {
		last = max(last, t+1)
	}
	for t := range want {
		last = max(last, t+1)
	}
	if toTick != 0 && toTick+1 < last {
		last = toTick + 1
	}

	rec := &recorder{}
	w.SetCraftLogger(rec)

	checked := 0
	for w.CurrentTick() < last {
		rec.entries = rec.entries[:0]
		tick := w.CurrentTick()
		w.StepOnce(signals[tick])
		exp := want[tick]
		if len(rec.entries) != len(exp) {
			return checked, fmt.Errorf("tick %d: attempts=%d want=%d", tick, len(rec.entries), len(exp))
		}
		for i := range exp {
			got, wnt := craftKey(rec.entries[i]), craftKey(exp[i])
			if got != wnt {
				return checked, fmt.Errorf("tick %d attempt %d mismatch:\n got=%s\nwant=%s", tick, i, got, wnt)
			}
			checked++
		}
	}
	return checked, nil
}

// craftKey is the logged form of e without its attempt id.
func craftKey(e world.CraftEntry) string {
	e.AttemptID = ""
	b, _ := json.Marshal(e)
	return string(b)
}

func readSignals(dir string, from uint64) (map[uint64][]world.SignalRequest, error) {
	out := map[uint64][]world.SignalRequest{}
	err := persistlog.ScanDir(dir, "signals", func(line []byte) error {
		var e world.SignalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if e.Tick >= from {
			out[e.Tick] = append(out[e.Tick], world.SignalRequest{Pos: e.Pos, On: e.On})
		}
		return nil
	})
	if os.IsNotExist(err) {
		return out, nil
	}
	return out, err
}

func readCrafts(dir string, from uint64) (map[uint64][]world.CraftEntry, error) {
	out := map[uint64][]world.CraftEntry{}
	err := persistlog.ScanDir(dir, "crafts", func(line []byte) error {
		var e world.CraftEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if e.Tick >= from {
			out[e.Tick] = append(out[e.Tick], e)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return out, nil
	}
	return out, err
}
