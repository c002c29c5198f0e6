package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autocraft.ai/internal/persistence/indexdb"
	persistlog "autocraft.ai/internal/persistence/log"
	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/sim/world"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "crafts":
			craftsCmd(os.Args[2:])
			return
		case "craftlog":
			craftLogCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

type snapshotSummary struct {
	Path       string                    `json:"path"`
	Header     snapshot.Header           `json:"header"`
	Blocks     map[string]int            `json:"blocks"`
	Containers map[string]map[string]int `json:"containers"`
	Items      map[string]int            `json:"items"`
	Hoppers    int                       `json:"hoppers"`
	Frames     map[string]string         `json:"frames,omitempty"`
	SwitchesOn int                       `json:"switches_on"`
	Switches   int                       `json:"switches"`
	Counters   snapshot.CountersV1       `json:"counters"`
}

func summarize(path string, snap snapshot.SnapshotV1) snapshotSummary {
	s := snapshotSummary{
		Path:       path,
		Header:     snap.Header,
		Blocks:     map[string]int{},
		Containers: map[string]map[string]int{},
		Items:      map[string]int{},
		Hoppers:    len(snap.Hoppers),
		Switches:   len(snap.Switches),
		Counters:   snap.Counters,
	}
	for _, b := range snap.Blocks {
		s.Blocks[b.Block]++
	}
	for _, c := range snap.Containers {
		counts := map[string]int{}
		for _, sl := range c.Slots {
			counts[sl.Item] += sl.Count
			s.Items[sl.Item] += sl.Count
		}
		s.Containers[modelpkg.ContainerID(c.Type, modelpkg.VecFromArray(c.Pos))] = counts
	}
	for _, f := range snap.Frames {
		if s.Frames == nil {
			s.Frames = map[string]string{}
		}
		s.Frames[fmt.Sprintf("%d,%d,%d", f.Pos[0], f.Pos[1], f.Pos[2])] = f.Item
	}
	for _, sw := range snap.Switches {
		if sw.On {
			s.SwitchesOn++
		}
	}
	return s
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (used when -path is empty)")
	snapPath := fs.String("path", "", "snapshot path (optional; defaults to latest of -world)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -path or -world")
			os.Exit(2)
		}
		p, _, err := snapshot.Latest(filepath.Join(*dataDir, "worlds", *worldID))
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest:", err)
			os.Exit(1)
		}
		path = p
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(summarize(path, snap))
}

func craftsCmd(args []string) {
	fs := flag.NewFlagSet("crafts", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := indexdb.RecentCrafts(ctx, path, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

// craftLogCmd replays the compressed craft log, which stays complete even
// when the index dropped writes or was disabled.
func craftLogCmd(args []string) {
	fs := flag.NewFlagSet("craftlog", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	onlyFailed := fs.Bool("failed", false, "print only aborted attempts")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	entries, err := readCraftLog(filepath.Join(*dataDir, "worlds", *worldID), *sinceTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if *onlyFailed && e.OK {
			continue
		}
		printJSON(e)
	}
}

func readCraftLog(worldDir string, sinceTick uint64) ([]world.CraftEntry, error) {
	var out []world.CraftEntry
	err := persistlog.ScanDir(filepath.Join(worldDir, "crafts"), "crafts", func(line []byte) error {
		var e world.CraftEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if e.Tick >= sinceTick {
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
