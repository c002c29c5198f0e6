package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autocraft.ai/internal/persistence/indexdb"
	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/tuning"
	"autocraft.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.CraftLogger
	world.SignalLogger
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() indexdb.Stats
}

func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("AC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported AC_INDEX_BACKEND: %s", backend)
	}
}

type multiCraftLogger struct {
	a world.CraftLogger
	b world.CraftLogger
}

func (m multiCraftLogger) WriteCraft(entry world.CraftEntry) error {
	if m.a != nil {
		_ = m.a.WriteCraft(entry)
	}
	if m.b != nil {
		_ = m.b.WriteCraft(entry)
	}
	return nil
}

type multiSignalLogger struct {
	a world.SignalLogger
	b world.SignalLogger
}

func (m multiSignalLogger) WriteSignal(entry world.SignalEntry) error {
	if m.a != nil {
		_ = m.a.WriteSignal(entry)
	}
	if m.b != nil {
		_ = m.b.WriteSignal(entry)
	}
	return nil
}
