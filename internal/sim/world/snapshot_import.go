package world

import (
	"fmt"

	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/protocol"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
	"autocraft.ai/internal/sim/world/logic/signal"
)

// ImportSnapshot replaces the world state. It must be called before Run.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if s.Header.WorldID != "" && w.cfg.ID != "" && s.Header.WorldID != w.cfg.ID {
		return fmt.Errorf("snapshot world id mismatch: world=%s snap=%s", w.cfg.ID, s.Header.WorldID)
	}

	w.blocks = map[Vec3i]string{}
	w.containers = map[Vec3i]*modelpkg.Container{}
	w.hoppers = map[Vec3i]modelpkg.Hopper{}
	w.frames = map[Vec3i][]modelpkg.Frame{}
	w.switches = map[Vec3i]bool{}
	w.edges = signal.NewEdgeDetector()

	for _, b := range s.Blocks {
		if err := w.setBlock(modelpkg.VecFromArray(b.Pos), b.Block); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
	}
	for _, cv := range s.Containers {
		pos := modelpkg.VecFromArray(cv.Pos)
		c := modelpkg.NewContainer(cv.Type, pos, cv.Size, w.MaxStack)
		for _, sl := range cv.Slots {
			if sl.Slot < 0 || sl.Slot >= len(c.Slots) {
				return fmt.Errorf("snapshot: container %v: slot %d out of range", cv.Pos, sl.Slot)
			}
			c.Slots[sl.Slot] = protocol.ItemStack{Item: sl.Item, Count: sl.Count}
		}
		w.containers[pos] = c
	}
	for _, h := range s.Hoppers {
		pos := modelpkg.VecFromArray(h.Pos)
		w.hoppers[pos] = modelpkg.Hopper{Pos: pos, Facing: modelpkg.VecFromArray(h.Facing)}
	}
	for _, f := range s.Frames {
		pos := modelpkg.VecFromArray(f.Pos)
		w.frames[pos] = append(w.frames[pos], modelpkg.Frame{Pos: pos, Facing: modelpkg.VecFromArray(f.Facing), Item: f.Item})
	}
	for _, sw := range s.Switches {
		w.switches[modelpkg.VecFromArray(sw.Pos)] = sw.On
	}
	for _, p := range s.Powered {
		w.edges.Observe(modelpkg.VecFromArray(p), signal.MaxLevel)
	}

	if s.SnapshotEveryTicks > 0 {
		w.cfg.SnapshotEveryTicks = s.SnapshotEveryTicks
	}
	if s.SignalMaxNodes > 0 {
		w.cfg.SignalMaxNodes = s.SignalMaxNodes
	}
	w.attempts.Store(s.Counters.Attempts)
	w.committed.Store(s.Counters.Committed)
	w.tick.Store(s.Header.Tick)
	return nil
}
