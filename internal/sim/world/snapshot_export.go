package world

import (
	"sort"

	"autocraft.ai/internal/persistence/snapshot"
)

// ExportSnapshot captures the committed world state. Staged container
// mutations never survive an attempt, so only committed slots are written.
func (w *World) ExportSnapshot(tick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    tick,
		},
		TickRate:           w.cfg.TickRateHz,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		SignalMaxNodes:     w.cfg.SignalMaxNodes,
		RecipesDigest:      w.catalogs.Recipes.Digest,
		ItemsDigest:        w.catalogs.Items.DefsDigest,
		Counters: snapshot.CountersV1{
			Attempts:  w.attempts.Load(),
			Committed: w.committed.Load(),
		},
	}

	for _, p := range sortedKeys(w.blocks) {
		snap.Blocks = append(snap.Blocks, snapshot.BlockV1{Pos: p.ToArray(), Block: w.blocks[p]})
	}
	for _, p := range sortedKeys(w.containers) {
		c := w.containers[p]
		cv := snapshot.ContainerV1{Type: c.Type, Pos: p.ToArray(), Size: len(c.Slots)}
		for i, s := range c.Slots {
			if s.Empty() {
				continue
			}
			cv.Slots = append(cv.Slots, snapshot.SlotV1{Slot: i, Item: s.Item, Count: s.Count})
		}
		snap.Containers = append(snap.Containers, cv)
	}
	for _, p := range sortedKeys(w.hoppers) {
		h := w.hoppers[p]
		snap.Hoppers = append(snap.Hoppers, snapshot.HopperV1{Pos: p.ToArray(), Facing: h.Facing.ToArray()})
	}
	for _, p := range sortedKeys(w.frames) {
		for _, f := range w.frames[p] {
			snap.Frames = append(snap.Frames, snapshot.FrameV1{Pos: p.ToArray(), Facing: f.Facing.ToArray(), Item: f.Item})
		}
	}
	for _, p := range sortedKeys(w.switches) {
		snap.Switches = append(snap.Switches, snapshot.SwitchV1{Pos: p.ToArray(), On: w.switches[p]})
	}
	powered := w.edges.Powered()
	sort.Slice(powered, func(i, j int) bool { return lessVec(powered[i], powered[j]) })
	for _, p := range powered {
		snap.Powered = append(snap.Powered, p.ToArray())
	}
	return snap
}

func sortedKeys[V any](m map[Vec3i]V) []Vec3i {
	keys := make([]Vec3i, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessVec(keys[i], keys[j]) })
	return keys
}
