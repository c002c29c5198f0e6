package world

import (
	"sort"
	"time"

	"autocraft.ai/internal/protocol"
	autocraftruntime "autocraft.ai/internal/sim/world/feature/autocraft/runtime"
	"autocraft.ai/internal/sim/world/feature/autocraft/structure"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
	"autocraft.ai/internal/sim/world/logic/signal"
)

func (w *World) step(signals []SignalRequest) {
	start := time.Now()
	tick := w.tick.Load()

	for _, req := range signals {
		w.applySignal(tick, req)
	}

	for _, anchor := range w.risingStations() {
		w.runAttempt(tick, anchor)
	}

	// Snapshots are labelled with the next tick to run.
	next := w.tick.Add(1)
	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && next%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		select {
		case w.snapshotSink <- w.ExportSnapshot(next):
		default:
			// Writer is behind; the next cadence will catch up.
		}
	}
	w.storeMetrics(time.Since(start))
}

func (w *World) applySignal(tick uint64, req SignalRequest) {
	pos := modelpkg.VecFromArray(req.Pos)
	if w.BlockName(pos) != signal.BlockSwitch {
		observeSignal("rejected")
		return
	}
	if w.switches[pos] == req.On {
		observeSignal("unchanged")
		return
	}
	w.switches[pos] = req.On
	observeSignal("applied")
	if w.signalLogger != nil {
		_ = w.signalLogger.WriteSignal(SignalEntry{Tick: tick, Pos: req.Pos, On: req.On})
	}
}

// signalCells lists switch and wire cells in a stable order.
func (w *World) signalCells() []Vec3i {
	var cells []Vec3i
	for p, b := range w.blocks {
		if b == signal.BlockSwitch || b == signal.BlockWire {
			cells = append(cells, p)
		}
	}
	sort.Slice(cells, func(i, j int) bool { return lessVec(cells[i], cells[j]) })
	return cells
}

// risingStations evaluates every signal cell and returns, once each and in
// discovery order, the stations next to a cell whose level rose this tick.
func (w *World) risingStations() []Vec3i {
	var out []Vec3i
	seen := map[Vec3i]bool{}
	for _, p := range w.signalCells() {
		level := signal.Level(w, p, w.cfg.SignalMaxNodes)
		if !w.edges.Observe(p, level) {
			continue
		}
		for _, s := range structure.AdjacentStations(w, p) {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// primeEdges records current levels without firing, so a loaded world does
// not craft for signals that were already on.
func (w *World) primeEdges() {
	for _, p := range w.signalCells() {
		w.edges.Observe(p, signal.Level(w, p, w.cfg.SignalMaxNodes))
	}
}

func (w *World) runAttempt(tick uint64, anchor Vec3i) {
	start := time.Now()
	id := w.newAttemptID()

	var res autocraftruntime.Result
	st, err := structure.Discover(w, anchor)
	if err != nil {
		res = autocraftruntime.Result{State: autocraftruntime.StateAborted, Target: st.Template, Err: err}
	} else {
		res = autocraftruntime.Attempt(w, st)
	}
	observeAttempt(res, time.Since(start))

	w.attempts.Add(1)
	if res.OK() {
		w.committed.Add(1)
	}

	entry := CraftEntry{
		Tick:      tick,
		AttemptID: id,
		Anchor:    anchor.ToArray(),
		Target:    res.Target,
		RecipeID:  res.RecipeID,
		OK:        res.OK(),
		Code:      autocraftruntime.Code(res.Err),
		State:     res.State.String(),
		Consumed:  res.Consumed,
		Produced:  res.Produced,
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if w.craftLogger != nil {
		_ = w.craftLogger.WriteCraft(entry)
	}
	w.publish(protocol.CraftMsg{
		Type:            protocol.TypeCraft,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		AttemptID:       id,
		Anchor:          entry.Anchor,
		Target:          entry.Target,
		RecipeID:        entry.RecipeID,
		OK:              entry.OK,
		Code:            entry.Code,
		Consumed:        entry.Consumed,
		Produced:        entry.Produced,
	})
}

func lessVec(a, b Vec3i) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
