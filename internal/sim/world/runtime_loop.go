package world

import (
	"context"
	"fmt"
	"time"

	"autocraft.ai/internal/persistence/snapshot"
)

type snapshotReq struct {
	Resp chan snapshot.SnapshotV1
}

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingSignals []SignalRequest
	var pendingSnapshots []snapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.signals:
			pendingSignals = append(pendingSignals, req)
		case req := <-w.snapReq:
			pendingSnapshots = append(pendingSnapshots, req)
		case <-ticker.C:
			w.step(pendingSignals)
			for _, req := range pendingSnapshots {
				req.Resp <- w.ExportSnapshot(w.tick.Load())
			}
			pendingSignals = pendingSignals[:0]
			pendingSnapshots = pendingSnapshots[:0]
		}
	}
}

func (w *World) Stop() { w.stopped.Do(func() { close(w.stop) }) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as the server loop. Intended for tests and tools.
func (w *World) StepOnce(signals []SignalRequest) uint64 {
	tick := w.tick.Load()
	w.step(signals)
	return tick
}

// RequestSnapshot asks the running loop for a consistent export taken
// between ticks.
func (w *World) RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	req := snapshotReq{Resp: make(chan snapshot.SnapshotV1, 1)}
	select {
	case w.snapReq <- req:
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, fmt.Errorf("snapshot request: %w", ctx.Err())
	}
	select {
	case snap := <-req.Resp:
		return snap, nil
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, fmt.Errorf("snapshot request: %w", ctx.Err())
	}
}
