package world

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	autocraftruntime "autocraft.ai/internal/sim/world/feature/autocraft/runtime"
)

var (
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocraft_attempts_total",
			Help: "Crafting attempts by outcome (ok or error code)",
		},
		[]string{"outcome"},
	)
	itemsCraftedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocraft_items_crafted_total",
			Help: "Items deposited by committed attempts, byproducts included",
		},
		[]string{"item"},
	)
	attemptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autocraft_attempt_duration_seconds",
			Help:    "Duration of one crafting attempt in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)
	signalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocraft_signals_total",
			Help: "Switch signals received by result",
		},
		[]string{"result"},
	)
)

func observeAttempt(res autocraftruntime.Result, d time.Duration) {
	attemptDuration.Observe(d.Seconds())
	if !res.OK() {
		attemptsTotal.WithLabelValues(autocraftruntime.Code(res.Err)).Inc()
		return
	}
	attemptsTotal.WithLabelValues("ok").Inc()
	for _, s := range res.Produced {
		itemsCraftedTotal.WithLabelValues(s.Item).Add(float64(s.Count))
	}
}

func observeSignal(result string) { signalsTotal.WithLabelValues(result).Inc() }

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick       uint64  `json:"tick"`
	Attempts   uint64  `json:"attempts"`
	Committed  uint64  `json:"committed"`
	Stations   int     `json:"stations"`
	Containers int     `json:"containers"`
	SignalQ    int     `json:"signal_queue_depth"`
	StepMS     float64 `json:"step_ms"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

func (w *World) storeMetrics(step time.Duration) {
	stations := 0
	for _, b := range w.blocks {
		if b == "CRAFTING_TABLE" {
			stations++
		}
	}
	w.metrics.Store(WorldMetrics{
		Tick:       w.tick.Load(),
		Attempts:   w.attempts.Load(),
		Committed:  w.committed.Load(),
		Stations:   stations,
		Containers: len(w.containers),
		SignalQ:    len(w.signals),
		StepMS:     float64(step.Microseconds()) / 1000.0,
	})
}
