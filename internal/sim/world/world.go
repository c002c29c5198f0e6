package world

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/catalogs"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
	"autocraft.ai/internal/sim/world/logic/signal"
)

type Vec3i = modelpkg.Vec3i

// SignalRequest asks the world to flip the switch at Pos.
type SignalRequest struct {
	Pos [3]int
	On  bool
}

// CraftEntry is the durable record of one crafting attempt.
type CraftEntry struct {
	Tick      uint64               `json:"tick"`
	AttemptID string               `json:"attempt_id"`
	Anchor    [3]int               `json:"anchor"`
	Target    string               `json:"target,omitempty"`
	RecipeID  string               `json:"recipe_id,omitempty"`
	OK        bool                 `json:"ok"`
	Code      string               `json:"code,omitempty"`
	State     string               `json:"state"`
	Error     string               `json:"error,omitempty"`
	Consumed  []protocol.ItemStack `json:"consumed,omitempty"`
	Produced  []protocol.ItemStack `json:"produced,omitempty"`
}

// SignalEntry records an applied switch change.
type SignalEntry struct {
	Tick uint64 `json:"tick"`
	Pos  [3]int `json:"pos"`
	On   bool   `json:"on"`
}

type CraftLogger interface {
	WriteCraft(entry CraftEntry) error
}

type SignalLogger interface {
	WriteSignal(entry SignalEntry) error
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs

	tick atomic.Uint64

	blocks     map[Vec3i]string
	containers map[Vec3i]*modelpkg.Container
	hoppers    map[Vec3i]modelpkg.Hopper
	frames     map[Vec3i][]modelpkg.Frame
	switches   map[Vec3i]bool

	edges *signal.EdgeDetector

	signals chan SignalRequest
	snapReq chan snapshotReq
	stop    chan struct{}
	stopped sync.Once

	subMu   sync.Mutex
	subs    map[int]chan protocol.CraftMsg
	nextSub int

	attempts  atomic.Uint64
	committed atomic.Uint64

	newAttemptID func() string

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	craftLogger  CraftLogger
	signalLogger SignalLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	metrics atomic.Value
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("nil catalogs")
	}
	for _, id := range []string{"AIR", "CRAFTING_TABLE", "HOPPER", "CHEST", "SWITCH", "WIRE"} {
		if _, ok := cats.Blocks.Index[id]; !ok {
			return nil, fmt.Errorf("missing block id in palette: %s", id)
		}
	}
	cfg.applyDefaults()

	w := &World{
		cfg:          cfg,
		catalogs:     cats,
		blocks:       map[Vec3i]string{},
		containers:   map[Vec3i]*modelpkg.Container{},
		hoppers:      map[Vec3i]modelpkg.Hopper{},
		frames:       map[Vec3i][]modelpkg.Frame{},
		switches:     map[Vec3i]bool{},
		edges:        signal.NewEdgeDetector(),
		signals:      make(chan SignalRequest, 1024),
		snapReq:      make(chan snapshotReq, 8),
		stop:         make(chan struct{}),
		subs:         map[int]chan protocol.CraftMsg{},
		newAttemptID: func() string { return uuid.NewString() },
	}
	return w, nil
}

func (w *World) SetCraftLogger(l CraftLogger)   { w.craftLogger = l }
func (w *World) SetSignalLogger(l SignalLogger) { w.signalLogger = l }

func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// Signals is the inbox for switch changes; they are applied at the next tick.
func (w *World) Signals() chan<- SignalRequest { return w.signals }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

func (w *World) Config() WorldConfig { return w.cfg }

// Subscribe registers a listener for CRAFT events. The returned cancel func
// must be called once the listener is done.
func (w *World) Subscribe(buf int) (<-chan protocol.CraftMsg, func()) {
	if buf <= 0 {
		buf = 64
	}
	ch := make(chan protocol.CraftMsg, buf)
	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.subMu.Lock()
			delete(w.subs, id)
			w.subMu.Unlock()
		})
	}
}

func (w *World) publish(msg protocol.CraftMsg) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for _, ch := range w.subs {
		sendLatest(ch, msg)
	}
}

// sendLatest delivers msg, dropping the oldest queued event when ch is full.
func sendLatest(ch chan protocol.CraftMsg, msg protocol.CraftMsg) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}
