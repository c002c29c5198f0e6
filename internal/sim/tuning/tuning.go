package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`

	// Stack limit for items without max_stack in items.json.
	DefaultMaxStack int `yaml:"default_max_stack" json:"default_max_stack"`

	// Signal network BFS budget per evaluated cell.
	SignalMaxNodes int `yaml:"signal_max_nodes" json:"signal_max_nodes"`

	// Slot counts used when a container block has no container_slots in blocks.json.
	ContainerSlots map[string]int `yaml:"container_slots" json:"container_slots"`

	RateLimits RateLimits `yaml:"rate_limits" json:"rate_limits"`
}

type RateLimits struct {
	// Per-connection SIGNAL messages per second, and burst.
	SignalPerSecond float64 `yaml:"signal_per_second" json:"signal_per_second"`
	SignalBurst     int     `yaml:"signal_burst" json:"signal_burst"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         5,
		SnapshotEveryTicks: 3000,
		DefaultMaxStack:    64,
		SignalMaxNodes:     256,
		ContainerSlots: map[string]int{
			"CHEST":  27,
			"HOPPER": 5,
		},
		RateLimits: RateLimits{
			SignalPerSecond: 10,
			SignalBurst:     20,
		},
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.fillDefaults()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) fillDefaults() {
	d := Defaults()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.TickRateHz == 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.SnapshotEveryTicks == 0 {
		t.SnapshotEveryTicks = d.SnapshotEveryTicks
	}
	if t.DefaultMaxStack == 0 {
		t.DefaultMaxStack = d.DefaultMaxStack
	}
	if t.SignalMaxNodes == 0 {
		t.SignalMaxNodes = d.SignalMaxNodes
	}
	if t.ContainerSlots == nil {
		t.ContainerSlots = map[string]int{}
	}
	for k, v := range d.ContainerSlots {
		if _, ok := t.ContainerSlots[k]; !ok {
			t.ContainerSlots[k] = v
		}
	}
	if t.RateLimits.SignalPerSecond == 0 {
		t.RateLimits.SignalPerSecond = d.RateLimits.SignalPerSecond
	}
	if t.RateLimits.SignalBurst == 0 {
		t.RateLimits.SignalBurst = d.RateLimits.SignalBurst
	}
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.TickRateHz > 100 {
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	}
	if t.SnapshotEveryTicks < 0 {
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	}
	if t.DefaultMaxStack < 0 {
		return fmt.Errorf("default_max_stack must be >= 0")
	}
	if t.SignalMaxNodes < 0 {
		return fmt.Errorf("signal_max_nodes must be >= 0")
	}
	for typ, n := range t.ContainerSlots {
		if n <= 0 {
			return fmt.Errorf("container_slots.%s must be > 0", typ)
		}
	}
	return nil
}

// Digest is the sha256 of the canonical JSON of the applied values.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
