package world

import "autocraft.ai/internal/sim/world/logic/slots"

type WorldConfig struct {
	ID         string
	TickRateHz int

	// Operational parameters. These are included in snapshots for resume.
	SnapshotEveryTicks int
	SignalMaxNodes     int
	DefaultMaxStack    int

	// Slot counts for container blocks that do not declare container_slots.
	ContainerSlots map[string]int
}

func (c *WorldConfig) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.SnapshotEveryTicks < 0 {
		c.SnapshotEveryTicks = 0
	}
	if c.SignalMaxNodes <= 0 {
		c.SignalMaxNodes = 256
	}
	if c.DefaultMaxStack <= 0 {
		c.DefaultMaxStack = slots.DefaultMaxStack
	}
	if c.ContainerSlots == nil {
		c.ContainerSlots = map[string]int{"CHEST": 27, "HOPPER": 5}
	}
}
