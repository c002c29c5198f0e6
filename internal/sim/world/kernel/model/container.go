package model

import (
	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/world/logic/ids"
	"autocraft.ai/internal/sim/world/logic/slots"
)

// Container is the authoritative slot inventory of blocks like CHEST/HOPPER.
// It is included in snapshots.
//
// Mutations go to a staged copy of Slots and only become visible through
// Slots after Flush; Discard drops them.
type Container struct {
	Type  string
	Pos   Vec3i
	Slots []protocol.ItemStack

	limit  slots.Limit
	staged []protocol.ItemStack
}

func NewContainer(typ string, pos Vec3i, size int, limit slots.Limit) *Container {
	return &Container{
		Type:  typ,
		Pos:   pos,
		Slots: make([]protocol.ItemStack, size),
		limit: limit,
	}
}

func (c *Container) ID() string { return ContainerID(c.Type, c.Pos) }

func ContainerID(typ string, pos Vec3i) string {
	return ids.ContainerID(typ, pos.X, pos.Y, pos.Z)
}

func ParseContainerID(id string) (typ string, pos Vec3i, ok bool) {
	typ, x, y, z, ok := ids.ParseContainerID(id)
	if !ok {
		return "", Vec3i{}, false
	}
	return typ, Vec3i{X: x, Y: y, Z: z}, true
}

// SetLimit installs the per-item stack limit (e.g. after a snapshot import).
func (c *Container) SetLimit(limit slots.Limit) { c.limit = limit }

func (c *Container) view() []protocol.ItemStack {
	if c.staged != nil {
		return c.staged
	}
	return c.Slots
}

func (c *Container) stage() []protocol.ItemStack {
	if c.staged == nil {
		c.staged = slots.Clone(c.Slots)
	}
	return c.staged
}

// Snapshot returns a copy of the slots as currently seen, staged changes included.
func (c *Container) Snapshot() []protocol.ItemStack { return slots.Clone(c.view()) }

func (c *Container) AddItem(s protocol.ItemStack) protocol.ItemStack {
	if s.Empty() {
		return protocol.ItemStack{}
	}
	left := slots.Add(c.stage(), s, c.limit)
	if left == 0 {
		return protocol.ItemStack{}
	}
	return protocol.ItemStack{Item: s.Item, Count: left}
}

func (c *Container) RemoveItem(s protocol.ItemStack) protocol.ItemStack {
	if s.Empty() {
		return protocol.ItemStack{}
	}
	left := slots.Remove(c.stage(), s)
	if left == 0 {
		return protocol.ItemStack{}
	}
	return protocol.ItemStack{Item: s.Item, Count: left}
}

func (c *Container) Flush() {
	if c.staged == nil {
		return
	}
	c.Slots = c.staged
	c.staged = nil
}

func (c *Container) Discard() { c.staged = nil }

func (c *Container) Count(item string) int { return slots.Count(c.view(), item) }

// Put overwrites the committed content with stacks, one per slot.
// Used when seeding a world from a layout file.
func (c *Container) Put(stacks []protocol.ItemStack) {
	c.staged = nil
	for i := range c.Slots {
		c.Slots[i] = protocol.ItemStack{}
	}
	for _, s := range stacks {
		slots.Add(c.Slots, s, c.limit)
	}
}
