package world

import (
	"fmt"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/layout"
	autocraftruntime "autocraft.ai/internal/sim/world/feature/autocraft/runtime"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
	"autocraft.ai/internal/sim/world/logic/crafting"
)

// BlockName returns the block at pos; unset cells are AIR.
func (w *World) BlockName(pos Vec3i) string {
	if b, ok := w.blocks[pos]; ok {
		return b
	}
	return "AIR"
}

func (w *World) SwitchOn(pos Vec3i) bool { return w.switches[pos] }

func (w *World) HopperAt(pos Vec3i) (modelpkg.Hopper, bool) {
	h, ok := w.hoppers[pos]
	return h, ok
}

func (w *World) FramesAt(pos Vec3i) []modelpkg.Frame { return w.frames[pos] }

func (w *World) ContainerAt(pos Vec3i) (autocraftruntime.Container, bool) {
	c, ok := w.containers[pos]
	if !ok {
		return nil, false
	}
	return c, true
}

func (w *World) RecipesForResult(item string) []crafting.Recipe {
	return w.catalogs.Recipes.ForResult(item)
}

func (w *World) MaxStack(item string) int {
	return w.catalogs.Items.MaxStack(item, w.cfg.DefaultMaxStack)
}

// ContainerContents returns a copy of the committed slots at pos. Only safe
// from the world loop goroutine or while the loop is not running.
func (w *World) ContainerContents(pos Vec3i) ([]protocol.ItemStack, bool) {
	c, ok := w.containers[pos]
	if !ok {
		return nil, false
	}
	return c.Snapshot(), true
}

func (w *World) containerSlots(block string) int {
	if d, ok := w.catalogs.Blocks.Defs[block]; ok && d.Container > 0 {
		return d.Container
	}
	return w.cfg.ContainerSlots[block]
}

// setBlock places block at pos, creating an empty container for container
// blocks and dropping per-cell state that no longer applies.
func (w *World) setBlock(pos Vec3i, block string) error {
	if _, ok := w.catalogs.Blocks.Defs[block]; !ok {
		return fmt.Errorf("unknown block %s at %v", block, pos)
	}
	delete(w.containers, pos)
	delete(w.hoppers, pos)
	delete(w.switches, pos)
	w.edges.Forget(pos)
	if block == "AIR" {
		delete(w.blocks, pos)
		return nil
	}
	w.blocks[pos] = block
	if n := w.containerSlots(block); n > 0 {
		w.containers[pos] = modelpkg.NewContainer(block, pos, n, w.MaxStack)
	}
	if block == "SWITCH" {
		w.switches[pos] = false
	}
	return nil
}

// ApplyLayout seeds a fresh world. It must be called before Run.
func (w *World) ApplyLayout(l layout.Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	for _, b := range l.Blocks {
		if err := w.setBlock(modelpkg.VecFromArray(b.Pos), b.Block); err != nil {
			return fmt.Errorf("layout: %w", err)
		}
	}
	for _, c := range l.Containers {
		pos := modelpkg.VecFromArray(c.Pos)
		cont, ok := w.containers[pos]
		if !ok {
			return fmt.Errorf("layout: %v (%s) is not a container", c.Pos, w.BlockName(pos))
		}
		for _, s := range c.Items {
			if _, ok := w.catalogs.Items.Defs[s.Item]; !ok {
				return fmt.Errorf("layout: container %v: unknown item %s", c.Pos, s.Item)
			}
		}
		cont.Put(c.Items)
	}
	for _, h := range l.Hoppers {
		face, _ := modelpkg.ParseFace(h.Facing)
		pos := modelpkg.VecFromArray(h.Pos)
		w.hoppers[pos] = modelpkg.Hopper{Pos: pos, Facing: face}
	}
	for _, f := range l.Frames {
		if f.Item != "" {
			if _, ok := w.catalogs.Items.Defs[f.Item]; !ok {
				return fmt.Errorf("layout: frame %v: unknown item %s", f.Pos, f.Item)
			}
		}
		face, _ := modelpkg.ParseFace(f.Facing)
		pos := modelpkg.VecFromArray(f.Pos)
		w.frames[pos] = append(w.frames[pos], modelpkg.Frame{Pos: pos, Facing: face, Item: f.Item})
	}
	for _, s := range l.Switches {
		w.switches[modelpkg.VecFromArray(s.Pos)] = s.On
	}
	w.primeEdges()
	return nil
}
