package structure

import (
	"fmt"

	autocraftruntime "autocraft.ai/internal/sim/world/feature/autocraft/runtime"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

const (
	BlockAir     = "AIR"
	BlockStation = "CRAFTING_TABLE"
	BlockFeeder  = "HOPPER"
	BlockOutput  = "CHEST"
)

// Env is the read-only world view used to recognise a crafting station.
type Env interface {
	BlockName(pos modelpkg.Vec3i) string
	HopperAt(pos modelpkg.Vec3i) (modelpkg.Hopper, bool)
	FramesAt(pos modelpkg.Vec3i) []modelpkg.Frame
	ContainerAt(pos modelpkg.Vec3i) (autocraftruntime.Container, bool)
}

// AdjacentStations returns the crafting stations among the six neighbours of a
// signal cell, in face order.
func AdjacentStations(env Env, pos modelpkg.Vec3i) []modelpkg.Vec3i {
	var out []modelpkg.Vec3i
	for _, d := range modelpkg.Faces {
		p := pos.Add(d)
		if env.BlockName(p) == BlockStation {
			out = append(out, p)
		}
	}
	return out
}

// Discover scans the six neighbours of anchor once and assembles the station.
// It needs a feeder block, an air cell, an output chest, a non-empty template
// frame hung on the anchor, and at least one feeder discharging into anchor.
func Discover(env Env, anchor modelpkg.Vec3i) (autocraftruntime.Structure, error) {
	st := autocraftruntime.Structure{Anchor: anchor}

	var (
		hasFeeder bool
		airCells  []modelpkg.Vec3i
		feeders   []modelpkg.Vec3i
	)
	for _, d := range modelpkg.Faces {
		p := anchor.Add(d)
		switch env.BlockName(p) {
		case BlockFeeder:
			hasFeeder = true
			feeders = append(feeders, p)
		case BlockAir, "":
			airCells = append(airCells, p)
		case BlockOutput:
			if st.Output != nil {
				continue
			}
			if c, ok := env.ContainerAt(p); ok {
				st.Output = c
			}
		}
	}
	if !hasFeeder || len(airCells) == 0 || st.Output == nil {
		return st, fmt.Errorf("%w: station %v needs a hopper, an air cell and a chest", autocraftruntime.ErrStructureInvalid, anchor)
	}

	st.Template = findTemplate(env, anchor, airCells)
	if st.Template == "" {
		return st, fmt.Errorf("%w: station %v has no template", autocraftruntime.ErrStructureInvalid, anchor)
	}

	for _, p := range feeders {
		h, ok := env.HopperAt(p)
		if !ok || h.Target() != anchor {
			continue
		}
		c, ok := env.ContainerAt(p)
		if !ok {
			continue
		}
		st.Inputs = append(st.Inputs, c)
	}
	if len(st.Inputs) == 0 {
		return st, fmt.Errorf("%w: no hopper feeds station %v", autocraftruntime.ErrStructureInvalid, anchor)
	}
	return st, nil
}

func findTemplate(env Env, anchor modelpkg.Vec3i, airCells []modelpkg.Vec3i) string {
	for _, p := range airCells {
		for _, f := range env.FramesAt(p) {
			if f.Attached() != anchor {
				continue
			}
			if f.Item == "" || f.Item == BlockAir {
				continue
			}
			return f.Item
		}
	}
	return ""
}
