package signal

import (
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

const (
	BlockSwitch = "SWITCH"
	BlockWire   = "WIRE"

	// MaxLevel is the level of any cell reached by an ON switch.
	MaxLevel = 15
)

type Env interface {
	BlockName(modelpkg.Vec3i) string
	SwitchOn(modelpkg.Vec3i) bool
}

// Level returns the signal level at pos.
//
// Rule 1: an ON switch at pos, or adjacent to pos, powers it directly.
// Rule 2: adjacent wires form a network; pos is powered if that network
// touches an ON switch within a capped BFS budget.
func Level(env Env, pos modelpkg.Vec3i, maxNodes int) int {
	if env.BlockName(pos) == BlockSwitch && env.SwitchOn(pos) {
		return MaxLevel
	}
	wireStarts := make([]modelpkg.Vec3i, 0, len(modelpkg.Faces))
	for _, d := range modelpkg.Faces {
		p := pos.Add(d)
		switch env.BlockName(p) {
		case BlockSwitch:
			if env.SwitchOn(p) {
				return MaxLevel
			}
		case BlockWire:
			wireStarts = append(wireStarts, p)
		}
	}
	if env.BlockName(pos) == BlockWire {
		wireStarts = append(wireStarts, pos)
	}
	if len(wireStarts) > 0 && wirePoweredBySwitch(env, wireStarts, maxNodes) {
		return MaxLevel
	}
	return 0
}

func wirePoweredBySwitch(env Env, starts []modelpkg.Vec3i, maxNodes int) bool {
	if len(starts) == 0 || maxNodes <= 0 {
		return false
	}

	visited := map[modelpkg.Vec3i]bool{}
	q := make([]modelpkg.Vec3i, 0, len(starts))
	for _, p := range starts {
		if env.BlockName(p) != BlockWire {
			continue
		}
		if visited[p] {
			continue
		}
		visited[p] = true
		q = append(q, p)
	}

	for len(q) > 0 && len(visited) <= maxNodes {
		p := q[0]
		q = q[1:]

		for _, d := range modelpkg.Faces {
			sp := p.Add(d)
			if env.BlockName(sp) == BlockSwitch && env.SwitchOn(sp) {
				return true
			}
		}

		for _, d := range modelpkg.Faces {
			np := p.Add(d)
			if visited[np] {
				continue
			}
			if env.BlockName(np) != BlockWire {
				continue
			}
			visited[np] = true
			q = append(q, np)
			if len(visited) > maxNodes {
				break
			}
		}
	}
	return false
}

// EdgeDetector remembers the last level seen per cell and reports rising
// edges: previous level zero, new level non-zero.
type EdgeDetector struct {
	levels map[modelpkg.Vec3i]int
}

func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{levels: map[modelpkg.Vec3i]int{}}
}

// Observe records level for pos and reports whether it is a rising edge.
func (d *EdgeDetector) Observe(pos modelpkg.Vec3i, level int) bool {
	prev := d.levels[pos]
	if level <= 0 {
		delete(d.levels, pos)
	} else {
		d.levels[pos] = level
	}
	return prev == 0 && level > 0
}

// Forget drops the remembered level, e.g. when the cell is removed.
func (d *EdgeDetector) Forget(pos modelpkg.Vec3i) { delete(d.levels, pos) }

// Powered lists the cells currently remembered as powered.
func (d *EdgeDetector) Powered() []modelpkg.Vec3i {
	out := make([]modelpkg.Vec3i, 0, len(d.levels))
	for p := range d.levels {
		out = append(out, p)
	}
	return out
}
