package signal

import (
	"testing"

	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

type grid struct {
	blocks   map[modelpkg.Vec3i]string
	switches map[modelpkg.Vec3i]bool
}

func (g grid) BlockName(p modelpkg.Vec3i) string { return g.blocks[p] }
func (g grid) SwitchOn(p modelpkg.Vec3i) bool    { return g.switches[p] }

func v(x, y, z int) modelpkg.Vec3i { return modelpkg.Vec3i{X: x, Y: y, Z: z} }

func TestLevel_AdjacentSwitch(t *testing.T) {
	g := grid{
		blocks:   map[modelpkg.Vec3i]string{v(1, 0, 0): BlockSwitch},
		switches: map[modelpkg.Vec3i]bool{v(1, 0, 0): true},
	}
	if got := Level(g, v(0, 0, 0), 16); got != MaxLevel {
		t.Fatalf("Level=%d", got)
	}
	g.switches[v(1, 0, 0)] = false
	if got := Level(g, v(0, 0, 0), 16); got != 0 {
		t.Fatalf("Level with OFF switch=%d", got)
	}
	g.switches[v(1, 0, 0)] = true
	if got := Level(g, v(1, 0, 0), 16); got != MaxLevel {
		t.Fatalf("switch cell itself=%d", got)
	}
}

func TestLevel_WireNetworkAndBudget(t *testing.T) {
	g := grid{blocks: map[modelpkg.Vec3i]string{}, switches: map[modelpkg.Vec3i]bool{}}
	for x := 1; x <= 5; x++ {
		g.blocks[v(x, 0, 0)] = BlockWire
	}
	g.blocks[v(6, 0, 0)] = BlockSwitch
	g.switches[v(6, 0, 0)] = true

	if got := Level(g, v(0, 0, 0), 16); got != MaxLevel {
		t.Fatalf("Level via wire=%d", got)
	}
	if got := Level(g, v(0, 0, 0), 2); got != 0 {
		t.Fatalf("Level beyond budget=%d", got)
	}
	if got := Level(g, v(0, 5, 0), 16); got != 0 {
		t.Fatalf("unconnected cell=%d", got)
	}
}

func TestEdgeDetector_RisingOnly(t *testing.T) {
	d := NewEdgeDetector()
	p := v(0, 0, 0)
	steps := []struct {
		level int
		want  bool
	}{
		{0, false},
		{15, true},
		{15, false},
		{7, false},
		{0, false},
		{3, true},
	}
	for i, s := range steps {
		if got := d.Observe(p, s.level); got != s.want {
			t.Fatalf("step %d level=%d: edge=%v want %v", i, s.level, got, s.want)
		}
	}
	d.Forget(p)
	if len(d.Powered()) != 0 {
		t.Fatalf("Powered after Forget=%v", d.Powered())
	}
}
