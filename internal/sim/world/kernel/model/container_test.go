package model

import (
	"testing"

	"autocraft.ai/internal/protocol"
)

func TestContainer_StagedUntilFlush(t *testing.T) {
	c := NewContainer("CHEST", Vec3i{X: 1}, 3, nil)
	c.Put([]protocol.ItemStack{{Item: "PLANK", Count: 4}})

	if left := c.RemoveItem(protocol.ItemStack{Item: "PLANK", Count: 3}); !left.Empty() {
		t.Fatalf("leftover=%v", left)
	}
	if c.Slots[0].Count != 4 {
		t.Fatalf("committed slots changed before flush: %v", c.Slots)
	}
	if c.Count("PLANK") != 1 {
		t.Fatalf("staged count=%d want 1", c.Count("PLANK"))
	}
	c.Flush()
	if c.Slots[0].Count != 1 {
		t.Fatalf("flush did not commit: %v", c.Slots)
	}
}

func TestContainer_DiscardDropsStaged(t *testing.T) {
	c := NewContainer("CHEST", Vec3i{}, 1, nil)
	c.AddItem(protocol.ItemStack{Item: "CAKE", Count: 1})
	c.Discard()
	if c.Count("CAKE") != 0 || !c.Slots[0].Empty() {
		t.Fatalf("discard left state behind: %v", c.Slots)
	}
}

func TestContainer_AddReportsLeftover(t *testing.T) {
	c := NewContainer("HOPPER", Vec3i{}, 1, func(string) int { return 16 })
	left := c.AddItem(protocol.ItemStack{Item: "BUCKET", Count: 20})
	if left.Item != "BUCKET" || left.Count != 4 {
		t.Fatalf("leftover=%v", left)
	}
}

func TestContainerIDRoundTrip(t *testing.T) {
	c := NewContainer("HOPPER", Vec3i{X: 3, Y: -1, Z: 7}, 5, nil)
	typ, pos, ok := ParseContainerID(c.ID())
	if !ok || typ != "HOPPER" || pos != c.Pos {
		t.Fatalf("ParseContainerID(%q)=%q,%v,%v", c.ID(), typ, pos, ok)
	}
}

func TestParseFace(t *testing.T) {
	d, ok := ParseFace("DOWN")
	if !ok || d != (Vec3i{Y: -1}) {
		t.Fatalf("ParseFace(DOWN)=%v,%v", d, ok)
	}
	if FaceName(d) != "DOWN" {
		t.Fatalf("FaceName=%q", FaceName(d))
	}
	if _, ok := ParseFace("SIDEWAYS"); ok {
		t.Fatalf("expected unknown face")
	}
}
