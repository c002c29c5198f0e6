package model

// Hopper stores the discharge direction of a HOPPER block. A hopper feeds the
// block at Pos+Facing.
type Hopper struct {
	Pos    Vec3i
	Facing Vec3i
}

func (h Hopper) Target() Vec3i { return h.Pos.Add(h.Facing) }

// Frame is a template display hung in the cell at Pos, attached to the block at
// Pos+Facing. Item is the displayed item kind, empty when the frame is bare.
type Frame struct {
	Pos    Vec3i
	Facing Vec3i
	Item   string
}

func (f Frame) Attached() Vec3i { return f.Pos.Add(f.Facing) }
