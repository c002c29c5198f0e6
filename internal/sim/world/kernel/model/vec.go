package model

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(d Vec3i) Vec3i { return Vec3i{X: v.X + d.X, Y: v.Y + d.Y, Z: v.Z + d.Z} }

func (v Vec3i) Neg() Vec3i { return Vec3i{X: -v.X, Y: -v.Y, Z: -v.Z} }

func VecFromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

// Faces lists the six neighbour offsets in scan order: north, east, south,
// west, up, down.
var Faces = []Vec3i{
	{X: 0, Y: 0, Z: -1},
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: -1, Z: 0},
}

var faceNames = map[string]Vec3i{
	"NORTH": Faces[0],
	"EAST":  Faces[1],
	"SOUTH": Faces[2],
	"WEST":  Faces[3],
	"UP":    Faces[4],
	"DOWN":  Faces[5],
}

// ParseFace maps a face name such as "DOWN" to its unit offset.
func ParseFace(name string) (Vec3i, bool) {
	d, ok := faceNames[name]
	return d, ok
}

// FaceName is the inverse of ParseFace.
func FaceName(d Vec3i) string {
	for name, v := range faceNames {
		if v == d {
			return name
		}
	}
	return ""
}
