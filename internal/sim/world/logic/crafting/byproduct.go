package crafting

import "autocraft.ai/internal/protocol"

const (
	EmptyBucket = "BUCKET"
	EmptyBottle = "GLASS_BOTTLE"
)

var bucketFamily = []string{"WATER_BUCKET", "LAVA_BUCKET", "MILK_BUCKET"}

var bottleFamily = []string{"POTION", "HONEY_BOTTLE"}

// Byproducts returns the empty containers left behind by consuming plan:
// the bucket stack first, then the bottle stack. Either is omitted when zero.
func Byproducts(plan Plan) []protocol.ItemStack {
	var out []protocol.ItemStack
	if n := familyCount(plan, bucketFamily); n > 0 {
		out = append(out, protocol.ItemStack{Item: EmptyBucket, Count: n})
	}
	if n := familyCount(plan, bottleFamily); n > 0 {
		out = append(out, protocol.ItemStack{Item: EmptyBottle, Count: n})
	}
	return out
}

func familyCount(plan Plan, family []string) int {
	n := 0
	for _, item := range family {
		n += plan[item]
	}
	return n
}
