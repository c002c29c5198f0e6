package crafting

import "autocraft.ai/internal/protocol"

type Kind string

const (
	KindShaped    Kind = "SHAPED"
	KindShapeless Kind = "SHAPELESS"
)

// Recipe is one declarative crafting rule. Kind selects which fields apply:
// Shape and Key for KindShaped, Choices for KindShapeless.
type Recipe struct {
	ID     string
	Kind   Kind
	Result protocol.ItemStack

	Shape []string
	Key   map[rune]protocol.ItemStack

	Choices [][]string
}

// Match reports whether the pool can pay for one craft of r and, if so,
// the per-kind consumption. The returned plan is freshly allocated.
func (r Recipe) Match(pool Pool) (Plan, bool) {
	switch r.Kind {
	case KindShaped:
		return matchShaped(r.Shape, r.Key, pool)
	case KindShapeless:
		return matchShapeless(r.Choices, pool)
	default:
		return nil, false
	}
}
