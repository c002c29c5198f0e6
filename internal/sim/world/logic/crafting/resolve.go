package crafting

import "autocraft.ai/internal/protocol"

type Match struct {
	RecipeID string
	Result   protocol.ItemStack
	Plan     Plan
}

// Resolve returns the first candidate, in the given order, that the pool can
// satisfy. Later candidates are never considered once one matches, even if
// they would consume fewer resources.
func Resolve(target string, pool Pool, candidates []Recipe) (Match, bool) {
	if len(pool) == 0 {
		return Match{}, false
	}
	for _, r := range candidates {
		if r.Result.Item != target {
			continue
		}
		plan, ok := r.Match(pool)
		if !ok {
			continue
		}
		return Match{RecipeID: r.ID, Result: r.Result, Plan: plan}, true
	}
	return Match{}, false
}
