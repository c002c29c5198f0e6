package crafting

import "autocraft.ai/internal/protocol"

func matchShaped(shape []string, key map[rune]protocol.ItemStack, pool Pool) (Plan, bool) {
	plan := Plan{}
	for _, row := range shape {
		for _, c := range row {
			if c == ' ' {
				continue
			}
			ing, ok := key[c]
			if !ok || ing.Item == "" || ing.Item == "AIR" {
				continue
			}
			qty := ing.Count
			if qty <= 0 {
				qty = 1
			}
			needed := qty + plan[ing.Item]
			if needed > pool[ing.Item] {
				return nil, false
			}
			plan[ing.Item] = needed
		}
	}
	return plan, true
}
