package crafting

func matchShapeless(choices [][]string, pool Pool) (Plan, bool) {
	plan := Plan{}
	for _, group := range choices {
		if len(group) == 0 {
			continue
		}
		satisfied := false
		for _, item := range group {
			if item == "" {
				continue
			}
			if 1+plan[item] > pool[item] {
				continue
			}
			plan[item]++
			satisfied = true
			break
		}
		if !satisfied {
			return nil, false
		}
	}
	return plan, true
}
