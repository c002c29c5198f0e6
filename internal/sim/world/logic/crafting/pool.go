package crafting

import (
	"sort"

	"autocraft.ai/internal/protocol"
)

// Pool maps item kind to the total count available across all input containers.
// A missing key means zero.
type Pool map[string]int

// Aggregate sums the non-empty stacks of every input snapshot by item kind.
func Aggregate(inputs ...[]protocol.ItemStack) Pool {
	out := Pool{}
	for _, slots := range inputs {
		for _, s := range slots {
			if s.Empty() {
				continue
			}
			out[s.Item] += s.Count
		}
	}
	return out
}

// Plan maps item kind to the count a matched recipe consumes.
type Plan map[string]int

// Stacks returns the plan as item stacks sorted by item id.
func (p Plan) Stacks() []protocol.ItemStack {
	keys := make([]string, 0, len(p))
	for k, n := range p {
		if k == "" || n <= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]protocol.ItemStack, 0, len(keys))
	for _, k := range keys {
		out = append(out, protocol.ItemStack{Item: k, Count: p[k]})
	}
	return out
}

// Total is the number of units the plan consumes across all kinds.
func (p Plan) Total() int {
	n := 0
	for _, c := range p {
		n += c
	}
	return n
}
