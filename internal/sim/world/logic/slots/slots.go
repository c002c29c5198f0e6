// Package slots implements slot-level stack placement shared by live
// containers and by dry-run validation over container snapshots.
package slots

import "autocraft.ai/internal/protocol"

// DefaultMaxStack applies when an item has no catalog limit.
const DefaultMaxStack = 64

// Limit returns the per-kind maximum stack size.
type Limit func(item string) int

func (l Limit) of(item string) int {
	if l == nil {
		return DefaultMaxStack
	}
	if n := l(item); n > 0 {
		return n
	}
	return DefaultMaxStack
}

// Clone returns an independent copy of slots.
func Clone(in []protocol.ItemStack) []protocol.ItemStack {
	out := make([]protocol.ItemStack, len(in))
	copy(out, in)
	return out
}

// HasSpace reports whether at least one unit of item fits: a partial stack of
// the same kind with spare capacity, or an empty slot.
func HasSpace(in []protocol.ItemStack, item string, limit Limit) bool {
	maxN := limit.of(item)
	for _, s := range in {
		if s.Empty() {
			return true
		}
		if s.Item == item && s.Count < maxN {
			return true
		}
	}
	return false
}

// Add places s into slots in place, topping up partial stacks of the same kind
// before using empty slots. It returns the count that did not fit.
func Add(in []protocol.ItemStack, s protocol.ItemStack, limit Limit) int {
	if s.Empty() {
		return 0
	}
	maxN := limit.of(s.Item)
	left := s.Count
	for i := range in {
		if left == 0 {
			return 0
		}
		if in[i].Empty() || in[i].Item != s.Item || in[i].Count >= maxN {
			continue
		}
		n := min(maxN-in[i].Count, left)
		in[i].Count += n
		left -= n
	}
	for i := range in {
		if left == 0 {
			return 0
		}
		if !in[i].Empty() {
			continue
		}
		n := min(maxN, left)
		in[i] = protocol.ItemStack{Item: s.Item, Count: n}
		left -= n
	}
	return left
}

// Remove takes up to s.Count units of s.Item out of slots in place, in slot
// order, and returns the count that could not be removed.
func Remove(in []protocol.ItemStack, s protocol.ItemStack) int {
	if s.Empty() {
		return 0
	}
	left := s.Count
	for i := range in {
		if left == 0 {
			break
		}
		if in[i].Empty() || in[i].Item != s.Item {
			continue
		}
		n := min(in[i].Count, left)
		in[i].Count -= n
		left -= n
		if in[i].Count == 0 {
			in[i] = protocol.ItemStack{}
		}
	}
	return left
}

// Count returns the total units of item held in slots.
func Count(in []protocol.ItemStack, item string) int {
	n := 0
	for _, s := range in {
		if !s.Empty() && s.Item == item {
			n += s.Count
		}
	}
	return n
}
