package runtime

import (
	"fmt"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/world/logic/crafting"
	"autocraft.ai/internal/sim/world/logic/slots"
)

// Attempt runs one crafting attempt against st.
//
// Every check runs first against snapshots (pool, recipe, output room for the
// result and its byproducts, removability of the plan). Only then are inputs
// removed, outputs deposited and all containers flushed. A container that
// disagrees with its own snapshot during the apply phase aborts the attempt
// and the journal is rolled back.
func Attempt(env Env, st Structure) Result {
	res := Result{State: StateIdle, Target: st.Template}
	abort := func(err error) Result {
		res.State = StateAborted
		res.Err = err
		return res
	}

	if st.Output == nil || len(st.Inputs) == 0 || st.Template == "" || st.Template == "AIR" {
		return abort(ErrStructureInvalid)
	}
	limit := slots.Limit(env.MaxStack)

	inSnaps := make([][]protocol.ItemStack, 0, len(st.Inputs))
	for _, in := range st.Inputs {
		if in == nil {
			return abort(ErrStructureInvalid)
		}
		inSnaps = append(inSnaps, in.Snapshot())
	}
	pool := crafting.Aggregate(inSnaps...)
	if len(pool) == 0 {
		return abort(ErrNoResources)
	}

	m, ok := crafting.Resolve(st.Template, pool, env.RecipesForResult(st.Template))
	if !ok {
		return abort(ErrNoMatchingRecipe)
	}
	res.RecipeID = m.RecipeID

	outputs := append([]protocol.ItemStack{m.Result}, crafting.Byproducts(m.Plan)...)
	consumed := m.Plan.Stacks()

	outSnap := st.Output.Snapshot()
	if !slots.HasSpace(outSnap, m.Result.Item, limit) {
		return abort(ErrOutputSpaceUnavailable)
	}
	for _, o := range outputs {
		if left := slots.Add(outSnap, o, limit); left > 0 {
			return abort(fmt.Errorf("%w: %d %s do not fit", ErrOutputSpaceUnavailable, left, o.Item))
		}
	}
	for _, c := range consumed {
		left := c.Count
		for _, snap := range inSnaps {
			left = slots.Remove(snap, protocol.ItemStack{Item: c.Item, Count: left})
			if left == 0 {
				break
			}
		}
		if left > 0 {
			return abort(fmt.Errorf("%w: %d %s missing", ErrRemovalShortfall, left, c.Item))
		}
	}
	res.State = StateSpaceChecked

	var j journal
	for _, c := range consumed {
		left := c.Count
		for _, in := range st.Inputs {
			want := protocol.ItemStack{Item: c.Item, Count: left}
			lo := in.RemoveItem(want)
			if n := left - lo.Count; n > 0 {
				j.removed(in, protocol.ItemStack{Item: c.Item, Count: n})
			}
			left = lo.Count
			if lo.Empty() {
				left = 0
				break
			}
		}
		if left > 0 {
			j.rollback()
			return abort(fmt.Errorf("%w: %d %s missing", ErrRemovalShortfall, left, c.Item))
		}
	}
	res.State = StateInputsRemoved

	for _, o := range outputs {
		lo := st.Output.AddItem(o)
		if n := o.Count - lo.Count; n > 0 {
			j.added(st.Output, protocol.ItemStack{Item: o.Item, Count: n})
		}
		if !lo.Empty() {
			j.rollback()
			return abort(fmt.Errorf("%w: %d %s left over", ErrDepositFailure, lo.Count, o.Item))
		}
	}
	res.State = StateResultDeposited

	st.Output.Flush()
	for _, in := range st.Inputs {
		in.Flush()
	}
	res.State = StateCommitted
	res.Consumed = consumed
	res.Produced = outputs
	return res
}

type journalOp struct {
	c     Container
	s     protocol.ItemStack
	added bool
}

// journal records applied mutations so an aborted attempt can be undone.
// Containers that stage their writes are discarded instead of compensated.
type journal struct {
	ops []journalOp
}

func (j *journal) removed(c Container, s protocol.ItemStack) {
	j.ops = append(j.ops, journalOp{c: c, s: s})
}

func (j *journal) added(c Container, s protocol.ItemStack) {
	j.ops = append(j.ops, journalOp{c: c, s: s, added: true})
}

func (j *journal) rollback() {
	discarded := map[Container]bool{}
	for i := len(j.ops) - 1; i >= 0; i-- {
		op := j.ops[i]
		if d, ok := op.c.(Discarder); ok {
			if !discarded[op.c] {
				d.Discard()
				discarded[op.c] = true
			}
			continue
		}
		if op.added {
			op.c.RemoveItem(op.s)
		} else {
			op.c.AddItem(op.s)
		}
	}
	j.ops = nil
}
