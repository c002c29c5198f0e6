package runtime

import (
	"errors"
	"reflect"
	"testing"

	"autocraft.ai/internal/protocol"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
	"autocraft.ai/internal/sim/world/logic/crafting"
	"autocraft.ai/internal/sim/world/logic/slots"
)

func st(item string, n int) protocol.ItemStack { return protocol.ItemStack{Item: item, Count: n} }

type fakeEnv struct {
	recipes map[string][]crafting.Recipe
	lookups int
}

func (e *fakeEnv) RecipesForResult(item string) []crafting.Recipe {
	e.lookups++
	return e.recipes[item]
}

func (e *fakeEnv) MaxStack(item string) int {
	if item == "CAKE" {
		return 1
	}
	return 64
}

func newEnv() *fakeEnv {
	return &fakeEnv{recipes: map[string][]crafting.Recipe{
		"CRAFTING_TABLE": {{
			ID:     "crafting_table",
			Kind:   crafting.KindShaped,
			Result: st("CRAFTING_TABLE", 1),
			Shape:  []string{"##", "##"},
			Key:    map[rune]protocol.ItemStack{'#': st("PLANK", 1)},
		}},
		"CAKE": {{
			ID:      "cake",
			Kind:    crafting.KindShapeless,
			Result:  st("CAKE", 1),
			Choices: [][]string{{"WHEAT"}, {"WHEAT"}, {"WHEAT"}, {"WATER_BUCKET", "MILK_BUCKET"}},
		}},
	}}
}

func container(typ string, size int, stacks ...protocol.ItemStack) *modelpkg.Container {
	c := modelpkg.NewContainer(typ, modelpkg.Vec3i{}, size, nil)
	c.Put(stacks)
	return c
}

func TestAttempt_PlanksToCraftingTable(t *testing.T) {
	hopper := container("HOPPER", 5, st("PLANK", 4))
	chest := container("CHEST", 27)
	res := Attempt(newEnv(), Structure{Output: chest, Inputs: []Container{hopper}, Template: "CRAFTING_TABLE"})
	if !res.OK() || res.Err != nil {
		t.Fatalf("attempt failed: state=%v err=%v", res.State, res.Err)
	}
	if hopper.Count("PLANK") != 0 || chest.Count("CRAFTING_TABLE") != 1 {
		t.Fatalf("hopper=%v chest=%v", hopper.Slots, chest.Slots)
	}
	if !reflect.DeepEqual(res.Consumed, []protocol.ItemStack{st("PLANK", 4)}) {
		t.Fatalf("consumed=%v", res.Consumed)
	}
	if res.RecipeID != "crafting_table" {
		t.Fatalf("recipe=%q", res.RecipeID)
	}
}

func TestAttempt_CakeLeavesEmptyBucket(t *testing.T) {
	hopper := container("HOPPER", 5, st("WATER_BUCKET", 1), st("WHEAT", 3))
	chest := container("CHEST", 27)
	res := Attempt(newEnv(), Structure{Output: chest, Inputs: []Container{hopper}, Template: "CAKE"})
	if !res.OK() {
		t.Fatalf("attempt failed: %v", res.Err)
	}
	if chest.Count("CAKE") != 1 || chest.Count("BUCKET") != 1 {
		t.Fatalf("chest=%v", chest.Slots)
	}
	if chest.Slots[0].Item != "CAKE" || chest.Slots[1].Item != "BUCKET" {
		t.Fatalf("bucket must be a separate stack after the result: %v", chest.Slots)
	}
	want := []protocol.ItemStack{st("CAKE", 1), st("BUCKET", 1)}
	if !reflect.DeepEqual(res.Produced, want) {
		t.Fatalf("produced=%v want %v", res.Produced, want)
	}
}

func TestAttempt_EmptyPoolSkipsCatalog(t *testing.T) {
	env := newEnv()
	res := Attempt(env, Structure{
		Output:   container("CHEST", 27),
		Inputs:   []Container{container("HOPPER", 5)},
		Template: "CRAFTING_TABLE",
	})
	if !errors.Is(res.Err, ErrNoResources) || res.State != StateAborted {
		t.Fatalf("res=%+v", res)
	}
	if env.lookups != 0 {
		t.Fatalf("catalog consulted %d times for an empty pool", env.lookups)
	}
}

func TestAttempt_NoMatchingRecipe(t *testing.T) {
	hopper := container("HOPPER", 5, st("PLANK", 3))
	res := Attempt(newEnv(), Structure{Output: container("CHEST", 27), Inputs: []Container{hopper}, Template: "CRAFTING_TABLE"})
	if !errors.Is(res.Err, ErrNoMatchingRecipe) {
		t.Fatalf("err=%v", res.Err)
	}
	if hopper.Count("PLANK") != 3 {
		t.Fatalf("inputs touched on failure")
	}
}

func TestAttempt_OutputFullLeavesEverythingUnchanged(t *testing.T) {
	hopper := container("HOPPER", 5, st("PLANK", 4))
	chest := container("CHEST", 2, st("STONE", 64), st("DIRT", 64))
	before := chest.Snapshot()
	res := Attempt(newEnv(), Structure{Output: chest, Inputs: []Container{hopper}, Template: "CRAFTING_TABLE"})
	if !errors.Is(res.Err, ErrOutputSpaceUnavailable) || res.State != StateAborted {
		t.Fatalf("res=%+v", res)
	}
	if hopper.Count("PLANK") != 4 {
		t.Fatalf("inputs changed: %v", hopper.Slots)
	}
	if !reflect.DeepEqual(chest.Snapshot(), before) {
		t.Fatalf("output changed: %v", chest.Slots)
	}
}

func TestAttempt_ByproductSpaceIsChecked(t *testing.T) {
	hopper := container("HOPPER", 5, st("WATER_BUCKET", 1), st("WHEAT", 3))
	chest := container("CHEST", 2, st("STONE", 64))
	res := Attempt(newEnv(), Structure{Output: chest, Inputs: []Container{hopper}, Template: "CAKE"})
	if !errors.Is(res.Err, ErrOutputSpaceUnavailable) {
		t.Fatalf("err=%v", res.Err)
	}
	if chest.Count("CAKE") != 0 || hopper.Count("WHEAT") != 3 || hopper.Count("WATER_BUCKET") != 1 {
		t.Fatalf("partial mutation: chest=%v hopper=%v", chest.Slots, hopper.Slots)
	}
}

func TestAttempt_RemovalCarriesAcrossInputs(t *testing.T) {
	a := container("HOPPER", 5, st("PLANK", 1))
	b := container("HOPPER", 5, st("PLANK", 2))
	c := container("HOPPER", 5, st("PLANK", 5))
	chest := container("CHEST", 27)
	res := Attempt(newEnv(), Structure{Output: chest, Inputs: []Container{a, b, c}, Template: "CRAFTING_TABLE"})
	if !res.OK() {
		t.Fatalf("err=%v", res.Err)
	}
	if a.Count("PLANK") != 0 || b.Count("PLANK") != 0 || c.Count("PLANK") != 4 {
		t.Fatalf("a=%v b=%v c=%v", a.Slots, b.Slots, c.Slots)
	}
}

func TestAttempt_InvalidStructure(t *testing.T) {
	env := newEnv()
	hopper := container("HOPPER", 5, st("PLANK", 4))
	cases := []Structure{
		{Inputs: []Container{hopper}, Template: "CRAFTING_TABLE"},
		{Output: container("CHEST", 1), Template: "CRAFTING_TABLE"},
		{Output: container("CHEST", 1), Inputs: []Container{hopper}},
		{Output: container("CHEST", 1), Inputs: []Container{hopper}, Template: "AIR"},
	}
	for i, s := range cases {
		if res := Attempt(env, s); !errors.Is(res.Err, ErrStructureInvalid) {
			t.Fatalf("case %d: err=%v", i, res.Err)
		}
	}
	if hopper.Count("PLANK") != 4 {
		t.Fatalf("inputs touched")
	}
}

// lyingInput reports more than it can hand out, without staging.
type lyingInput struct {
	slots []protocol.ItemStack
	shown []protocol.ItemStack
}

func (l *lyingInput) Snapshot() []protocol.ItemStack { return slots.Clone(l.shown) }
func (l *lyingInput) AddItem(s protocol.ItemStack) protocol.ItemStack {
	if left := slots.Add(l.slots, s, nil); left > 0 {
		return st(s.Item, left)
	}
	return protocol.ItemStack{}
}
func (l *lyingInput) RemoveItem(s protocol.ItemStack) protocol.ItemStack {
	if left := slots.Remove(l.slots, s); left > 0 {
		return st(s.Item, left)
	}
	return protocol.ItemStack{}
}
func (l *lyingInput) Flush() {}

func TestAttempt_ApplyShortfallRollsBack(t *testing.T) {
	liar := &lyingInput{
		slots: []protocol.ItemStack{st("PLANK", 2), {}},
		shown: []protocol.ItemStack{st("PLANK", 4), {}},
	}
	chest := container("CHEST", 27)
	res := Attempt(newEnv(), Structure{Output: chest, Inputs: []Container{liar}, Template: "CRAFTING_TABLE"})
	if !errors.Is(res.Err, ErrRemovalShortfall) || res.State != StateAborted {
		t.Fatalf("res=%+v", res)
	}
	if slots.Count(liar.slots, "PLANK") != 2 {
		t.Fatalf("compensation did not restore planks: %v", liar.slots)
	}
	if chest.Count("CRAFTING_TABLE") != 0 {
		t.Fatalf("output deposited despite shortfall")
	}
}

// stuckOutput looks empty but accepts nothing.
type stuckOutput struct{ flushed bool }

func (s *stuckOutput) Snapshot() []protocol.ItemStack {
	return make([]protocol.ItemStack, 3)
}

func (s *stuckOutput) AddItem(x protocol.ItemStack) protocol.ItemStack    { return x }
func (s *stuckOutput) RemoveItem(x protocol.ItemStack) protocol.ItemStack { return x }
func (s *stuckOutput) Flush()                                             { s.flushed = true }

func TestAttempt_DepositFailureDiscardsRemovals(t *testing.T) {
	hopper := container("HOPPER", 5, st("PLANK", 4))
	out := &stuckOutput{}
	res := Attempt(newEnv(), Structure{Output: out, Inputs: []Container{hopper}, Template: "CRAFTING_TABLE"})
	if !errors.Is(res.Err, ErrDepositFailure) {
		t.Fatalf("err=%v", res.Err)
	}
	if res.State != StateAborted || out.flushed {
		t.Fatalf("state=%v flushed=%v", res.State, out.flushed)
	}
	if hopper.Count("PLANK") != 4 || hopper.Slots[0].Count != 4 {
		t.Fatalf("removal not discarded: %v", hopper.Slots)
	}
}

func TestCode(t *testing.T) {
	cases := map[error]string{
		nil:                       "",
		ErrStructureInvalid:       protocol.ErrStructureInvalid,
		ErrNoResources:            protocol.ErrNoResource,
		ErrNoMatchingRecipe:       protocol.ErrNoRecipe,
		ErrOutputSpaceUnavailable: protocol.ErrNoSpace,
		ErrDepositFailure:         protocol.ErrDepositFailed,
		ErrRemovalShortfall:       protocol.ErrRemovalShortfall,
		errors.New("boom"):        protocol.ErrInternal,
	}
	for err, want := range cases {
		if got := Code(err); got != want {
			t.Fatalf("Code(%v)=%q want %q", err, got, want)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateCommitted.String() != "COMMITTED" || State(42).String() != "UNKNOWN" {
		t.Fatalf("unexpected state names")
	}
}
