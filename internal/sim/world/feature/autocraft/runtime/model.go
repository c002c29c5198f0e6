package runtime

import (
	"errors"

	"autocraft.ai/internal/protocol"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
	"autocraft.ai/internal/sim/world/logic/crafting"
)

// Container is the storage surface a crafting attempt borrows for its duration.
// AddItem and RemoveItem return the part of the request they could not place
// or find (an empty stack when fully applied). Flush makes mutations durable.
type Container interface {
	Snapshot() []protocol.ItemStack
	AddItem(protocol.ItemStack) protocol.ItemStack
	RemoveItem(protocol.ItemStack) protocol.ItemStack
	Flush()
}

// Discarder is implemented by containers that stage mutations until Flush.
type Discarder interface {
	Discard()
}

// Env supplies catalog lookups to the coordinator.
type Env interface {
	// RecipesForResult returns every recipe producing item, in catalog order.
	RecipesForResult(item string) []crafting.Recipe
	MaxStack(item string) int
}

// Structure is one discovered crafting station: an anchor cell, the output
// container, the feeders pointing at the anchor and the displayed template.
type Structure struct {
	Anchor   modelpkg.Vec3i
	Output   Container
	Inputs   []Container
	Template string
}

type State int

const (
	StateIdle State = iota
	StateSpaceChecked
	StateInputsRemoved
	StateResultDeposited
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSpaceChecked:
		return "SPACE_CHECKED"
	case StateInputsRemoved:
		return "INPUTS_REMOVED"
	case StateResultDeposited:
		return "RESULT_DEPOSITED"
	case StateCommitted:
		return "COMMITTED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrStructureInvalid       = errors.New("autocraft: structure invalid")
	ErrNoResources            = errors.New("autocraft: no resources available")
	ErrNoMatchingRecipe       = errors.New("autocraft: no matching recipe")
	ErrOutputSpaceUnavailable = errors.New("autocraft: output space unavailable")
	ErrDepositFailure         = errors.New("autocraft: deposit failed")
	ErrRemovalShortfall       = errors.New("autocraft: removal shortfall")
)

// Code maps an attempt error to its protocol error code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStructureInvalid):
		return protocol.ErrStructureInvalid
	case errors.Is(err, ErrNoResources):
		return protocol.ErrNoResource
	case errors.Is(err, ErrNoMatchingRecipe):
		return protocol.ErrNoRecipe
	case errors.Is(err, ErrOutputSpaceUnavailable):
		return protocol.ErrNoSpace
	case errors.Is(err, ErrDepositFailure):
		return protocol.ErrDepositFailed
	case errors.Is(err, ErrRemovalShortfall):
		return protocol.ErrRemovalShortfall
	default:
		return protocol.ErrInternal
	}
}

// Result describes one finished attempt.
type Result struct {
	State    State
	Target   string
	RecipeID string
	Consumed []protocol.ItemStack
	Produced []protocol.ItemStack
	Err      error
}

func (r Result) OK() bool { return r.State == StateCommitted }
