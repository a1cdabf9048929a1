// Package host implements the host side of the contract runtime: the object
// store, the conversion layer between native Go values and guest-visible
// tagged values, the host function dispatch table, the buffered storage
// working set and the contract call stack. One Host backs exactly one
// invocation and is discarded with it.
package host

import (
	"fmt"
	"sync/atomic"

	"github.com/hostvm/hostvm/internal/budget"
	"github.com/hostvm/hostvm/types"
)

// GuestMemory is the host's window into the linear memory of the currently
// executing guest module. Native contract frames have none.
type GuestMemory interface {
	Read(offset, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
}

// ContractExecutable runs one function of one contract inside the current
// invocation. Implementations are either a linked guest module or a
// host-native contract.
type ContractExecutable interface {
	Call(h *Host, fn types.Symbol, args []types.Val) (types.Val, error)
}

// ContractResolver maps a contract id to something executable. The VM
// supplies it; resolution failures surface as guest faults (calling a
// nonexistent contract is guest-controllable).
type ContractResolver interface {
	Resolve(id types.ContractID) (ContractExecutable, error)
}

// ReentryPolicy decides whether a call targeting a contract already being
// executed may proceed. The mechanics (call stack inspection) live here;
// the policy is the embedder's protocol decision.
type ReentryPolicy func(stack []types.ContractID, target types.ContractID) error

// ProhibitReentry is the default policy: any call into a contract currently
// on the stack is rejected.
func ProhibitReentry(stack []types.ContractID, target types.ContractID) error {
	for _, id := range stack {
		if id == target {
			return types.ReentryError{Contract: target}
		}
	}
	return nil
}

// Config carries the per-invocation policy knobs and collaborators.
type Config struct {
	MaxCallDepth int
	Reentry      ReentryPolicy
	Verifier     types.SignatureVerifier
	Resolver     ContractResolver
}

// frame is one entry of the contract call stack. Pushing a frame records
// enough host state to roll the subcall back: the storage working set is
// snapshotted, and objects and events are truncated back to the recorded
// high-water marks if the frame fails.
type frame struct {
	contract types.ContractID
	fn       types.Symbol
	mem      GuestMemory

	prevWrites  map[string]writeEntry
	prevObjects int
	prevEvents  int
}

// Host binds one object store, one budget, one ledger snapshot view and one
// call stack: the invocation context. It is used by exactly one logical
// execution at a time; concurrency is achieved by running independent Hosts,
// never by sharing one.
type Host struct {
	budget  *budget.Budget
	cfg     Config
	salt    uint32
	objects []hostObject
	storage *storage
	frames  []frame
	events  []types.Event
	diags   []types.Event
}

// storeSalts hands out a distinct salt per store so handles minted by one
// invocation never resolve in another, even at colliding arena indices.
var storeSalts atomic.Uint32

// New creates the invocation context over a fresh budget and an immutable
// ledger snapshot.
func New(b *budget.Budget, snapshot types.Snapshot, cfg Config) *Host {
	if cfg.Reentry == nil {
		cfg.Reentry = ProhibitReentry
	}
	return &Host{
		budget:  b,
		cfg:     cfg,
		salt:    storeSalts.Add(1) & types.HandleSaltMask,
		storage: newStorage(snapshot),
	}
}

// Budget exposes the shared budget, e.g. to the guest interpreter adapter
// for step metering.
func (h *Host) Budget() *budget.Budget {
	return h.budget
}

// CurrentContract returns the contract of the innermost frame.
func (h *Host) CurrentContract() (types.ContractID, error) {
	if len(h.frames) == 0 {
		return types.ContractID{}, types.InternalError{Msg: "no active frame"}
	}
	return h.frames[len(h.frames)-1].contract, nil
}

// InvokingContract returns the caller of the innermost frame.
func (h *Host) InvokingContract() (types.ContractID, error) {
	if len(h.frames) < 2 {
		return types.ContractID{}, types.InvalidArgumentError{Msg: "no invoking contract"}
	}
	return h.frames[len(h.frames)-2].contract, nil
}

// SetFrameMemory attaches the linear memory of an instantiated guest module
// to the innermost frame. Called by the interpreter adapter once the module
// exists; native frames never call it.
func (h *Host) SetFrameMemory(mem GuestMemory) {
	if len(h.frames) == 0 {
		panic(types.InternalError{Msg: "no frame for guest memory"})
	}
	h.frames[len(h.frames)-1].mem = mem
}

// guestMemory returns the innermost frame's guest memory, if any.
func (h *Host) guestMemory() (GuestMemory, error) {
	if len(h.frames) == 0 || h.frames[len(h.frames)-1].mem == nil {
		return nil, types.InvalidArgumentError{Msg: "no guest memory in current frame"}
	}
	return h.frames[len(h.frames)-1].mem, nil
}

func (h *Host) stackIDs() []types.ContractID {
	ids := make([]types.ContractID, len(h.frames))
	for i, f := range h.frames {
		ids[i] = f.contract
	}
	return ids
}

// CallContract pushes a frame for contract id and runs fn in it. The frame
// shares the budget and object store of the whole invocation; on failure
// the subcall's storage writes, objects and contract events are rolled back
// so the caller observes no partial effects, while consumed budget remains
// consumed. Used both for the top-level entry and for nested
// contract-to-contract calls.
func (h *Host) CallContract(id types.ContractID, fn types.Symbol, args []types.Val) (types.Val, error) {
	if len(h.frames) >= h.cfg.MaxCallDepth {
		return types.VoidVal(), types.CallDepthExceededError{MaxDepth: h.cfg.MaxCallDepth}
	}
	if err := h.cfg.Reentry(h.stackIDs(), id); err != nil {
		return types.VoidVal(), err
	}
	// The rollback snapshot copies the buffered write set.
	if err := h.budget.Charge(types.CostCallFrame, uint64(len(h.storage.writes))); err != nil {
		return types.VoidVal(), err
	}
	exec, err := h.cfg.Resolver.Resolve(id)
	if err != nil {
		return types.VoidVal(), err
	}

	h.frames = append(h.frames, frame{
		contract:    id,
		fn:          fn,
		prevWrites:  h.storage.snapshotWrites(),
		prevObjects: len(h.objects),
		prevEvents:  len(h.events),
	})

	res, err := exec.Call(h, fn, args)

	f := h.frames[len(h.frames)-1]
	h.frames = h.frames[:len(h.frames)-1]
	if err != nil {
		h.storage.restoreWrites(f.prevWrites)
		h.objects = h.objects[:f.prevObjects]
		h.events = h.events[:f.prevEvents]
		return types.VoidVal(), err
	}
	return res, nil
}

// CheckVal validates a word received from the guest before it is accepted
// as a Val. Every Val inside the host must be well-formed; raw guest words
// are the one place malformed bit patterns can enter, and they are rejected
// here instead of corrupting the store or panicking later.
func (h *Host) CheckVal(v types.Val) error {
	switch v.GetTag() {
	case types.TagU32, types.TagI32:
		if uint64(v)>>(3+32) != 0 {
			return types.InvalidArgumentError{Msg: "inline integer with nonzero padding"}
		}
		return nil
	case types.TagStatic:
		if !v.IsVoid() && !v.IsBool() {
			return types.InvalidArgumentError{Msg: "unknown static value"}
		}
		return nil
	case types.TagSymbol:
		if !v.Symbol().Valid() {
			return types.InvalidSymbolError{Str: fmt.Sprintf("%#x", uint64(v)), Reason: "malformed symbol body"}
		}
		return nil
	case types.TagStatus:
		if v.Status() >= types.NumStatusCodes {
			return types.InvalidArgumentError{Msg: "unknown status code"}
		}
		return nil
	case types.TagObject:
		_, err := h.getObject(v.Handle())
		return err
	default:
		return types.InvalidArgumentError{Msg: fmt.Sprintf("unknown value tag %d", v.GetTag())}
	}
}
