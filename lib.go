// Package hostvm is a metered smart-contract host runtime. A VM owns a code
// registry and per-invocation policy; Invoke runs one contract function in a
// fresh invocation context (its own object store, budget and buffered
// storage view) and returns a terminal result carrying the cost report, the
// emitted events and, on success, the result value and the storage delta.
package hostvm

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/hostvm/hostvm/internal/budget"
	"github.com/hostvm/hostvm/internal/host"
	"github.com/hostvm/hostvm/internal/wazeroimpl"
	"github.com/hostvm/hostvm/types"
)

// ReentryPolicy decides whether a nested call targeting a contract already
// on the call stack may proceed. The default prohibits all re-entry.
type ReentryPolicy func(stack []types.ContractID, target types.ContractID) error

// VMConfig carries the policy shared by all invocations of one VM. The zero
// value gets sensible defaults from NewVM.
type VMConfig struct {
	// CostModel prices every charged operation. Nil means the default model.
	CostModel *types.CostModel
	// MemoryLimitPages caps each guest instance's linear memory, in 64 KiB
	// pages. Zero means the interpreter default.
	MemoryLimitPages uint32
	// MaxCallDepth bounds the contract call stack. Zero means DefaultMaxCallDepth.
	MaxCallDepth int
	// DiagnosticByteLimit bounds diagnostic event payloads per invocation,
	// independent of the execution budget. Zero means DefaultDiagnosticByteLimit.
	DiagnosticByteLimit uint64
	// Verifier checks ed25519 signatures for verify_sig_ed25519. Nil means
	// the stdlib Ed25519Verifier.
	Verifier types.SignatureVerifier
	// Reentry is consulted on every nested call. Nil prohibits re-entry.
	Reentry ReentryPolicy
}

const (
	DefaultMaxCallDepth        = 32
	DefaultDiagnosticByteLimit = 1 << 20
)

// VM is the main entry point to this library: the registry of stored code
// and registered contracts, and the invocation controller. Registration
// methods are not safe for concurrent use with Invoke; Invoke itself may run
// concurrently because each invocation gets an independent context.
type VM struct {
	cfg       VMConfig
	loader    *wazeroimpl.Loader
	codes     map[types.Checksum][]byte
	contracts map[types.ContractID]types.Checksum
	natives   map[types.ContractID]NativeContract
}

// NewVM creates a VM with the given policy, filling zero fields with
// defaults.
func NewVM(cfg VMConfig) *VM {
	if cfg.CostModel == nil {
		cfg.CostModel = types.DefaultCostModel()
	}
	if cfg.MaxCallDepth == 0 {
		cfg.MaxCallDepth = DefaultMaxCallDepth
	}
	if cfg.DiagnosticByteLimit == 0 {
		cfg.DiagnosticByteLimit = DefaultDiagnosticByteLimit
	}
	if cfg.Verifier == nil {
		cfg.Verifier = Ed25519Verifier{}
	}
	return &VM{
		cfg:       cfg,
		loader:    wazeroimpl.NewLoader(cfg.MemoryLimitPages),
		codes:     make(map[types.Checksum][]byte),
		contracts: make(map[types.ContractID]types.Checksum),
		natives:   make(map[types.ContractID]NativeContract),
	}
}

// StoreCode validates and stores a wasm blob, returning its checksum. The
// blob is compiled and link-checked once here so a contract registered
// against the checksum cannot fail to load for structural reasons later.
func (vm *VM) StoreCode(ctx context.Context, code []byte) (types.Checksum, error) {
	if len(code) == 0 {
		return types.Checksum{}, types.LoadError{Msg: "empty code"}
	}
	if err := vm.loader.Validate(ctx, code); err != nil {
		return types.Checksum{}, err
	}
	checksum := types.ChecksumOf(code)
	vm.codes[checksum] = append([]byte(nil), code...)
	return checksum, nil
}

// GetCode returns the stored wasm for a checksum.
func (vm *VM) GetCode(checksum types.Checksum) ([]byte, error) {
	code, ok := vm.codes[checksum]
	if !ok {
		return nil, types.LoadError{Msg: fmt.Sprintf("code %s not found", checksum)}
	}
	return append([]byte(nil), code...), nil
}

// RegisterContract binds a contract id to previously stored code.
func (vm *VM) RegisterContract(id types.ContractID, checksum types.Checksum) error {
	if _, ok := vm.codes[checksum]; !ok {
		return types.LoadError{Msg: fmt.Sprintf("code %s not found", checksum)}
	}
	if _, ok := vm.natives[id]; ok {
		return types.InvalidArgumentError{Msg: "contract id already registered as native"}
	}
	vm.contracts[id] = checksum
	return nil
}

// NativeContract is a host-side contract implementation, invoked through the
// same frame, budget and rollback machinery as wasm contracts. Embedders use
// it for built-ins; tests use it to exercise the host without wasm fixtures.
type NativeContract interface {
	Call(env *Env, fn types.Symbol, args []types.Val) (types.Val, error)
}

// NativeContractFunc adapts a function to NativeContract.
type NativeContractFunc func(env *Env, fn types.Symbol, args []types.Val) (types.Val, error)

func (f NativeContractFunc) Call(env *Env, fn types.Symbol, args []types.Val) (types.Val, error) {
	return f(env, fn, args)
}

// RegisterNativeContract binds a contract id to a native implementation.
func (vm *VM) RegisterNativeContract(id types.ContractID, contract NativeContract) error {
	if _, ok := vm.contracts[id]; ok {
		return types.InvalidArgumentError{Msg: "contract id already registered for wasm code"}
	}
	vm.natives[id] = contract
	return nil
}

// Env is the view of the invocation context a native contract works
// through. Host functions are reached by name through the same dispatch
// table wasm guests use, so native contracts are metered identically.
type Env struct {
	host *host.Host
}

// HostFn dispatches one host function call.
func (e *Env) HostFn(name string, args ...types.Val) (types.Val, error) {
	return e.host.Dispatch(name, args)
}

// NewVal converts a native Go value into the invocation's value space.
func (e *Env) NewVal(native any) (types.Val, error) {
	return e.host.ToVal(native)
}

// Native deep-converts a Val back into native Go form.
func (e *Env) Native(v types.Val) (any, error) {
	return e.host.FromVal(v)
}

// InvocationState is the controller's state for one invocation. The four
// terminal states all carry a cost report; only Completed carries a result
// value and a storage delta.
type InvocationState int

const (
	StateCreated InvocationState = iota
	StateLinked
	StateRunning
	StateCompleted
	StateTrapped
	StateBudgetExhausted
	StateLinkError
)

func (s InvocationState) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateLinked:
		return "Linked"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateTrapped:
		return "Trapped"
	case StateBudgetExhausted:
		return "BudgetExhausted"
	case StateLinkError:
		return "LinkError"
	default:
		return fmt.Sprintf("InvocationState(%d)", int(s))
	}
}

// Terminal reports whether the state ends the invocation.
func (s InvocationState) Terminal() bool {
	switch s {
	case StateCompleted, StateTrapped, StateBudgetExhausted, StateLinkError:
		return true
	}
	return false
}

// InvokeParams describes one top-level contract invocation.
type InvokeParams struct {
	Contract types.ContractID
	// Function is the exported entry point name; it must be a legal symbol.
	Function string
	// Args are native Go values, converted into the invocation's value
	// space before the entry point runs.
	Args []any
	// Snapshot is the immutable ledger view. Nil reads as empty.
	Snapshot types.Snapshot
	CpuLimit uint64
	MemLimit uint64
}

// InvokeResult is the terminal outcome of one invocation.
type InvokeResult struct {
	State InvocationState
	// Value is the deep-converted result; set only on Completed.
	Value any
	// Err is the failure; set on every non-Completed state.
	Err error
	// Cost is the final budget snapshot, present in every terminal state.
	Cost types.CostReport
	// Events are the contract events; set only on Completed.
	Events []types.Event
	// Delta is the key-sorted storage change set; set only on Completed.
	Delta []types.StorageChange
	// Diagnostics are debug events; they survive failure and rollback.
	Diagnostics []types.Event
}

// Invoke runs one contract function to a terminal state. An error return
// means the request itself was malformed (unknown contract, illegal function
// name); every outcome of actually running the contract, including traps and
// exhaustion, is reported through the result instead.
func (vm *VM) Invoke(ctx context.Context, params InvokeParams) (*InvokeResult, error) {
	fn, err := types.NewSymbol(params.Function)
	if err != nil {
		return nil, err
	}

	// Created: fresh budget, object store, storage view, empty call stack.
	b := budget.New(vm.cfg.CostModel, budget.Limits{
		Cpu:        params.CpuLimit,
		Mem:        params.MemLimit,
		Diagnostic: vm.cfg.DiagnosticByteLimit,
	})
	h := host.New(b, params.Snapshot, host.Config{
		MaxCallDepth: vm.cfg.MaxCallDepth,
		Reentry:      host.ReentryPolicy(vm.cfg.Reentry),
		Verifier:     vm.cfg.Verifier,
		Resolver:     &resolver{vm: vm, ctx: ctx},
	})
	res := &InvokeResult{State: StateCreated}

	// Linked: structural and import checks before any guest code runs.
	// Native contracts import nothing and link trivially.
	if checksum, ok := vm.contracts[params.Contract]; ok {
		if err := vm.loader.Validate(ctx, vm.codes[checksum]); err != nil {
			return vm.finish(res, h, StateLinkError, err), nil
		}
	} else if _, ok := vm.natives[params.Contract]; !ok {
		return nil, types.InvalidArgumentError{Msg: fmt.Sprintf("unknown contract %s", params.Contract)}
	}
	res.State = StateLinked

	args, err := h.ToVals(params.Args)
	if err != nil {
		if isExhaustion(err) {
			return vm.finish(res, h, StateBudgetExhausted, err), nil
		}
		return nil, err
	}

	// Running: drive the entry point; host calls re-enter dispatch.
	res.State = StateRunning
	val, callErr := h.CallContract(params.Contract, fn, args)
	if callErr != nil {
		return vm.finish(res, h, failureState(callErr), callErr), nil
	}

	native, err := h.FromVal(val)
	if err != nil {
		return vm.finish(res, h, failureState(err), err), nil
	}
	res = vm.finish(res, h, StateCompleted, nil)
	res.Value = native
	res.Events = h.Events()
	res.Delta = h.Delta()
	return res, nil
}

// finish stamps a terminal state with the final cost report and the
// diagnostics, which survive failure.
func (vm *VM) finish(res *InvokeResult, h *host.Host, state InvocationState, err error) *InvokeResult {
	res.State = state
	res.Err = err
	res.Cost = h.Budget().Report()
	res.Diagnostics = h.DiagnosticEvents()
	return res
}

func isExhaustion(err error) bool {
	var rle types.ResourceLimitExceededError
	return errors.As(err, &rle)
}

func failureState(err error) InvocationState {
	if isExhaustion(err) {
		return StateBudgetExhausted
	}
	var le types.LinkError
	if errors.As(err, &le) {
		return StateLinkError
	}
	return StateTrapped
}

// resolver maps contract ids to executables for the host's call stack.
type resolver struct {
	vm  *VM
	ctx context.Context
}

func (r *resolver) Resolve(id types.ContractID) (host.ContractExecutable, error) {
	if native, ok := r.vm.natives[id]; ok {
		return nativeExec{contract: native}, nil
	}
	checksum, ok := r.vm.contracts[id]
	if !ok {
		return nil, types.InvalidArgumentError{Msg: fmt.Sprintf("unknown contract %s", id)}
	}
	return r.vm.loader.Contract(r.ctx, r.vm.codes[checksum]), nil
}

type nativeExec struct {
	contract NativeContract
}

func (n nativeExec) Call(h *host.Host, fn types.Symbol, args []types.Val) (types.Val, error) {
	return n.contract.Call(&Env{host: h}, fn, args)
}

// Ed25519Verifier verifies signatures with the standard library. Embedders
// with batch verification or HSM-backed keys supply their own
// types.SignatureVerifier instead.
type Ed25519Verifier struct{}

func (Ed25519Verifier) VerifyEd25519(pubKey, msg, sig []byte) error {
	if len(pubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pubKey))
	}
	if !ed25519.Verify(ed25519.PublicKey(pubKey), msg, sig) {
		return errors.New("ed25519 signature mismatch")
	}
	return nil
}
