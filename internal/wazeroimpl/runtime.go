// Package wazeroimpl runs guest wasm modules on the wazero interpreter and
// bridges them to the host function surface. Every import of the "env"
// module is resolved against the host dispatch table at link time, guest
// execution is step-metered through the shared budget, and budget exhaustion
// cancels the module's context so the interpreter stops at the next
// suspension point. A wall-clock deadline derived from the remaining compute
// budget backstops guests that spin without entering a function or a host
// call, where the step meter never fires.
package wazeroimpl

import (
	"context"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"

	"github.com/hostvm/hostvm/internal/host"
	"github.com/hostvm/hostvm/types"
)

// hostModuleName is the import namespace guests link host functions from.
const hostModuleName = "env"

// Loader holds the guest-side runtime policy shared by all contracts of one
// VM. Each contract call gets its own wazero runtime so nested calls and
// concurrent invocations never share interpreter state.
type Loader struct {
	memoryLimitPages uint32
}

func NewLoader(memoryLimitPages uint32) *Loader {
	return &Loader{memoryLimitPages: memoryLimitPages}
}

func (l *Loader) runtimeConfig() wazero.RuntimeConfig {
	cfg := wazero.NewRuntimeConfigInterpreter().WithCloseOnContextDone(true)
	if l.memoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(l.memoryLimitPages)
	}
	return cfg
}

// Validate compiles code in a throwaway runtime and checks its linkage
// against the host surface, without instantiating or running anything.
// Compilation failures are LoadErrors, linkage failures LinkErrors.
func (l *Loader) Validate(ctx context.Context, code []byte) error {
	r := wazero.NewRuntimeWithConfig(ctx, l.runtimeConfig())
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, code)
	if err != nil {
		return types.LoadError{Msg: err.Error()}
	}
	defer compiled.Close(ctx)
	return checkLinkage(compiled)
}

// checkLinkage verifies that every "env" import resolves in the dispatch
// table with the right signature, and that the module declares the interface
// version this host publishes. Nothing guest-controlled runs before this
// check.
func checkLinkage(mod wazero.CompiledModule) error {
	table := host.FunctionTable()
	for _, def := range mod.ImportedFunctions() {
		modName, name, _ := def.Import()
		if modName != hostModuleName {
			return types.LinkError{Msg: fmt.Sprintf("import from unknown module %q", modName)}
		}
		arity, ok := table[name]
		if !ok {
			return types.LinkError{Msg: fmt.Sprintf("unknown host function %q", name)}
		}
		if len(def.ParamTypes()) != arity {
			return types.LinkError{Msg: fmt.Sprintf("host function %q imported with %d parameters, host has %d",
				name, len(def.ParamTypes()), arity)}
		}
		for _, t := range def.ParamTypes() {
			if t != api.ValueTypeI64 {
				return types.LinkError{Msg: fmt.Sprintf("host function %q imported with non-i64 parameter", name)}
			}
		}
		if len(def.ResultTypes()) != 1 || def.ResultTypes()[0] != api.ValueTypeI64 {
			return types.LinkError{Msg: fmt.Sprintf("host function %q must return exactly one i64", name)}
		}
	}

	marker := fmt.Sprintf("interface_version_%d", host.InterfaceVersion)
	if _, ok := mod.ExportedFunctions()[marker]; !ok {
		return types.LinkError{Msg: fmt.Sprintf("module does not export %q", marker)}
	}
	return nil
}

// Contract is a stored guest module bound to an invocation context. It
// satisfies host.ContractExecutable; the context is captured at resolution
// because the executable interface is context-free by design of the call
// stack (native contracts have no context either).
type Contract struct {
	loader *Loader
	ctx    context.Context
	code   []byte
}

var _ host.ContractExecutable = (*Contract)(nil)

// Contract binds code to the invocation context for execution.
func (l *Loader) Contract(ctx context.Context, code []byte) *Contract {
	return &Contract{loader: l, ctx: ctx, code: code}
}

// callEnv carries the state one guest execution shares between the host
// function closures, the step meter and the invoker: the first host-side
// error and the cancel handle that stops the interpreter.
type callEnv struct {
	host   *host.Host
	cancel context.CancelFunc
	err    error
}

// fail records the first error and stops guest execution. Later errors are
// consequences of the cancellation and are dropped.
func (e *callEnv) fail(err error) {
	if e.err == nil {
		e.err = err
	}
	e.cancel()
}

// fault maps a failed guest call to its cause: the recorded host error if
// one was raised, compute exhaustion if the wall-clock backstop expired,
// otherwise a guest trap.
func (e *callEnv) fault(ctx context.Context, callErr error) error {
	if e.err != nil {
		return e.err
	}
	if ctx.Err() == context.DeadlineExceeded {
		return types.ResourceLimitExceededError{Dimension: "cpu"}
	}
	return types.TrapError{Reason: callErr.Error()}
}

// hostAbort is the panic sentinel that unwinds the guest stack after a host
// function failed; the real error is already recorded in the callEnv.
type hostAbort struct{}

// cpuPerMillisecond converts remaining compute units into the wall-clock
// backstop. It deliberately overestimates interpreter throughput: the
// deadline must only ever fire on guests the step meter cannot reach, never
// before an honestly metered execution would have exhausted the budget.
const cpuPerMillisecond = 1 << 20

// minRunBackstop keeps the deadline from rounding down to nothing under
// tiny budgets.
const minRunBackstop = 10 * time.Millisecond

// runBackstop bounds one guest execution in wall-clock time, proportionally
// to the compute still available.
func runBackstop(cpuRemaining uint64) time.Duration {
	d := time.Duration(cpuRemaining/cpuPerMillisecond) * time.Millisecond
	if d < minRunBackstop {
		return minRunBackstop
	}
	return d
}

// Call instantiates the module and runs the exported function fn with Val
// arguments passed as raw i64 words. The instantiation cost is charged per
// code byte before the interpreter sees the code.
func (c *Contract) Call(h *host.Host, fn types.Symbol, args []types.Val) (types.Val, error) {
	if err := h.Budget().Charge(types.CostVMInstantiateByte, uint64(len(c.code))); err != nil {
		return types.VoidVal(), err
	}

	ctx, cancel := context.WithTimeout(c.ctx, runBackstop(h.Budget().CpuRemaining()))
	defer cancel()
	env := &callEnv{host: h, cancel: cancel}
	ctx = context.WithValue(ctx, experimental.FunctionListenerFactoryKey{},
		experimental.FunctionListenerFactory(stepMeter{env: env}))

	r := wazero.NewRuntimeWithConfig(ctx, c.loader.runtimeConfig())
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, c.code)
	if err != nil {
		return types.VoidVal(), types.LoadError{Msg: err.Error()}
	}
	if err := checkLinkage(compiled); err != nil {
		return types.VoidVal(), err
	}
	if err := registerHost(ctx, r, env); err != nil {
		return types.VoidVal(), types.InternalError{Msg: fmt.Sprintf("host module instantiation: %v", err)}
	}

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("contract"))
	if err != nil {
		return types.VoidVal(), env.fault(ctx, err)
	}
	h.SetFrameMemory(&guestMemory{mem: mod.Memory()})

	entry := mod.ExportedFunction(fn.String())
	if entry == nil {
		return types.VoidVal(), types.LinkError{Msg: fmt.Sprintf("module does not export %q", fn.String())}
	}
	def := entry.Definition()
	if len(def.ParamTypes()) != len(args) {
		return types.VoidVal(), types.LinkError{Msg: fmt.Sprintf("%q takes %d parameters, called with %d",
			fn.String(), len(def.ParamTypes()), len(args))}
	}

	raw := make([]uint64, len(args))
	for i, a := range args {
		raw[i] = uint64(a)
	}
	results, callErr := invoke(ctx, entry, raw)
	if callErr != nil {
		return types.VoidVal(), env.fault(ctx, callErr)
	}
	if len(results) != 1 {
		return types.VoidVal(), types.LinkError{Msg: fmt.Sprintf("%q must return exactly one value", fn.String())}
	}
	res := types.Val(results[0])
	if err := h.CheckVal(res); err != nil {
		return types.VoidVal(), err
	}
	return res, nil
}

// invoke runs the entry function, converting the hostAbort unwind back into
// the error flow. Any other panic escaping wazero is a host bug.
func invoke(ctx context.Context, fn api.Function, raw []uint64) (results []uint64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if _, ok := rec.(hostAbort); ok {
				err = fmt.Errorf("host call aborted")
				return
			}
			err = types.InternalError{Msg: fmt.Sprintf("guest invocation panic: %v", rec)}
		}
	}()
	return fn.Call(ctx, raw...)
}

// registerHost instantiates the "env" module: one i64-typed wrapper per
// dispatch table entry, each forwarding to host.Dispatch. On a dispatch
// error the wrapper records it and unwinds; no result word is produced.
func registerHost(ctx context.Context, r wazero.Runtime, env *callEnv) error {
	builder := r.NewHostModuleBuilder(hostModuleName)
	for name, arity := range host.FunctionTable() {
		name, arity := name, arity
		params := make([]api.ValueType, arity)
		for i := range params {
			params[i] = api.ValueTypeI64
		}
		builder.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
			func(_ context.Context, _ api.Module, stack []uint64) {
				vals := make([]types.Val, arity)
				for i := range vals {
					vals[i] = types.Val(stack[i])
				}
				res, err := env.host.Dispatch(name, vals)
				if err != nil {
					env.fail(err)
					panic(hostAbort{})
				}
				stack[0] = uint64(res)
			}), params, []api.ValueType{api.ValueTypeI64}).Export(name)
	}
	_, err := builder.Instantiate(ctx)
	return err
}

// stepMeter charges one guest step per guest-defined function entered.
// Imports are skipped; those are charged by Dispatch. A failed charge stops
// the interpreter through the shared cancel.
type stepMeter struct {
	env *callEnv
}

func (s stepMeter) NewFunctionListener(def api.FunctionDefinition) experimental.FunctionListener {
	if _, _, isImport := def.Import(); isImport {
		return nil
	}
	return guestStep{env: s.env}
}

type guestStep struct {
	env *callEnv
}

func (g guestStep) Before(_ context.Context, _ api.Module, _ api.FunctionDefinition, _ []uint64, _ experimental.StackIterator) {
	if err := g.env.host.Budget().Charge(types.CostGuestFunctionCall, 1); err != nil {
		g.env.fail(err)
	}
}

func (g guestStep) After(context.Context, api.Module, api.FunctionDefinition, []uint64) {}

func (g guestStep) Abort(context.Context, api.Module, api.FunctionDefinition, error) {}

// guestMemory adapts wazero linear memory to the host's memory interface.
// Reads copy out: the returned slice must survive guest mutation and module
// teardown.
type guestMemory struct {
	mem api.Memory
}

var _ host.GuestMemory = (*guestMemory)(nil)

func (g *guestMemory) Read(offset, length uint32) ([]byte, error) {
	data, ok := g.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("guest memory read out of range [%d:+%d]", offset, length)
	}
	return append([]byte(nil), data...), nil
}

func (g *guestMemory) Write(offset uint32, data []byte) error {
	if !g.mem.Write(offset, data) {
		return fmt.Errorf("guest memory write out of range [%d:+%d]", offset, len(data))
	}
	return nil
}
