package host

import (
	"fmt"

	"github.com/hostvm/hostvm/types"
)

// InterfaceVersion identifies the host function surface published by this
// build. Any change to the dispatch table (a function added, removed, or
// re-typed) must bump it, so guest modules compiled against an older
// surface are rejected at link time instead of misbehaving at run time.
const InterfaceVersion uint32 = 1

// HostFunction is one capability of the dispatch table. All parameters and
// the result are Vals; Arity is fixed per function.
type HostFunction struct {
	Name  string
	Arity int
	Fn    func(h *Host, args []types.Val) (types.Val, error)
}

// hostFunctions is the closed, versioned capability table. It is defined in
// one place so the surface is reviewable at a glance and the linker can
// resolve imports against it without reflection.
var hostFunctions = []HostFunction{
	// Context, comparison, diagnostics.
	{"log_value", 1, (*Host).logValue},
	{"contract_event", 2, (*Host).contractEvent},
	{"obj_cmp", 2, (*Host).objCmp},
	{"get_current_contract", 0, (*Host).getCurrentContract},
	{"get_invoking_contract", 0, (*Host).getInvokingContract},
	{"fail_with_status", 1, (*Host).failWithStatus},

	// 64-bit integer objects. The inline encoding only carries 32 bits, so
	// wide integers travel as (hi, lo) halves across the boundary.
	{"obj_from_u64", 2, (*Host).objFromU64},
	{"obj_to_u64_hi", 1, (*Host).objToU64Hi},
	{"obj_to_u64_lo", 1, (*Host).objToU64Lo},
	{"obj_from_i64", 2, (*Host).objFromI64},
	{"obj_to_i64_hi", 1, (*Host).objToI64Hi},
	{"obj_to_i64_lo", 1, (*Host).objToI64Lo},

	// Ordered maps.
	{"map_new", 0, (*Host).mapNew},
	{"map_put", 3, (*Host).mapPut},
	{"map_get", 2, (*Host).mapGet},
	{"map_del", 2, (*Host).mapDel},
	{"map_len", 1, (*Host).mapLen},
	{"map_has", 2, (*Host).mapHas},
	{"map_keys", 1, (*Host).mapKeys},
	{"map_values", 1, (*Host).mapValues},
	{"map_min_key", 1, (*Host).mapMinKey},
	{"map_max_key", 1, (*Host).mapMaxKey},
	{"map_prev_key", 2, (*Host).mapPrevKey},
	{"map_next_key", 2, (*Host).mapNextKey},

	// Vectors.
	{"vec_new", 0, (*Host).vecNew},
	{"vec_put", 3, (*Host).vecPut},
	{"vec_get", 2, (*Host).vecGet},
	{"vec_del", 2, (*Host).vecDel},
	{"vec_len", 1, (*Host).vecLen},
	{"vec_push", 2, (*Host).vecPush},
	{"vec_pop", 1, (*Host).vecPop},
	{"vec_front", 1, (*Host).vecFront},
	{"vec_back", 1, (*Host).vecBack},
	{"vec_insert", 3, (*Host).vecInsert},
	{"vec_append", 2, (*Host).vecAppend},
	{"vec_slice", 3, (*Host).vecSlice},

	// Tuples (fixed-arity records).
	{"tuple_new", 1, (*Host).tupleNew},
	{"tuple_get", 2, (*Host).tupleGet},
	{"tuple_len", 1, (*Host).tupleLen},

	// Byte buffers, including guest linear-memory transfer.
	{"bytes_new", 0, (*Host).bytesNew},
	{"bytes_put", 3, (*Host).bytesPut},
	{"bytes_get", 2, (*Host).bytesGet},
	{"bytes_del", 2, (*Host).bytesDel},
	{"bytes_len", 1, (*Host).bytesLen},
	{"bytes_push", 2, (*Host).bytesPush},
	{"bytes_pop", 1, (*Host).bytesPop},
	{"bytes_front", 1, (*Host).bytesFront},
	{"bytes_back", 1, (*Host).bytesBack},
	{"bytes_insert", 3, (*Host).bytesInsert},
	{"bytes_append", 2, (*Host).bytesAppend},
	{"bytes_slice", 3, (*Host).bytesSlice},
	{"bytes_new_from_guest", 2, (*Host).bytesNewFromGuest},
	{"bytes_copy_to_guest", 4, (*Host).bytesCopyToGuest},
	{"bytes_copy_from_guest", 4, (*Host).bytesCopyFromGuest},

	// Arbitrary-precision integers.
	{"bigint_from_u64", 2, (*Host).bigIntFromU64},
	{"bigint_from_i64", 2, (*Host).bigIntFromI64},
	{"bigint_add", 2, (*Host).bigIntAdd},
	{"bigint_sub", 2, (*Host).bigIntSub},
	{"bigint_mul", 2, (*Host).bigIntMul},
	{"bigint_div", 2, (*Host).bigIntDiv},
	{"bigint_rem", 2, (*Host).bigIntRem},
	{"bigint_cmp", 2, (*Host).bigIntCmp},
	{"bigint_is_zero", 1, (*Host).bigIntIsZero},
	{"bigint_neg", 1, (*Host).bigIntNeg},
	{"bigint_pow", 2, (*Host).bigIntPow},
	{"bigint_bits", 1, (*Host).bigIntBits},
	{"bigint_from_bytes_be", 1, (*Host).bigIntFromBytesBE},
	{"bigint_to_bytes_be", 1, (*Host).bigIntToBytesBE},

	// Fixed-width 256-bit integers.
	{"u256_from_be_bytes", 1, (*Host).u256FromBEBytes},
	{"u256_to_be_bytes", 1, (*Host).u256ToBEBytes},
	{"u256_add", 2, (*Host).u256Add},
	{"u256_sub", 2, (*Host).u256Sub},
	{"u256_mul", 2, (*Host).u256Mul},
	{"u256_div", 2, (*Host).u256Div},
	{"u256_pow", 2, (*Host).u256Pow},

	// Cryptography (delegated to the primitive providers).
	{"compute_hash_sha256", 1, (*Host).computeHashSha256},
	{"compute_hash_keccak256", 1, (*Host).computeHashKeccak256},
	{"verify_sig_ed25519", 3, (*Host).verifySigEd25519},

	// Contract data, namespaced to the current contract.
	{"put_contract_data", 2, (*Host).putContractData},
	{"get_contract_data", 1, (*Host).getContractData},
	{"has_contract_data", 1, (*Host).hasContractData},
	{"del_contract_data", 1, (*Host).delContractData},

	// Contract-to-contract invocation.
	{"call", 3, (*Host).callFn},
	{"try_call", 3, (*Host).tryCallFn},
}

var hostFunctionIndex = buildIndex()

func buildIndex() map[string]*HostFunction {
	idx := make(map[string]*HostFunction, len(hostFunctions))
	for i := range hostFunctions {
		fn := &hostFunctions[i]
		if _, dup := idx[fn.Name]; dup {
			panic(types.InternalError{Msg: "duplicate host function " + fn.Name})
		}
		idx[fn.Name] = fn
	}
	return idx
}

// FunctionTable returns name -> arity for the whole dispatch surface, for
// linkers resolving guest imports.
func FunctionTable() map[string]int {
	table := make(map[string]int, len(hostFunctions))
	for _, fn := range hostFunctions {
		table[fn.Name] = fn.Arity
	}
	return table
}

// Dispatch is the single entry point for host calls, from the guest
// interpreter and from native contracts alike. It charges the fixed
// dispatch overhead, validates arity and every argument word, and runs the
// native body. Failures propagate as errors and never leave the budget or
// object store in a state that poisons subsequent calls.
func (h *Host) Dispatch(name string, args []types.Val) (types.Val, error) {
	fn, ok := hostFunctionIndex[name]
	if !ok {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "unknown host function " + name}
	}
	if err := h.budget.Charge(types.CostHostFunctionDispatch, 1); err != nil {
		return types.VoidVal(), err
	}
	if len(args) != fn.Arity {
		return types.VoidVal(), types.InvalidArgumentError{
			Msg: fmt.Sprintf("%s expects %d arguments, got %d", name, fn.Arity, len(args)),
		}
	}
	for _, arg := range args {
		if err := h.CheckVal(arg); err != nil {
			return types.VoidVal(), err
		}
	}
	return fn.Fn(h, args)
}

// Argument helpers shared by the host function bodies.

func (h *Host) u32Arg(v types.Val, what string) (uint32, error) {
	if v.GetTag() != types.TagU32 {
		return 0, types.UnexpectedTypeError{Expected: "u32 " + what, Got: v.GetTag().String()}
	}
	return v.U32(), nil
}

func (h *Host) symbolArg(v types.Val, what string) (types.Symbol, error) {
	if v.GetTag() != types.TagSymbol {
		return 0, types.UnexpectedTypeError{Expected: "symbol " + what, Got: v.GetTag().String()}
	}
	return v.Symbol(), nil
}
