package host

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/hostvm/hostvm/types"
)

// Conversion layer between native Go values and guest-visible Vals.
//
// ToVal is total for every native type the host defines; FromVal is its
// inverse and deep-resolves handles. Conversions that allocate host objects
// go through the charged object store; purely representational ones (small
// integers, booleans) cost nothing, which the cost model already reflects
// in the per-call dispatch charge.

// ToVal converts a native value into a Val, allocating host objects as
// needed. 64-bit integers always promote to objects even when their value
// would fit inline, keeping the encoding of a given native type
// deterministic rather than value-dependent.
func (h *Host) ToVal(native any) (types.Val, error) {
	switch n := native.(type) {
	case nil:
		return types.VoidVal(), nil
	case bool:
		return types.BoolVal(n), nil
	case uint32:
		return types.U32Val(n), nil
	case int32:
		return types.I32Val(n), nil
	case uint64:
		return h.addObject(u64Object(n))
	case int64:
		return h.addObject(i64Object(n))
	case string:
		sym, err := types.NewSymbol(n)
		if err != nil {
			return types.VoidVal(), err
		}
		return types.SymbolVal(sym), nil
	case types.Symbol:
		return types.SymbolVal(n), nil
	case types.StatusCode:
		return types.StatusVal(n), nil
	case []byte:
		return h.addObject(bytesObject(append([]byte(nil), n...)))
	case *big.Int:
		return h.addObject(bigIntObject{v: new(big.Int).Set(n)})
	case *uint256.Int:
		return h.addObject(u256Object{v: *n})
	case []any:
		return h.sliceToVal(n, false)
	case types.Tuple:
		return h.sliceToVal(n, true)
	case []types.MapItem:
		return h.mapItemsToVal(n)
	case types.Val:
		return n, h.CheckVal(n)
	default:
		return types.VoidVal(), types.UnexpectedTypeError{
			Expected: "convertible native value",
			Got:      fmt.Sprintf("%T", native),
		}
	}
}

func (h *Host) sliceToVal(items []any, tuple bool) (types.Val, error) {
	vals := make([]types.Val, len(items))
	for i, item := range items {
		v, err := h.ToVal(item)
		if err != nil {
			return types.VoidVal(), err
		}
		vals[i] = v
	}
	if tuple {
		return h.addObject(tupleObject(vals))
	}
	return h.addObject(vecObject(vals))
}

// mapItemsToVal builds a map object from native items, converting and
// inserting one key at a time so the result is sorted and duplicate keys
// are rejected regardless of input order.
func (h *Host) mapItemsToVal(items []types.MapItem) (types.Val, error) {
	m := mapObject{}
	for _, item := range items {
		k, err := h.ToVal(item.Key)
		if err != nil {
			return types.VoidVal(), err
		}
		v, err := h.ToVal(item.Value)
		if err != nil {
			return types.VoidVal(), err
		}
		pos, exact, err := h.mapSearch(m, k)
		if err != nil {
			return types.VoidVal(), err
		}
		if exact {
			return types.VoidVal(), types.InvalidArgumentError{Msg: "duplicate map key"}
		}
		m = m.inserted(pos, mapEntry{key: k, val: v})
	}
	return h.addObject(m)
}

// FromVal deep-converts a Val back into native form: inline values to their
// Go scalars, objects to copies of their payloads, aggregates recursively.
// The result shares nothing with the object store and survives it.
func (h *Host) FromVal(v types.Val) (any, error) {
	switch v.GetTag() {
	case types.TagU32:
		return v.U32(), nil
	case types.TagI32:
		return v.I32(), nil
	case types.TagStatic:
		if v.IsVoid() {
			return nil, nil
		}
		if v.IsBool() {
			return v.MustBool(), nil
		}
		return nil, types.UnexpectedTypeError{Expected: "void or bool", Got: "unknown static"}
	case types.TagSymbol:
		return v.Symbol().String(), nil
	case types.TagStatus:
		return v.Status(), nil
	case types.TagObject:
		return h.objectToNative(v.Handle())
	default:
		return nil, types.UnexpectedTypeError{Expected: "decodable value", Got: v.GetTag().String()}
	}
}

func (h *Host) objectToNative(handle types.Handle) (any, error) {
	obj, err := h.getObject(handle)
	if err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case u64Object:
		return uint64(o), nil
	case i64Object:
		return int64(o), nil
	case bigIntObject:
		return new(big.Int).Set(o.v), nil
	case u256Object:
		cp := o.v
		return &cp, nil
	case bytesObject:
		return append([]byte(nil), o...), nil
	case vecObject:
		out := make([]any, len(o))
		for i, item := range o {
			if out[i], err = h.FromVal(item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case tupleObject:
		out := make(types.Tuple, len(o))
		for i, item := range o {
			if out[i], err = h.FromVal(item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case mapObject:
		out := make([]types.MapItem, len(o))
		for i, e := range o {
			if out[i].Key, err = h.FromVal(e.key); err != nil {
				return nil, err
			}
			if out[i].Value, err = h.FromVal(e.val); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, types.InternalError{Msg: "native conversion of unknown object variant"}
	}
}

// ToVals converts a slice of natives, for invocation arguments.
func (h *Host) ToVals(natives []any) ([]types.Val, error) {
	vals := make([]types.Val, len(natives))
	for i, n := range natives {
		v, err := h.ToVal(n)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
