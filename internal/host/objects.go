package host

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/hostvm/hostvm/types"
)

// hostObject is a heap payload addressed through a Handle. Objects are owned
// exclusively by the Host's arena; Vals alias them by handle only. All
// variants are treated as immutable once inserted: mutating operations copy
// first and mint a new handle (persistent-structure semantics), so aliasing
// through copied Vals can never be observed. The arena is reclaimed in bulk
// at invocation end; nothing is freed individually.
type hostObject interface {
	objType() types.ObjectType
	// size is the allocation magnitude charged before insertion, in bytes
	// for flat payloads and entry-scaled bytes for aggregates.
	size() uint64
}

type u64Object uint64

func (u64Object) objType() types.ObjectType { return types.ObjectTypeU64 }
func (u64Object) size() uint64              { return 8 }

type i64Object int64

func (i64Object) objType() types.ObjectType { return types.ObjectTypeI64 }
func (i64Object) size() uint64              { return 8 }

type bigIntObject struct {
	v *big.Int
}

func (bigIntObject) objType() types.ObjectType { return types.ObjectTypeBigInt }
func (o bigIntObject) size() uint64            { return uint64(len(o.v.Bits())) * 8 }

// digits is the magnitude used for arithmetic charging.
func (o bigIntObject) digits() uint64 { return uint64(len(o.v.Bits())) }

type u256Object struct {
	v uint256.Int
}

func (u256Object) objType() types.ObjectType { return types.ObjectTypeU256 }
func (u256Object) size() uint64              { return 32 }

type bytesObject []byte

func (bytesObject) objType() types.ObjectType { return types.ObjectTypeBytes }
func (o bytesObject) size() uint64            { return uint64(len(o)) }

type vecObject []types.Val

func (vecObject) objType() types.ObjectType { return types.ObjectTypeVec }
func (o vecObject) size() uint64            { return uint64(len(o)) * 8 }

type mapEntry struct {
	key types.Val
	val types.Val
}

// mapObject keeps entries sorted by key under the total Val ordering, keys
// unique.
type mapObject []mapEntry

func (mapObject) objType() types.ObjectType { return types.ObjectTypeMap }
func (o mapObject) size() uint64            { return uint64(len(o)) * 16 }

// tupleObject is a fixed-arity record of Values used for structured domain
// types. Unlike vecs it cannot grow or shrink after construction.
type tupleObject []types.Val

func (tupleObject) objType() types.ObjectType { return types.ObjectTypeTuple }
func (o tupleObject) size() uint64            { return uint64(len(o)) * 8 }

// addObject charges for the allocation and inserts obj, minting the next
// handle. On a failed charge nothing is inserted and the would-be handle is
// never observable.
func (h *Host) addObject(obj hostObject) (types.Val, error) {
	if err := h.budget.Charge(types.CostObjectAllocSlot, obj.size()); err != nil {
		return types.VoidVal(), err
	}
	if len(h.objects) > math.MaxUint32 {
		return types.VoidVal(), types.InternalError{Msg: "object store index space exhausted"}
	}
	h.objects = append(h.objects, obj)
	handle := types.Handle{Type: obj.objType(), Index: uint32(len(h.objects) - 1), Salt: h.salt}
	return types.ObjectVal(handle), nil
}

// getObject resolves a handle in this store. Handles minted by another store
// instance, truncated by a frame rollback, or forged by the guest fail with
// UnknownHandleError; the arena slot itself is never exposed. The salt check
// runs first so a foreign handle never resolves, not even at an index this
// store happens to populate with the same type.
func (h *Host) getObject(handle types.Handle) (hostObject, error) {
	if err := h.budget.Charge(types.CostVisitObject, 1); err != nil {
		return nil, err
	}
	if handle.Salt != h.salt {
		return nil, types.UnknownHandleError{Handle: handle}
	}
	if uint64(handle.Index) >= uint64(len(h.objects)) {
		return nil, types.UnknownHandleError{Handle: handle}
	}
	obj := h.objects[handle.Index]
	if obj.objType() != handle.Type {
		return nil, types.UnknownHandleError{Handle: handle}
	}
	return obj, nil
}

// getObjectAs resolves v as an object of the wanted type. A Val that is not
// an object, or whose handle declares a different type, is an
// UnexpectedTypeError (the caller asked for the wrong thing); a handle that
// does not resolve is an UnknownHandleError (the handle itself is bad).
func (h *Host) getObjectAs(v types.Val, want types.ObjectType) (hostObject, error) {
	if v.GetTag() != types.TagObject {
		return nil, types.UnexpectedTypeError{Expected: want.String(), Got: v.GetTag().String()}
	}
	handle := v.Handle()
	if handle.Type != want {
		return nil, types.UnexpectedTypeError{Expected: want.String(), Got: handle.Type.String()}
	}
	return h.getObject(handle)
}

func (h *Host) getBytes(v types.Val) (bytesObject, error) {
	obj, err := h.getObjectAs(v, types.ObjectTypeBytes)
	if err != nil {
		return nil, err
	}
	return obj.(bytesObject), nil
}

func (h *Host) getVec(v types.Val) (vecObject, error) {
	obj, err := h.getObjectAs(v, types.ObjectTypeVec)
	if err != nil {
		return nil, err
	}
	return obj.(vecObject), nil
}

func (h *Host) getMap(v types.Val) (mapObject, error) {
	obj, err := h.getObjectAs(v, types.ObjectTypeMap)
	if err != nil {
		return nil, err
	}
	return obj.(mapObject), nil
}

func (h *Host) getTuple(v types.Val) (tupleObject, error) {
	obj, err := h.getObjectAs(v, types.ObjectTypeTuple)
	if err != nil {
		return nil, err
	}
	return obj.(tupleObject), nil
}

func (h *Host) getBigInt(v types.Val) (bigIntObject, error) {
	obj, err := h.getObjectAs(v, types.ObjectTypeBigInt)
	if err != nil {
		return bigIntObject{}, err
	}
	return obj.(bigIntObject), nil
}

func (h *Host) getU256(v types.Val) (u256Object, error) {
	obj, err := h.getObjectAs(v, types.ObjectTypeU256)
	if err != nil {
		return u256Object{}, err
	}
	return obj.(u256Object), nil
}

func (h *Host) getU64(v types.Val) (uint64, error) {
	obj, err := h.getObjectAs(v, types.ObjectTypeU64)
	if err != nil {
		return 0, err
	}
	return uint64(obj.(u64Object)), nil
}

func (h *Host) getI64(v types.Val) (int64, error) {
	obj, err := h.getObjectAs(v, types.ObjectTypeI64)
	if err != nil {
		return 0, err
	}
	return int64(obj.(i64Object)), nil
}

// ObjectCount reports the number of live objects; used by tests and by the
// controller's diagnostics.
func (h *Host) ObjectCount() int {
	return len(h.objects)
}
