package host

import (
	"github.com/hostvm/hostvm/types"
)

// Vector and tuple host functions. Vectors are persistent like maps: any
// mutation copies the backing slice and returns a fresh handle. Tuples are
// fixed-length and read-only once created.

func (h *Host) vecIndex(v vecObject, idxVal types.Val) (int, error) {
	idx, err := h.u32Arg(idxVal, "index")
	if err != nil {
		return 0, err
	}
	if int(idx) >= len(v) {
		return 0, types.InvalidArgumentError{Msg: "vector index out of bounds"}
	}
	return int(idx), nil
}

func (h *Host) chargeVecCopy(n int) error {
	return h.budget.Charge(types.CostVecEntry, uint64(n))
}

func (h *Host) vecNew(_ []types.Val) (types.Val, error) {
	return h.addObject(vecObject{})
}

func (h *Host) vecPut(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	i, err := h.vecIndex(v, args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeVecCopy(len(v)); err != nil {
		return types.VoidVal(), err
	}
	out := make(vecObject, len(v))
	copy(out, v)
	out[i] = args[2]
	return h.addObject(out)
}

func (h *Host) vecGet(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	i, err := h.vecIndex(v, args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	return v[i], nil
}

func (h *Host) vecDel(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	i, err := h.vecIndex(v, args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeVecCopy(len(v)); err != nil {
		return types.VoidVal(), err
	}
	out := make(vecObject, 0, len(v)-1)
	out = append(out, v[:i]...)
	out = append(out, v[i+1:]...)
	return h.addObject(out)
}

func (h *Host) vecLen(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.U32Val(uint32(len(v))), nil
}

func (h *Host) vecPush(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeVecCopy(len(v) + 1); err != nil {
		return types.VoidVal(), err
	}
	out := make(vecObject, 0, len(v)+1)
	out = append(out, v...)
	out = append(out, args[1])
	return h.addObject(out)
}

func (h *Host) vecPop(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if len(v) == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "pop from empty vector"}
	}
	if err := h.chargeVecCopy(len(v) - 1); err != nil {
		return types.VoidVal(), err
	}
	out := make(vecObject, len(v)-1)
	copy(out, v[:len(v)-1])
	return h.addObject(out)
}

func (h *Host) vecFront(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if len(v) == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "front of empty vector"}
	}
	return v[0], nil
}

func (h *Host) vecBack(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if len(v) == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "back of empty vector"}
	}
	return v[len(v)-1], nil
}

func (h *Host) vecInsert(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	idx, err := h.u32Arg(args[1], "index")
	if err != nil {
		return types.VoidVal(), err
	}
	// Insertion at len is allowed, unlike indexing.
	if int(idx) > len(v) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "vector insert index out of bounds"}
	}
	if err := h.chargeVecCopy(len(v) + 1); err != nil {
		return types.VoidVal(), err
	}
	i := int(idx)
	out := make(vecObject, 0, len(v)+1)
	out = append(out, v[:i]...)
	out = append(out, args[2])
	out = append(out, v[i:]...)
	return h.addObject(out)
}

func (h *Host) vecAppend(args []types.Val) (types.Val, error) {
	a, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	b, err := h.getVec(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeVecCopy(len(a) + len(b)); err != nil {
		return types.VoidVal(), err
	}
	out := make(vecObject, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return h.addObject(out)
}

func (h *Host) vecSlice(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	lo, err := h.u32Arg(args[1], "start")
	if err != nil {
		return types.VoidVal(), err
	}
	hi, err := h.u32Arg(args[2], "end")
	if err != nil {
		return types.VoidVal(), err
	}
	if lo > hi || int(hi) > len(v) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "vector slice range out of bounds"}
	}
	n := int(hi - lo)
	if err := h.chargeVecCopy(n); err != nil {
		return types.VoidVal(), err
	}
	out := make(vecObject, n)
	copy(out, v[lo:hi])
	return h.addObject(out)
}

// tupleNew materializes a fixed-length tuple from a vector of elements.
func (h *Host) tupleNew(args []types.Val) (types.Val, error) {
	v, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeVecCopy(len(v)); err != nil {
		return types.VoidVal(), err
	}
	out := make(tupleObject, len(v))
	copy(out, v)
	return h.addObject(out)
}

func (h *Host) tupleGet(args []types.Val) (types.Val, error) {
	t, err := h.getTuple(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	idx, err := h.u32Arg(args[1], "index")
	if err != nil {
		return types.VoidVal(), err
	}
	if int(idx) >= len(t) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "tuple index out of bounds"}
	}
	return t[idx], nil
}

func (h *Host) tupleLen(args []types.Val) (types.Val, error) {
	t, err := h.getTuple(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.U32Val(uint32(len(t))), nil
}
