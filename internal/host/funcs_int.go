package host

import (
	"github.com/hostvm/hostvm/types"
)

// 64-bit integers do not fit the 61-bit Val body, so they are host objects,
// built from and split into 32-bit halves at the boundary. Overflow of the
// inline range is therefore impossible by construction: anything wider than
// 32 bits is promoted, never wrapped.

func (h *Host) objFromU64(args []types.Val) (types.Val, error) {
	hi, err := h.u32Arg(args[0], "high half")
	if err != nil {
		return types.VoidVal(), err
	}
	lo, err := h.u32Arg(args[1], "low half")
	if err != nil {
		return types.VoidVal(), err
	}
	return h.addObject(u64Object(uint64(hi)<<32 | uint64(lo)))
}

func (h *Host) objToU64Hi(args []types.Val) (types.Val, error) {
	u, err := h.getU64(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.U32Val(uint32(u >> 32)), nil
}

func (h *Host) objToU64Lo(args []types.Val) (types.Val, error) {
	u, err := h.getU64(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.U32Val(uint32(u)), nil
}

func (h *Host) objFromI64(args []types.Val) (types.Val, error) {
	hi, err := h.u32Arg(args[0], "high half")
	if err != nil {
		return types.VoidVal(), err
	}
	lo, err := h.u32Arg(args[1], "low half")
	if err != nil {
		return types.VoidVal(), err
	}
	return h.addObject(i64Object(int64(uint64(hi)<<32 | uint64(lo))))
}

func (h *Host) objToI64Hi(args []types.Val) (types.Val, error) {
	i, err := h.getI64(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.U32Val(uint32(uint64(i) >> 32)), nil
}

func (h *Host) objToI64Lo(args []types.Val) (types.Val, error) {
	i, err := h.getI64(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.U32Val(uint32(uint64(i))), nil
}
