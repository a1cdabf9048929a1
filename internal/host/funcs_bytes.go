package host

import (
	"github.com/hostvm/hostvm/types"
)

// Byte-array host functions, plus the three that cross the guest linear
// memory boundary. Bytes objects follow the same persistent contract as
// vecs: mutation copies. Boundary transfers are charged per byte before
// any memory is touched.

func (h *Host) chargeBytesCopy(n int) error {
	return h.budget.Charge(types.CostBytesByte, uint64(n))
}

func (h *Host) bytesNew(_ []types.Val) (types.Val, error) {
	return h.addObject(bytesObject{})
}

func (h *Host) bytesPut(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	idx, err := h.u32Arg(args[1], "index")
	if err != nil {
		return types.VoidVal(), err
	}
	if int(idx) >= len(b) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bytes index out of bounds"}
	}
	val, err := h.u32Arg(args[2], "byte value")
	if err != nil {
		return types.VoidVal(), err
	}
	if val > 0xff {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "byte value above 255"}
	}
	if err := h.chargeBytesCopy(len(b)); err != nil {
		return types.VoidVal(), err
	}
	out := make(bytesObject, len(b))
	copy(out, b)
	out[idx] = byte(val)
	return h.addObject(out)
}

func (h *Host) bytesGet(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	idx, err := h.u32Arg(args[1], "index")
	if err != nil {
		return types.VoidVal(), err
	}
	if int(idx) >= len(b) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bytes index out of bounds"}
	}
	return types.U32Val(uint32(b[idx])), nil
}

func (h *Host) bytesDel(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	idx, err := h.u32Arg(args[1], "index")
	if err != nil {
		return types.VoidVal(), err
	}
	if int(idx) >= len(b) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bytes index out of bounds"}
	}
	if err := h.chargeBytesCopy(len(b)); err != nil {
		return types.VoidVal(), err
	}
	out := make(bytesObject, 0, len(b)-1)
	out = append(out, b[:idx]...)
	out = append(out, b[idx+1:]...)
	return h.addObject(out)
}

func (h *Host) bytesLen(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.U32Val(uint32(len(b))), nil
}

func (h *Host) bytesPush(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	val, err := h.u32Arg(args[1], "byte value")
	if err != nil {
		return types.VoidVal(), err
	}
	if val > 0xff {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "byte value above 255"}
	}
	if err := h.chargeBytesCopy(len(b) + 1); err != nil {
		return types.VoidVal(), err
	}
	out := make(bytesObject, 0, len(b)+1)
	out = append(out, b...)
	out = append(out, byte(val))
	return h.addObject(out)
}

func (h *Host) bytesPop(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if len(b) == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "pop from empty bytes"}
	}
	if err := h.chargeBytesCopy(len(b) - 1); err != nil {
		return types.VoidVal(), err
	}
	out := make(bytesObject, len(b)-1)
	copy(out, b[:len(b)-1])
	return h.addObject(out)
}

func (h *Host) bytesFront(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if len(b) == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "front of empty bytes"}
	}
	return types.U32Val(uint32(b[0])), nil
}

func (h *Host) bytesBack(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if len(b) == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "back of empty bytes"}
	}
	return types.U32Val(uint32(b[len(b)-1])), nil
}

func (h *Host) bytesInsert(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	idx, err := h.u32Arg(args[1], "index")
	if err != nil {
		return types.VoidVal(), err
	}
	if int(idx) > len(b) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bytes insert index out of bounds"}
	}
	val, err := h.u32Arg(args[2], "byte value")
	if err != nil {
		return types.VoidVal(), err
	}
	if val > 0xff {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "byte value above 255"}
	}
	if err := h.chargeBytesCopy(len(b) + 1); err != nil {
		return types.VoidVal(), err
	}
	out := make(bytesObject, 0, len(b)+1)
	out = append(out, b[:idx]...)
	out = append(out, byte(val))
	out = append(out, b[idx:]...)
	return h.addObject(out)
}

func (h *Host) bytesAppend(args []types.Val) (types.Val, error) {
	a, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	b, err := h.getBytes(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeBytesCopy(len(a) + len(b)); err != nil {
		return types.VoidVal(), err
	}
	out := make(bytesObject, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return h.addObject(out)
}

func (h *Host) bytesSlice(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
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
	if lo > hi || int(hi) > len(b) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bytes slice range out of bounds"}
	}
	n := int(hi - lo)
	if err := h.chargeBytesCopy(n); err != nil {
		return types.VoidVal(), err
	}
	out := make(bytesObject, n)
	copy(out, b[lo:hi])
	return h.addObject(out)
}

// bytesNewFromGuest copies (offset, length) out of the guest's linear memory
// into a fresh bytes object.
func (h *Host) bytesNewFromGuest(args []types.Val) (types.Val, error) {
	mem, err := h.guestMemory()
	if err != nil {
		return types.VoidVal(), err
	}
	offset, err := h.u32Arg(args[0], "offset")
	if err != nil {
		return types.VoidVal(), err
	}
	length, err := h.u32Arg(args[1], "length")
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostGuestMemTransfer, uint64(length)); err != nil {
		return types.VoidVal(), err
	}
	data, err := mem.Read(offset, length)
	if err != nil {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "guest memory read out of bounds"}
	}
	out := make(bytesObject, len(data))
	copy(out, data)
	return h.addObject(out)
}

// bytesCopyToGuest writes b[bPos:bPos+length] into guest memory at offset
// and returns the unchanged handle.
func (h *Host) bytesCopyToGuest(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	mem, err := h.guestMemory()
	if err != nil {
		return types.VoidVal(), err
	}
	bPos, err := h.u32Arg(args[1], "source position")
	if err != nil {
		return types.VoidVal(), err
	}
	offset, err := h.u32Arg(args[2], "offset")
	if err != nil {
		return types.VoidVal(), err
	}
	length, err := h.u32Arg(args[3], "length")
	if err != nil {
		return types.VoidVal(), err
	}
	end := uint64(bPos) + uint64(length)
	if end > uint64(len(b)) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bytes copy range out of bounds"}
	}
	if err := h.budget.Charge(types.CostGuestMemTransfer, uint64(length)); err != nil {
		return types.VoidVal(), err
	}
	if err := mem.Write(offset, b[bPos:end]); err != nil {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "guest memory write out of bounds"}
	}
	return args[0], nil
}

// bytesCopyFromGuest overwrites b[bPos:bPos+length] with guest memory at
// offset, returning a new handle.
func (h *Host) bytesCopyFromGuest(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	mem, err := h.guestMemory()
	if err != nil {
		return types.VoidVal(), err
	}
	bPos, err := h.u32Arg(args[1], "destination position")
	if err != nil {
		return types.VoidVal(), err
	}
	offset, err := h.u32Arg(args[2], "offset")
	if err != nil {
		return types.VoidVal(), err
	}
	length, err := h.u32Arg(args[3], "length")
	if err != nil {
		return types.VoidVal(), err
	}
	end := uint64(bPos) + uint64(length)
	if end > uint64(len(b)) {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bytes copy range out of bounds"}
	}
	if err := h.budget.Charge(types.CostGuestMemTransfer, uint64(length)); err != nil {
		return types.VoidVal(), err
	}
	data, err := mem.Read(offset, length)
	if err != nil {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "guest memory read out of bounds"}
	}
	if err := h.chargeBytesCopy(len(b)); err != nil {
		return types.VoidVal(), err
	}
	out := make(bytesObject, len(b))
	copy(out, b)
	copy(out[bPos:end], data)
	return h.addObject(out)
}
