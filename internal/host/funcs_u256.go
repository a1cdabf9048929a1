package host

import (
	"github.com/holiman/uint256"

	"github.com/hostvm/hostvm/types"
)

// Fixed-width 256-bit unsigned integer host functions. Unlike bigints these
// have flat cost: every operand is four machine words, so each operation is
// charged a constant four digit units. Arithmetic wraps modulo 2^256.

func (h *Host) chargeU256() error {
	return h.budget.Charge(types.CostBigIntDigit, 4)
}

func (h *Host) u256Binop(args []types.Val, op func(z, a, b *uint256.Int) *uint256.Int) (types.Val, error) {
	a, err := h.getU256(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	b, err := h.getU256(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeU256(); err != nil {
		return types.VoidVal(), err
	}
	var z u256Object
	op(&z.v, &a.v, &b.v)
	return h.addObject(z)
}

// u256FromBEBytes builds a u256 from a big-endian bytes object of at most 32
// bytes. Shorter inputs are zero-extended on the left.
func (h *Host) u256FromBEBytes(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if len(b) > 32 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "u256 source longer than 32 bytes"}
	}
	if err := h.chargeU256(); err != nil {
		return types.VoidVal(), err
	}
	var z u256Object
	z.v.SetBytes(b)
	return h.addObject(z)
}

// u256ToBEBytes serializes as exactly 32 big-endian bytes.
func (h *Host) u256ToBEBytes(args []types.Val) (types.Val, error) {
	a, err := h.getU256(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeU256(); err != nil {
		return types.VoidVal(), err
	}
	out := a.v.Bytes32()
	return h.addObject(bytesObject(out[:]))
}

func (h *Host) u256Add(args []types.Val) (types.Val, error) {
	return h.u256Binop(args, (*uint256.Int).Add)
}

func (h *Host) u256Sub(args []types.Val) (types.Val, error) {
	return h.u256Binop(args, (*uint256.Int).Sub)
}

func (h *Host) u256Mul(args []types.Val) (types.Val, error) {
	return h.u256Binop(args, (*uint256.Int).Mul)
}

func (h *Host) u256Div(args []types.Val) (types.Val, error) {
	b, err := h.getU256(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if b.v.IsZero() {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "u256 division by zero"}
	}
	return h.u256Binop(args, (*uint256.Int).Div)
}

func (h *Host) u256Pow(args []types.Val) (types.Val, error) {
	a, err := h.getU256(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	e, err := h.getU256(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	// Exp is linear in the exponent's bit length; charge accordingly.
	if err := h.budget.Charge(types.CostBigIntDigit, uint64(e.v.BitLen())+4); err != nil {
		return types.VoidVal(), err
	}
	var z u256Object
	z.v.Exp(&a.v, &e.v)
	return h.addObject(z)
}
