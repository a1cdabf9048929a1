package host

import (
	"math/big"

	"github.com/hostvm/hostvm/types"
)

// Arbitrary-precision integer host functions. Arithmetic is charged in
// digit units (machine words of the operands) before the operation runs,
// so a guest cannot grow an unmetered number. Division by zero is a guest
// fault, not a host panic.

// maxBigIntPowBits caps the bit width of a pow result so a single call
// cannot allocate past any plausible budget before the charge lands.
const maxBigIntPowBits = 1 << 20

func (h *Host) chargeBigInt(magnitude uint64) error {
	return h.budget.Charge(types.CostBigIntDigit, magnitude)
}

func (h *Host) bigIntBinop(args []types.Val, op func(z, a, b *big.Int) *big.Int) (types.Val, error) {
	a, err := h.getBigInt(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	b, err := h.getBigInt(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeBigInt(a.digits() + b.digits() + 1); err != nil {
		return types.VoidVal(), err
	}
	z := op(new(big.Int), a.v, b.v)
	return h.addObject(bigIntObject{v: z})
}

func (h *Host) bigIntFromU64(args []types.Val) (types.Val, error) {
	hi, err := h.u32Arg(args[0], "high half")
	if err != nil {
		return types.VoidVal(), err
	}
	lo, err := h.u32Arg(args[1], "low half")
	if err != nil {
		return types.VoidVal(), err
	}
	v := new(big.Int).SetUint64(uint64(hi)<<32 | uint64(lo))
	return h.addObject(bigIntObject{v: v})
}

func (h *Host) bigIntFromI64(args []types.Val) (types.Val, error) {
	hi, err := h.u32Arg(args[0], "high half")
	if err != nil {
		return types.VoidVal(), err
	}
	lo, err := h.u32Arg(args[1], "low half")
	if err != nil {
		return types.VoidVal(), err
	}
	v := new(big.Int).SetInt64(int64(uint64(hi)<<32 | uint64(lo)))
	return h.addObject(bigIntObject{v: v})
}

func (h *Host) bigIntAdd(args []types.Val) (types.Val, error) {
	return h.bigIntBinop(args, (*big.Int).Add)
}

func (h *Host) bigIntSub(args []types.Val) (types.Val, error) {
	return h.bigIntBinop(args, (*big.Int).Sub)
}

func (h *Host) bigIntMul(args []types.Val) (types.Val, error) {
	a, err := h.getBigInt(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	b, err := h.getBigInt(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	// Product size is the sum of the operand sizes.
	if err := h.chargeBigInt((a.digits() + 1) * (b.digits() + 1)); err != nil {
		return types.VoidVal(), err
	}
	z := new(big.Int).Mul(a.v, b.v)
	return h.addObject(bigIntObject{v: z})
}

func (h *Host) bigIntDiv(args []types.Val) (types.Val, error) {
	b, err := h.getBigInt(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if b.v.Sign() == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bigint division by zero"}
	}
	return h.bigIntBinop(args, (*big.Int).Quo)
}

func (h *Host) bigIntRem(args []types.Val) (types.Val, error) {
	b, err := h.getBigInt(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if b.v.Sign() == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bigint remainder by zero"}
	}
	return h.bigIntBinop(args, (*big.Int).Rem)
}

func (h *Host) bigIntCmp(args []types.Val) (types.Val, error) {
	a, err := h.getBigInt(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	b, err := h.getBigInt(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeBigInt(a.digits() + b.digits()); err != nil {
		return types.VoidVal(), err
	}
	return types.I32Val(int32(a.v.Cmp(b.v))), nil
}

func (h *Host) bigIntIsZero(args []types.Val) (types.Val, error) {
	a, err := h.getBigInt(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.BoolVal(a.v.Sign() == 0), nil
}

func (h *Host) bigIntNeg(args []types.Val) (types.Val, error) {
	a, err := h.getBigInt(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeBigInt(a.digits() + 1); err != nil {
		return types.VoidVal(), err
	}
	return h.addObject(bigIntObject{v: new(big.Int).Neg(a.v)})
}

func (h *Host) bigIntPow(args []types.Val) (types.Val, error) {
	a, err := h.getBigInt(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	exp, err := h.getBigInt(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if exp.v.Sign() < 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bigint pow with negative exponent"}
	}
	if !exp.v.IsUint64() {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bigint pow exponent too large"}
	}
	e := exp.v.Uint64()
	resultBits := uint64(a.v.BitLen()) * e
	if resultBits > maxBigIntPowBits {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "bigint pow result too large"}
	}
	if err := h.chargeBigInt(resultBits/64 + 1); err != nil {
		return types.VoidVal(), err
	}
	z := new(big.Int).Exp(a.v, exp.v, nil)
	return h.addObject(bigIntObject{v: z})
}

func (h *Host) bigIntBits(args []types.Val) (types.Val, error) {
	a, err := h.getBigInt(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.U32Val(uint32(a.v.BitLen())), nil
}

// bigIntFromBytesBE interprets a bytes object as an unsigned big-endian
// magnitude.
func (h *Host) bigIntFromBytesBE(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.chargeBigInt(uint64(len(b))/8 + 1); err != nil {
		return types.VoidVal(), err
	}
	return h.addObject(bigIntObject{v: new(big.Int).SetBytes(b)})
}

// bigIntToBytesBE serializes the absolute value as minimal big-endian bytes.
// Negative inputs are rejected: the byte form carries no sign.
func (h *Host) bigIntToBytesBE(args []types.Val) (types.Val, error) {
	a, err := h.getBigInt(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if a.v.Sign() < 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "cannot serialize negative bigint as bytes"}
	}
	if err := h.chargeBigInt(a.digits() + 1); err != nil {
		return types.VoidVal(), err
	}
	return h.addObject(bytesObject(a.v.Bytes()))
}
