package host

import (
	"encoding/binary"
	"math/big"

	"github.com/hostvm/hostvm/types"
)

// Decoder for the canonical Val encoding. Only values previously produced by
// encodeVal reach it (the working set and snapshot hold nothing else), so a
// malformed buffer indicates a corrupted backend and fails as StorageError.
// Objects are rebuilt through the charged store, so decoding large trees is
// metered the same as building them. Aggregate counts are bounded against
// the remaining buffer before any allocation happens, so a corrupted count
// cannot make the decoder allocate beyond what the charged input paid for.

// minEncodedValSize is the shortest legal element encoding: a tag byte, an
// object type byte and a 4-byte length (an empty bytes, vec or map object).
const minEncodedValSize = 6

func (h *Host) decodeVal(buf []byte) (types.Val, []byte, error) {
	if len(buf) < 1 {
		return types.VoidVal(), nil, types.StorageError{Msg: "truncated value encoding"}
	}
	tag := types.Tag(buf[0])
	buf = buf[1:]

	if tag == types.TagObject {
		return h.decodeObject(buf)
	}

	if len(buf) < 8 {
		return types.VoidVal(), nil, types.StorageError{Msg: "truncated inline value"}
	}
	if err := h.budget.Charge(types.CostValueConversion, 9); err != nil {
		return types.VoidVal(), nil, err
	}
	body := binary.BigEndian.Uint64(buf)
	v := types.Val(body<<3 | uint64(tag))
	if err := h.CheckVal(v); err != nil {
		return types.VoidVal(), nil, types.StorageError{Msg: "malformed inline value encoding"}
	}
	return v, buf[8:], nil
}

func (h *Host) decodeObject(buf []byte) (types.Val, []byte, error) {
	if len(buf) < 1 {
		return types.VoidVal(), nil, types.StorageError{Msg: "truncated object encoding"}
	}
	ty := types.ObjectType(buf[0])
	buf = buf[1:]

	switch ty {
	case types.ObjectTypeU64, types.ObjectTypeI64:
		if len(buf) < 8 {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated integer object"}
		}
		if err := h.budget.Charge(types.CostValueConversion, 8); err != nil {
			return types.VoidVal(), nil, err
		}
		raw := binary.BigEndian.Uint64(buf)
		var obj hostObject
		if ty == types.ObjectTypeU64 {
			obj = u64Object(raw)
		} else {
			obj = i64Object(int64(raw))
		}
		v, err := h.addObject(obj)
		return v, buf[8:], err

	case types.ObjectTypeBigInt:
		if len(buf) < 5 {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated bigint object"}
		}
		neg := buf[0] == 0
		n := binary.BigEndian.Uint32(buf[1:5])
		buf = buf[5:]
		if uint64(len(buf)) < uint64(n) {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated bigint object"}
		}
		if err := h.budget.Charge(types.CostValueConversion, uint64(n)+5); err != nil {
			return types.VoidVal(), nil, err
		}
		z := new(big.Int).SetBytes(buf[:n])
		if neg {
			z.Neg(z)
		}
		v, err := h.addObject(bigIntObject{v: z})
		return v, buf[n:], err

	case types.ObjectTypeU256:
		if len(buf) < 32 {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated u256 object"}
		}
		if err := h.budget.Charge(types.CostValueConversion, 32); err != nil {
			return types.VoidVal(), nil, err
		}
		var obj u256Object
		obj.v.SetBytes(buf[:32])
		v, err := h.addObject(obj)
		return v, buf[32:], err

	case types.ObjectTypeBytes:
		if len(buf) < 4 {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated bytes object"}
		}
		n := binary.BigEndian.Uint32(buf)
		buf = buf[4:]
		if uint64(len(buf)) < uint64(n) {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated bytes object"}
		}
		if err := h.budget.Charge(types.CostValueConversion, uint64(n)+4); err != nil {
			return types.VoidVal(), nil, err
		}
		out := make(bytesObject, n)
		copy(out, buf[:n])
		v, err := h.addObject(out)
		return v, buf[n:], err

	case types.ObjectTypeVec, types.ObjectTypeTuple:
		if len(buf) < 4 {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated sequence object"}
		}
		n := binary.BigEndian.Uint32(buf)
		buf = buf[4:]
		if uint64(n)*minEncodedValSize > uint64(len(buf)) {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated sequence object"}
		}
		if err := h.budget.Charge(types.CostValueConversion, 4); err != nil {
			return types.VoidVal(), nil, err
		}
		elems := make([]types.Val, n)
		var err error
		for i := range elems {
			if elems[i], buf, err = h.decodeVal(buf); err != nil {
				return types.VoidVal(), nil, err
			}
		}
		var obj hostObject
		if ty == types.ObjectTypeVec {
			obj = vecObject(elems)
		} else {
			obj = tupleObject(elems)
		}
		v, err := h.addObject(obj)
		return v, buf, err

	case types.ObjectTypeMap:
		if len(buf) < 4 {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated map object"}
		}
		n := binary.BigEndian.Uint32(buf)
		buf = buf[4:]
		if uint64(n)*(2*minEncodedValSize) > uint64(len(buf)) {
			return types.VoidVal(), nil, types.StorageError{Msg: "truncated map object"}
		}
		if err := h.budget.Charge(types.CostValueConversion, 4); err != nil {
			return types.VoidVal(), nil, err
		}
		m := make(mapObject, n)
		var err error
		for i := range m {
			if m[i].key, buf, err = h.decodeVal(buf); err != nil {
				return types.VoidVal(), nil, err
			}
			if m[i].val, buf, err = h.decodeVal(buf); err != nil {
				return types.VoidVal(), nil, err
			}
			// Entries must arrive in strict key order; a violation means the
			// backend bytes were not produced by encodeVal.
			if i > 0 {
				c, cmpErr := h.compareVals(m[i-1].key, m[i].key)
				if cmpErr != nil {
					return types.VoidVal(), nil, cmpErr
				}
				if c >= 0 {
					return types.VoidVal(), nil, types.StorageError{Msg: "map keys out of order"}
				}
			}
		}
		v, err := h.addObject(m)
		return v, buf, err

	default:
		return types.VoidVal(), nil, types.StorageError{Msg: "unknown object type in value encoding"}
	}
}
