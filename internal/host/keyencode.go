package host

import (
	"encoding/binary"

	"github.com/hostvm/hostvm/types"
)

// Canonical binary encoding of a Val tree, used to derive contract storage
// keys and to size event payloads. The encoding is injective over legal
// Vals and independent of handle numbering, so the same logical key maps to
// the same ledger key across invocations and nodes. Each emitted chunk is
// charged before it is appended.

const maxEncodeDepth = 32

// encodeVal appends the canonical encoding of v to buf.
func (h *Host) encodeVal(buf []byte, v types.Val, depth int) ([]byte, error) {
	if depth > maxEncodeDepth {
		return nil, types.InvalidArgumentError{Msg: "value nesting too deep to encode"}
	}

	switch v.GetTag() {
	case types.TagU32, types.TagI32, types.TagStatic, types.TagSymbol, types.TagStatus:
		// Inline values encode as their tag plus raw body.
		if err := h.budget.Charge(types.CostValueConversion, 9); err != nil {
			return nil, err
		}
		buf = append(buf, byte(v.GetTag()))
		return binary.BigEndian.AppendUint64(buf, uint64(v)>>3), nil
	case types.TagObject:
		return h.encodeObject(buf, v.Handle(), depth)
	default:
		return nil, types.InvalidArgumentError{Msg: "unencodable value tag"}
	}
}

func (h *Host) encodeObject(buf []byte, handle types.Handle, depth int) ([]byte, error) {
	obj, err := h.getObject(handle)
	if err != nil {
		return nil, err
	}
	buf = append(buf, byte(types.TagObject), byte(handle.Type))

	switch o := obj.(type) {
	case u64Object:
		if err := h.budget.Charge(types.CostValueConversion, 8); err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint64(buf, uint64(o)), nil
	case i64Object:
		if err := h.budget.Charge(types.CostValueConversion, 8); err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint64(buf, uint64(o)), nil
	case bigIntObject:
		raw := o.v.Bytes()
		if err := h.budget.Charge(types.CostValueConversion, uint64(len(raw))+5); err != nil {
			return nil, err
		}
		if o.v.Sign() < 0 {
			buf = append(buf, 0)
		} else {
			buf = append(buf, 1)
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(raw)))
		return append(buf, raw...), nil
	case u256Object:
		if err := h.budget.Charge(types.CostValueConversion, 32); err != nil {
			return nil, err
		}
		raw := o.v.Bytes32()
		return append(buf, raw[:]...), nil
	case bytesObject:
		if err := h.budget.Charge(types.CostValueConversion, uint64(len(o))+4); err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(o)))
		return append(buf, o...), nil
	case vecObject:
		return h.encodeValSlice(buf, o, depth)
	case tupleObject:
		return h.encodeValSlice(buf, o, depth)
	case mapObject:
		if err := h.budget.Charge(types.CostValueConversion, 4); err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(o)))
		for _, e := range o {
			if buf, err = h.encodeVal(buf, e.key, depth+1); err != nil {
				return nil, err
			}
			if buf, err = h.encodeVal(buf, e.val, depth+1); err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		return nil, types.InternalError{Msg: "encode of unknown object variant"}
	}
}

func (h *Host) encodeValSlice(buf []byte, vals []types.Val, depth int) ([]byte, error) {
	if err := h.budget.Charge(types.CostValueConversion, 4); err != nil {
		return nil, err
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(vals)))
	var err error
	for _, v := range vals {
		if buf, err = h.encodeVal(buf, v, depth+1); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// contractDataKey derives the ledger key for a contract data entry: the
// owning contract's id followed by the canonical encoding of the key Val.
func (h *Host) contractDataKey(keyVal types.Val) ([]byte, error) {
	id, err := h.CurrentContract()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(id)+16)
	buf = append(buf, id[:]...)
	return h.encodeVal(buf, keyVal, 0)
}
