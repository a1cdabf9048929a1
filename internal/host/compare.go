package host

import (
	"bytes"

	"github.com/hostvm/hostvm/types"
)

// compareVals defines the total, deterministic ordering over Vals used by
// map keys and by the obj_cmp host function: first by tag, then by payload;
// objects compare structurally (not by handle), so two handles to equal
// payloads are equal keys. Every step is charged before it runs.
func (h *Host) compareVals(a, b types.Val) (int, error) {
	if err := h.budget.Charge(types.CostValCompare, 1); err != nil {
		return 0, err
	}
	ta, tb := a.GetTag(), b.GetTag()
	if ta != tb {
		return cmpOrder(uint64(ta), uint64(tb)), nil
	}
	switch ta {
	case types.TagU32:
		return cmpOrder(uint64(a.U32()), uint64(b.U32())), nil
	case types.TagI32:
		return cmpOrderI(int64(a.I32()), int64(b.I32())), nil
	case types.TagStatic, types.TagSymbol, types.TagStatus:
		// Body ordering is the semantic ordering for all three: void < true
		// < false is arbitrary but fixed, symbols are packed to sort like
		// strings, statuses sort by code.
		return cmpOrder(uint64(a), uint64(b)), nil
	case types.TagObject:
		return h.compareObjects(a.Handle(), b.Handle())
	default:
		return 0, types.InternalError{Msg: "compare of undecodable val"}
	}
}

func (h *Host) compareObjects(ha, hb types.Handle) (int, error) {
	if ha.Type != hb.Type {
		return cmpOrder(uint64(ha.Type), uint64(hb.Type)), nil
	}
	oa, err := h.getObject(ha)
	if err != nil {
		return 0, err
	}
	ob, err := h.getObject(hb)
	if err != nil {
		return 0, err
	}

	switch a := oa.(type) {
	case u64Object:
		return cmpOrder(uint64(a), uint64(ob.(u64Object))), nil
	case i64Object:
		return cmpOrderI(int64(a), int64(ob.(i64Object))), nil
	case bigIntObject:
		b := ob.(bigIntObject)
		if err := h.budget.Charge(types.CostBigIntDigit, a.digits()+b.digits()); err != nil {
			return 0, err
		}
		return a.v.Cmp(b.v), nil
	case u256Object:
		b := ob.(u256Object)
		return a.v.Cmp(&b.v), nil
	case bytesObject:
		b := ob.(bytesObject)
		if err := h.budget.Charge(types.CostBytesByte, uint64(len(a)+len(b))); err != nil {
			return 0, err
		}
		return bytes.Compare(a, b), nil
	case vecObject:
		return h.compareValSlices(a, ob.(vecObject))
	case tupleObject:
		return h.compareValSlices(a, ob.(tupleObject))
	case mapObject:
		return h.compareMaps(a, ob.(mapObject))
	default:
		return 0, types.InternalError{Msg: "compare of unknown object variant"}
	}
}

func (h *Host) compareValSlices(a, b []types.Val) (int, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		c, err := h.compareVals(a[i], b[i])
		if err != nil || c != 0 {
			return c, err
		}
	}
	return cmpOrder(uint64(len(a)), uint64(len(b))), nil
}

func (h *Host) compareMaps(a, b mapObject) (int, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		c, err := h.compareVals(a[i].key, b[i].key)
		if err != nil || c != 0 {
			return c, err
		}
		c, err = h.compareVals(a[i].val, b[i].val)
		if err != nil || c != 0 {
			return c, err
		}
	}
	return cmpOrder(uint64(len(a)), uint64(len(b))), nil
}

func cmpOrder(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpOrderI(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
