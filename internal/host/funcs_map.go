package host

import (
	"github.com/hostvm/hostvm/types"
)

// Map host functions. Maps are persistent: every update clones the entry
// slice and mints a new handle, so Vals copied before the update keep
// seeing the old contents. Lookups are charged proportional to the entries
// actually compared, updates proportional to the entries copied.

// mapSearch binary-searches m for key under the total Val ordering,
// returning the insertion position and whether the key is present.
// Comparison steps are charged inside compareVals.
func (h *Host) mapSearch(m mapObject, key types.Val) (int, bool, error) {
	lo, hi := 0, len(m)
	for lo < hi {
		mid := (lo + hi) / 2
		c, err := h.compareVals(key, m[mid].key)
		if err != nil {
			return 0, false, err
		}
		switch {
		case c == 0:
			return mid, true, nil
		case c < 0:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return lo, false, nil
}

// inserted returns a copy of m with e inserted at pos.
func (m mapObject) inserted(pos int, e mapEntry) mapObject {
	out := make(mapObject, 0, len(m)+1)
	out = append(out, m[:pos]...)
	out = append(out, e)
	return append(out, m[pos:]...)
}

func (h *Host) mapNew(_ []types.Val) (types.Val, error) {
	return h.addObject(mapObject{})
}

func (h *Host) mapPut(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostMapEntry, uint64(len(m))+1); err != nil {
		return types.VoidVal(), err
	}
	pos, exact, err := h.mapSearch(m, args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	var out mapObject
	if exact {
		out = make(mapObject, len(m))
		copy(out, m)
		out[pos] = mapEntry{key: args[1], val: args[2]}
	} else {
		out = m.inserted(pos, mapEntry{key: args[1], val: args[2]})
	}
	return h.addObject(out)
}

func (h *Host) mapGet(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	pos, exact, err := h.mapSearch(m, args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if !exact {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "map key not found"}
	}
	return m[pos].val, nil
}

func (h *Host) mapDel(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostMapEntry, uint64(len(m))); err != nil {
		return types.VoidVal(), err
	}
	pos, exact, err := h.mapSearch(m, args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if !exact {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "map key not found"}
	}
	out := make(mapObject, 0, len(m)-1)
	out = append(out, m[:pos]...)
	out = append(out, m[pos+1:]...)
	return h.addObject(out)
}

func (h *Host) mapLen(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.U32Val(uint32(len(m))), nil
}

func (h *Host) mapHas(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	_, exact, err := h.mapSearch(m, args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.BoolVal(exact), nil
}

func (h *Host) mapKeys(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostMapEntry, uint64(len(m))); err != nil {
		return types.VoidVal(), err
	}
	keys := make(vecObject, len(m))
	for i, e := range m {
		keys[i] = e.key
	}
	return h.addObject(keys)
}

func (h *Host) mapValues(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostMapEntry, uint64(len(m))); err != nil {
		return types.VoidVal(), err
	}
	vals := make(vecObject, len(m))
	for i, e := range m {
		vals[i] = e.val
	}
	return h.addObject(vals)
}

func (h *Host) mapMinKey(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if len(m) == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "min key of empty map"}
	}
	return m[0].key, nil
}

func (h *Host) mapMaxKey(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if len(m) == 0 {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "max key of empty map"}
	}
	return m[len(m)-1].key, nil
}

// mapPrevKey returns the greatest key strictly below the argument, or Void
// if none exists. The argument does not have to be present.
func (h *Host) mapPrevKey(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	pos, _, err := h.mapSearch(m, args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if pos == 0 {
		return types.VoidVal(), nil
	}
	return m[pos-1].key, nil
}

// mapNextKey returns the least key strictly above the argument, or Void.
func (h *Host) mapNextKey(args []types.Val) (types.Val, error) {
	m, err := h.getMap(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	pos, exact, err := h.mapSearch(m, args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if exact {
		pos++
	}
	if pos >= len(m) {
		return types.VoidVal(), nil
	}
	return m[pos].key, nil
}
