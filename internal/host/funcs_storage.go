package host

import (
	"github.com/hostvm/hostvm/types"
)

// Contract data host functions. Keys are namespaced by the current contract
// id; values travel through the canonical encoding. Everything is charged by
// encoded size before the working set or the snapshot is touched, and writes
// stay buffered until the invocation completes.

func (h *Host) putContractData(args []types.Val) (types.Val, error) {
	key, err := h.contractDataKey(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	val, err := h.encodeVal(nil, args[1], 0)
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostStorageWriteByte, uint64(len(key)+len(val))); err != nil {
		return types.VoidVal(), err
	}
	h.storage.put(key, val)
	return types.VoidVal(), nil
}

func (h *Host) getContractData(args []types.Val) (types.Val, error) {
	key, err := h.contractDataKey(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostStorageReadByte, uint64(len(key))); err != nil {
		return types.VoidVal(), err
	}
	raw, ok, err := h.storage.get(key)
	if err != nil {
		return types.VoidVal(), err
	}
	if !ok {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "contract data key not found"}
	}
	if err := h.budget.Charge(types.CostStorageReadByte, uint64(len(raw))); err != nil {
		return types.VoidVal(), err
	}
	v, rest, err := h.decodeVal(raw)
	if err != nil {
		return types.VoidVal(), err
	}
	if len(rest) != 0 {
		return types.VoidVal(), types.StorageError{Msg: "trailing bytes in stored value"}
	}
	return v, nil
}

func (h *Host) hasContractData(args []types.Val) (types.Val, error) {
	key, err := h.contractDataKey(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostStorageReadByte, uint64(len(key))); err != nil {
		return types.VoidVal(), err
	}
	ok, err := h.storage.has(key)
	if err != nil {
		return types.VoidVal(), err
	}
	return types.BoolVal(ok), nil
}

func (h *Host) delContractData(args []types.Val) (types.Val, error) {
	key, err := h.contractDataKey(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostStorageWriteByte, uint64(len(key))); err != nil {
		return types.VoidVal(), err
	}
	h.storage.del(key)
	return types.VoidVal(), nil
}
