package host

import (
	"errors"

	"github.com/hostvm/hostvm/types"
)

// Contract-to-contract invocation. call propagates any subcall failure to
// the caller; try_call converts guest faults of the callee into a Status
// value the caller can inspect, after the frame rollback has already erased
// the callee's partial effects. Budget exhaustion and host-side failures
// propagate through both: the budget is shared, so exhaustion at any depth
// terminates the whole invocation.

func (h *Host) callArgs(args []types.Val) (types.ContractID, types.Symbol, []types.Val, error) {
	idBytes, err := h.getBytes(args[0])
	if err != nil {
		return types.ContractID{}, 0, nil, err
	}
	if len(idBytes) != len(types.ContractID{}) {
		return types.ContractID{}, 0, nil, types.InvalidArgumentError{Msg: "contract id must be 32 bytes"}
	}
	var id types.ContractID
	copy(id[:], idBytes)

	fn, err := h.symbolArg(args[1], "function")
	if err != nil {
		return types.ContractID{}, 0, nil, err
	}
	callArgs, err := h.getVec(args[2])
	if err != nil {
		return types.ContractID{}, 0, nil, err
	}
	return id, fn, callArgs, nil
}

func (h *Host) callFn(args []types.Val) (types.Val, error) {
	id, fn, callArgs, err := h.callArgs(args)
	if err != nil {
		return types.VoidVal(), err
	}
	return h.CallContract(id, fn, callArgs)
}

func (h *Host) tryCallFn(args []types.Val) (types.Val, error) {
	id, fn, callArgs, err := h.callArgs(args)
	if err != nil {
		return types.VoidVal(), err
	}
	res, err := h.CallContract(id, fn, callArgs)
	if err != nil {
		var rle types.ResourceLimitExceededError
		if errors.As(err, &rle) || !types.IsGuestFault(err) {
			return types.VoidVal(), err
		}
		return types.StatusVal(types.ErrorStatus(err)), nil
	}
	return res, nil
}
