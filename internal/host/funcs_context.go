package host

import (
	"github.com/hostvm/hostvm/types"
)

// logValue records a diagnostic event. Diagnostics are charged only against
// the separate diagnostic byte limit, never against the execution budget,
// so they cannot alter an invocation's outcome or its fee.
func (h *Host) logValue(args []types.Val) (types.Val, error) {
	size, err := h.encodedSize(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.ChargeDiagnostic(size); err != nil {
		return types.VoidVal(), err
	}
	native, err := h.FromVal(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	id, err := h.CurrentContract()
	if err != nil {
		return types.VoidVal(), err
	}
	h.diags = append(h.diags, types.Event{
		Type:     types.EventTypeDiagnostic,
		Contract: id,
		Data:     native,
	})
	return types.VoidVal(), nil
}

// contractEvent emits an event with a vector of topics and a data value,
// charged by encoded size against the execution budget.
func (h *Host) contractEvent(args []types.Val) (types.Val, error) {
	topicsVec, err := h.getVec(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	size, err := h.encodedSize(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	dataSize, err := h.encodedSize(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostEventEmit, size+dataSize); err != nil {
		return types.VoidVal(), err
	}

	topics := make([]any, len(topicsVec))
	for i, t := range topicsVec {
		if topics[i], err = h.FromVal(t); err != nil {
			return types.VoidVal(), err
		}
	}
	data, err := h.FromVal(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	id, err := h.CurrentContract()
	if err != nil {
		return types.VoidVal(), err
	}
	h.events = append(h.events, types.Event{
		Type:     types.EventTypeContract,
		Contract: id,
		Topics:   topics,
		Data:     data,
	})
	return types.VoidVal(), nil
}

// encodedSize measures v's canonical encoding, reusing the key encoder.
func (h *Host) encodedSize(v types.Val) (uint64, error) {
	buf, err := h.encodeVal(nil, v, 0)
	if err != nil {
		return 0, err
	}
	return uint64(len(buf)), nil
}

// objCmp exposes the total Val ordering to the guest.
func (h *Host) objCmp(args []types.Val) (types.Val, error) {
	c, err := h.compareVals(args[0], args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	return types.I32Val(int32(c)), nil
}

func (h *Host) getCurrentContract(_ []types.Val) (types.Val, error) {
	id, err := h.CurrentContract()
	if err != nil {
		return types.VoidVal(), err
	}
	return h.addObject(bytesObject(append([]byte(nil), id[:]...)))
}

func (h *Host) getInvokingContract(_ []types.Val) (types.Val, error) {
	id, err := h.InvokingContract()
	if err != nil {
		return types.VoidVal(), err
	}
	return h.addObject(bytesObject(append([]byte(nil), id[:]...)))
}

// failWithStatus is the explicit guest abort: it always returns an error
// carrying the status the guest failed with.
func (h *Host) failWithStatus(args []types.Val) (types.Val, error) {
	if args[0].GetTag() != types.TagStatus {
		return types.VoidVal(), types.UnexpectedTypeError{Expected: "status", Got: args[0].GetTag().String()}
	}
	return types.VoidVal(), types.ContractError{Status: args[0].Status()}
}

// Events returns the contract and system events emitted so far. Events of
// rolled-back frames have been discarded.
func (h *Host) Events() []types.Event {
	return h.events
}

// DiagnosticEvents returns the diagnostic stream. Diagnostics survive frame
// rollback: they describe what happened, not what took effect.
func (h *Host) DiagnosticEvents() []types.Event {
	return h.diags
}
