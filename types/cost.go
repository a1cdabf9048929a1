package types

// CostType classifies a metered operation. Every piece of non-trivial work
// the host performs on behalf of the guest is charged under exactly one of
// these categories, sized by an input magnitude (bytes, entries, digits, or
// 1 for constant-cost work).
type CostType int

const (
	// CostHostFunctionDispatch is the fixed overhead of entering the host
	// function dispatch boundary, charged once per host call.
	CostHostFunctionDispatch CostType = iota
	// CostGuestFunctionCall is the interpreter step callback, charged per
	// guest-side function invocation observed by the interpreter.
	CostGuestFunctionCall
	// CostObjectAllocSlot is an object store allocation, magnitude = the
	// object's size in bytes (entries for aggregates).
	CostObjectAllocSlot
	// CostVisitObject is a handle resolution in the object store.
	CostVisitObject
	// CostVecEntry covers vector reads/writes/shifts, magnitude = entries
	// touched.
	CostVecEntry
	// CostMapEntry covers ordered-map lookups and updates, magnitude =
	// entries touched (comparisons for a lookup, shifted entries for an
	// update).
	CostMapEntry
	// CostBytesByte covers byte buffer reads/writes/copies, magnitude =
	// bytes touched.
	CostBytesByte
	// CostValCompare covers deep Val comparison steps.
	CostValCompare
	// CostBigIntDigit covers arbitrary-precision arithmetic, magnitude =
	// operand size in 64-bit digits.
	CostBigIntDigit
	// CostValueConversion covers allocating host<->guest representation
	// changes, magnitude = bytes produced.
	CostValueConversion
	// CostGuestMemTransfer covers copies between host buffers and guest
	// linear memory, magnitude = bytes.
	CostGuestMemTransfer
	// CostComputeSha256 is a SHA-256 hash, magnitude = input bytes.
	CostComputeSha256
	// CostComputeKeccak256 is a Keccak-256 hash, magnitude = input bytes.
	CostComputeKeccak256
	// CostVerifyEd25519 is an ed25519 signature verification, magnitude =
	// message bytes.
	CostVerifyEd25519
	// CostStorageReadByte covers ledger reads, magnitude = key+value bytes.
	CostStorageReadByte
	// CostStorageWriteByte covers buffered ledger writes, magnitude =
	// key+value bytes.
	CostStorageWriteByte
	// CostVMInstantiateByte covers loading and instantiating a guest
	// module, magnitude = code bytes.
	CostVMInstantiateByte
	// CostCallFrame is the overhead of pushing a contract call frame,
	// including its rollback snapshot, magnitude = buffered write entries.
	CostCallFrame
	// CostEventEmit is a contract event emission, magnitude = encoded
	// topic+data bytes.
	CostEventEmit

	// NumCostTypes is the number of defined cost categories.
	NumCostTypes
)

func (t CostType) String() string {
	names := [...]string{
		"host_function_dispatch",
		"guest_function_call",
		"object_alloc_slot",
		"visit_object",
		"vec_entry",
		"map_entry",
		"bytes_byte",
		"val_compare",
		"bigint_digit",
		"value_conversion",
		"guest_mem_transfer",
		"compute_sha256",
		"compute_keccak256",
		"verify_ed25519",
		"storage_read_byte",
		"storage_write_byte",
		"vm_instantiate_byte",
		"call_frame",
		"event_emit",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "cost_type(unknown)"
}

// CostParams are the coefficients of a linear cost function over one
// resource dimension: cost(m) = ConstTerm + LinearTerm*m.
type CostParams struct {
	ConstTerm  uint64
	LinearTerm uint64
}

// Cost evaluates the cost function at magnitude m, saturating instead of
// wrapping so that an absurd magnitude always fails the budget check.
func (p CostParams) Cost(m uint64) uint64 {
	lin := p.LinearTerm * m
	if p.LinearTerm != 0 && lin/p.LinearTerm != m {
		return ^uint64(0)
	}
	total := p.ConstTerm + lin
	if total < lin {
		return ^uint64(0)
	}
	return total
}

// CostEntry holds the cost functions of one category for both dimensions.
type CostEntry struct {
	Cpu CostParams
	Mem CostParams
}

// CostModel is the versioned table mapping cost categories to cost
// functions. It must be identical across every node evaluating the same
// invocation: the model is part of the protocol, not a tuning knob. Models
// are immutable after construction and are threaded explicitly into each
// invocation, never held as process-global state.
type CostModel struct {
	Version uint32
	entries [NumCostTypes]CostEntry
}

// NewCostModel builds a model from explicit entries. Missing categories
// default to zero cost, which effectively disables metering for them; use
// DefaultCostModel unless calibrating.
func NewCostModel(version uint32, entries map[CostType]CostEntry) *CostModel {
	m := &CostModel{Version: version}
	for ty, e := range entries {
		if ty >= 0 && ty < NumCostTypes {
			m.entries[ty] = e
		}
	}
	return m
}

// Entry returns the cost functions for ty.
func (m *CostModel) Entry(ty CostType) CostEntry {
	if ty < 0 || ty >= NumCostTypes {
		panic(InternalError{Msg: "cost type out of range"})
	}
	return m.entries[ty]
}

// DefaultCostModel returns the calibration shipped with this release. The
// absolute numbers matter less than their ratios; what matters for
// consensus is that every node runs the same table.
func DefaultCostModel() *CostModel {
	return NewCostModel(1, map[CostType]CostEntry{
		CostHostFunctionDispatch: {Cpu: CostParams{ConstTerm: 100}},
		CostGuestFunctionCall:    {Cpu: CostParams{ConstTerm: 10}},
		CostObjectAllocSlot:      {Cpu: CostParams{ConstTerm: 50, LinearTerm: 1}, Mem: CostParams{ConstTerm: 16, LinearTerm: 1}},
		CostVisitObject:          {Cpu: CostParams{ConstTerm: 10}},
		CostVecEntry:             {Cpu: CostParams{LinearTerm: 5}},
		CostMapEntry:             {Cpu: CostParams{LinearTerm: 10}},
		CostBytesByte:            {Cpu: CostParams{LinearTerm: 1}},
		CostValCompare:           {Cpu: CostParams{ConstTerm: 5, LinearTerm: 2}},
		CostBigIntDigit:          {Cpu: CostParams{ConstTerm: 50, LinearTerm: 25}, Mem: CostParams{LinearTerm: 8}},
		CostValueConversion:      {Cpu: CostParams{ConstTerm: 20, LinearTerm: 1}, Mem: CostParams{LinearTerm: 1}},
		CostGuestMemTransfer:     {Cpu: CostParams{ConstTerm: 20, LinearTerm: 1}},
		CostComputeSha256:        {Cpu: CostParams{ConstTerm: 2000, LinearTerm: 30}, Mem: CostParams{ConstTerm: 32}},
		CostComputeKeccak256:     {Cpu: CostParams{ConstTerm: 2500, LinearTerm: 35}, Mem: CostParams{ConstTerm: 32}},
		CostVerifyEd25519:        {Cpu: CostParams{ConstTerm: 350_000, LinearTerm: 20}},
		CostStorageReadByte:      {Cpu: CostParams{ConstTerm: 500, LinearTerm: 2}, Mem: CostParams{LinearTerm: 1}},
		CostStorageWriteByte:     {Cpu: CostParams{ConstTerm: 1000, LinearTerm: 3}, Mem: CostParams{LinearTerm: 1}},
		CostVMInstantiateByte:    {Cpu: CostParams{ConstTerm: 100_000, LinearTerm: 420}, Mem: CostParams{LinearTerm: 2}},
		CostCallFrame:            {Cpu: CostParams{ConstTerm: 200, LinearTerm: 10}, Mem: CostParams{ConstTerm: 64, LinearTerm: 16}},
		CostEventEmit:            {Cpu: CostParams{ConstTerm: 100, LinearTerm: 2}, Mem: CostParams{LinearTerm: 1}},
	})
}

// CostReport is the final accounting snapshot of one invocation. It is
// emitted on every terminal state, success or failure: a failed invocation
// still reports (and the embedding ledger may charge for) what it consumed
// up to the failure point.
type CostReport struct {
	CpuConsumed uint64
	MemConsumed uint64
	CpuLimit    uint64
	MemLimit    uint64
}
