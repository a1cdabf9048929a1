// Package budget implements the per-invocation resource accounting that
// bounds guest execution. Two independent dimensions, compute and memory,
// are charged through a shared cost model; a third counter meters diagnostic
// output against its own generous limit so debug logging can never change an
// invocation's outcome.
package budget

import (
	"github.com/hostvm/hostvm/types"
)

// Limits configures a fresh budget.
type Limits struct {
	Cpu        uint64
	Mem        uint64
	Diagnostic uint64
}

type dimension struct {
	consumed uint64
	limit    uint64
}

// charge adds amount or fails without mutation.
func (d *dimension) charge(amount uint64) bool {
	if amount > d.limit-d.consumed {
		return false
	}
	d.consumed += amount
	return true
}

// Budget tracks compute and memory consumption against configured limits.
// It is invocation-scoped: created fresh per top-level call, shared by
// reference through every nested host function and contract call, and
// discarded with its final report. It is not safe for concurrent use; an
// invocation is single-threaded by design.
type Budget struct {
	model *types.CostModel
	cpu   dimension
	mem   dimension
	diag  dimension
}

// New creates a budget over the given immutable cost model.
func New(model *types.CostModel, limits Limits) *Budget {
	return &Budget{
		model: model,
		cpu:   dimension{limit: limits.Cpu},
		mem:   dimension{limit: limits.Mem},
		diag:  dimension{limit: limits.Diagnostic},
	}
}

// Charge meters one operation of category ty with the given input magnitude.
// Both dimensions are checked before either is mutated: a failing charge is
// all-or-nothing and the caller must not have performed the work yet.
// Charging happens strictly before the work it pays for, so a hostile guest
// cannot obtain unmetered computation by crafting inputs whose cost would
// only be known afterwards.
func (b *Budget) Charge(ty types.CostType, magnitude uint64) error {
	entry := b.model.Entry(ty)
	cpuCost := entry.Cpu.Cost(magnitude)
	memCost := entry.Mem.Cost(magnitude)

	if cpuCost > b.cpu.limit-b.cpu.consumed {
		return types.ResourceLimitExceededError{Dimension: "cpu"}
	}
	if memCost > b.mem.limit-b.mem.consumed {
		return types.ResourceLimitExceededError{Dimension: "mem"}
	}
	b.cpu.consumed += cpuCost
	b.mem.consumed += memCost
	return nil
}

// ChargeDiagnostic meters nbytes of debug output. Diagnostics have their own
// counter: exhausting it fails only the emitting call, and it never feeds
// into the execution cost report.
func (b *Budget) ChargeDiagnostic(nbytes uint64) error {
	if !b.diag.charge(nbytes) {
		return types.ResourceLimitExceededError{Dimension: "diagnostic"}
	}
	return nil
}

// CpuConsumed returns the compute consumed so far.
func (b *Budget) CpuConsumed() uint64 {
	return b.cpu.consumed
}

// CpuRemaining returns the compute still available before exhaustion.
func (b *Budget) CpuRemaining() uint64 {
	return b.cpu.limit - b.cpu.consumed
}

// MemConsumed returns the memory consumed so far.
func (b *Budget) MemConsumed() uint64 {
	return b.mem.consumed
}

// Model returns the cost model this budget charges through.
func (b *Budget) Model() *types.CostModel {
	return b.model
}

// Report snapshots the budget for the final cost report. Valid at any point,
// including after exhaustion.
func (b *Budget) Report() types.CostReport {
	return types.CostReport{
		CpuConsumed: b.cpu.consumed,
		MemConsumed: b.mem.consumed,
		CpuLimit:    b.cpu.limit,
		MemLimit:    b.mem.limit,
	}
}
