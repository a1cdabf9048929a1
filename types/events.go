package types

// EventType distinguishes the event streams an invocation can emit.
type EventType int

const (
	// EventTypeContract is an event emitted by contract code through
	// contract_event. Charged against the execution budget.
	EventTypeContract EventType = iota
	// EventTypeSystem is an event emitted by the host on the contract's
	// behalf (e.g. around cross-contract calls).
	EventTypeSystem
	// EventTypeDiagnostic is debug output (log_value). Metered only against
	// the diagnostic byte limit, never against the execution budget, so
	// enabling diagnostics cannot change an invocation's outcome or fees.
	EventTypeDiagnostic
)

func (t EventType) String() string {
	switch t {
	case EventTypeContract:
		return "contract"
	case EventTypeSystem:
		return "system"
	case EventTypeDiagnostic:
		return "diagnostic"
	default:
		return "event(unknown)"
	}
}

// Event is one emitted event, with topics and data already deep-converted
// to native Go values (the Vals they were built from die with the
// invocation's object store).
type Event struct {
	Type     EventType
	Contract ContractID
	Topics   []any
	Data     any
}
