package types

import (
	"errors"
	"fmt"
)

// The error taxonomy of the host. Every failure the runtime can produce is
// one of these types, so embedders can switch on them with errors.As. Guest
// faults (bad arguments, unknown handles, exhausted budgets, traps) are
// recoverable at the invocation boundary and still carry a cost report;
// InternalError, LoadError and LinkError indicate a host bug or an unusable
// module and must never be billed as guest faults.

// InvalidArgumentError reports a guest call with arguments the host function
// cannot accept (wrong arity, out-of-range index, missing guest memory, ...).
type InvalidArgumentError struct {
	Msg string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Msg)
}

// UnexpectedTypeError reports a Val whose tag or object type does not match
// what a conversion or host function expected.
type UnexpectedTypeError struct {
	Expected string
	Got      string
}

func (e UnexpectedTypeError) Error() string {
	return fmt.Sprintf("unexpected type: want %s, got %s", e.Expected, e.Got)
}

// UnknownHandleError reports a handle that does not resolve in the current
// object store: stale, foreign, or forged by the guest.
type UnknownHandleError struct {
	Handle Handle
}

func (e UnknownHandleError) Error() string {
	return fmt.Sprintf("unknown handle: %s", e.Handle)
}

// InvalidSymbolError reports a string that cannot be packed as a symbol.
type InvalidSymbolError struct {
	Str    string
	Reason string
}

func (e InvalidSymbolError) Error() string {
	return fmt.Sprintf("invalid symbol %q: %s", e.Str, e.Reason)
}

// ResourceLimitExceededError reports a budget charge that would cross the
// configured limit. The charge that failed left every counter untouched.
type ResourceLimitExceededError struct {
	// Dimension is "cpu", "mem" or "diagnostic".
	Dimension string
}

func (e ResourceLimitExceededError) Error() string {
	return fmt.Sprintf("resource limit exceeded: %s", e.Dimension)
}

// CallDepthExceededError reports a contract-to-contract call chain deeper
// than the configured maximum.
type CallDepthExceededError struct {
	MaxDepth int
}

func (e CallDepthExceededError) Error() string {
	return fmt.Sprintf("maximum call depth %d exceeded", e.MaxDepth)
}

// ReentryError reports a contract-to-contract call targeting a contract that
// is already on the call stack, under a policy that prohibits re-entry.
type ReentryError struct {
	Contract ContractID
}

func (e ReentryError) Error() string {
	return fmt.Sprintf("re-entrant call into contract %s rejected", e.Contract)
}

// LoadError reports guest bytecode the interpreter cannot load at all.
type LoadError struct {
	Msg string
}

func (e LoadError) Error() string {
	return fmt.Sprintf("load error: %s", e.Msg)
}

// LinkError reports a guest module whose declared imports or interface
// version cannot be resolved against the host's dispatch table. Linking is
// checked before any guest code runs.
type LinkError struct {
	Msg string
}

func (e LinkError) Error() string {
	return fmt.Sprintf("link error: %s", e.Msg)
}

// TrapError reports a guest-triggered runtime fault: illegal instruction,
// out-of-bounds access, or an explicit abort.
type TrapError struct {
	Reason string
}

func (e TrapError) Error() string {
	return fmt.Sprintf("guest trap: %s", e.Reason)
}

// StorageError reports a failure of the backing ledger snapshot itself, as
// opposed to a key simply being absent.
type StorageError struct {
	Msg string
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage error: %s", e.Msg)
}

// ContractError reports a fault surfaced by a called contract, carrying the
// status code the contract failed with.
type ContractError struct {
	Status StatusCode
}

func (e ContractError) Error() string {
	return fmt.Sprintf("contract failed with status %s", e.Status)
}

// InternalError reports a broken host invariant. It is never a guest fault
// and aborts the invocation immediately.
type InternalError struct {
	Msg string
}

func (e InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Msg)
}

// IsGuestFault reports whether err is attributable to guest behavior and
// therefore billable. Host bugs and unusable modules are not.
func IsGuestFault(err error) bool {
	if err == nil {
		return false
	}
	var internal InternalError
	var load LoadError
	var link LinkError
	if errors.As(err, &internal) || errors.As(err, &load) || errors.As(err, &link) {
		return false
	}
	return true
}

// ErrorStatus maps an error to the status code surfaced to guests by
// try_call and fail-style host functions.
func ErrorStatus(err error) StatusCode {
	var (
		invalidArg  InvalidArgumentError
		unexpected  UnexpectedTypeError
		unknown     UnknownHandleError
		invalidSym  InvalidSymbolError
		limits      ResourceLimitExceededError
		depth       CallDepthExceededError
		reentry     ReentryError
		storage     StorageError
		trap        TrapError
		contractErr ContractError
	)
	switch {
	case errors.As(err, &invalidArg):
		return StatusInvalidArgument
	case errors.As(err, &unexpected):
		return StatusUnexpectedType
	case errors.As(err, &unknown):
		return StatusUnknownHandle
	case errors.As(err, &invalidSym):
		return StatusInvalidSymbol
	case errors.As(err, &limits):
		return StatusResourceLimit
	case errors.As(err, &depth), errors.As(err, &reentry):
		return StatusCallDepth
	case errors.As(err, &storage):
		return StatusStorage
	case errors.As(err, &contractErr):
		return contractErr.Status
	case errors.As(err, &trap):
		return StatusContractError
	default:
		return StatusUnknownError
	}
}
