package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGuestFault(t *testing.T) {
	guestFaults := []error{
		InvalidArgumentError{Msg: "x"},
		UnknownHandleError{},
		ResourceLimitExceededError{Dimension: "cpu"},
		TrapError{Reason: "unreachable"},
		ContractError{Status: StatusContractError},
		StorageError{Msg: "x"},
	}
	for _, err := range guestFaults {
		assert.True(t, IsGuestFault(err), "%T", err)
	}

	hostFaults := []error{
		InternalError{Msg: "x"},
		LoadError{Msg: "x"},
		LinkError{Msg: "x"},
		fmt.Errorf("wrapped: %w", InternalError{Msg: "x"}),
	}
	for _, err := range hostFaults {
		assert.False(t, IsGuestFault(err), "%T", err)
	}

	assert.False(t, IsGuestFault(nil))
}

func TestErrorStatus(t *testing.T) {
	cases := map[StatusCode]error{
		StatusInvalidArgument: InvalidArgumentError{Msg: "x"},
		StatusUnexpectedType:  UnexpectedTypeError{Expected: "a", Got: "b"},
		StatusUnknownHandle:   UnknownHandleError{},
		StatusInvalidSymbol:   InvalidSymbolError{Str: "!", Reason: "bad char"},
		StatusResourceLimit:   ResourceLimitExceededError{Dimension: "mem"},
		StatusCallDepth:       CallDepthExceededError{MaxDepth: 4},
		StatusStorage:         StorageError{Msg: "x"},
		StatusContractError:   TrapError{Reason: "x"},
		StatusUnknownError:    fmt.Errorf("opaque"),
	}
	for want, err := range cases {
		assert.Equal(t, want, ErrorStatus(err), "%T", err)
	}

	// Re-entry folds into the call depth status.
	assert.Equal(t, StatusCallDepth, ErrorStatus(ReentryError{}))
	// A contract error carries its own status through.
	assert.Equal(t, StatusStorage, ErrorStatus(ContractError{Status: StatusStorage}))
}
