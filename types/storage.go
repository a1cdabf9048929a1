package types

import "encoding/hex"

// ContractID identifies a deployed contract. Contract storage keys are
// namespaced by it, so two contracts can never observe each other's entries.
type ContractID [32]byte

func (id ContractID) String() string {
	return hex.EncodeToString(id[:])
}

// Snapshot is the read-only ledger view backing one invocation. It must not
// change for the invocation's duration; copy-on-read or snapshot isolation
// is the embedder's responsibility. Absent keys are reported as (nil, nil),
// matching the cometbft-db contract, so a *dbm.MemDB (or any dbm.DB held at
// a fixed version) satisfies this interface directly.
type Snapshot interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// StorageChange is one entry of the proposed write delta of a completed
// invocation. Deltas are sorted by key and carry tombstones for deletions;
// they are never applied by the runtime itself.
type StorageChange struct {
	Key     []byte
	Value   []byte // nil when Deleted
	Deleted bool
}

// SignatureVerifier is the external cryptographic primitive provider for
// signature checks. A nil error means the signature is valid. Implementations
// must be pure: same inputs, same answer, on every node.
type SignatureVerifier interface {
	VerifyEd25519(pubKey, message, sig []byte) error
}
