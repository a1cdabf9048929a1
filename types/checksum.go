package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// ChecksumLen is the length of a checksum in bytes.
const ChecksumLen = 32

// Checksum identifies stored guest bytecode: the SHA-256 hash of the module.
// Contract registrations reference code by checksum, so the same module
// stored twice deduplicates naturally.
type Checksum [ChecksumLen]byte

// ChecksumOf hashes code into its checksum.
func ChecksumOf(code []byte) Checksum {
	return sha256.Sum256(code)
}

// NewChecksum builds a Checksum from a raw byte slice of exactly
// ChecksumLen bytes.
func NewChecksum(b []byte) (Checksum, error) {
	if len(b) != ChecksumLen {
		return Checksum{}, errors.New("got wrong number of bytes for checksum")
	}
	var cs Checksum
	copy(cs[:], b)
	return cs, nil
}

func (cs Checksum) String() string {
	return hex.EncodeToString(cs[:])
}

// Bytes returns the checksum as a byte slice.
func (cs Checksum) Bytes() []byte {
	return cs[:]
}

// MarshalJSON encodes the checksum as a hex string.
func (cs Checksum) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(cs[:]))
}

// UnmarshalJSON parses a hex-encoded string into a checksum.
func (cs *Checksum) UnmarshalJSON(input []byte) error {
	var hexString string
	if err := json.Unmarshal(input, &hexString); err != nil {
		return err
	}
	data, err := hex.DecodeString(hexString)
	if err != nil {
		return err
	}
	if len(data) != ChecksumLen {
		return errors.New("got wrong number of bytes for checksum")
	}
	copy(cs[:], data)
	return nil
}
