package host

import (
	"crypto/sha256"

	"golang.org/x/crypto/sha3"

	"github.com/hostvm/hostvm/types"
)

// Cryptographic host functions. Hashing is charged per input byte before the
// hash runs; signature verification is charged by message length. Verification
// failure is a guest fault (bad signature), never a host error.

func (h *Host) computeHashSha256(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostComputeSha256, uint64(len(b))); err != nil {
		return types.VoidVal(), err
	}
	sum := sha256.Sum256(b)
	return h.addObject(bytesObject(sum[:]))
}

func (h *Host) computeHashKeccak256(args []types.Val) (types.Val, error) {
	b, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostComputeKeccak256, uint64(len(b))); err != nil {
		return types.VoidVal(), err
	}
	d := sha3.NewLegacyKeccak256()
	d.Write(b)
	return h.addObject(bytesObject(d.Sum(nil)))
}

func (h *Host) verifySigEd25519(args []types.Val) (types.Val, error) {
	pub, err := h.getBytes(args[0])
	if err != nil {
		return types.VoidVal(), err
	}
	msg, err := h.getBytes(args[1])
	if err != nil {
		return types.VoidVal(), err
	}
	sig, err := h.getBytes(args[2])
	if err != nil {
		return types.VoidVal(), err
	}
	if err := h.budget.Charge(types.CostVerifyEd25519, uint64(len(msg))); err != nil {
		return types.VoidVal(), err
	}
	if h.cfg.Verifier == nil {
		return types.VoidVal(), types.InternalError{Msg: "no signature verifier configured"}
	}
	if err := h.cfg.Verifier.VerifyEd25519(pub, msg, sig); err != nil {
		return types.VoidVal(), types.InvalidArgumentError{Msg: "ed25519 signature verification failed"}
	}
	return types.VoidVal(), nil
}
