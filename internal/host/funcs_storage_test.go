package host

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostvm/hostvm/internal/budget"
	"github.com/hostvm/hostvm/types"
)

func TestContractDataLifecycle(t *testing.T) {
	h, r := newTestHost(t)

	_, err := runAs(t, h, r, testID(1), func() (types.Val, error) {
		key := sym(t, "counter")

		has, err := h.hasContractData([]types.Val{key})
		require.NoError(t, err)
		assert.Equal(t, types.BoolVal(false), has)

		_, err = h.getContractData([]types.Val{key})
		var inv types.InvalidArgumentError
		require.ErrorAs(t, err, &inv)

		_, err = h.putContractData([]types.Val{key, types.U32Val(7)})
		require.NoError(t, err)

		has, err = h.hasContractData([]types.Val{key})
		require.NoError(t, err)
		assert.Equal(t, types.BoolVal(true), has)

		got, err := h.getContractData([]types.Val{key})
		require.NoError(t, err)
		assert.Equal(t, types.U32Val(7), got)

		_, err = h.delContractData([]types.Val{key})
		require.NoError(t, err)
		has, err = h.hasContractData([]types.Val{key})
		require.NoError(t, err)
		assert.Equal(t, types.BoolVal(false), has)

		return types.VoidVal(), nil
	})
	require.NoError(t, err)

	delta := h.Delta()
	require.Len(t, delta, 1)
	assert.True(t, delta[0].Deleted, "the delete tombstone is the final state")
}

func TestContractDataAggregateRoundTrip(t *testing.T) {
	h, r := newTestHost(t)

	_, err := runAs(t, h, r, testID(1), func() (types.Val, error) {
		val, err := h.ToVal([]types.MapItem{
			{Key: "owner", Value: []byte{1, 2, 3}},
			{Key: "total", Value: uint64(1 << 40)},
		})
		require.NoError(t, err)

		key := sym(t, "state")
		_, err = h.putContractData([]types.Val{key, val})
		require.NoError(t, err)

		got, err := h.getContractData([]types.Val{key})
		require.NoError(t, err)

		// The stored value decodes to fresh handles but equal structure.
		require.NotEqual(t, val, got)
		c, err := h.compareVals(val, got)
		require.NoError(t, err)
		assert.Zero(t, c)

		native, err := h.FromVal(got)
		require.NoError(t, err)
		assert.Equal(t, []types.MapItem{
			{Key: "owner", Value: []byte{1, 2, 3}},
			{Key: "total", Value: uint64(1 << 40)},
		}, native)

		return types.VoidVal(), nil
	})
	require.NoError(t, err)
}

func TestContractDataReadsSnapshot(t *testing.T) {
	db := dbm.NewMemDB()
	r := testResolver{}
	b := budget.New(types.DefaultCostModel(), generousLimits())
	h := New(b, db, Config{MaxCallDepth: 8, Resolver: r})

	// Seed the backend with an entry under the contract's namespace by
	// writing through one host, then replaying the delta.
	_, err := runAs(t, h, r, testID(1), func() (types.Val, error) {
		_, err := h.putContractData([]types.Val{sym(t, "seed"), types.U32Val(11)})
		return types.VoidVal(), err
	})
	require.NoError(t, err)
	for _, change := range h.Delta() {
		require.NoError(t, db.Set(change.Key, change.Value))
	}

	// A fresh invocation against the same snapshot sees the entry.
	h2 := New(budget.New(types.DefaultCostModel(), generousLimits()), db, Config{MaxCallDepth: 8, Resolver: r})
	_, err = runAs(t, h2, r, testID(1), func() (types.Val, error) {
		got, err := h2.getContractData([]types.Val{sym(t, "seed")})
		require.NoError(t, err)
		assert.Equal(t, types.U32Val(11), got)
		return types.VoidVal(), nil
	})
	require.NoError(t, err)
	assert.Empty(t, h2.Delta(), "reads do not produce writes")

	// Another contract cannot see it: keys are namespaced by contract id.
	h3 := New(budget.New(types.DefaultCostModel(), generousLimits()), db, Config{MaxCallDepth: 8, Resolver: r})
	_, err = runAs(t, h3, r, testID(2), func() (types.Val, error) {
		has, err := h3.hasContractData([]types.Val{sym(t, "seed")})
		require.NoError(t, err)
		assert.Equal(t, types.BoolVal(false), has)
		return types.VoidVal(), nil
	})
	require.NoError(t, err)
}

func TestDeltaSortedByKey(t *testing.T) {
	h, r := newTestHost(t)

	_, err := runAs(t, h, r, testID(1), func() (types.Val, error) {
		for _, k := range []uint32{30, 10, 20} {
			if _, err := h.putContractData([]types.Val{types.U32Val(k), types.BoolVal(true)}); err != nil {
				return types.VoidVal(), err
			}
		}
		return types.VoidVal(), nil
	})
	require.NoError(t, err)

	delta := h.Delta()
	require.Len(t, delta, 3)
	for i := 1; i < len(delta); i++ {
		assert.Less(t, string(delta[i-1].Key), string(delta[i].Key))
	}
}

func TestDecodeRejectsCorruptedValues(t *testing.T) {
	h, _ := newTestHost(t)

	buf, err := h.encodeVal(nil, types.U32Val(7), 0)
	require.NoError(t, err)

	// Sanity: the untouched buffer decodes.
	v, rest, err := h.decodeVal(buf)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, types.U32Val(7), v)

	var storageErr types.StorageError
	_, _, err = h.decodeVal(buf[:len(buf)-1])
	require.ErrorAs(t, err, &storageErr, "truncated buffer")

	_, _, err = h.decodeVal([]byte{0xee})
	require.ErrorAs(t, err, &storageErr, "unknown tag byte")

	_, _, err = h.decodeVal([]byte{byte(types.TagObject), 0xee})
	require.ErrorAs(t, err, &storageErr, "unknown object type byte")
}

func TestDecodeBoundsAggregateCounts(t *testing.T) {
	h, _ := newTestHost(t)

	// A corrupt header claiming 100M elements in a 6-byte buffer must fail
	// before anything is allocated or charged for.
	cpuBefore, memBefore := h.Budget().CpuConsumed(), h.Budget().MemConsumed()
	count := []byte{0x05, 0xf5, 0xe1, 0x00} // 100_000_000
	var storageErr types.StorageError

	vecHdr := append([]byte{byte(types.TagObject), byte(types.ObjectTypeVec)}, count...)
	_, _, err := h.decodeVal(vecHdr)
	require.ErrorAs(t, err, &storageErr)

	mapHdr := append([]byte{byte(types.TagObject), byte(types.ObjectTypeMap)}, count...)
	_, _, err = h.decodeVal(mapHdr)
	require.ErrorAs(t, err, &storageErr)

	assert.Equal(t, cpuBefore, h.Budget().CpuConsumed())
	assert.Equal(t, memBefore, h.Budget().MemConsumed())
}

func TestDecodeRejectsUnsortedMapEntries(t *testing.T) {
	h, _ := newTestHost(t)

	m, err := h.addObject(mapObject{
		{key: types.U32Val(1), val: types.U32Val(10)},
		{key: types.U32Val(2), val: types.U32Val(20)},
	})
	require.NoError(t, err)
	buf, err := h.encodeVal(nil, m, 0)
	require.NoError(t, err)
	// Header (tag, type, count) plus two entries of two inline values each.
	require.Len(t, buf, 6+2*18)

	// Swapping the entries breaks the key order the encoder guarantees.
	swapped := append([]byte(nil), buf[:6]...)
	swapped = append(swapped, buf[24:42]...)
	swapped = append(swapped, buf[6:24]...)
	var storageErr types.StorageError
	_, _, err = h.decodeVal(swapped)
	require.ErrorAs(t, err, &storageErr)

	// Duplicated keys violate the strict order too.
	dup := append([]byte(nil), buf[:6]...)
	dup = append(dup, buf[6:24]...)
	dup = append(dup, buf[6:24]...)
	_, _, err = h.decodeVal(dup)
	require.ErrorAs(t, err, &storageErr)
}

func TestContractEventsAndDiagnostics(t *testing.T) {
	h, r := newTestHost(t)
	id := testID(1)

	_, err := runAs(t, h, r, id, func() (types.Val, error) {
		topics, err := h.ToVal([]any{"transfer", uint32(5)})
		require.NoError(t, err)
		_, err = h.contractEvent([]types.Val{topics, types.U32Val(100)})
		require.NoError(t, err)

		_, err = h.logValue([]types.Val{sym(t, "checkpoint")})
		require.NoError(t, err)
		return types.VoidVal(), nil
	})
	require.NoError(t, err)

	events := h.Events()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTypeContract, events[0].Type)
	assert.Equal(t, id, events[0].Contract)
	assert.Equal(t, []any{"transfer", uint32(5)}, events[0].Topics)
	assert.Equal(t, uint32(100), events[0].Data)

	diags := h.DiagnosticEvents()
	require.Len(t, diags, 1)
	assert.Equal(t, types.EventTypeDiagnostic, diags[0].Type)
	assert.Equal(t, "checkpoint", diags[0].Data)
}

func TestDiagnosticLimitDoesNotTouchBudget(t *testing.T) {
	r := testResolver{}
	b := budget.New(types.DefaultCostModel(), budget.Limits{Cpu: 1 << 40, Mem: 1 << 40, Diagnostic: 4})
	h := New(b, nil, Config{MaxCallDepth: 8, Resolver: r})

	_, err := runAs(t, h, r, testID(1), func() (types.Val, error) {
		_, err := h.logValue([]types.Val{types.U32Val(1)})
		var rle types.ResourceLimitExceededError
		require.ErrorAs(t, err, &rle)
		assert.Equal(t, "diagnostic", rle.Dimension)
		return types.VoidVal(), nil
	})
	require.NoError(t, err)
}

func TestComputeHashes(t *testing.T) {
	h, _ := newTestHost(t)

	input, err := h.addObject(bytesObject("abc"))
	require.NoError(t, err)
	digest, err := h.computeHashSha256([]types.Val{input})
	require.NoError(t, err)
	raw, err := h.getBytes(digest)
	require.NoError(t, err)
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		hex.EncodeToString(raw))

	empty, err := h.addObject(bytesObject{})
	require.NoError(t, err)
	digest, err = h.computeHashKeccak256([]types.Val{empty})
	require.NoError(t, err)
	raw, err = h.getBytes(digest)
	require.NoError(t, err)
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(raw))
}

type ed25519TestVerifier struct{}

func (ed25519TestVerifier) VerifyEd25519(pubKey, msg, sig []byte) error {
	if len(pubKey) != ed25519.PublicKeySize {
		return errors.New("bad public key size")
	}
	if !ed25519.Verify(ed25519.PublicKey(pubKey), msg, sig) {
		return errors.New("verification failed")
	}
	return nil
}

func TestVerifySigEd25519(t *testing.T) {
	r := testResolver{}
	b := budget.New(types.DefaultCostModel(), generousLimits())
	h := New(b, nil, Config{MaxCallDepth: 8, Resolver: r, Verifier: ed25519TestVerifier{}})

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	msg := []byte("signed payload")
	sig := ed25519.Sign(priv, msg)

	pubVal, err := h.ToVal([]byte(pub))
	require.NoError(t, err)
	msgVal, err := h.ToVal(msg)
	require.NoError(t, err)
	sigVal, err := h.ToVal(sig)
	require.NoError(t, err)

	res, err := h.verifySigEd25519([]types.Val{pubVal, msgVal, sigVal})
	require.NoError(t, err)
	assert.True(t, res.IsVoid())

	// Flip one signature bit.
	badSig := append([]byte(nil), sig...)
	badSig[0] ^= 1
	badSigVal, err := h.ToVal(badSig)
	require.NoError(t, err)
	_, err = h.verifySigEd25519([]types.Val{pubVal, msgVal, badSigVal})
	var inv types.InvalidArgumentError
	require.ErrorAs(t, err, &inv)
}

func TestVerifySigWithoutVerifier(t *testing.T) {
	h, _ := newTestHost(t)

	empty, err := h.addObject(bytesObject{})
	require.NoError(t, err)
	_, err = h.verifySigEd25519([]types.Val{empty, empty, empty})
	var internal types.InternalError
	require.ErrorAs(t, err, &internal)
}

func TestFailWithStatus(t *testing.T) {
	h, _ := newTestHost(t)

	_, err := h.failWithStatus([]types.Val{types.StatusVal(types.StatusContractError)})
	var cerr types.ContractError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, types.StatusContractError, cerr.Status)

	_, err = h.failWithStatus([]types.Val{types.U32Val(1)})
	var unexpected types.UnexpectedTypeError
	require.ErrorAs(t, err, &unexpected)
}
