package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostvm/hostvm/types"
)

func sym(t *testing.T, s string) types.Val {
	t.Helper()
	return types.SymbolVal(types.MustSymbol(s))
}

func TestMapOperations(t *testing.T) {
	h, _ := newTestHost(t)

	m, err := h.mapNew(nil)
	require.NoError(t, err)

	mLen, err := h.mapLen([]types.Val{m})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(0), mLen)

	// Insert out of order; the map keeps keys sorted.
	m2, err := h.mapPut([]types.Val{m, sym(t, "b"), types.U32Val(2)})
	require.NoError(t, err)
	m3, err := h.mapPut([]types.Val{m2, sym(t, "a"), types.U32Val(1)})
	require.NoError(t, err)
	m4, err := h.mapPut([]types.Val{m3, sym(t, "c"), types.U32Val(3)})
	require.NoError(t, err)

	got, err := h.mapGet([]types.Val{m4, sym(t, "a")})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(1), got)

	minKey, err := h.mapMinKey([]types.Val{m4})
	require.NoError(t, err)
	assert.Equal(t, sym(t, "a"), minKey)
	maxKey, err := h.mapMaxKey([]types.Val{m4})
	require.NoError(t, err)
	assert.Equal(t, sym(t, "c"), maxKey)

	// Overwrite does not grow the map.
	m5, err := h.mapPut([]types.Val{m4, sym(t, "b"), types.U32Val(20)})
	require.NoError(t, err)
	mLen, err = h.mapLen([]types.Val{m5})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(3), mLen)
	got, err = h.mapGet([]types.Val{m5, sym(t, "b")})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(20), got)

	// The older handle still sees the old contents.
	got, err = h.mapGet([]types.Val{m4, sym(t, "b")})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(2), got)

	has, err := h.mapHas([]types.Val{m5, sym(t, "z")})
	require.NoError(t, err)
	assert.Equal(t, types.BoolVal(false), has)

	m6, err := h.mapDel([]types.Val{m5, sym(t, "b")})
	require.NoError(t, err)
	_, err = h.mapGet([]types.Val{m6, sym(t, "b")})
	var inv types.InvalidArgumentError
	require.ErrorAs(t, err, &inv)

	_, err = h.mapDel([]types.Val{m6, sym(t, "b")})
	require.ErrorAs(t, err, &inv)

	keys, err := h.mapKeys([]types.Val{m5})
	require.NoError(t, err)
	keysVec, err := h.getVec(keys)
	require.NoError(t, err)
	assert.Equal(t, vecObject{sym(t, "a"), sym(t, "b"), sym(t, "c")}, keysVec)

	vals, err := h.mapValues([]types.Val{m5})
	require.NoError(t, err)
	valsVec, err := h.getVec(vals)
	require.NoError(t, err)
	assert.Equal(t, vecObject{types.U32Val(1), types.U32Val(20), types.U32Val(3)}, valsVec)
}

func TestMapKeyNavigation(t *testing.T) {
	h, _ := newTestHost(t)

	m, err := h.mapNew(nil)
	require.NoError(t, err)
	for _, k := range []uint32{10, 20, 30} {
		m, err = h.mapPut([]types.Val{m, types.U32Val(k), types.BoolVal(true)})
		require.NoError(t, err)
	}

	// Neighbors of a present key.
	prev, err := h.mapPrevKey([]types.Val{m, types.U32Val(20)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(10), prev)
	next, err := h.mapNextKey([]types.Val{m, types.U32Val(20)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(30), next)

	// Neighbors of an absent key.
	prev, err = h.mapPrevKey([]types.Val{m, types.U32Val(25)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(20), prev)
	next, err = h.mapNextKey([]types.Val{m, types.U32Val(25)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(30), next)

	// Past the ends.
	prev, err = h.mapPrevKey([]types.Val{m, types.U32Val(10)})
	require.NoError(t, err)
	assert.True(t, prev.IsVoid())
	next, err = h.mapNextKey([]types.Val{m, types.U32Val(30)})
	require.NoError(t, err)
	assert.True(t, next.IsVoid())

	empty, err := h.mapNew(nil)
	require.NoError(t, err)
	_, err = h.mapMinKey([]types.Val{empty})
	var inv types.InvalidArgumentError
	require.ErrorAs(t, err, &inv)
	_, err = h.mapMaxKey([]types.Val{empty})
	require.ErrorAs(t, err, &inv)
}

func TestVecOperations(t *testing.T) {
	h, _ := newTestHost(t)

	v, err := h.vecNew(nil)
	require.NoError(t, err)

	for i := uint32(0); i < 3; i++ {
		v, err = h.vecPush([]types.Val{v, types.U32Val(i)})
		require.NoError(t, err)
	}

	vLen, err := h.vecLen([]types.Val{v})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(3), vLen)

	front, err := h.vecFront([]types.Val{v})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(0), front)
	back, err := h.vecBack([]types.Val{v})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(2), back)

	got, err := h.vecGet([]types.Val{v, types.U32Val(1)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(1), got)

	_, err = h.vecGet([]types.Val{v, types.U32Val(3)})
	var inv types.InvalidArgumentError
	require.ErrorAs(t, err, &inv)

	v2, err := h.vecPut([]types.Val{v, types.U32Val(1), types.U32Val(99)})
	require.NoError(t, err)
	got, err = h.vecGet([]types.Val{v2, types.U32Val(1)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(99), got)
	// Persistent: the original is untouched.
	got, err = h.vecGet([]types.Val{v, types.U32Val(1)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(1), got)

	// Insert at the end is allowed, one past is not.
	v3, err := h.vecInsert([]types.Val{v, types.U32Val(3), types.U32Val(7)})
	require.NoError(t, err)
	back, err = h.vecBack([]types.Val{v3})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(7), back)
	_, err = h.vecInsert([]types.Val{v, types.U32Val(4), types.U32Val(7)})
	require.ErrorAs(t, err, &inv)

	v4, err := h.vecDel([]types.Val{v3, types.U32Val(0)})
	require.NoError(t, err)
	front, err = h.vecFront([]types.Val{v4})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(1), front)

	v5, err := h.vecPop([]types.Val{v4})
	require.NoError(t, err)
	vLen, err = h.vecLen([]types.Val{v5})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(2), vLen)

	joined, err := h.vecAppend([]types.Val{v, v5})
	require.NoError(t, err)
	vLen, err = h.vecLen([]types.Val{joined})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(5), vLen)

	slice, err := h.vecSlice([]types.Val{joined, types.U32Val(1), types.U32Val(3)})
	require.NoError(t, err)
	sliceVec, err := h.getVec(slice)
	require.NoError(t, err)
	assert.Equal(t, vecObject{types.U32Val(1), types.U32Val(2)}, sliceVec)

	_, err = h.vecSlice([]types.Val{joined, types.U32Val(3), types.U32Val(1)})
	require.ErrorAs(t, err, &inv)
	_, err = h.vecSlice([]types.Val{joined, types.U32Val(0), types.U32Val(6)})
	require.ErrorAs(t, err, &inv)

	empty, err := h.vecNew(nil)
	require.NoError(t, err)
	_, err = h.vecPop([]types.Val{empty})
	require.ErrorAs(t, err, &inv)
	_, err = h.vecFront([]types.Val{empty})
	require.ErrorAs(t, err, &inv)
	_, err = h.vecBack([]types.Val{empty})
	require.ErrorAs(t, err, &inv)
}

func TestTupleOperations(t *testing.T) {
	h, _ := newTestHost(t)

	v, err := h.vecNew(nil)
	require.NoError(t, err)
	v, err = h.vecPush([]types.Val{v, types.U32Val(1)})
	require.NoError(t, err)
	v, err = h.vecPush([]types.Val{v, sym(t, "two")})
	require.NoError(t, err)

	tup, err := h.tupleNew([]types.Val{v})
	require.NoError(t, err)
	assert.Equal(t, types.ObjectTypeTuple, tup.Handle().Type)

	tLen, err := h.tupleLen([]types.Val{tup})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(2), tLen)

	got, err := h.tupleGet([]types.Val{tup, types.U32Val(1)})
	require.NoError(t, err)
	assert.Equal(t, sym(t, "two"), got)

	_, err = h.tupleGet([]types.Val{tup, types.U32Val(2)})
	var inv types.InvalidArgumentError
	require.ErrorAs(t, err, &inv)
}

func TestBytesOperations(t *testing.T) {
	h, _ := newTestHost(t)

	b, err := h.bytesNew(nil)
	require.NoError(t, err)
	for _, c := range []uint32{0x10, 0x20, 0x30} {
		b, err = h.bytesPush([]types.Val{b, types.U32Val(c)})
		require.NoError(t, err)
	}

	bLen, err := h.bytesLen([]types.Val{b})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(3), bLen)

	got, err := h.bytesGet([]types.Val{b, types.U32Val(1)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(0x20), got)

	front, err := h.bytesFront([]types.Val{b})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(0x10), front)
	back, err := h.bytesBack([]types.Val{b})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(0x30), back)

	var inv types.InvalidArgumentError
	_, err = h.bytesPush([]types.Val{b, types.U32Val(256)})
	require.ErrorAs(t, err, &inv, "a byte value above 255 is rejected")
	_, err = h.bytesPut([]types.Val{b, types.U32Val(0), types.U32Val(300)})
	require.ErrorAs(t, err, &inv)

	b2, err := h.bytesPut([]types.Val{b, types.U32Val(0), types.U32Val(0xff)})
	require.NoError(t, err)
	got, err = h.bytesGet([]types.Val{b2, types.U32Val(0)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(0xff), got)
	// Persistent: original unchanged.
	got, err = h.bytesGet([]types.Val{b, types.U32Val(0)})
	require.NoError(t, err)
	assert.Equal(t, types.U32Val(0x10), got)

	b3, err := h.bytesInsert([]types.Val{b, types.U32Val(3), types.U32Val(0x40)})
	require.NoError(t, err)
	raw, err := h.getBytes(b3)
	require.NoError(t, err)
	assert.Equal(t, bytesObject{0x10, 0x20, 0x30, 0x40}, raw)

	b4, err := h.bytesDel([]types.Val{b3, types.U32Val(0)})
	require.NoError(t, err)
	b5, err := h.bytesPop([]types.Val{b4})
	require.NoError(t, err)
	raw, err = h.getBytes(b5)
	require.NoError(t, err)
	assert.Equal(t, bytesObject{0x20, 0x30}, raw)

	joined, err := h.bytesAppend([]types.Val{b5, b5})
	require.NoError(t, err)
	slice, err := h.bytesSlice([]types.Val{joined, types.U32Val(1), types.U32Val(3)})
	require.NoError(t, err)
	raw, err = h.getBytes(slice)
	require.NoError(t, err)
	assert.Equal(t, bytesObject{0x30, 0x20}, raw)

	_, err = h.bytesSlice([]types.Val{joined, types.U32Val(2), types.U32Val(1)})
	require.ErrorAs(t, err, &inv)
}

// fakeGuestMemory is an in-process linear memory for boundary transfer tests.
type fakeGuestMemory []byte

func (m fakeGuestMemory) Read(offset, length uint32) ([]byte, error) {
	if uint64(offset)+uint64(length) > uint64(len(m)) {
		return nil, types.InvalidArgumentError{Msg: "out of bounds"}
	}
	return append([]byte(nil), m[offset:offset+length]...), nil
}

func (m fakeGuestMemory) Write(offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(len(m)) {
		return types.InvalidArgumentError{Msg: "out of bounds"}
	}
	copy(m[offset:], data)
	return nil
}

func TestBytesGuestMemoryTransfer(t *testing.T) {
	h, r := newTestHost(t)
	mem := make(fakeGuestMemory, 16)
	copy(mem, "abcdefgh")

	_, err := runAs(t, h, r, testID(1), func() (types.Val, error) {
		h.SetFrameMemory(mem)

		b, err := h.bytesNewFromGuest([]types.Val{types.U32Val(0), types.U32Val(4)})
		require.NoError(t, err)
		raw, err := h.getBytes(b)
		require.NoError(t, err)
		assert.Equal(t, bytesObject("abcd"), raw)

		// Copy back out at a different offset.
		same, err := h.bytesCopyToGuest([]types.Val{b, types.U32Val(0), types.U32Val(8), types.U32Val(4)})
		require.NoError(t, err)
		assert.Equal(t, b, same, "copy out returns the unchanged handle")
		assert.Equal(t, []byte("abcd"), []byte(mem[8:12]))

		// Overwrite part of the object from memory.
		b2, err := h.bytesCopyFromGuest([]types.Val{b, types.U32Val(0), types.U32Val(4), types.U32Val(2)})
		require.NoError(t, err)
		raw, err = h.getBytes(b2)
		require.NoError(t, err)
		assert.Equal(t, bytesObject("efcd"), raw)

		// Out-of-bounds reads fail before anything is allocated.
		_, err = h.bytesNewFromGuest([]types.Val{types.U32Val(12), types.U32Val(8)})
		var inv types.InvalidArgumentError
		require.ErrorAs(t, err, &inv)

		_, err = h.bytesCopyToGuest([]types.Val{b, types.U32Val(2), types.U32Val(0), types.U32Val(4)})
		require.ErrorAs(t, err, &inv, "source range past the object end")

		return types.VoidVal(), nil
	})
	require.NoError(t, err)

	// Outside any frame there is no guest memory.
	_, err = h.bytesNewFromGuest([]types.Val{types.U32Val(0), types.U32Val(1)})
	require.Error(t, err)
}
