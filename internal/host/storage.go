package host

import (
	"fmt"
	"sort"

	"github.com/hostvm/hostvm/types"
)

type writeEntry struct {
	value   []byte
	deleted bool
}

// storage is the invocation's view of the ledger: an immutable snapshot
// underneath a buffered working set of writes. Nothing is ever applied to
// the backend; the working set is exposed as a sorted delta only when the
// invocation completes, giving the embedder all-or-nothing visibility of a
// contract's storage effects.
type storage struct {
	snapshot types.Snapshot
	writes   map[string]writeEntry
}

func newStorage(snapshot types.Snapshot) *storage {
	return &storage{
		snapshot: snapshot,
		writes:   make(map[string]writeEntry),
	}
}

// get reads through the working set into the snapshot. A backend failure is
// a StorageError; a merely absent key is (nil, false, nil).
func (s *storage) get(key []byte) ([]byte, bool, error) {
	if e, ok := s.writes[string(key)]; ok {
		if e.deleted {
			return nil, false, nil
		}
		return e.value, true, nil
	}
	if s.snapshot == nil {
		return nil, false, nil
	}
	v, err := s.snapshot.Get(key)
	if err != nil {
		return nil, false, types.StorageError{Msg: fmt.Sprintf("snapshot get: %v", err)}
	}
	if v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

func (s *storage) has(key []byte) (bool, error) {
	if e, ok := s.writes[string(key)]; ok {
		return !e.deleted, nil
	}
	if s.snapshot == nil {
		return false, nil
	}
	ok, err := s.snapshot.Has(key)
	if err != nil {
		return false, types.StorageError{Msg: fmt.Sprintf("snapshot has: %v", err)}
	}
	return ok, nil
}

func (s *storage) put(key, value []byte) {
	s.writes[string(key)] = writeEntry{value: append([]byte(nil), value...)}
}

func (s *storage) del(key []byte) {
	s.writes[string(key)] = writeEntry{deleted: true}
}

// snapshotWrites copies the working set for a frame's rollback point.
func (s *storage) snapshotWrites() map[string]writeEntry {
	cp := make(map[string]writeEntry, len(s.writes))
	for k, v := range s.writes {
		cp[k] = v
	}
	return cp
}

func (s *storage) restoreWrites(prev map[string]writeEntry) {
	s.writes = prev
}

// Delta returns the buffered writes as a key-sorted change list. Only the
// invocation controller calls this, and only on Completed.
func (h *Host) Delta() []types.StorageChange {
	keys := make([]string, 0, len(h.storage.writes))
	for k := range h.storage.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	delta := make([]types.StorageChange, 0, len(keys))
	for _, k := range keys {
		e := h.storage.writes[k]
		change := types.StorageChange{Key: []byte(k), Deleted: e.deleted}
		if !e.deleted {
			change.Value = append([]byte(nil), e.value...)
		}
		delta = append(delta, change)
	}
	return delta
}
