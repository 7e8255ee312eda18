package store

import (
	"slices"

	"github.com/roach88/tempo/internal/model"
)

// newestIndex tracks the newest event (by timestamp, then id) of each
// bucket so heartbeat merges are checked without scanning the bucket.
//
// An entry may be:
//   - absent: unknown, load from the database on demand
//   - nil: the bucket is known to be empty
//   - an event: the bucket's newest stored event
//
// The index is only touched inside the exclusive section, so it needs no
// locking of its own. Entries are private copies.
type newestIndex struct {
	entries map[int64]*model.Event
}

func newNewestIndex() *newestIndex {
	return &newestIndex{entries: make(map[int64]*model.Event)}
}

// get returns a copy of the entry and whether the bucket is known.
func (ix *newestIndex) get(key int64) (*model.Event, bool) {
	e, ok := ix.entries[key]
	if !ok || e == nil {
		return nil, ok
	}
	c := e.Clone()
	return &c, true
}

// set records e as the bucket's newest event (nil for empty).
func (ix *newestIndex) set(key int64, e *model.Event) {
	if e == nil {
		ix.entries[key] = nil
		return
	}
	c := e.Clone()
	ix.entries[key] = &c
}

// observe updates a known entry with a freshly stored event if it is newer.
// Unknown entries stay unknown.
func (ix *newestIndex) observe(key int64, e model.Event) {
	cur, ok := ix.entries[key]
	if !ok {
		return
	}
	if cur == nil || newerThan(e, *cur) {
		ix.set(key, &e)
	}
}

// forget drops the entry, e.g. after the bucket is deleted.
func (ix *newestIndex) forget(key int64) {
	delete(ix.entries, key)
}

// forgetIfAny drops the entry if it points at one of the deleted ids.
func (ix *newestIndex) forgetIfAny(key int64, ids []int64) {
	cur, ok := ix.entries[key]
	if !ok || cur == nil {
		return
	}
	if slices.Contains(ids, cur.ID) {
		delete(ix.entries, key)
	}
}

// newerThan reports whether a sorts after b in storage order.
func newerThan(a, b model.Event) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}
