// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// segmentArena is the engine's pooled segment storage: alloc(segment) ->
// SegmentId reuses free-list slots before growing; free(id) scrubs and
// returns a slot to the free-list.
//
// Grounded on the teacher's pool.go Acquire/Release discipline, adapted
// from a sync.Pool of frame values (freed independently of identity) to an
// index-addressed slice (a freed slot's SegmentId goes back on the
// free-list and is handed out again by a later alloc; Continuation
// snapshots hold their own frames and never refer back to the slot).
type segmentArena struct {
	slots []*Segment
	free  []SegmentId
}

func newSegmentArena() *segmentArena {
	return &segmentArena{}
}

func (a *segmentArena) alloc(seg *Segment) SegmentId {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[id] = seg
		return id
	}
	id := SegmentId(len(a.slots))
	a.slots = append(a.slots, seg)
	return id
}

func (a *segmentArena) get(id SegmentId) *Segment {
	return a.slots[id]
}

// free scrubs the slot's contents and returns it to the free-list. Callers
// must ensure no live Continuation snapshot still needs this slot's
// identity — captured snapshots hold their own copy of frames/scope chain
// (continuation.go) and never dereference the arena after capture, so
// freeing a segment never invalidates a continuation taken from it.
func (a *segmentArena) free(id SegmentId) {
	a.slots[id] = nil
	a.free = append(a.free, id)
}

// callbackEntry is a one-shot function consuming a delivered Value and
// producing the next Mode, used by native-return frames.
type callbackEntry func(Value) Mode

// callbackTable is the slot-map of one-shot native-return callbacks, keyed
// by CallbackId so frame values stay trivially cloneable (the callback
// itself lives out-of-band, mirroring the teacher's marker_pool.go
// separation of pooled markers from the closures they carry).
type callbackTable struct {
	slots []callbackEntry
	free  []CallbackId
}

func newCallbackTable() *callbackTable {
	return &callbackTable{}
}

func (t *callbackTable) insert(cb callbackEntry) CallbackId {
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[id] = cb
		return id
	}
	id := CallbackId(len(t.slots))
	t.slots = append(t.slots, cb)
	return id
}

// consume removes and returns the one-shot callback at id, returning the
// slot to the free-list.
func (t *callbackTable) consume(id CallbackId) callbackEntry {
	cb := t.slots[id]
	t.slots[id] = nil
	t.free = append(t.free, id)
	return cb
}
