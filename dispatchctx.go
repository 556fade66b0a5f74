// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// DispatchContext is one live entry on the VM's dispatch stack: the state
// of a single effect's journey from Perform through whichever handler
// ultimately resumes, transfers, or delegates it past the end of the
// chain.
type DispatchContext struct {
	id DispatchId

	// effect is the current effect being dispatched — the original
	// Perform's operand, or whatever Delegate substituted in its place.
	effect Effect

	// performingSegment is where the effect was performed; resuming
	// normally returns control there.
	performingSegment SegmentId

	// chain is the ordered list of registry entries this dispatch may
	// still search through, starting just inside the innermost handler
	// that can accept the effect and proceeding outward. delegateIndex is
	// the offset into chain of the handler currently running; Delegate
	// advances it by one.
	chain         []*registryEntry
	delegateIndex int

	// siteContinuation is the continuation captured at the call site the
	// first time this effect was performed — what GetContinuation reports
	// and what Resume/Transfer (with no explicit continuation argument,
	// i.e. inside the handler body itself) would resume.
	siteContinuation *Continuation

	// completed is true once this dispatch's handler has produced a value
	// that has propagated all the way back to the performing segment; it
	// is then eligible for lazy removal from the dispatch stack the next
	// time the stack is walked.
	completed bool

	// handlerSeg is the segment running the current handler's response
	// program, set once invokeHandler actually starts it (which, for a
	// HostHandler, happens only after the host's CallHandler round trip
	// returns). Resume uses it as the owning segment to deliver into.
	handlerSeg *SegmentId
}

// dispatchStack is the VM's LIFO stack of in-flight dispatches plus the
// lazy-cleanup bookkeeping used by lazyPopCompleted.
type dispatchStack struct {
	entries []*DispatchContext
}

func newDispatchStack() *dispatchStack {
	return &dispatchStack{}
}

func (s *dispatchStack) push(d *DispatchContext) {
	s.entries = append(s.entries, d)
}

func (s *dispatchStack) top() *DispatchContext {
	if n := len(s.entries); n > 0 {
		return s.entries[n-1]
	}
	return nil
}

func (s *dispatchStack) get(id DispatchId) *DispatchContext {
	for _, d := range s.entries {
		if d.id == id {
			return d
		}
	}
	return nil
}

// lazyPopCompleted drops completed dispatch entries from the top of the
// stack. Entries are marked completed as soon as their handler resumes,
// but are only actually removed here, the next time the stack is consulted
// — avoiding the cost of a compaction on every single resume.
func (s *dispatchStack) lazyPopCompleted() {
	n := len(s.entries)
	for n > 0 && s.entries[n-1].completed {
		n--
	}
	s.entries = s.entries[:n]
}
