// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// Continuation is a captured slice of suspended execution: everything
// needed to resume it later, either once (Resume/Transfer) or, for an
// unstarted one produced by CreateContinuation, to start it for the first
// time.
//
// A continuation captured at dispatch time snapshots the frame stack of
// every segment from the performing segment up to (but not including) the
// handler's prompt-boundary segment, plus the scope chain in effect there,
// so resuming it later reconstructs exactly the stack the effectful
// program was suspended from — independent of whatever the handler's own
// segment does in the meantime.
type Continuation struct {
	id    ContinuationId
	guard *Affine[struct{}, struct{}]

	// capturedFrames holds copies of each captured segment's frame stack
	// (new slices; the frame values in them are shared with the live
	// stack), innermost (closest to the performer) first. Empty for
	// a continuation that was created directly from a Program and has
	// never been started.
	capturedFrames [][]VMFrame
	scopeChain     []PromptMarker

	// program/handlers are set instead of capturedFrames for a
	// continuation that has never been started: the body and handler set
	// CreateContinuation was given, materialized into segments only on
	// first Resume/ResumeContinuation.
	program  Program
	handlers []Handler

	// hasOwner is true for a continuation captured at an effect-performing
	// call site: ownerDispatch names the dispatch whose handler is
	// entitled to receive it back, used to find where a Resume should
	// deliver its result and to detect a stale (already-completed)
	// dispatch.
	hasOwner      bool
	ownerDispatch DispatchId
}

// unstartedContinuation builds the snapshot for a continuation created
// directly from a Program and handler set, not captured from a live
// dispatch.
func unstartedContinuation(id ContinuationId, program Program, handlers []Handler) *Continuation {
	return &Continuation{id: id, program: program, handlers: handlers, guard: newContinuationGuard()}
}

// capturedContinuation builds the snapshot for a continuation captured at
// an effect-performing call site.
func capturedContinuation(id ContinuationId, frames [][]VMFrame, scopeChain []PromptMarker, ownerDispatch DispatchId) *Continuation {
	return &Continuation{id: id, capturedFrames: frames, scopeChain: scopeChain, hasOwner: true, ownerDispatch: ownerDispatch, guard: newContinuationGuard()}
}

// newContinuationGuard builds the Affine one-shot guard backing markUsed.
// The wrapped resume is never actually invoked for its return value; only
// TryResume's success bool is consulted.
func newContinuationGuard() *Affine[struct{}, struct{}] {
	return Once(func(struct{}) struct{} { return struct{}{} })
}

// markUsed records that this continuation has now been resumed exactly
// once, returning false if it was already used (a one-shot violation the
// caller must turn into an OneShotViolation error). Backed by Affine so a
// continuation shared across goroutines by the scheduler's spawned tasks
// still enforces one-shot resume atomically.
func (c *Continuation) markUsed() bool {
	_, ok := c.guard.TryResume(struct{}{})
	return ok
}

// cloneFrames copies a frame slice for capture, so later pushes and pops
// on the live segment's frame stack never reach back into a captured
// snapshot. The copy is shallow: the frame values themselves are shared.
func cloneFrames(frames []VMFrame) []VMFrame {
	out := make([]VMFrame, len(frames))
	copy(out, frames)
	return out
}

func cloneScopeChain(chain []PromptMarker) []PromptMarker {
	out := make([]PromptMarker, len(chain))
	copy(out, chain)
	return out
}
