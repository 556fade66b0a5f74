// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// VMFrame marks the variants a Segment's frame stack can hold, following
// the teacher's Frame marker-interface pattern (frame.go) adapted to the
// engine's own stack of running work instead of a single Expr's
// continuation chain.
type VMFrame interface {
	isVMFrame()
}

// HostCoroutineFrame is a running piece of user code: a Program, started or
// not, that the engine drives one suspension at a time. Metadata is set
// when the frame was pushed by a Call, letting GetCallStack report where
// it came from; it is nil for the bottom frame of the top-level program.
type HostCoroutineFrame struct {
	Coroutine *programCoroutine
	Metadata  *CallMetadata
}

func (*HostCoroutineFrame) isVMFrame() {}

// NativeReturnFrame holds a one-shot callback (arena.go's callbackTable)
// to run when a value is delivered to this point in the segment. It is how
// native Go code can be spliced into the middle of a frame stack without
// going through a full Program.
type NativeReturnFrame struct {
	Callback CallbackId
}

func (NativeReturnFrame) isVMFrame() {}

// NativeHandlerProgramFrame drives a handler's body (the Program Invoke
// returned) inside its own prompt-bounded segment, exactly like
// HostCoroutineFrame but tagged separately so the dispatch engine can tell
// "a handler's own execution" apart from "the program that performed the
// effect" when searching for the next enclosing handler.
type NativeHandlerProgramFrame struct {
	Coroutine *programCoroutine
}

func (*NativeHandlerProgramFrame) isVMFrame() {}

// SegmentKind distinguishes an ordinary segment from one that begins a
// prompt boundary installed by WithHandler.
type SegmentKind int

const (
	// SegmentNormal is a plain execution segment with no handler installed
	// at its base.
	SegmentNormal SegmentKind = iota
	// SegmentPromptBoundary is the segment created by WithHandler: its
	// HandledMarker is the PromptMarker handler search stops at (unless
	// searching past a busy boundary for a different, outer handler).
	SegmentPromptBoundary
)

// Segment is one contiguous span of the evaluation stack: a LIFO frame
// stack, a link to the caller segment it will resume into when its frames
// are exhausted, the chain of prompt markers visible for handler search
// from within it, and (for prompt-boundary segments) the marker it
// installs.
//
// Segments are heap objects addressed by SegmentId through the arena
// rather than Go pointers directly, so continuation.go can snapshot a
// chain of segment ids without worrying about the underlying slice being
// reallocated by append.
type Segment struct {
	Frames        []VMFrame
	Caller        *SegmentId
	ScopeChain    []PromptMarker
	Kind          SegmentKind
	HandledMarker PromptMarker // valid only when Kind == SegmentPromptBoundary
	Busy          bool         // true while a dispatch is actively running inside this segment's handler body

	// DispatchOf is set on a segment created to run a handler's response
	// program: it names the dispatch this segment is servicing, so that
	// when the segment's frames exhaust naturally the engine knows to
	// redirect delivery to the dispatch's performing segment instead of
	// simply popping to Caller.
	DispatchOf *DispatchId
}

func newSegment(kind SegmentKind, caller *SegmentId, scopeChain []PromptMarker) *Segment {
	return &Segment{Kind: kind, Caller: caller, ScopeChain: scopeChain}
}

// push adds a frame to the top of the segment's frame stack.
func (s *Segment) push(f VMFrame) {
	s.Frames = append(s.Frames, f)
}

// pop removes and returns the top frame, or nil if the segment is empty.
func (s *Segment) pop() VMFrame {
	n := len(s.Frames)
	if n == 0 {
		return nil
	}
	f := s.Frames[n-1]
	s.Frames = s.Frames[:n-1]
	return f
}

// top returns the top frame without removing it, or nil if empty.
func (s *Segment) top() VMFrame {
	if n := len(s.Frames); n > 0 {
		return s.Frames[n-1]
	}
	return nil
}

func (s *Segment) empty() bool { return len(s.Frames) == 0 }
