// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

import "github.com/rs/zerolog"

// store is the keyed, mutable region backing the Get/Put/Modify standard
// effects. It is its own small type, rather than a bare map like env and
// log, because the scheduler effect's Isolated task policy needs to clone
// and later merge a task's view of state without touching the VM's own
// live map — operations a bare map can't express as methods with a single
// call site to audit.
type store struct {
	data map[string]Value
}

func newStore(seed map[string]Value) *store {
	data := make(map[string]Value, len(seed))
	for k, v := range seed {
		data[k] = v
	}
	return &store{data: data}
}

func (s *store) get(key string) Value {
	if v, ok := s.data[key]; ok {
		return v
	}
	return Unit{}
}

func (s *store) put(key string, v Value) {
	s.data[key] = v
}

// snapshot returns an independent copy of the store's contents, used both
// by debug tracing and by the scheduler effect's Isolated merge policy.
func (s *store) snapshot() map[string]Value {
	out := make(map[string]Value, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// clone produces a new store seeded from this one's current contents, for
// an Isolated scheduler task to mutate without affecting its parent.
func (s *store) clone() *store {
	return newStore(s.data)
}

// VM is one instance of the effect-handling engine: its segment arena, the
// handler registry and dispatch stack that give effects meaning, and the
// keyed L2 regions the standard effects read and write. A VM is not safe
// for concurrent use from multiple goroutines; concurrency within a single
// program is expressed through the scheduler effect, not by sharing a VM.
type VM struct {
	markerGen   idGen
	contGen     idGen
	dispatchGen idGen

	segments *segmentArena
	frees    *callbackTable
	handlers *handlerRegistry
	dispatch *dispatchStack

	state *store
	env   map[string]Value
	log   []Value

	// active is the segment currently receiving values/throws; it changes
	// as execution moves between segments during dispatch and resume.
	active SegmentId

	// pendingMode/pendingValue/pendingErr are the step machine's working
	// registers, consulted and updated by (*VM).Step.
	pendingMode  Mode
	pendingValue Value
	pendingErr   error

	pendingHost         *PendingHostCall
	pendingHostDispatch DispatchId

	done    bool
	result  Value
	fatal   error

	scheduler *schedulerState

	// logger is non-nil only when WithLogger was supplied; the hot path never
	// allocates or formats anything when it's nil.
	logger *zerolog.Logger
}

// VMOption configures a VM at construction time.
type VMOption func(*VM)

// WithInitialState seeds the Get/Put/Modify store.
func WithInitialState(seed map[string]Value) VMOption {
	return func(vm *VM) { vm.state = newStore(seed) }
}

// WithLogger attaches a zerolog.Logger the VM uses for step-level trace
// events. Left unset, stepping costs nothing beyond the step itself — no
// allocation, no formatting.
func WithLogger(l zerolog.Logger) VMOption {
	return func(vm *VM) { vm.logger = &l }
}

// WithEnv seeds the read-only Ask map.
func WithEnv(env map[string]Value) VMOption {
	return func(vm *VM) {
		vm.env = make(map[string]Value, len(env))
		for k, v := range env {
			vm.env[k] = v
		}
	}
}

// NewVM constructs an idle VM ready to Run or RunAsync a Program.
func NewVM(opts ...VMOption) *VM {
	vm := &VM{
		segments: newSegmentArena(),
		frees:    newCallbackTable(),
		handlers: newHandlerRegistry(),
		dispatch: newDispatchStack(),
		state:    newStore(nil),
		env:      make(map[string]Value),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.scheduler = newSchedulerState(vm)
	return vm
}

// snapshotState returns a copy of the current Get/Put/Modify store,
// primarily useful for debug tracing and tests.
func (vm *VM) snapshotState() map[string]Value { return vm.state.snapshot() }

// snapshotEnv returns a copy of the current read-only Ask map.
func (vm *VM) snapshotEnv() map[string]Value {
	out := make(map[string]Value, len(vm.env))
	for k, v := range vm.env {
		out[k] = v
	}
	return out
}

// snapshotLog returns a copy of everything Tell has appended so far.
func (vm *VM) snapshotLog() []Value {
	out := make([]Value, len(vm.log))
	copy(out, vm.log)
	return out
}

// installHandler registers h as visible starting from a fresh
// prompt-boundary segment whose caller is current, returning the new
// segment's id and the marker it was registered under.
func (vm *VM) installHandler(current SegmentId, h Handler) (SegmentId, PromptMarker) {
	marker := vm.freshMarker()
	caller := current
	parentScope := vm.segments.get(current).ScopeChain
	scope := append(append([]PromptMarker{}, parentScope...), marker)
	seg := newSegment(SegmentPromptBoundary, &caller, scope)
	seg.HandledMarker = marker
	id := vm.segments.alloc(seg)
	vm.handlers.register(marker, h, id)
	return id, marker
}
