// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SchedulerPolicy controls how a spawned task's view of the L2 state store
// relates to its parent's.
type SchedulerPolicy int

const (
	// PolicyShared gives the task the same *store as its parent: Put and
	// Modify calls made inside the task are visible to the parent and to
	// siblings immediately.
	PolicyShared SchedulerPolicy = iota
	// PolicyIsolated gives the task its own cloned *store, merged back into
	// the parent only when the task completes, via MergePolicy.
	PolicyIsolated
)

// MergePolicy reconciles an isolated task's final state snapshot with its
// parent's live state when the task completes. It receives the parent's
// current value for a key (Unit{} if absent) and the task's final value,
// and returns the value the parent should end up with.
type MergePolicy func(parentValue, taskValue Value) Value

// LastWriteWinsMerge is the default MergePolicy: the task's value always
// overwrites the parent's.
func LastWriteWinsMerge(_, taskValue Value) Value { return taskValue }

// SchedulerTask is the host-opaque handle returned by Spawn.
type SchedulerTask struct {
	ID     uuid.UUID
	policy SchedulerPolicy
	merge  MergePolicy

	done   chan struct{}
	once   sync.Once
	result Value
	err    error
}

// SchedulerPromise is a handle to a value that will be completed later,
// either by CompletePromise/FailPromise from within the engine or by an
// external source via CreateExternalPromise.
type SchedulerPromise struct {
	ID       uuid.UUID
	done     chan struct{}
	once     sync.Once
	value    Value
	err      error
	external bool
}

// schedulerState holds the scheduler effect's running tasks and an
// errgroup.Group driving them, plus the merge bookkeeping for isolated
// tasks.
type schedulerState struct {
	vm     *VM
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	tasks    map[uuid.UUID]*SchedulerTask
	promises map[uuid.UUID]*SchedulerPromise
}

func newSchedulerState(vm *VM) *schedulerState {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	return &schedulerState{
		vm:       vm,
		group:    g,
		ctx:      gctx,
		cancel:   cancel,
		tasks:    make(map[uuid.UUID]*SchedulerTask),
		promises: make(map[uuid.UUID]*SchedulerPromise),
	}
}

// --- Scheduler effects -----------------------------------------------------

// SpawnEffect starts Body running concurrently on its own VM sharing or
// isolating state per Policy, and resumes with a TaskValue handle.
type SpawnEffect struct {
	Body   Program
	Policy SchedulerPolicy
	Merge  MergePolicy
}

func (SpawnEffect) isEffect()        {}
func (SpawnEffect) TypeName() string { return "Spawn" }

// GatherEffect waits for every task in Tasks to finish and resumes with a
// ListValue of their results, in Tasks order. Task errors are not
// reported: a failed task contributes whatever result it recorded.
type GatherEffect struct{ Tasks []*SchedulerTask }

func (GatherEffect) isEffect()        {}
func (GatherEffect) TypeName() string { return "Gather" }

// RaceEffect resumes as soon as the first of Tasks completes, with that
// task's result.
type RaceEffect struct{ Tasks []*SchedulerTask }

func (RaceEffect) isEffect()        {}
func (RaceEffect) TypeName() string { return "Race" }

// CreatePromiseEffect resumes with a fresh, incomplete PromiseValue.
type CreatePromiseEffect struct{}

func (CreatePromiseEffect) isEffect()        {}
func (CreatePromiseEffect) TypeName() string { return "CreatePromise" }

// CreateExternalPromiseEffect is like CreatePromiseEffect but marks the
// promise as completed from outside the engine (e.g. a callback registered
// with a host I/O library), purely for diagnostics.
type CreateExternalPromiseEffect struct{}

func (CreateExternalPromiseEffect) isEffect()        {}
func (CreateExternalPromiseEffect) TypeName() string { return "CreateExternalPromise" }

// CompletePromiseEffect fulfills Promise with Value, waking anything
// awaiting it.
type CompletePromiseEffect struct {
	Promise *SchedulerPromise
	Value   Value
}

func (CompletePromiseEffect) isEffect()        {}
func (CompletePromiseEffect) TypeName() string { return "CompletePromise" }

// FailPromiseEffect fails Promise with Err.
type FailPromiseEffect struct {
	Promise *SchedulerPromise
	Err     error
}

func (FailPromiseEffect) isEffect()        {}
func (FailPromiseEffect) TypeName() string { return "FailPromise" }

// TaskCompletedEffect resumes with Bool(true) once Task finishes, without
// retrieving its result (useful for fire-and-forget supervision).
type TaskCompletedEffect struct{ Task *SchedulerTask }

func (TaskCompletedEffect) isEffect()        {}
func (TaskCompletedEffect) TypeName() string { return "TaskCompleted" }

// SchedulerHandler returns the reference scheduler effect handler. It is
// not installed automatically — a program opts in with
// ExprWithHandler(SchedulerHandler(), body) exactly like any other
// handler, since not every program needs concurrency.
func SchedulerHandler() Handler { return schedulerHandler{} }

// schedulerHandler dispatches the scheduler effect family.
type schedulerHandler struct{}

func (schedulerHandler) Identity() any { return schedulerHandlerIdentity{} }

type schedulerHandlerIdentity struct{}

func (schedulerHandler) CanHandle(e Effect) bool {
	switch e.(type) {
	case SpawnEffect, GatherEffect, RaceEffect, CreatePromiseEffect,
		CreateExternalPromiseEffect, CompletePromiseEffect, FailPromiseEffect,
		TaskCompletedEffect:
		return true
	default:
		return false
	}
}

func (schedulerHandler) Invoke(vm *VM, e Effect, k *Continuation) Program {
	sched := vm.scheduler
	switch o := e.(type) {
	case SpawnEffect:
		t := sched.spawn(o)
		return ExprResume(k, TaskValue{Task: t})
	case GatherEffect:
		items := sched.gather(o.Tasks)
		return ExprResume(k, ListValue{Items: items})
	case RaceEffect:
		v := sched.race(o.Tasks)
		return ExprResume(k, v)
	case CreatePromiseEffect:
		p := sched.createPromise(false)
		return ExprResume(k, PromiseValue{Promise: p})
	case CreateExternalPromiseEffect:
		p := sched.createPromise(true)
		return ExprResume(k, PromiseValue{Promise: p})
	case CompletePromiseEffect:
		sched.completePromise(o.Promise, o.Value, nil)
		return ExprResume(k, Unit{})
	case FailPromiseEffect:
		sched.completePromise(o.Promise, nil, o.Err)
		return ExprResume(k, Unit{})
	case TaskCompletedEffect:
		<-o.Task.done
		return ExprResume(k, Bool(true))
	default:
		return ExprResume(k, Unit{})
	}
}

func (s *schedulerState) spawn(o SpawnEffect) *SchedulerTask {
	t := &SchedulerTask{ID: uuid.New(), policy: o.Policy, done: make(chan struct{}), merge: o.Merge}
	if t.merge == nil {
		t.merge = LastWriteWinsMerge
	}
	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()

	taskState := s.vm.state
	if o.Policy == PolicyIsolated {
		taskState = s.vm.state.clone()
	}
	taskVM := &VM{
		segments: newSegmentArena(),
		frees:    newCallbackTable(),
		handlers: newHandlerRegistry(),
		dispatch: newDispatchStack(),
		state:    taskState,
		env:      s.vm.env,
	}
	taskVM.scheduler = s

	s.group.Go(func() error {
		defer t.once.Do(func() { close(t.done) })
		// Bracket guarantees mergeBack runs exactly once whether o.Body
		// finished, failed, or panicked, before t.done is closed — an
		// isolated task's state snapshot must always fold back into the
		// parent, success or failure.
		v, err := Bracket(taskVM, ProgramReturn(Unit{}),
			func(Value) Program { return o.Body },
			func(_ Value, _ error) {
				if o.Policy == PolicyIsolated {
					s.mergeBack(taskVM.state, t.merge)
				}
			})
		t.result, t.err = v, err
		return err
	})
	return t
}

// mergeBack folds an isolated task's finished store back into the parent,
// key by key, through the task's MergePolicy.
func (s *schedulerState) mergeBack(taskStore *store, merge MergePolicy) {
	snapshot := taskStore.snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range snapshot {
		current := s.vm.state.get(k)
		s.vm.state.put(k, merge(current, v))
	}
}

func (s *schedulerState) gather(tasks []*SchedulerTask) []Value {
	results := make([]Value, len(tasks))
	for i, t := range tasks {
		<-t.done
		results[i] = t.result
	}
	return results
}

func (s *schedulerState) race(tasks []*SchedulerTask) Value {
	winner := make(chan Value, len(tasks))
	for _, t := range tasks {
		go func(t *SchedulerTask) {
			<-t.done
			select {
			case winner <- t.result:
			default:
			}
		}(t)
	}
	return <-winner
}

func (s *schedulerState) createPromise(external bool) *SchedulerPromise {
	p := &SchedulerPromise{ID: uuid.New(), done: make(chan struct{}), external: external}
	s.mu.Lock()
	s.promises[p.ID] = p
	s.mu.Unlock()
	return p
}

func (s *schedulerState) completePromise(p *SchedulerPromise, v Value, err error) {
	p.value, p.err = v, err
	p.once.Do(func() { close(p.done) })
}

// Wait blocks until every task spawned on this VM's scheduler has finished,
// returning the first task error encountered, if any.
func (vm *VM) Wait() error {
	return vm.scheduler.group.Wait()
}
