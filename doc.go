// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kont implements a segment-based algebraic effect VM: a stepping
// engine (the [VM] type) that drives a [Program] — a defunctionalized tree
// of effects, binds and handler installations — one suspension at a time,
// dispatching each performed effect to the nearest installed [Handler] up
// the active segment chain.
//
// # Core Evaluation Loop
//
//   - [Program]: the thing a [VM] runs — an alias for Expr[Value]
//   - [NewVM]: construct a VM with [VMOption]s (initial state, env, logger)
//   - [Run]: drive a Program to completion synchronously, servicing any
//     HostHandler round trip itself
//   - [RunAsync]: start a Program and return without driving it, for a
//     caller that wants to pump [VM.Step]/[VM.ReceiveHostResult] itself
//   - [VM.Step]: advance the VM by one [StepEvent]
//     (StepContinue/StepNeedsHost/StepDone/StepError)
//
// # Effects and Handlers
//
// An [Effect] is a tagged union value a Program performs with
// [PerformEffect]; a [Handler] gives it meaning. [NativeHandler] runs
// in-process; [HostHandler] round-trips through the step loop's
// NeedsHost/CallHandler protocol for handler logic an embedding host
// supplies. Five standard effects — Get/Put/Modify/Ask/Tell — are always
// available against the VM's own state/env/log without any program having
// to install a handler for them first; see [GetEffect], [PutEffect],
// [ModifyEffect], [AskEffect], [TellEffect].
//
// # Continuations
//
// [ExprCreateContinuation] snapshots a body and handler set as an unstarted
// continuation without running it;
// [ExprResume] and [ExprTransfer] resume a captured [Continuation] with a
// value. A Continuation is affine: it may be resumed at most once, a
// guarantee enforced through [Affine] (see "Affine Continuations" below)
// and reported as a [KindOneShotViolation] [EngineError] on a second
// attempt.
//
// # Scheduling
//
// [SchedulerHandler] installs opt-in structured concurrency: [SpawnEffect]
// starts a Program on its own goroutine with [PolicyShared] or
// [PolicyIsolated] state visibility, [GatherEffect]/[RaceEffect] join
// spawned [SchedulerTask]s, and [CreatePromiseEffect]/[CompletePromiseEffect]
// model values completed from outside the effect that's waiting on them.
//
// # Closure-World Core
//
// Underneath Program/Expr sits a smaller, closure-based continuation
// monad that the defunctionalized world is built from and converts to/from:
//
//   - [Cont]: a computation in continuation-passing style, Cont[R, A]
//   - [Return], [Pure], [Suspend]: lift values/CPS functions into Cont
//   - [Bind], [Map], [Then]: sequence and transform Cont computations
//   - [RunCont], [RunWith]: drive a Cont to its final result
//   - [Op], [Perform]: F-bounded effect operations and triggering one
//   - [ContHandler], [Handle], [HandleFunc]: F-bounded effect handlers
//
// # Stepping Boundary
//
// [Step] and [StepExpr] provide one-effect-at-a-time evaluation for
// external runtimes that drive computation asynchronously, as an
// alternative to the synchronous trampoline [Handle]/[HandleExpr] runs to
// completion.
//
//   - [Suspension]: pending operation with a one-shot resumption handle
//   - [Suspension.Resume] / [Suspension.TryResume] / [Suspension.Discard]
//
// # Bridge: Reify / Reflect
//
// The closure-based and defunctionalized representations convert at
// runtime following Filinski (1994): [Reify] turns a semantic value
// (Cont) into its syntactic representation (Expr); [Reflect] is the
// inverse. Conversion is lazy for effectful computations — each effect
// step translates on demand as the result is evaluated.
//
// # Defunctionalized Evaluation
//
// Defunctionalization (Reynolds 1972) lets [Expr] carry an explicit frame
// chain ([Frame], [BindFrame], [MapFrame], [ThenFrame], [EffectFrame],
// [ReturnFrame]) instead of nested closures, enabling the pooled,
// allocation-light evaluation loop frame.go/trampoline.go/pool.go share
// with the VM's own segment stepping.
//
//   - [ExprReturn], [ExprBind], [ExprMap], [ExprThen], [ExprPerform],
//     [ExprSuspend]: Expr constructors and combinators
//   - [RunPure]: iteratively evaluate a pure Expr (panics on effects)
//   - [HandleExpr]: evaluate an Expr with an F-bounded handler
//
// # Resource Safety
//
// [Bracket] and [OnError] adapt the acquire/use/release pattern to a
// concrete *VM and Program, guaranteeing a release/cleanup callback runs
// after a Run, success or failure — used by the scheduler's isolated-task
// teardown to fold a finished task's state snapshot back into its parent
// exactly once regardless of how the task's body ended.
//
// # Affine Continuations
//
// [Affine] wraps a resume function with one-shot enforcement, backing
// [Continuation]'s own markUsed check so a Continuation shared across the
// scheduler's spawned goroutines still enforces single-resume atomically.
//
//   - [Once]: wrap a resume function as an Affine
//   - [Affine.Resume] / [Affine.TryResume] / [Affine.Discard]
package kont
