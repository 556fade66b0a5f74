// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// Mode is the step machine's current instruction: what the next call to
// step should do.
type Mode int

const (
	// ModeDeliver delivers pendingValue into the segment at the top of
	// the active-segment stack.
	ModeDeliver Mode = iota
	// ModeThrow propagates pendingErr as an exception up through the
	// current frame stack, unwinding native-return frames that don't
	// catch.
	ModeThrow
	// ModeHandleYield classifies and acts on a suspension freshly yielded
	// by a HostCoroutineFrame or NativeHandlerProgramFrame.
	ModeHandleYield
	// ModeReturn delivers the engine's final result to the caller of Run
	// or RunAsync; no further steps are possible.
	ModeReturn
)

// StepEvent is what a single call to (*VM).Step reports back to its
// driver.
type StepEvent int

const (
	// StepContinue means the VM made progress and wants step called
	// again with no input.
	StepContinue StepEvent = iota
	// StepNeedsHost means the VM is waiting on a host call described by
	// PendingHostCall; the driver must supply a result through
	// ReceiveHostResult before stepping further.
	StepNeedsHost
	// StepDone means the top-level program finished; Result holds its
	// final Value (or Err holds its exception).
	StepDone
	// StepError means the engine hit an unrecoverable EngineError;
	// Err holds it.
	StepError
)

// PendingHostCallKind enumerates the handful of operations the step loop
// cannot perform itself and must hand to its driver.
type PendingHostCallKind int

const (
	// HostCallCallHandler asks the driver to invoke a HostHandler's
	// function and feed back the Program it produces.
	HostCallCallHandler PendingHostCallKind = iota
	// HostCallStepCoroutine asks the driver to advance an externally
	// owned coroutine (only used when a HostObject-backed frame, rather
	// than a programCoroutine, is driving a segment).
	HostCallStepCoroutine
	// HostCallInvokeNative asks the driver to run a native-return
	// callback's side effect outside the VM's own call stack.
	HostCallInvokeNative
)

// PendingHostCall describes the single host call the VM is waiting on.
type PendingHostCall struct {
	Kind     PendingHostCallKind
	Handler  *HostHandler
	Effect   Effect
	Cont     *Continuation
	Callback CallbackId
	Value    Value
}

// HostCallOutcome is what a driver hands back through ReceiveHostResult
// after satisfying a PendingHostCall.
type HostCallOutcome struct {
	// Program is the result of HostCallCallHandler: the body to run in
	// the handler's fresh segment.
	Program Program
	HasProgram bool

	// Value is the result of HostCallStepCoroutine or HostCallInvokeNative.
	Value Value

	// Err, if non-nil, aborts the pending host call with an exception
	// instead of a normal result.
	Err error
}
