// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// Step advances the VM by exactly one unit of work and reports what
// happened. A driver loop calls Step repeatedly, supplying host call
// results through ReceiveHostResult whenever StepNeedsHost is reported.
func (vm *VM) Step() StepEvent {
	if vm.fatal != nil {
		return StepError
	}
	if vm.done {
		return StepDone
	}
	if vm.pendingHost != nil {
		return StepNeedsHost
	}

	if vm.logger != nil {
		vm.logger.Trace().
			Int("mode", int(vm.pendingMode)).
			Uint64("active_segment", uint64(vm.active)).
			Msg("step")
	}

	switch vm.pendingMode {
	case ModeDeliver:
		vm.stepDeliver()
	case ModeThrow:
		vm.stepThrow()
	case ModeHandleYield:
		vm.stepHandleYield()
	case ModeReturn:
		vm.done = true
	}

	switch {
	case vm.fatal != nil:
		return StepError
	case vm.pendingHost != nil:
		return StepNeedsHost
	case vm.done:
		return StepDone
	default:
		return StepContinue
	}
}

// Result returns the top-level program's final value. Valid only after
// Step has reported StepDone with no fatal error.
func (vm *VM) Result() Value { return vm.result }

// Err returns the engine's fatal error, if Step reported StepError.
func (vm *VM) Err() error { return vm.fatal }

// PendingHostCallInfo returns the host call the VM is currently waiting on, or
// nil if none is pending.
func (vm *VM) PendingHostCallInfo() *PendingHostCall { return vm.pendingHost }

// ReceiveHostResult supplies the result of the pending host call and clears
// it, letting Step make progress again.
func (vm *VM) ReceiveHostResult(outcome HostCallOutcome) {
	pending := vm.pendingHost
	if pending == nil {
		vm.fatal = newEngineError(KindHostProtocolViolation, "no host call is pending")
		return
	}
	vm.pendingHost = nil
	if outcome.Err != nil {
		vm.pendingMode = ModeThrow
		vm.pendingErr = outcome.Err
		return
	}
	switch pending.Kind {
	case HostCallCallHandler:
		if !outcome.HasProgram {
			vm.fatal = newEngineError(KindHostProtocolViolation, "CallHandler result missing a program")
			return
		}
		vm.receiveHostHandlerResult(outcome.Program)
	case HostCallStepCoroutine, HostCallInvokeNative:
		vm.pendingMode = ModeDeliver
		vm.pendingValue = outcome.Value
	default:
		vm.fatal = newEngineError(KindHostProtocolViolation, "unrecognized pending host call kind")
	}
}

// stepDeliver advances the active segment's top frame with pendingValue,
// or, if the segment is empty, pops to its caller (redirecting a handler
// body's completion to the dispatch's performing segment instead).
func (vm *VM) stepDeliver() {
	seg := vm.segments.get(vm.active)
	if seg.empty() {
		if seg.DispatchOf != nil {
			d := vm.dispatch.get(*seg.DispatchOf)
			d.completed = true
			vm.dispatch.lazyPopCompleted()
			vm.active = d.performingSegment
			return
		}
		if seg.Caller == nil {
			vm.done = true
			vm.result = vm.pendingValue
			return
		}
		vm.active = *seg.Caller
		return
	}

	switch f := seg.top().(type) {
	case *HostCoroutineFrame:
		val, done := f.Coroutine.send(vm.pendingValue)
		if done {
			seg.pop()
			vm.pendingValue = val
			return
		}
		vm.pendingMode = ModeHandleYield
	case *NativeHandlerProgramFrame:
		val, done := f.Coroutine.send(vm.pendingValue)
		if done {
			seg.pop()
			vm.pendingValue = val
			return
		}
		vm.pendingMode = ModeHandleYield
	case NativeReturnFrame:
		cb := vm.frees.consume(f.Callback)
		seg.pop()
		vm.pendingMode = cb(vm.pendingValue)
	default:
		vm.fatal = newEngineError(KindTypeError, "unrecognized frame kind %T", f)
	}
}

// stepHandleYield classifies the active segment's current suspension and
// routes it to control-primitive or effect handling.
func (vm *VM) stepHandleYield() {
	seg := vm.segments.get(vm.active)
	var coro *programCoroutine
	switch f := seg.top().(type) {
	case *HostCoroutineFrame:
		coro = f.Coroutine
	case *NativeHandlerProgramFrame:
		coro = f.Coroutine
	default:
		vm.fatal = newEngineError(KindTypeError, "handle-yield on a non-coroutine frame")
		return
	}
	kind, ctrl, eff := classify(coro.op())
	switch kind {
	case yieldCtrl:
		vm.handleCtrl(ctrl)
	case yieldEffect:
		vm.startDispatch(vm.active, eff)
	default:
		vm.pendingMode = ModeThrow
		vm.pendingErr = newEngineError(KindTypeError, "suspended operation is neither a control primitive nor an effect")
	}
}

// stepThrow propagates pendingErr up through the active segment's frame
// stack and, failing any native-return frame that wants to catch it
// (none currently do — exceptions unwind the engine's own stack only;
// user-level Catch is implemented by the ambient Cont/Expr layer, not the
// VM's frame stack), all the way out to the top-level Run/RunAsync caller.
func (vm *VM) stepThrow() {
	seg := vm.segments.get(vm.active)
	if seg.empty() {
		if seg.DispatchOf != nil {
			d := vm.dispatch.get(*seg.DispatchOf)
			d.completed = true
			vm.dispatch.lazyPopCompleted()
			vm.active = d.performingSegment
			return
		}
		if seg.Caller == nil {
			vm.done = true
			vm.fatal = vm.pendingErr
			return
		}
		vm.active = *seg.Caller
		return
	}
	// Any frame on the stack simply propagates the throw further: there is
	// no catching frame kind in this engine's own stack today, so the
	// current frame is discarded and the throw continues outward.
	seg.pop()
}
