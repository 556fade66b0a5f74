// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// handleCtrl dispatches a freshly yielded control primitive.
func (vm *VM) handleCtrl(op ctrlOp) {
	switch o := op.(type) {
	case resumeOp:
		vm.doResumeOrTransfer(o.K, o.V, true)
	case transferOp:
		vm.doResumeOrTransfer(o.K, o.V, false)
	case delegateOp:
		vm.handleDelegate(o)
	case withHandlerOp:
		vm.handleWithHandler(o)
	case callOp:
		vm.handleCall(o)
	case evalOp:
		vm.handleEval(o)
	case createContinuationOp:
		vm.handleCreateContinuation(o)
	case resumeContinuationOp:
		vm.handleResumeContinuation(o)
	case getContinuationOp:
		vm.handleGetContinuation()
	case getHandlersOp:
		vm.handleGetHandlers()
	case getCallStackOp:
		vm.handleGetCallStack()
	default:
		vm.fatal = newEngineError(KindTypeError, "unrecognized control primitive %T", op)
	}
}

func (vm *VM) handleCreateContinuation(o createContinuationOp) {
	id := vm.freshContinuationId()
	k := unstartedContinuation(id, o.Body, o.Handlers)
	vm.pendingValue = ContinuationValue{Cont: k}
	vm.pendingMode = ModeDeliver
}

func (vm *VM) handleResumeContinuation(o resumeContinuationOp) {
	vm.doResumeOrTransfer(o.K, o.V, true)
}

func (vm *VM) handleEval(o evalOp) {
	id := vm.freshContinuationId()
	k := unstartedContinuation(id, o.Body, o.Handlers)
	vm.doResumeOrTransfer(k, Unit{}, true)
}

func (vm *VM) handleGetContinuation() {
	seg := vm.segments.get(vm.active)
	if seg.DispatchOf == nil {
		vm.pendingMode = ModeThrow
		vm.pendingErr = newEngineError(KindTypeError, "get-continuation called outside a handler body")
		return
	}
	d := vm.dispatch.get(*seg.DispatchOf)
	vm.pendingValue = ContinuationValue{Cont: d.siteContinuation}
	vm.pendingMode = ModeDeliver
}

func (vm *VM) handleGetHandlers() {
	seg := vm.segments.get(vm.active)
	if seg.DispatchOf == nil {
		vm.pendingMode = ModeThrow
		vm.pendingErr = newEngineError(KindTypeError, "get-handlers called outside a handler body")
		return
	}
	d := vm.dispatch.get(*seg.DispatchOf)
	ids := make([]any, len(d.chain))
	for i, e := range d.chain {
		ids[i] = e.hostIdentity
	}
	vm.pendingValue = HandlerListValue{Handlers: ids}
	vm.pendingMode = ModeDeliver
}

func (vm *VM) handleGetCallStack() {
	var frames []CallMetadata
	cur := vm.active
	for {
		seg := vm.segments.get(cur)
		for i := len(seg.Frames) - 1; i >= 0; i-- {
			if hf, ok := seg.Frames[i].(*HostCoroutineFrame); ok && hf.Metadata != nil {
				frames = append(frames, *hf.Metadata)
			}
		}
		if seg.Caller == nil {
			break
		}
		cur = *seg.Caller
	}
	vm.pendingValue = CallStackValue{Frames: frames}
	vm.pendingMode = ModeDeliver
}

// handleCall resolves a kleisli-program call's arguments, evaluating any
// nested DoExpr arguments in order before invoking the call's function,
// then runs the resulting body in a fresh segment tagged with the call's
// CallMetadata so GetCallStack can report it.
func (vm *VM) handleCall(o callOp) {
	vm.resolveCallArgs(o, 0, nil, nil)
}

// resolveCallArgs evaluates positional then keyword arguments strictly in
// order: a nested Program argument is itself driven to completion (with
// its own effects dispatched normally, since a deferred argument may
// legitimately perform effects) before the next argument begins.
func (vm *VM) resolveCallArgs(o callOp, idx int, args []Value, kwargs map[string]Value) {
	if args == nil {
		args = make([]Value, 0, len(o.Args))
	}
	for i := idx; i < len(o.Args); i++ {
		a := o.Args[i]
		if !a.IsExpr {
			args = append(args, a.Value)
			continue
		}
		vm.runNestedArg(a.Expr, func(v Value) {
			vm.resolveCallArgs(o, i+1, append(args, v), kwargs)
		})
		return
	}
	if kwargs == nil {
		kwargs = make(map[string]Value, len(o.Kwargs))
	}
	for _, kw := range o.Kwargs {
		if _, done := kwargs[kw.Name]; done {
			continue
		}
		if !kw.Arg.IsExpr {
			kwargs[kw.Name] = kw.Arg.Value
			vm.resolveCallArgs(callOp{Fn: o.Fn, Args: nil, Kwargs: o.Kwargs, Metadata: o.Metadata}, len(o.Args), args, kwargs)
			return
		}
		vm.runNestedArg(kw.Arg.Expr, func(v Value) {
			kwargs[kw.Name] = v
			vm.resolveCallArgs(callOp{Fn: o.Fn, Args: nil, Kwargs: o.Kwargs, Metadata: o.Metadata}, len(o.Args), args, kwargs)
		})
		return
	}
	vm.startCallBody(o, args, kwargs)
}

// runNestedArg drives a nested argument Program to completion inline
// (native callback), then hands the resulting Value to cont.
func (vm *VM) runNestedArg(p Program, cont func(Value)) {
	seg := vm.segments.get(vm.active)
	cbID := vm.frees.insert(func(v Value) Mode {
		cont(v)
		return vm.pendingMode
	})
	seg.push(NativeReturnFrame{Callback: cbID})
	seg.push(&HostCoroutineFrame{Coroutine: newCoroutine(p)})
	vm.pendingMode = ModeDeliver
	vm.pendingValue = Unit{}
}

func (vm *VM) startCallBody(o callOp, args []Value, kwargs map[string]Value) {
	program := o.Fn(args, kwargs)
	caller := vm.active
	meta := o.Metadata
	seg := newSegment(SegmentNormal, &caller, cloneScopeChain(vm.segments.get(caller).ScopeChain))
	seg.push(&HostCoroutineFrame{Coroutine: newCoroutine(program), Metadata: &meta})
	id := vm.segments.alloc(seg)
	vm.active = id
	vm.pendingMode = ModeDeliver
	vm.pendingValue = Unit{}
}
