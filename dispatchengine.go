// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// visibleHandlers searches the scope chain of segID, innermost marker
// first, for every registered handler willing to accept e. At most one
// busy boundary is excluded: the first matching handler (innermost first)
// whose own prompt segment is currently running (Busy) is skipped, letting
// the search fall through to an enclosing handler of the same effect
// instead of re-entering the handler that is itself in the middle of
// handling something. Matching handlers after that one are included
// regardless of their own busy state.
func (vm *VM) visibleHandlers(segID SegmentId, e Effect) []*registryEntry {
	chain := vm.segments.get(segID).ScopeChain
	var candidates []*registryEntry
	skippedBusy := false
	for i := len(chain) - 1; i >= 0; i-- {
		entry, ok := vm.handlers.get(chain[i])
		if !ok || !entry.handler.CanHandle(e) {
			continue
		}
		if !skippedBusy {
			if vm.segments.get(entry.promptSegID).Busy {
				skippedBusy = true
				continue
			}
		}
		candidates = append(candidates, entry)
	}
	return candidates
}

// captureUpTo walks from a performing segment up the caller chain,
// cloning each segment's frame stack, stopping just before stopAt (the
// handler's own prompt-boundary segment is never included — it carries no
// frames of the performer's computation).
func (vm *VM) captureUpTo(from SegmentId, stopAt SegmentId) ([][]VMFrame, []PromptMarker) {
	var frames [][]VMFrame
	cur := from
	for {
		seg := vm.segments.get(cur)
		frames = append(frames, cloneFrames(seg.Frames))
		if seg.Caller == nil || *seg.Caller == stopAt {
			return frames, cloneScopeChain(seg.ScopeChain)
		}
		cur = *seg.Caller
	}
}

// startDispatch begins dispatching effect e performed in performingSeg: it
// finds the visible handler chain, captures the call-site continuation,
// pushes a fresh DispatchContext, and invokes the innermost candidate.
func (vm *VM) startDispatch(performingSeg SegmentId, e Effect) {
	chain := vm.visibleHandlers(performingSeg, e)
	if len(chain) == 0 {
		vm.pendingMode = ModeThrow
		vm.pendingErr = unhandledEffectError(e)
		return
	}
	d := &DispatchContext{
		id:                vm.freshDispatchId(),
		effect:            e,
		performingSegment: performingSeg,
		chain:             chain,
	}
	frames, scope := vm.captureUpTo(performingSeg, chain[0].promptSegID)
	d.siteContinuation = capturedContinuation(vm.freshContinuationId(), frames, scope, d.id)
	vm.dispatch.push(d)
	vm.segments.get(chain[0].promptSegID).Busy = true
	vm.invokeHandler(d)
}

// invokeHandler runs (or schedules, for a HostHandler) the handler at
// d.delegateIndex.
func (vm *VM) invokeHandler(d *DispatchContext) {
	entry := d.chain[d.delegateIndex]
	if hh, ok := entry.handler.(*HostHandler); ok {
		vm.pendingHostDispatch = d.id
		vm.pendingHost = &PendingHostCall{Kind: HostCallCallHandler, Handler: hh, Effect: d.effect, Cont: d.siteContinuation}
		return
	}
	program := entry.handler.Invoke(vm, d.effect, d.siteContinuation)
	vm.startHandlerBody(d, entry, program)
}

// startHandlerBody allocates the segment that runs a handler's response
// program and records it on d.handlerSeg so Resume knows where to deliver
// its result.
func (vm *VM) startHandlerBody(d *DispatchContext, entry *registryEntry, program Program) {
	caller := entry.promptSegID
	promptSeg := vm.segments.get(entry.promptSegID)
	seg := newSegment(SegmentNormal, &caller, cloneScopeChain(promptSeg.ScopeChain))
	did := d.id
	seg.DispatchOf = &did
	seg.push(&NativeHandlerProgramFrame{Coroutine: newCoroutine(program)})
	id := vm.segments.alloc(seg)
	d.handlerSeg = &id

	vm.active = id
	vm.pendingMode = ModeDeliver
	vm.pendingValue = Unit{}
}

// receiveHostHandlerResult completes a CallHandler host call by starting
// the body the driver produced.
func (vm *VM) receiveHostHandlerResult(program Program) {
	d := vm.dispatch.get(vm.pendingHostDispatch)
	entry := d.chain[d.delegateIndex]
	vm.startHandlerBody(d, entry, program)
}

// handleDelegate advances the current dispatch to the next handler in its
// chain, optionally substituting a different effect.
func (vm *VM) handleDelegate(op delegateOp) {
	seg := vm.segments.get(vm.active)
	if seg.DispatchOf == nil {
		vm.pendingMode = ModeThrow
		vm.pendingErr = newEngineError(KindDelegatePastChain, "delegate called outside a handler body")
		return
	}
	d := vm.dispatch.get(*seg.DispatchOf)
	if op.Effect != nil {
		d.effect = op.Effect
	}
	d.delegateIndex++
	if d.delegateIndex >= len(d.chain) {
		vm.pendingMode = ModeThrow
		vm.pendingErr = newEngineError(KindDelegatePastChain, "no further handler for effect %s", d.effect.TypeName())
		return
	}
	vm.invokeHandler(d)
}

// doResumeOrTransfer implements both Resume and Transfer: Resume returns
// control to the handler body once the continuation's computation
// finishes; Transfer abandons the handler body, returning control instead
// to wherever the enclosing WithHandler was itself called from.
func (vm *VM) doResumeOrTransfer(k *Continuation, v Value, isResume bool) {
	if !k.markUsed() {
		vm.pendingMode = ModeThrow
		vm.pendingErr = newEngineError(KindOneShotViolation, "continuation already resumed or transferred")
		return
	}

	var returnTo *SegmentId
	if k.hasOwner {
		d := vm.dispatch.get(k.ownerDispatch)
		if d == nil || d.completed {
			vm.pendingMode = ModeThrow
			vm.pendingErr = newEngineError(KindStaleContinuation, "dispatch for this continuation has already completed")
			return
		}
		if isResume {
			returnTo = d.handlerSeg
		} else {
			d.completed = true
			vm.dispatch.lazyPopCompleted()
			entry := d.chain[d.delegateIndex]
			returnTo = vm.segments.get(entry.promptSegID).Caller
		}
	} else {
		cur := vm.active
		returnTo = &cur
	}

	var target SegmentId
	if len(k.capturedFrames) == 0 {
		target = vm.startUnstartedContinuation(k, returnTo)
		vm.pendingValue = Unit{}
	} else {
		target = vm.restoreCaptured(k, returnTo)
		vm.pendingValue = v
	}
	vm.active = target
	vm.pendingMode = ModeDeliver
}

// restoreCaptured rebuilds a chain of segments from a captured
// continuation's frame snapshots, linking the outermost to returnTo and
// returning the innermost segment's id (where delivery should begin).
func (vm *VM) restoreCaptured(k *Continuation, returnTo *SegmentId) SegmentId {
	callerID := returnTo
	var innermost SegmentId
	for i := len(k.capturedFrames) - 1; i >= 0; i-- {
		seg := newSegment(SegmentNormal, callerID, cloneScopeChain(k.scopeChain))
		seg.Frames = cloneFrames(k.capturedFrames[i])
		id := vm.segments.alloc(seg)
		c := id
		callerID = &c
		innermost = id
	}
	return innermost
}

// startUnstartedContinuation installs k's handlers in fresh prompt
// boundaries rooted at returnTo and starts k's program in a segment under
// them, for a continuation that was never captured from a live dispatch.
func (vm *VM) startUnstartedContinuation(k *Continuation, returnTo *SegmentId) SegmentId {
	base := returnTo
	scope := cloneScopeChain(vm.segments.get(*base).ScopeChain)
	for _, h := range k.handlers {
		id, _ := vm.installHandler(*base, h)
		base = &id
		scope = vm.segments.get(id).ScopeChain
	}
	bodyCaller := *base
	seg := newSegment(SegmentNormal, &bodyCaller, cloneScopeChain(scope))
	seg.push(&HostCoroutineFrame{Coroutine: newCoroutine(k.program)})
	return vm.segments.alloc(seg)
}

// handleWithHandler installs handler at a fresh prompt boundary and runs
// body underneath it, both rooted at the currently active segment.
func (vm *VM) handleWithHandler(o withHandlerOp) {
	caller := vm.active
	promptID, _ := vm.installHandler(caller, o.Handler)
	bodyCaller := promptID
	bodySeg := newSegment(SegmentNormal, &bodyCaller, cloneScopeChain(vm.segments.get(promptID).ScopeChain))
	bodySeg.push(&HostCoroutineFrame{Coroutine: newCoroutine(o.Body)})
	bodyID := vm.segments.alloc(bodySeg)

	vm.active = bodyID
	vm.pendingMode = ModeDeliver
	vm.pendingValue = Unit{}
}
