// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// Run drives program to completion on a fresh bottom segment, servicing
// any HostHandler round trips synchronously and itself, and returns the
// final value or the first unrecovered error. It never returns
// StepNeedsHost to its own caller — unlike RunAsync, Run is the engine's
// fully synchronous entry point, suited to programs whose handlers are all
// plain Go functions with no need to cross an actual asynchronous
// boundary.
func Run(vm *VM, program Program) (Value, error) {
	vm.startTopLevel(program)
	for {
		switch vm.Step() {
		case StepDone:
			if vm.fatal != nil {
				return nil, vm.fatal
			}
			return vm.Result(), nil
		case StepError:
			return nil, vm.Err()
		case StepNeedsHost:
			vm.serviceHostCallInline()
		case StepContinue:
			// loop
		}
	}
}

// RunAsync starts program on a fresh bottom segment and returns the VM
// without driving it to completion, for a caller that wants to pump
// Step/ReceiveHostResult itself — e.g. an embedding host whose
// HostHandlers genuinely cross a goroutine or network boundary.
func RunAsync(vm *VM, program Program) *VM {
	vm.startTopLevel(program)
	return vm
}

// startTopLevel installs the implicit standard-effects handler (Get, Put,
// Modify, Ask, Tell) as the outermost prompt boundary and runs program
// beneath it, so a program never needs to install State/Reader/Writer by
// hand before it can use the L2 store.
func (vm *VM) startTopLevel(program Program) {
	root := newSegment(SegmentNormal, nil, nil)
	rootID := vm.segments.alloc(root)
	promptID, _ := vm.installHandler(rootID, standardHandler{})

	bodyCaller := promptID
	body := newSegment(SegmentNormal, &bodyCaller, cloneScopeChain(vm.segments.get(promptID).ScopeChain))
	body.push(&HostCoroutineFrame{Coroutine: newCoroutine(program)})
	bodyID := vm.segments.alloc(body)

	vm.active = bodyID
	vm.pendingMode = ModeDeliver
	vm.pendingValue = Unit{}
}

// serviceHostCallInline handles a pending HostHandler call without
// involving an external driver, used by the synchronous Run entry point.
func (vm *VM) serviceHostCallInline() {
	pending := vm.pendingHost
	switch pending.Kind {
	case HostCallCallHandler:
		program := pending.Handler.Fn(pending.Effect, pending.Cont)
		vm.ReceiveHostResult(HostCallOutcome{Program: program, HasProgram: true})
	default:
		vm.fatal = newEngineError(KindHostProtocolViolation, "Run cannot service host call kind %v without a driver", pending.Kind)
	}
}
