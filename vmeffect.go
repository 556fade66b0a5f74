// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// Effect is the engine's tagged effect union: standard effects
// (Get/Put/Modify/Ask/Tell), scheduler effects, and opaque host effects the
// core cannot interpret. Every variant carries a TypeName used purely for
// diagnostics (unhandled-effect errors, debug tracing) — the core never
// branches on it.
type Effect interface {
	isEffect()
	TypeName() string
}

// --- Standard effects ---------------------------------------------------

// GetEffect reads the L2 state map under Key.
type GetEffect struct{ Key string }

func (GetEffect) isEffect()          {}
func (GetEffect) TypeName() string   { return "Get" }

// PutEffect replaces the L2 state map entry under Key.
type PutEffect struct {
	Key string
	Val Value
}

func (PutEffect) isEffect()        {}
func (PutEffect) TypeName() string { return "Put" }

// ModifyEffect applies F to the current value under Key and stores the
// result, resuming with the new value.
type ModifyEffect struct {
	Key string
	F   func(Value) Value
}

func (ModifyEffect) isEffect()        {}
func (ModifyEffect) TypeName() string { return "Modify" }

// AskEffect reads the read-only env map under Key.
type AskEffect struct{ Key string }

func (AskEffect) isEffect()        {}
func (AskEffect) TypeName() string { return "Ask" }

// TellEffect appends Message to the L2 log.
type TellEffect struct{ Message Value }

func (TellEffect) isEffect()        {}
func (TellEffect) TypeName() string { return "Tell" }

// --- Opaque host effect ---------------------------------------------------

// OpaqueEffect wraps a host-language object the core cannot interpret. A
// host embedding this engine must never smuggle a raw host value into a
// Program any other way.
type OpaqueEffect struct {
	Obj  any
	Type string
}

func (OpaqueEffect) isEffect()          {}
func (o OpaqueEffect) TypeName() string { return o.Type }

// standardHandler dispatches the five standard effects against the VM's
// L2 store. It never short-circuits: every standard effect resumes.
//
// Grounded on the teacher's state.go/reader.go/writer.go Dispatch* methods
// (switch-on-concrete-type against a mutable region), generalized from a
// single typed slot to keyed string->Value maps.
type standardHandler struct{}

func (standardHandler) CanHandle(e Effect) bool {
	switch e.(type) {
	case GetEffect, PutEffect, ModifyEffect, AskEffect, TellEffect:
		return true
	default:
		return false
	}
}

func (standardHandler) Identity() any { return standardHandlerIdentity{} }

// standardHandlerIdentity is the host-identity GetHandlers reports for the
// implicit standard handler, distinguishing it from user-installed handlers
// by reference equality.
type standardHandlerIdentity struct{}

// Invoke performs the standard effect against store and returns a Program
// that immediately resumes the call site with the result — standard
// effects never delegate or transfer.
func (standardHandler) Invoke(vm *VM, e Effect, k *Continuation) Program {
	var result Value
	switch o := e.(type) {
	case GetEffect:
		result = vm.state.get(o.Key)
	case PutEffect:
		vm.state.put(o.Key, o.Val)
		result = Unit{}
	case ModifyEffect:
		next := o.F(vm.state.get(o.Key))
		vm.state.put(o.Key, next)
		result = next
	case AskEffect:
		result = vm.env[o.Key]
	case TellEffect:
		vm.log = append(vm.log, o.Message)
		result = Unit{}
	default:
		result = Unit{}
	}
	return ExprResume(k, result)
}
