// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// Program is anything the engine can evaluate one step at a time: an
// effect Perform, a control primitive, or a kleisli-program Call. It is
// the teacher's defunctionalized Expr, instantiated at the engine's own
// Value union instead of an arbitrary host type — a small per-program
// interpreter that runs user-written monadic programs and produces the
// same yield events a real host coroutine would, so the rest of the
// engine never needs to know the difference.
//
// Driving a Program one step (via the teacher's StepExpr) yields a
// *Suspension[Value] whose Op() is either a ctrlOp (classified DoCtrl,
// program.go), an Effect (classified Effect, dispatchengine.go), or
// something else entirely (classified Unknown, a type error).
type Program = Expr[Value]

// ProgramReturn lifts a plain Value into an already-completed Program.
func ProgramReturn(v Value) Program { return ExprReturn(v) }

// ProgramBind sequences m into f, threading m's result into f.
func ProgramBind(m Program, f func(Value) Program) Program {
	return ExprBind(m, f)
}

// ProgramThen sequences m before n, discarding m's result.
func ProgramThen(m Program, n Program) Program {
	return ExprThen(m, n)
}

// PerformEffect lifts an Effect into a suspended Program, the Program-level
// counterpart of the teacher's ExprPerform specialized to a single result
// type (Value) instead of a generic Op[O, A] — every effect in this engine
// already produces a Value, so there is no per-operation type parameter to
// thread through the frame chain.
func PerformEffect(e Effect) Program {
	return Program{
		Frame: &EffectFrame[Erased]{
			Operation: e,
			Resume:    identityResume,
			Next:      ReturnFrame{},
		},
	}
}

// ctrlOp marks the control-primitive operation variants recognized by
// classify's first rule. Implementing this interface — rather than Effect
// — is what keeps a control primitive from being mistaken for a
// dispatchable effect.
type ctrlOp interface {
	isCtrl()
}

func performCtrl(op ctrlOp) Program {
	return Program{
		Frame: &EffectFrame[Erased]{
			Operation: op,
			Resume:    identityResume,
			Next:      ReturnFrame{},
		},
	}
}

// --- Control primitive operations -----------------------------------------

type resumeOp struct {
	K *Continuation
	V Value
}

func (resumeOp) isCtrl() {}

// ExprResume resumes continuation k with value v, running from the call
// site k was captured at without reinstalling its handlers.
func ExprResume(k *Continuation, v Value) Program { return performCtrl(resumeOp{K: k, V: v}) }

type transferOp struct {
	K *Continuation
	V Value
}

func (transferOp) isCtrl() {}

// ExprTransfer resumes continuation k with value v, replacing the current
// execution rather than returning to it afterward.
func ExprTransfer(k *Continuation, v Value) Program { return performCtrl(transferOp{K: k, V: v}) }

type delegateOp struct {
	Effect Effect // nil means "no substitution": delegate with the same effect
}

func (delegateOp) isCtrl() {}

// ExprDelegate re-raises the current effect to the next enclosing handler
// in the chain, optionally substituting a different effect. A nil effect
// means no substitution.
func ExprDelegate(effect Effect) Program { return performCtrl(delegateOp{Effect: effect}) }

type withHandlerOp struct {
	Handler Handler
	Body    Program
}

func (withHandlerOp) isCtrl() {}

// ExprWithHandler installs handler around body, giving effects performed
// inside body a place to be dispatched.
func ExprWithHandler(handler Handler, body Program) Program {
	return performCtrl(withHandlerOp{Handler: handler, Body: body})
}

// CallArg is one resolved or deferred Call argument.
type CallArg struct {
	Value Value   // valid when Expr is the zero Program
	Expr  Program // valid when this arg is itself a nested DoExpr
	IsExpr bool
}

// ValueArg wraps a pre-resolved Value as a CallArg.
func ValueArg(v Value) CallArg { return CallArg{Value: v} }

// ExprArg wraps a nested DoExpr as a CallArg.
func ExprArg(p Program) CallArg { return CallArg{Expr: p, IsExpr: true} }

type callOp struct {
	Fn       func([]Value, map[string]Value) Program
	Args     []CallArg
	Kwargs   []kwarg
	Metadata CallMetadata
}

type kwarg struct {
	Name string
	Arg  CallArg
}

func (callOp) isCtrl() {}

// ExprCall constructs a kleisli-program call: f receives the fully-resolved
// positional and keyword arguments and returns the Program to run as the
// call's body.
func ExprCall(f func(args []Value, kwargs map[string]Value) Program, args []CallArg, kwargs map[string]CallArg, metadata CallMetadata) Program {
	kw := make([]kwarg, 0, len(kwargs))
	for name, arg := range kwargs {
		kw = append(kw, kwarg{Name: name, Arg: arg})
	}
	return performCtrl(callOp{Fn: f, Args: args, Kwargs: kw, Metadata: metadata})
}

type evalOp struct {
	Body     Program
	Handlers []Handler
}

func (evalOp) isCtrl() {}

// ExprEval runs body under handlers in one step: atomically a
// CreateContinuation followed by a ResumeContinuation.
func ExprEval(body Program, handlers []Handler) Program {
	return performCtrl(evalOp{Body: body, Handlers: handlers})
}

type createContinuationOp struct {
	Body     Program
	Handlers []Handler
}

func (createContinuationOp) isCtrl() {}

// ExprCreateContinuation produces an unstarted continuation snapshotting
// (body, handlers) without executing anything.
func ExprCreateContinuation(body Program, handlers []Handler) Program {
	return performCtrl(createContinuationOp{Body: body, Handlers: handlers})
}

type resumeContinuationOp struct {
	K *Continuation
	V Value
}

func (resumeContinuationOp) isCtrl() {}

// ExprResumeContinuation resumes k with v: identical to Resume if k was
// already started; installs its handlers and starts the program (ignoring
// v) if k is still unstarted.
func ExprResumeContinuation(k *Continuation, v Value) Program {
	return performCtrl(resumeContinuationOp{K: k, V: v})
}

type getContinuationOp struct{}

func (getContinuationOp) isCtrl() {}

// ExprGetContinuation returns the call-site continuation of the current
// dispatch.
func ExprGetContinuation() Program { return performCtrl(getContinuationOp{}) }

type getHandlersOp struct{}

func (getHandlersOp) isCtrl() {}

// ExprGetHandlers returns the current dispatch's full handler chain as
// host-language identities.
func ExprGetHandlers() Program { return performCtrl(getHandlersOp{}) }

type getCallStackOp struct{}

func (getCallStackOp) isCtrl() {}

// ExprGetCallStack walks segments along caller links collecting
// CallMetadata, innermost first.
func ExprGetCallStack() Program { return performCtrl(getCallStackOp{}) }

// --- Classification --------------------------------------------------------

// yieldKind is the result of classifying a suspended Program's Operation.
type yieldKind int

const (
	yieldCtrl yieldKind = iota
	yieldEffect
	yieldUnknown
)

// classify orders suspension handling: control primitive first, then
// effect, then (for this Go-native engine, whose Call macro already always
// carries metadata) anything else is unknown.
func classify(op Operation) (yieldKind, ctrlOp, Effect) {
	if c, ok := op.(ctrlOp); ok {
		return yieldCtrl, c, nil
	}
	if e, ok := op.(Effect); ok {
		return yieldEffect, nil, e
	}
	return yieldUnknown, nil, nil
}

// programCoroutine is the engine's stand-in for a host-coroutine handle: a
// Program that starts lazily on its first send, plus, once started, the
// live *Suspension[Value] carrying the remaining frame chain. This is the
// concrete representation HostCoroutineFrame and NativeHandlerProgramFrame
// (segment.go) hold.
type programCoroutine struct {
	started bool
	program Program
	susp    *Suspension[Value] // nil until started, and again once done
	done    bool
}

// newCoroutine wraps a not-yet-running Program. Nothing is evaluated until
// the first send.
func newCoroutine(p Program) *programCoroutine {
	return &programCoroutine{program: p}
}

// send delivers v into the coroutine, advancing to its next suspension or
// completion. On the first call, v is ignored and the wrapped Program is
// started fresh. Must not be called once done.
func (c *programCoroutine) send(v Value) (Value, bool) {
	var result Value
	var next *Suspension[Value]
	if !c.started {
		c.started = true
		result, next = StepExpr(c.program)
	} else {
		result, next = c.susp.Resume(v)
	}
	if next == nil {
		c.done = true
		c.susp = nil
		return result, true
	}
	c.susp = next
	return result, false
}

// op returns the operation the coroutine is currently suspended on. Must
// only be called when the coroutine is not done.
func (c *programCoroutine) op() Operation {
	return c.susp.Op()
}
