// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

import "fmt"

// ErrorKind classifies an EngineError, mirroring the small closed set of
// ways this engine can fail that aren't an ordinary thrown exception from
// user code.
type ErrorKind int

const (
	// KindUnhandledEffect: no installed handler's CanHandle accepted the
	// effect anywhere in the visible scope chain.
	KindUnhandledEffect ErrorKind = iota
	// KindOneShotViolation: a continuation was Resumed or Transferred a
	// second time.
	KindOneShotViolation
	// KindStaleContinuation: a continuation's dispatch has already
	// completed (its DispatchId no longer has a live entry) when
	// Resume/Transfer targets it.
	KindStaleContinuation
	// KindDelegatePastChain: Delegate was called with no further handler
	// left in the current dispatch's chain, or outside any handler body.
	KindDelegatePastChain
	// KindTypeError: a suspended operation classified as neither a
	// control primitive nor an Effect, an unrecognized frame kind or
	// control primitive, or GetContinuation/GetHandlers used outside a
	// handler body.
	KindTypeError
	// KindInvalidEntry: Run/RunAsync was given a Program that isn't
	// actually a fresh, unstarted kleisli-program call, or RunAsync
	// constraints were otherwise violated at the boundary.
	KindInvalidEntry
	// KindHostProtocolViolation: a driver's ReceiveHostResult didn't
	// match what the pending host call actually asked for.
	KindHostProtocolViolation
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnhandledEffect:
		return "UnhandledEffect"
	case KindOneShotViolation:
		return "OneShotViolation"
	case KindStaleContinuation:
		return "StaleContinuation"
	case KindDelegatePastChain:
		return "DelegatePastChain"
	case KindTypeError:
		return "TypeError"
	case KindInvalidEntry:
		return "InvalidEntry"
	case KindHostProtocolViolation:
		return "HostProtocolViolation"
	default:
		return "Unknown"
	}
}

// EngineError is the error type every engine-level failure is reported as.
// It wraps an optional underlying cause and carries enough context to let
// a host present a useful diagnostic without walking Go stack traces.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Effect  Effect // set for KindUnhandledEffect
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("kont: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("kont: %s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Cause }

func newEngineError(kind ErrorKind, msg string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(msg, args...)}
}

func unhandledEffectError(e Effect) *EngineError {
	return &EngineError{Kind: KindUnhandledEffect, Message: fmt.Sprintf("no handler accepted effect %s", e.TypeName()), Effect: e}
}
