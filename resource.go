// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

import "fmt"

// Resource safety primitives for exception-safe cleanup of a Program run.
//
// The Cont-world Bracket/OnError ran under a lazy Either-returning monad:
// release was just another continuation link, composed before the whole
// chain was ever driven. A Program has no such built-in exception channel —
// failure only becomes visible as the (Value, error) Run returns or a Go
// panic escaping a handler — so these adapt the same acquire/use/release
// shape to run eagerly against a concrete *VM, with release guaranteed by
// a Go-level defer/recover instead of monadic composition.

// OnError runs body to completion on vm and calls cleanup with the
// resulting error if Run failed or body's evaluation panicked. A panic is
// re-raised after cleanup returns; Run's ordinary error is not.
func OnError(vm *VM, body Program, cleanup func(error)) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			cleanup(fmt.Errorf("kont: panic during guarded run: %v", r))
			panic(r)
		}
	}()
	result, err = Run(vm, body)
	if err != nil {
		cleanup(err)
	}
	return result, err
}

// Bracket runs acquire to obtain a resource value, then use(resource),
// guaranteeing release(resource, err) runs afterward whether use finished,
// returned an error, or panicked — mirroring the acquire/use/release
// pattern, built on OnError for the failure half.
func Bracket(vm *VM, acquire Program, use func(Value) Program, release func(resource Value, err error)) (Value, error) {
	resource, err := Run(vm, acquire)
	if err != nil {
		return nil, err
	}
	result, err := OnError(vm, use(resource), func(e error) { release(resource, e) })
	if err == nil {
		release(resource, nil)
	}
	return result, err
}
