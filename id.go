// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

import "sync/atomic"

// Identifier kinds for the engine's internal bookkeeping.
//
// PromptMarker and ContinuationId are never reused for the lifetime of a VM:
// their uniqueness is the sole basis for handler-identity and one-shot
// equality checks across captured state. SegmentId and CallbackId may be
// recycled through free-lists (arena.go) because their consumers are
// scoped to a single segment's lifetime.

// PromptMarker identifies an installed handler's prompt boundary.
type PromptMarker uint64

// SegmentId identifies a slot in the segment arena.
type SegmentId uint64

// ContinuationId identifies a captured continuation snapshot.
type ContinuationId uint64

// DispatchId identifies an entry on the dispatch stack.
type DispatchId uint64

// CallbackId identifies a one-shot callback in the callback table.
type CallbackId uint64

// idGen is a monotonic counter for one id family of one VM instance. A VM
// keeps a separate idGen for markers, continuations and dispatches, so each
// family counts on its own. Ids are unique only within one VM: several VMs
// running concurrently each have independent id spaces and mint the same
// numbers.
type idGen struct {
	next atomic.Uint64
}

func (g *idGen) fresh() uint64 {
	return g.next.Add(1)
}

// freshMarker mints a globally-unique-within-this-VM PromptMarker.
func (vm *VM) freshMarker() PromptMarker {
	return PromptMarker(vm.markerGen.fresh())
}

// freshContinuationId mints a globally-unique-within-this-VM ContinuationId.
func (vm *VM) freshContinuationId() ContinuationId {
	return ContinuationId(vm.contGen.fresh())
}

// freshDispatchId mints a globally-unique-within-this-VM DispatchId.
func (vm *VM) freshDispatchId() DispatchId {
	return DispatchId(vm.dispatchGen.fresh())
}
