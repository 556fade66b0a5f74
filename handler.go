// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kont

// Handler gives meaning to an effect. CanHandle decides whether this
// handler accepts a given effect during handler search (dispatchengine.go);
// Invoke is called with the effect and the captured call-site continuation
// and returns the Program to run as the handler's body in a fresh
// execution segment.
//
// Two kinds implement Handler:
//   - NativeHandler: invoked synchronously in-process.
//   - HostHandler: invoked through the step loop's NeedsHost/CallHandler
//     round trip, for handler functions supplied by an embedding host
//     rather than written against this package directly.
type Handler interface {
	CanHandle(e Effect) bool
	Invoke(vm *VM, e Effect, k *Continuation) Program
	// Identity returns the host-language object GetHandlers should report
	// for this handler. Stable identity here is what lets user code
	// recognize "the same handler" across a delegate chain.
	Identity() any
}

// NativeHandler adapts a dispatch function into a Handler invoked directly
// by the dispatch engine with no host round trip.
type NativeHandler struct {
	Can    func(Effect) bool
	Run    func(vm *VM, e Effect, k *Continuation) Program
	HostID any
}

func (h *NativeHandler) CanHandle(e Effect) bool { return h.Can(e) }
func (h *NativeHandler) Invoke(vm *VM, e Effect, k *Continuation) Program {
	return h.Run(vm, e, k)
}
func (h *NativeHandler) Identity() any {
	if h.HostID != nil {
		return h.HostID
	}
	return h
}

// HostHandler wraps a handler function that must be invoked through the
// boundary's CallHandler host call. Fn is the function
// the host driver actually calls; it is never invoked directly by the
// dispatch engine — invoke_handler instead sets pending_host_call and
// emits NeedsHost(CallHandler{...}).
type HostHandler struct {
	Can    func(Effect) bool
	Fn     HostHandlerFunc
	HostID any
}

// HostHandlerFunc is the signature a host-supplied handler function must
// satisfy: given the effect and the call-site continuation, it produces
// the handler's body Program. It is invoked by whatever services the
// pending host call (Run's inline servicing in entrypoints.go, or an
// external driver), not by the core directly.
type HostHandlerFunc func(e Effect, k *Continuation) Program

func (h *HostHandler) CanHandle(e Effect) bool { return h.Can(e) }
func (h *HostHandler) Invoke(vm *VM, e Effect, k *Continuation) Program {
	// Never called directly: invoke_handler routes HostHandler through
	// pending_host_call instead (dispatchengine.go's invokeHandler).
	panic("kont: HostHandler.Invoke called directly; must route through NeedsHost(CallHandler)")
}
func (h *HostHandler) Identity() any {
	if h.HostID != nil {
		return h.HostID
	}
	return h
}

// registryEntry is the handler-registry record created at WithHandler time.
type registryEntry struct {
	handler      Handler
	promptSegID  SegmentId
	hostIdentity any
}

// handlerRegistry maps PromptMarker to its registry entry. Entries persist
// for the VM's life; markers are never reused (id.go).
type handlerRegistry struct {
	entries map[PromptMarker]*registryEntry
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{entries: make(map[PromptMarker]*registryEntry)}
}

func (r *handlerRegistry) register(marker PromptMarker, h Handler, promptSeg SegmentId) {
	r.entries[marker] = &registryEntry{handler: h, promptSegID: promptSeg, hostIdentity: h.Identity()}
}

func (r *handlerRegistry) get(marker PromptMarker) (*registryEntry, bool) {
	e, ok := r.entries[marker]
	return e, ok
}
