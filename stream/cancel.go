// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"sync"
)

// cancelScope tracks the cancel hooks registered against a context created
// by withCancel. Cancelling the scope runs the hooks before returning, so
// that timers and observer registrations are released by the time Dispose
// returns. context.AfterFunc alone runs them later on a new goroutine.
type cancelScope struct {
	mu        sync.Mutex
	cancelled bool
	hooks     map[*cancelHook]struct{}
}

type cancelScopeKey struct{}

type cancelHook struct {
	once  sync.Once
	scope *cancelScope
	fn    func()
}

func (h *cancelHook) run() {
	h.once.Do(func() {
		h.scope.remove(h)
		h.fn()
	})
}

// add registers the hook. Returns false if the scope was already cancelled.
func (s *cancelScope) add(h *cancelHook) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return false
	}
	s.hooks[h] = struct{}{}
	return true
}

func (s *cancelScope) remove(h *cancelHook) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.hooks, h)
	s.mu.Unlock()
}

func (s *cancelScope) cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for h := range hooks {
		h.run()
	}
}

// withCancel is context.WithCancel for contexts handed to upstreams. The
// returned cancel function runs the hooks registered with onCancel on the
// context or its descendants before it returns.
func withCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelCtx := context.WithCancel(parent)
	scope := &cancelScope{hooks: map[*cancelHook]struct{}{}}
	ctx = context.WithValue(ctx, cancelScopeKey{}, scope)

	cancel := func() {
		cancelCtx()
		scope.cancel()
	}
	stop := onCancel(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// onCancel runs 'fn' once when 'ctx' is cancelled. If the cancellation goes
// through withCancel, 'fn' has run when the cancel function returns,
// otherwise it runs asynchronously as with context.AfterFunc. 'stop'
// unregisters 'fn' if it has not run yet.
func onCancel(ctx context.Context, fn func()) (stop func()) {
	h := &cancelHook{fn: fn}
	h.scope, _ = ctx.Value(cancelScopeKey{}).(*cancelScope)
	if !h.scope.add(h) {
		h.run()
		return func() {}
	}
	stopAfter := context.AfterFunc(ctx, h.run)
	return func() {
		stopAfter()
		h.scope.remove(h)
	}
}
