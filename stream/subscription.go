// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"

	"go.uber.org/atomic"
)

// Subscription is the handle of an active observation.
type Subscription interface {
	// Dispose stops the observation. No notifications reach the observer
	// after Dispose returns. Calling Dispose more than once has no effect.
	Dispose()

	// Disposed is true once the subscription has been disposed, either
	// explicitly or because the stream terminated.
	Disposed() bool
}

type subscription[T any] struct {
	active   *atomic.Bool
	cancel   context.CancelFunc
	observer Observer[T]
}

func (s *subscription[T]) Dispose() {
	if s.active.CompareAndSwap(true, false) {
		s.cancel()
	}
}

func (s *subscription[T]) Disposed() bool {
	return !s.active.Load()
}

func (s *subscription[T]) next(x T) {
	if s.active.Load() {
		s.observer.OnNext(x)
	}
}

func (s *subscription[T]) complete(err error) {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	// Release the upstreams before telling the observer so that an observer
	// inspecting them sees the final state.
	s.cancel()
	if err != nil {
		s.observer.OnError(err)
	} else {
		s.observer.OnComplete()
	}
}

// Subscribe attaches 'observer' to 'src' and returns the subscription.
// Items that 'src' has immediately available are delivered before Subscribe
// returns.
func Subscribe[T any](src Observable[T], observer Observer[T]) Subscription {
	return SubscribeContext(context.Background(), src, observer)
}

// SubscribeContext is Subscribe with a parent context. Cancelling 'ctx'
// disposes the subscription.
func SubscribeContext[T any](ctx context.Context, src Observable[T], observer Observer[T]) Subscription {
	ctx, cancel := withCancel(ctx)
	sub := &subscription[T]{
		active:   atomic.NewBool(true),
		cancel:   cancel,
		observer: observer,
	}
	onCancel(ctx, sub.Dispose)
	src.Observe(ctx, sub.next, sub.complete)
	return sub
}
