// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package stream implements push-based observable streams and a set of
// operators for composing them.
package stream

import (
	"context"
)

type Observable[T any] interface {
	// Observe starts observing a stream of T's.
	// 'next' is called on each element. 'complete' is called once when the
	// stream ends: with nil when it completed, or with the error that
	// terminated it.
	//
	// Implementations of Observe() must maintain the following invariants:
	// - 'next' and 'complete' are never called concurrently.
	// - 'complete' is called at most once and 'next' is not called after it.
	// - Observe returns once the stream has been set up, e.g. after emitting
	//   the items that are immediately available. Items that arrive later
	//   (events, timers, responses) are delivered from the context that
	//   produced them.
	//
	// When 'ctx' is cancelled the stream stops and releases its resources
	// without calling 'complete'. Cancellation is how an observation is
	// disposed of, so observers must not depend on a final notification.
	Observe(ctx context.Context, next func(T), complete func(error))
}

// FuncObservable wraps a function that implements Observe. Convenience when declaring
// a struct to implement Observe() is overkill.
type FuncObservable[T any] func(context.Context, func(T), func(error))

func (f FuncObservable[T]) Observe(ctx context.Context, next func(T), complete func(error)) {
	f(ctx, next, complete)
}

// Observer receives the notifications of a subscription.
type Observer[T any] interface {
	OnNext(T)
	OnError(error)
	OnComplete()
}

// ObserverFuncs implements Observer with optional callbacks. A nil
// callback ignores the notification.
type ObserverFuncs[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

func (o ObserverFuncs[T]) OnNext(x T) {
	if o.Next != nil {
		o.Next(x)
	}
}

func (o ObserverFuncs[T]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

func (o ObserverFuncs[T]) OnComplete() {
	if o.Complete != nil {
		o.Complete()
	}
}

// OnNextFunc is an Observer that only cares about the items.
func OnNextFunc[T any](f func(T)) Observer[T] {
	return ObserverFuncs[T]{Next: f}
}
