// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
	"slices"
	"sync"
)

//
// Sinks: operators that run an observable and send the output somewhere.
//

// ErrEmpty is returned by First when the stream completed without items.
var ErrEmpty = errors.New("stream completed without items")

// ToSlice observes 'src' until it completes and returns the items. If 'ctx'
// is cancelled first, the items seen so far are returned with ctx.Err().
func ToSlice[T any](ctx context.Context, src Observable[T]) (items []T, err error) {
	var mu sync.Mutex
	items = make([]T, 0)
	errs := make(chan error, 1)

	sub := SubscribeContext(ctx, src, ObserverFuncs[T]{
		Next: func(item T) {
			mu.Lock()
			items = append(items, item)
			mu.Unlock()
		},
		Error:    func(err error) { errs <- err },
		Complete: func() { errs <- nil },
	})
	defer sub.Dispose()

	select {
	case err = <-errs:
	default:
		select {
		case err = <-errs:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	mu.Lock()
	defer mu.Unlock()
	return slices.Clone(items), err
}

// First returns the first item from 'src' observable and then disposes it.
func First[T any](ctx context.Context, src Observable[T]) (item T, err error) {
	type result struct {
		item T
		err  error
	}
	results := make(chan result, 1)
	send := func(r result) {
		select {
		case results <- r:
		default:
		}
	}

	sub := SubscribeContext(ctx, src, ObserverFuncs[T]{
		Next:     func(x T) { send(result{item: x}) },
		Error:    func(err error) { send(result{err: err}) },
		Complete: func() { send(result{err: ErrEmpty}) },
	})
	defer sub.Dispose()

	select {
	case r := <-results:
		return r.item, r.err
	default:
	}
	select {
	case r := <-results:
		return r.item, r.err
	case <-ctx.Done():
		err = ctx.Err()
		return
	}
}

// ToChannels converts an observable into an item channel and an error
// channel. Sending an item blocks the producer until it is received or 'ctx'
// is cancelled. When the stream terminates both channels are closed and an
// error (which may be nil) is always sent to the error channel first.
func ToChannels[T any](ctx context.Context, src Observable[T]) (<-chan T, <-chan error) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan T, 1)
	errs := make(chan error, 1)

	var (
		mu     sync.Mutex
		closed bool
	)
	finish := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		closed = true
		cancel()
		close(out)
		errs <- err
		close(errs)
	}
	context.AfterFunc(ctx, func() { finish(ctx.Err()) })

	src.Observe(
		ctx,
		func(item T) {
			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}
			select {
			case out <- item:
			case <-ctx.Done():
			}
		},
		finish)
	return out, errs
}

// CoalesceToChannels is ToChannels for consumers that only care about the
// latest item for each key. Items waiting to be received are replaced by
// newer items with the same key, so a slow consumer skips intermediate
// values. The producer blocks only when 'capacity' distinct keys are
// waiting.
func CoalesceToChannels[K comparable, V any](ctx context.Context, src Observable[V], toKey func(V) K, capacity int) (<-chan V, <-chan error) {
	ctx, cancel := context.WithCancel(ctx)
	queue := newCoalescingQueue[K, V](capacity)
	out := make(chan V)
	errs := make(chan error, 1)
	result := make(chan error, 1)

	go func() {
		defer cancel()
		defer close(errs)
		for {
			_, item, ok := queue.Pop()
			if !ok {
				break
			}
			select {
			case out <- item:
			case <-ctx.Done():
			}
		}
		close(out)
		select {
		case err := <-result:
			errs <- err
		default:
			errs <- ctx.Err()
		}
	}()

	context.AfterFunc(ctx, queue.Close)
	src.Observe(
		ctx,
		func(item V) { queue.Push(toKey(item), item) },
		func(err error) {
			result <- err
			queue.Close()
		})
	return out, errs
}
