// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"sync"
	"time"
)

//
// Sources, e.g. operators that create new observables.
//

// Just creates an observable with a single item.
func Just[T any](item T) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			next(item)
			complete(nil)
		})
}

// Stuck creates an observable that never emits anything and never
// completes. Mainly meant for testing.
func Stuck[T any]() Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
		})
}

// Error creates an observable that fails immediately with given error.
func Error[T any](err error) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			complete(err)
		})
}

// Empty creates an empty observable that completes immediately.
func Empty[T any]() Observable[T] {
	return Error[T](nil)
}

// FromSlice converts a slice into an Observable.
func FromSlice[T any](items []T) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			for _, item := range items {
				if ctx.Err() != nil {
					return
				}
				next(item)
			}
			if ctx.Err() == nil {
				complete(nil)
			}
		})
}

// FromFunction creates an observable that emits the result of calling 'f'
// on each observation.
func FromFunction[T any](f func() T) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			next(f())
			complete(nil)
		})
}

// Range creates an observable that emits integers in range from...to-1.
func Range(from, to int) Observable[int] {
	return FuncObservable[int](
		func(ctx context.Context, next func(int), complete func(error)) {
			for i := from; i < to; i++ {
				if ctx.Err() != nil {
					return
				}
				next(i)
			}
			if ctx.Err() == nil {
				complete(nil)
			}
		})
}

// FromChannel creates an observable from a channel. The channel is consumed
// by the first observer. Items are delivered from a goroutine owned by the
// observation, which exits when the channel is closed or 'ctx' is cancelled.
func FromChannel[T any](in <-chan T) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case v, ok := <-in:
						if !ok {
							complete(nil)
							return
						}
						if ctx.Err() != nil {
							return
						}
						next(v)
					}
				}
			}()
		})
}

// Interval emits an increasing counter value every 'period' on the
// scheduler.
func Interval(period time.Duration, sched Scheduler) Observable[int] {
	return FuncObservable[int](
		func(ctx context.Context, next func(int), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			var (
				mu     sync.Mutex
				cancel func()
				i      int
				tick   func()
			)
			tick = func() {
				if ctx.Err() != nil {
					return
				}
				next(i)
				i++
				mu.Lock()
				if ctx.Err() == nil {
					cancel = sched.Schedule(period, tick)
				}
				mu.Unlock()
			}
			mu.Lock()
			cancel = sched.Schedule(period, tick)
			mu.Unlock()

			onCancel(ctx, func() {
				mu.Lock()
				cancel()
				mu.Unlock()
			})
		})
}

// Timer emits a single Unit after 'delay' and completes.
func Timer(delay time.Duration, sched Scheduler) Observable[Unit] {
	return FuncObservable[Unit](
		func(ctx context.Context, next func(Unit), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			cancel := sched.Schedule(delay, func() {
				if ctx.Err() != nil {
					return
				}
				next(Unit{})
				complete(nil)
			})
			onCancel(ctx, cancel)
		})
}
