// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
)

// Map applies a function onto an observable.
func Map[A, B any](src Observable[A], apply func(A) B) Observable[B] {
	return MapErr(src, func(a A) (B, error) { return apply(a), nil })
}

// MapErr applies a fallible function onto an observable. The first error
// returned by 'apply' terminates the stream with that error and stops the
// source.
func MapErr[A, B any](src Observable[A], apply func(A) (B, error)) Observable[B] {
	return FuncObservable[B](
		func(ctx context.Context, next func(B), complete func(error)) {
			ctx, cancel := withCancel(ctx)
			t := newTerminal(cancel, complete)
			src.Observe(
				ctx,
				func(a A) {
					if t.Done() {
						return
					}
					b, err := apply(a)
					if err != nil {
						t.Finish(err)
						return
					}
					next(b)
				},
				func(err error) { t.Finish(err) })
		})
}

// Filter keeps only the elements for which the filter function returns true.
func Filter[T any](src Observable[T], filter func(T) bool) Observable[T] {
	return FilterErr(src, func(x T) (bool, error) { return filter(x), nil })
}

// FilterErr is Filter with a fallible predicate. An error from the
// predicate terminates the stream.
func FilterErr[T any](src Observable[T], filter func(T) (bool, error)) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			ctx, cancel := withCancel(ctx)
			t := newTerminal(cancel, complete)
			src.Observe(
				ctx,
				func(x T) {
					if t.Done() {
						return
					}
					ok, err := filter(x)
					if err != nil {
						t.Finish(err)
						return
					}
					if ok {
						next(x)
					}
				},
				func(err error) { t.Finish(err) })
		})
}

// StartWith emits 'items' when observed, before anything from 'src'.
func StartWith[T any](src Observable[T], items ...T) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			for _, item := range items {
				if ctx.Err() != nil {
					return
				}
				next(item)
			}
			if ctx.Err() == nil {
				src.Observe(ctx, next, complete)
			}
		})
}

// Scan takes an initial state and a step function that is called on each element with the
// previous state and returns an observable of the states returned by the step function.
// E.g. Scan is like Reduce that emits the intermediate states.
func Scan[In, Out any](src Observable[In], init Out, step func(Out, In) Out) Observable[Out] {
	return FuncObservable[Out](
		func(ctx context.Context, next func(Out), complete func(error)) {
			prev := init
			src.Observe(
				ctx,
				func(x In) {
					prev = step(prev, x)
					next(prev)
				},
				complete)
		})
}

// Reduce takes an initial state, and a function 'reduce' that is called on each element
// along with a state and returns an observable with a single result state produced
// by the last call to 'reduce'.
func Reduce[T, Result any](src Observable[T], init Result, reduce func(Result, T) Result) Observable[Result] {
	return FuncObservable[Result](
		func(ctx context.Context, next func(Result), complete func(error)) {
			result := init
			src.Observe(
				ctx,
				func(x T) { result = reduce(result, x) },
				func(err error) {
					if err == nil {
						next(result)
					}
					complete(err)
				})
		})
}

// Take takes 'n' items from the source 'src' and then completes, stopping
// the source.
func Take[T any](n int, src Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			if n <= 0 {
				complete(nil)
				return
			}
			ctx, cancel := withCancel(ctx)
			t := newTerminal(cancel, complete)
			remaining := n
			src.Observe(ctx,
				func(item T) {
					if t.Done() {
						return
					}
					next(item)
					remaining--
					if remaining == 0 {
						t.Finish(nil)
					}
				},
				func(err error) { t.Finish(err) })
		})
}

// Skip skips the first 'n' items from the source.
func Skip[T any](n int, src Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			skip := n
			src.Observe(ctx,
				func(item T) {
					if skip > 0 {
						skip--
						return
					}
					next(item)
				},
				complete)
		})
}

// OnNext calls the supplied function on each emitted item.
func OnNext[T any](src Observable[T], f func(T)) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			src.Observe(
				ctx,
				func(item T) {
					f(item)
					next(item)
				},
				complete)
		})
}

// FlatMap applies a function that returns an observable of Bs to the source observable of As.
// The inner observables are observed as they are created and their items are merged
// in the order they arrive. Completes when the source and all inner observables have
// completed. An error from any of them terminates the stream and stops the rest.
func FlatMap[A, B any](src Observable[A], apply func(A) Observable[B]) Observable[B] {
	return FuncObservable[B](
		func(ctx context.Context, next func(B), complete func(error)) {
			ctx, cancel := withCancel(ctx)
			t := newTerminal(cancel, complete)
			ser := newSerializer()

			// The source counts as one running observable.
			running := 1
			done := func(err error) {
				ser.Do(func() {
					if t.Done() {
						return
					}
					if err != nil {
						t.Finish(err)
						return
					}
					running--
					if running == 0 {
						t.Finish(nil)
					}
				})
			}

			src.Observe(
				ctx,
				func(a A) {
					ser.Do(func() {
						if t.Done() {
							return
						}
						running++
						apply(a).Observe(
							ctx,
							func(b B) {
								ser.Do(func() {
									if !t.Done() {
										next(b)
									}
								})
							},
							done)
					})
				},
				done)
		})
}

// Flatten takes an observable of slices of T and returns an observable of T.
func Flatten[T any](src Observable[[]T]) Observable[T] {
	return FlatMap(
		src,
		func(items []T) Observable[T] {
			return FromSlice(items)
		})
}

// Concat takes one or more observable of the same type and emits the items from each of
// them in order.
func Concat[T any](srcs ...Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			var observe func(int)
			observe = func(i int) {
				if ctx.Err() != nil {
					return
				}
				if i == len(srcs) {
					complete(nil)
					return
				}
				srcs[i].Observe(
					ctx,
					next,
					func(err error) {
						if err != nil {
							complete(err)
							return
						}
						observe(i + 1)
					})
			}
			observe(0)
		})
}
