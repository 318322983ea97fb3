// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"slices"
)

// Merge multiple observables into one. All sources are observed at the same
// time and their items are emitted in the order they arrive. Completes when
// all sources have completed. Error from any one of the sources terminates
// the stream and stops the other sources.
func Merge[T any](srcs ...Observable[T]) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			if len(srcs) == 0 {
				complete(nil)
				return
			}

			mergeCtx, cancel := withCancel(ctx)
			t := newTerminal(cancel, complete)
			ser := newSerializer()
			running := len(srcs)

			for _, src := range srcs {
				// A source may have failed synchronously, in which case
				// the rest are not observed at all.
				if mergeCtx.Err() != nil {
					return
				}
				src.Observe(
					mergeCtx,
					func(item T) {
						ser.Do(func() {
							if !t.Done() {
								next(item)
							}
						})
					},
					func(err error) {
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
					})
			}
		})
}

// CombineLatestAll observes all sources and, once every source has emitted
// at least one item, emits the latest item of each source whenever any of
// them emits. Completes when all sources have completed. Error from any one
// of the sources terminates the stream and stops the other sources.
func CombineLatestAll[T any](srcs ...Observable[T]) Observable[[]T] {
	return FuncObservable[[]T](
		func(ctx context.Context, next func([]T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			if len(srcs) == 0 {
				complete(nil)
				return
			}

			combineCtx, cancel := withCancel(ctx)
			t := newTerminal(cancel, complete)
			ser := newSerializer()

			var (
				latest  = make([]T, len(srcs))
				seen    = make([]bool, len(srcs))
				numSeen = 0
				running = len(srcs)
			)

			for i, src := range srcs {
				if combineCtx.Err() != nil {
					return
				}
				src.Observe(
					combineCtx,
					func(item T) {
						ser.Do(func() {
							if t.Done() {
								return
							}
							latest[i] = item
							if !seen[i] {
								seen[i] = true
								numSeen++
							}
							if numSeen == len(srcs) {
								next(slices.Clone(latest))
							}
						})
					},
					func(err error) {
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
					})
			}
		})
}

// CombineLatest combines the latest items of 'a' and 'b' with 'combine'
// whenever either of them emits, once both have emitted at least once.
func CombineLatest[A, B, R any](a Observable[A], b Observable[B], combine func(A, B) R) Observable[R] {
	return CombineLatestErr(a, b, func(x A, y B) (R, error) { return combine(x, y), nil })
}

// CombineLatestErr is CombineLatest with a fallible combining function. An
// error from 'combine' terminates the stream.
func CombineLatestErr[A, B, R any](a Observable[A], b Observable[B], combine func(A, B) (R, error)) Observable[R] {
	return MapErr(
		CombineLatestAll(
			Map(a, func(x A) any { return x }),
			Map(b, func(y B) any { return y }),
		),
		func(xs []any) (R, error) {
			// Comma-ok keeps nil interface values as the zero value.
			x, _ := xs[0].(A)
			y, _ := xs[1].(B)
			return combine(x, y)
		})
}
