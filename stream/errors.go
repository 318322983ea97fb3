// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/sethvargo/go-retry"
)

//
// Retrying and error handling
//

// CatchIgnore swallows errors of type E from 'src'. When 'src' fails with an
// error that matches E (as per errors.As), 'handler' is called with it and
// the stream completes instead of failing. Other errors pass through.
func CatchIgnore[T any, E error](src Observable[T], handler func(E)) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			src.Observe(
				ctx,
				next,
				func(err error) {
					var target E
					if err != nil && errors.As(err, &target) {
						if handler != nil {
							handler(target)
						}
						complete(nil)
						return
					}
					complete(err)
				})
		})
}

// RetryFunc decides whether the processing should be retried for the given error
type RetryFunc func(err error) bool

// AlwaysRetry always asks for a retry regardless of the error.
func AlwaysRetry(err error) bool {
	return true
}

// Retry observes 'src' again when it fails with an error for which
// 'shouldRetry' returns true. The wait before each new attempt comes from
// the backoff created by 'newBackoff' for each observation; the stream
// fails with the last error once the backoff stops. Items emitted before a
// failure are not retracted.
//
//	Retry(src, sched,
//	    func() retry.Backoff {
//	        b, _ := retry.NewExponential(100 * time.Millisecond)
//	        return retry.WithMaxRetries(5, b)
//	    },
//	    AlwaysRetry)
func Retry[T any](src Observable[T], sched Scheduler, newBackoff func() retry.Backoff, shouldRetry RetryFunc) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			backoff := newBackoff()

			var (
				mu          sync.Mutex
				cancelRetry func()
				observe     func()
			)
			onCancel(ctx, func() {
				mu.Lock()
				defer mu.Unlock()
				if cancelRetry != nil {
					cancelRetry()
				}
			})

			observe = func() {
				attemptCtx, cancel := withCancel(ctx)
				src.Observe(
					attemptCtx,
					next,
					func(err error) {
						cancel()
						if ctx.Err() != nil {
							return
						}
						if err == nil || !shouldRetry(err) {
							complete(err)
							return
						}
						delay, stop := backoff.Next()
						if stop {
							complete(err)
							return
						}
						mu.Lock()
						cancelRetry = sched.Schedule(delay, func() {
							if ctx.Err() == nil {
								observe()
							}
						})
						mu.Unlock()
					})
			}
			observe()
		})
}
