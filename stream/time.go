// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Buffer collects the items from 'src' and emits them as a slice each time
// 'closing' emits. The slice is emitted even if it is empty. When either
// stream completes the remaining non-empty slice is emitted and the stream
// completes. Errors from either stream terminate it.
//
// Buffering a stream by a throttled copy of itself groups items that arrive
// close to each other:
//
//	Buffer(clicks, Throttle(clicks, 250*time.Millisecond, sched))
func Buffer[T, C any](src Observable[T], closing Observable[C]) Observable[[]T] {
	return FuncObservable[[]T](
		func(ctx context.Context, next func([]T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			bufCtx, cancel := withCancel(ctx)
			t := newTerminal(cancel, complete)
			ser := newSerializer()

			buf := []T{}
			flush := func() {
				items := buf
				buf = []T{}
				next(items)
			}
			finish := func(err error) {
				ser.Do(func() {
					if t.Done() {
						return
					}
					if err == nil && len(buf) > 0 {
						flush()
					}
					t.Finish(err)
				})
			}

			src.Observe(
				bufCtx,
				func(item T) {
					ser.Do(func() {
						if !t.Done() {
							buf = append(buf, item)
						}
					})
				},
				finish)

			if bufCtx.Err() != nil {
				return
			}

			closing.Observe(
				bufCtx,
				func(C) {
					ser.Do(func() {
						if !t.Done() {
							flush()
						}
					})
				},
				finish)
		})
}

// Throttle emits an item from 'src' only after 'src' has been quiet for
// 'quiet' since that item. Each new item restarts the wait, so a burst of
// items collapses into its last item emitted 'quiet' after the burst.
// When 'src' completes a pending item is emitted right away.
func Throttle[T any](src Observable[T], quiet time.Duration, sched Scheduler) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			throttleCtx, cancel := withCancel(ctx)
			t := newTerminal(cancel, complete)
			ser := newSerializer()

			var (
				latest      T
				pending     bool
				generation  int
				cancelTimer func()
			)
			stopTimer := func() {
				if cancelTimer != nil {
					cancelTimer()
					cancelTimer = nil
				}
			}
			emit := func() {
				item := latest
				var zero T
				latest, pending = zero, false
				next(item)
			}

			onCancel(throttleCtx, func() { ser.Do(stopTimer) })

			src.Observe(
				throttleCtx,
				func(item T) {
					ser.Do(func() {
						if t.Done() {
							return
						}
						latest, pending = item, true
						generation++
						gen := generation
						stopTimer()
						cancelTimer = sched.Schedule(quiet, func() {
							ser.Do(func() {
								if t.Done() || throttleCtx.Err() != nil || gen != generation || !pending {
									return
								}
								cancelTimer = nil
								emit()
							})
						})
					})
				},
				func(err error) {
					ser.Do(func() {
						if t.Done() {
							return
						}
						stopTimer()
						if err == nil && pending {
							emit()
						}
						t.Finish(err)
					})
				})
		})
}

type pacedItem[T any] struct {
	item T
	at   time.Time
}

// RateLimit limits the rate at which items are emitted to 'ratePerSecond'
// with bursts of up to 'burst' items. Items that exceed the rate are delayed
// on the scheduler, never dropped, and keep their order. Completion is
// forwarded after the delayed items.
func RateLimit[T any](src Observable[T], ratePerSecond float64, burst int, sched Scheduler) Observable[T] {
	return FuncObservable[T](
		func(ctx context.Context, next func(T), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			limitCtx, cancel := withCancel(ctx)
			t := newTerminal(cancel, complete)
			ser := newSerializer()
			limiter := rate.NewLimiter(rate.Limit(ratePerSecond), burst)

			var (
				queue       []pacedItem[T]
				srcDone     bool
				cancelTimer func()
				drain       func()
			)
			stopTimer := func() {
				if cancelTimer != nil {
					cancelTimer()
					cancelTimer = nil
				}
			}
			arm := func() {
				if len(queue) == 0 || cancelTimer != nil {
					return
				}
				cancelTimer = sched.Schedule(queue[0].at.Sub(sched.Now()), func() {
					ser.Do(func() {
						cancelTimer = nil
						drain()
					})
				})
			}
			drain = func() {
				if t.Done() || limitCtx.Err() != nil {
					return
				}
				now := sched.Now()
				for len(queue) > 0 && !queue[0].at.After(now) {
					p := queue[0]
					queue = queue[1:]
					next(p.item)
				}
				if len(queue) == 0 {
					if srcDone {
						t.Finish(nil)
					}
					return
				}
				arm()
			}

			onCancel(limitCtx, func() { ser.Do(stopTimer) })

			src.Observe(
				limitCtx,
				func(item T) {
					ser.Do(func() {
						if t.Done() {
							return
						}
						now := sched.Now()
						r := limiter.ReserveN(now, 1)
						if !r.OK() {
							t.Finish(fmt.Errorf("RateLimit: cannot emit with burst %d", burst))
							return
						}
						at := now.Add(r.DelayFrom(now))
						if len(queue) == 0 && !at.After(now) {
							next(item)
							return
						}
						queue = append(queue, pacedItem[T]{item, at})
						arm()
					})
				},
				func(err error) {
					ser.Do(func() {
						if t.Done() {
							return
						}
						if err != nil {
							stopTimer()
							t.Finish(err)
							return
						}
						srcDone = true
						if len(queue) == 0 {
							t.Finish(nil)
						}
					})
				})
		})
}
