// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"container/heap"
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

// Scheduler runs actions after a delay. Time based operators (Throttle,
// Interval, RateLimit, Retry) take a Scheduler rather than using timers
// directly, which keeps them deterministic under a VirtualScheduler.
type Scheduler interface {
	// Now returns the current time of the scheduler.
	Now() time.Time

	// Schedule runs 'action' once 'delay' has passed. The returned function
	// cancels the action. Cancelling is idempotent and a cancelled action
	// does not run, unless it had already started.
	Schedule(delay time.Duration, action func()) (cancel func())
}

//
// Virtual time
//

type virtualAction struct {
	at        time.Time
	seq       uint64
	action    func()
	cancelled bool
}

type virtualQueue []*virtualAction

func (q virtualQueue) Len() int { return len(q) }
func (q virtualQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}
func (q virtualQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *virtualQueue) Push(x any)   { *q = append(*q, x.(*virtualAction)) }
func (q *virtualQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return x
}

// VirtualScheduler is a Scheduler with a manually advanced clock. Actions
// run on the goroutine calling AdvanceBy or AdvanceTo, in time order, and
// in scheduling order when due at the same instant.
type VirtualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	actions virtualQueue
}

func NewVirtualScheduler(start time.Time) *VirtualScheduler {
	return &VirtualScheduler{now: start}
}

func (s *VirtualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *VirtualScheduler) Schedule(delay time.Duration, action func()) func() {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	va := &virtualAction{at: s.now.Add(delay), seq: s.seq, action: action}
	s.seq++
	heap.Push(&s.actions, va)
	return func() {
		s.mu.Lock()
		va.cancelled = true
		s.mu.Unlock()
	}
}

// AdvanceBy moves the clock forward by 'd' running the actions that become
// due, including ones scheduled by those actions.
func (s *VirtualScheduler) AdvanceBy(d time.Duration) {
	s.AdvanceTo(s.Now().Add(d))
}

// AdvanceTo moves the clock to 't'. The clock never moves backwards.
func (s *VirtualScheduler) AdvanceTo(t time.Time) {
	for {
		s.mu.Lock()
		if len(s.actions) == 0 || s.actions[0].at.After(t) {
			if t.After(s.now) {
				s.now = t
			}
			s.mu.Unlock()
			return
		}
		va := heap.Pop(&s.actions).(*virtualAction)
		if va.at.After(s.now) {
			s.now = va.at
		}
		cancelled := va.cancelled
		s.mu.Unlock()

		if !cancelled {
			va.action()
		}
	}
}

// Pending returns the number of scheduled actions that have not run and
// have not been cancelled.
func (s *VirtualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, va := range s.actions {
		if !va.cancelled {
			n++
		}
	}
	return n
}

//
// Event loop
//

// LoopScheduler executes all scheduled actions and posted events on the
// single goroutine that calls Run. Producers living on other goroutines
// (input readers, HTTP clients) Post their notifications to the loop so
// that every stream built on top sees them sequentially.
type LoopScheduler struct {
	clock clock.Clock

	mu    sync.Mutex
	queue *list.List
	wake  chan struct{}
}

// NewLoopScheduler creates a loop scheduler using the given clock for
// timers. A nil clock uses the wall clock.
func NewLoopScheduler(clk clock.Clock) *LoopScheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &LoopScheduler{
		clock: clk,
		queue: list.New(),
		wake:  make(chan struct{}, 1),
	}
}

func (l *LoopScheduler) Now() time.Time {
	return l.clock.Now()
}

// Post queues 'fn' to be run on the loop. Safe to call from any goroutine,
// including from the loop itself.
func (l *LoopScheduler) Post(fn func()) {
	l.mu.Lock()
	l.queue.PushBack(fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *LoopScheduler) Schedule(delay time.Duration, action func()) func() {
	cancelled := atomic.NewBool(false)
	run := func() {
		if !cancelled.Load() {
			action()
		}
	}
	if delay <= 0 {
		l.Post(run)
		return func() { cancelled.Store(true) }
	}
	timer := l.clock.AfterFunc(delay, func() { l.Post(run) })
	return func() {
		if cancelled.CompareAndSwap(false, true) {
			timer.Stop()
		}
	}
}

func (l *LoopScheduler) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.queue.Front() == nil {
		return nil, false
	}
	return l.queue.Remove(l.queue.Front()).(func()), true
}

// Run executes the loop until 'ctx' is cancelled. Returns ctx.Err().
func (l *LoopScheduler) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.pop()
			if !ok {
				break
			}
			fn()
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
