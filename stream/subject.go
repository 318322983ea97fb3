// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"slices"
	"sync"
)

type subjectObserver[T any] struct {
	id       int
	ctx      context.Context
	next     func(T)
	complete func(error)
}

// Subject is a hot observable fed by calling Next, Error and Complete.
// Items are delivered to the observers present at the time of the call, in
// the order they started observing. Observing a terminated subject delivers
// the terminal notification immediately.
//
// The calls into a Subject must not be made concurrently, e.g. an input
// adapter on another goroutine should Post them to a LoopScheduler.
type Subject[T any] struct {
	mu        sync.Mutex
	nextID    int
	observers []subjectObserver[T]
	done      bool
	err       error
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

func (s *Subject[T]) Observe(ctx context.Context, next func(T), complete func(error)) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	if s.done {
		err := s.err
		s.mu.Unlock()
		complete(err)
		return
	}
	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, subjectObserver[T]{id, ctx, next, complete})
	s.mu.Unlock()

	onCancel(ctx, func() { s.remove(id) })
}

func (s *Subject[T]) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = slices.DeleteFunc(s.observers, func(o subjectObserver[T]) bool {
		return o.id == id
	})
}

func (s *Subject[T]) snapshot() []subjectObserver[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	return slices.Clone(s.observers)
}

// Next emits 'item' to all current observers.
func (s *Subject[T]) Next(item T) {
	for _, o := range s.snapshot() {
		if o.ctx.Err() == nil {
			o.next(item)
		}
	}
}

// Error terminates the subject with 'err'.
func (s *Subject[T]) Error(err error) {
	s.terminate(err)
}

// Complete terminates the subject successfully.
func (s *Subject[T]) Complete() {
	s.terminate(nil)
}

func (s *Subject[T]) terminate(err error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.err = err
	observers := s.observers
	s.observers = nil
	s.mu.Unlock()

	for _, o := range observers {
		if o.ctx.Err() == nil {
			o.complete(err)
		}
	}
}

// ObserverCount returns the number of observers that are still observing.
func (s *Subject[T]) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.observers {
		if o.ctx.Err() == nil {
			n++
		}
	}
	return n
}
