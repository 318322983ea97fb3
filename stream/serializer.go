// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"container/list"
	"sync"
)

// serializer runs functions one at a time in the order they were submitted.
// The caller that finds the serializer idle drains the queue, including
// anything submitted while it was running. A re-entrant or concurrent Do
// therefore never blocks: its function is queued and run by the drainer.
//
// Operators with more than one input funnel all their callbacks through a
// serializer to keep the downstream 'next' and 'complete' sequential.
type serializer struct {
	sync.Mutex

	queue    *list.List
	draining bool
}

func newSerializer() *serializer {
	return &serializer{queue: list.New()}
}

func (s *serializer) Do(fn func()) {
	s.Lock()
	s.queue.PushBack(fn)
	if s.draining {
		s.Unlock()
		return
	}
	s.draining = true
	for s.queue.Front() != nil {
		fn := s.queue.Remove(s.queue.Front()).(func())
		s.Unlock()
		fn()
		s.Lock()
	}
	s.draining = false
	s.Unlock()
}

// terminal guards a 'complete' callback so that it's called once and
// cancels the given upstream context before forwarding.
type terminal struct {
	done     bool
	cancel   func()
	complete func(error)
}

func newTerminal(cancel func(), complete func(error)) *terminal {
	return &terminal{cancel: cancel, complete: complete}
}

// Finish forwards 'err' downstream unless the stream already terminated.
// Returns false if it had.
func (t *terminal) Finish(err error) bool {
	if t.done {
		return false
	}
	t.done = true
	t.cancel()
	t.complete(err)
	return true
}

func (t *terminal) Done() bool {
	return t.done
}
