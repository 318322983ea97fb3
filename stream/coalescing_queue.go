// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"container/list"
	"sync"
)

// coalescingQueue keeps the latest value for each key in the order the
// keys were first pushed. A key that is already queued is updated in place
// and keeps its position.
type coalescingQueue[K comparable, V any] struct {
	sync.Mutex

	// notFull is signalled when a key is popped.
	notFull *sync.Cond

	// notEmpty is signalled when a key is queued or the queue closes.
	notEmpty *sync.Cond

	capacity int
	latest   map[K]V
	keys     *list.List
	closed   bool
}

func newCoalescingQueue[K comparable, V any](capacity int) *coalescingQueue[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	q := &coalescingQueue[K, V]{
		capacity: capacity,
		latest:   make(map[K]V),
		keys:     list.New(),
	}
	q.notFull = sync.NewCond(q)
	q.notEmpty = sync.NewCond(q)
	return q
}

// Close wakes up blocked callers. Queued values can still be popped.
func (q *coalescingQueue[K, V]) Close() {
	q.Lock()
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
	q.Unlock()
}

// Push queues 'v' under 'k'. Blocks while 'capacity' distinct keys are
// queued and 'k' is not one of them. No-op after Close.
func (q *coalescingQueue[K, V]) Push(k K, v V) {
	q.Lock()
	defer q.Unlock()

	if _, ok := q.latest[k]; ok {
		if !q.closed {
			q.latest[k] = v
		}
		return
	}
	for !q.closed && len(q.latest) >= q.capacity {
		q.notFull.Wait()
	}
	if q.closed {
		return
	}
	q.keys.PushBack(k)
	q.latest[k] = v
	q.notEmpty.Signal()
}

// Pop waits for a key and returns it with its latest value. Returns false
// once the queue is closed and drained.
func (q *coalescingQueue[K, V]) Pop() (key K, value V, ok bool) {
	q.Lock()
	defer q.Unlock()

	for !q.closed && q.keys.Front() == nil {
		q.notEmpty.Wait()
	}
	if q.keys.Front() == nil {
		return
	}

	key = q.keys.Remove(q.keys.Front()).(K)
	value = q.latest[key]
	delete(q.latest, key)
	q.notFull.Signal()
	return key, value, true
}
