// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

//
// Test helpers
//

var t0 = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func assertSlice[T comparable](t *testing.T, what string, expected []T, actual []T) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Fatalf("assertSlice[%s]: expected %d items, got %d (%v)", what, len(expected), len(actual), actual)
	}
	for i := range expected {
		if expected[i] != actual[i] {
			t.Fatalf("assertSlice[%s]: at index %d, expected %v, got %v", what, i, expected[i], actual[i])
		}
	}
}

func assertNil(t *testing.T, what string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error in %s: %s", what, err)
	}
}

func checkCancelled(t *testing.T, what string, src Observable[int]) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ToSlice(ctx, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("%s: expected Canceled error, got %s", what, err)
	}
	assertSlice(t, what, []int{}, result)
}

// recorder is an Observer that records everything it's told.
type recorder[T any] struct {
	items     []T
	err       error
	completed int
	errored   int
}

func (r *recorder[T]) OnNext(x T) {
	r.items = append(r.items, x)
}

func (r *recorder[T]) OnError(err error) {
	r.err = err
	r.errored++
}

func (r *recorder[T]) OnComplete() {
	r.completed++
}

func (r *recorder[T]) terminated() bool {
	return r.completed+r.errored > 0
}

// countingSource wraps 'src' and counts how many times it's observed and
// how many of those observations are still live.
type countingSource[T any] struct {
	src      Observable[T]
	observed int
	contexts []context.Context
}

func (c *countingSource[T]) Observe(ctx context.Context, next func(T), complete func(error)) {
	c.observed++
	c.contexts = append(c.contexts, ctx)
	c.src.Observe(ctx, next, complete)
}

func (c *countingSource[T]) live() int {
	n := 0
	for _, ctx := range c.contexts {
		if ctx.Err() == nil {
			n++
		}
	}
	return n
}
