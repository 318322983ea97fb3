// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJustFirstStuck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. successful Just with First
	res1, err := First(ctx, Just(1))
	assertNil(t, "case 1", err)
	if res1 != 1 {
		t.Fatalf("case 1: expected 1, got %d", res1)
	}

	// 2. First with Stuck
	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	_, err = First(ctx2, Stuck[int]())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("case 2: expected Canceled error, got %s", err)
	}

	// 3. First with Empty
	_, err = First(ctx, Empty[int]())
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("case 3: expected ErrEmpty, got %s", err)
	}
}

func TestFromSliceToSlice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	xs := []int{1, 2, 3, 4}

	// 1. non-empty FromSlice->ToSlice
	xs1, err := ToSlice(ctx, FromSlice(xs))
	assertNil(t, "case 1", err)
	assertSlice(t, "case 1", xs, xs1)

	// 2. empty FromSlice->ToSlice
	xs2, err := ToSlice(ctx, FromSlice([]int{}))
	assertNil(t, "case 2", err)
	assertSlice(t, "case 2", []int{}, xs2)

	// 3. nil FromSlice->ToSlice
	xs3, err := ToSlice(ctx, FromSlice[int](nil))
	assertNil(t, "case 3", err)
	assertSlice(t, "case 3", []int{}, xs3)

	// 4. cancelled context
	checkCancelled(t, "case 4", FromSlice(xs))
}

func TestFromChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. all items of a closed channel
	{
		in := make(chan int, 10)
		for i := 0; i < 10; i++ {
			in <- i
		}
		close(in)

		items, err := ToSlice(ctx, FromChannel(in))
		assertNil(t, "case 1", err)
		assertSlice(t, "case 1", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, items)
	}

	// 2. empty input channel
	{
		in := make(chan int)
		close(in)

		items, err := ToSlice(ctx, FromChannel(in))
		assertNil(t, "case 2", err)
		assertSlice(t, "case 2", []int{}, items)
	}

	// 3. cancelled context
	checkCancelled(t, "case 3", FromChannel(make(chan int)))
}

func TestRangeTake(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. take 5 from source with 10 items.
	zeroToFour, err := ToSlice(ctx, Take(5, Range(0, 10)))
	assertNil(t, "case 1", err)
	assertSlice(t, "case 1", []int{0, 1, 2, 3, 4}, zeroToFour)

	// 2. take 0 from source with 10 items.
	empty, err := ToSlice(ctx, Take(0, Range(0, 10)))
	assertNil(t, "case 2", err)
	assertSlice(t, "case 2", []int{}, empty)

	// 3. make sure source is cancelled after 'n' items
	wasCancelled := false
	onesSrc := FuncObservable[int](
		func(ctx context.Context, next func(int), complete func(error)) {
			for ctx.Err() == nil {
				next(1)
			}
			wasCancelled = true
		})
	ones, err := ToSlice(ctx, Take[int](5, onesSrc))
	assertNil(t, "case 3", err)
	assertSlice(t, "case 3", []int{1, 1, 1, 1, 1}, ones)
	if !wasCancelled {
		t.Fatalf("upstream source not cancelled")
	}

	// 4. cancelled context
	checkCancelled(t, "case 4", Take(5, Range(0, 10)))
}

func TestFromFunction(t *testing.T) {
	calls := 0
	src := FromFunction(func() int {
		calls++
		return calls
	})

	// Each observation calls the function again.
	for i := 1; i <= 2; i++ {
		x, err := First(context.TODO(), src)
		assertNil(t, "First", err)
		if x != i {
			t.Fatalf("expected %d, got %d", i, x)
		}
	}
}

func TestInterval(t *testing.T) {
	sched := NewVirtualScheduler(t0)
	rec := &recorder[int]{}
	Subscribe(Take(3, Interval(10*time.Millisecond, sched)), rec)

	sched.AdvanceBy(9 * time.Millisecond)
	assertSlice(t, "before first tick", []int{}, rec.items)

	sched.AdvanceBy(time.Millisecond)
	assertSlice(t, "first tick", []int{0}, rec.items)

	sched.AdvanceBy(25 * time.Millisecond)
	assertSlice(t, "three ticks", []int{0, 1, 2}, rec.items)
	if rec.completed != 1 {
		t.Fatalf("expected completion after three ticks")
	}
	if n := sched.Pending(); n != 0 {
		t.Fatalf("expected no pending ticks, got %d", n)
	}
}

func TestTimer(t *testing.T) {
	sched := NewVirtualScheduler(t0)
	rec := &recorder[Unit]{}
	Subscribe(Timer(5*time.Millisecond, sched), rec)

	sched.AdvanceBy(4 * time.Millisecond)
	if len(rec.items) != 0 || rec.terminated() {
		t.Fatalf("timer fired early: %v", rec)
	}
	sched.AdvanceBy(time.Millisecond)
	if len(rec.items) != 1 || rec.completed != 1 {
		t.Fatalf("expected one item and completion, got %v", rec)
	}
}

//
// Benchmarks
//

func BenchmarkFromSlice(b *testing.B) {
	ctx := context.Background()
	s := make([]int, b.N)
	b.ResetTimer()

	_, err := ToSlice(ctx, FromSlice(s))
	if err != nil {
		b.Fatal(err)
	}
}
