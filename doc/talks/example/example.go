package main

import (
	"context"
	"fmt"

	"github.com/joamaki/rxpush/stream"
)

type singleIntegerObservable int

func (num singleIntegerObservable) Observe(ctx context.Context, next func(int), complete func(error)) {
	if ctx.Err() != nil {
		return
	}
	next(int(num))
	complete(nil)
}

func main() {
	var ten stream.Observable[int] = singleIntegerObservable(10)

	// The 'Map' operator takes a stream and a function and applies
	// the function to each element.
	twenty := stream.Map(
		ten,
		func(x int) int { return x * 2 },
	)

	twenty.Observe(
		context.Background(),
		func(x int) { fmt.Printf("%d\n", x) },
		func(err error) { fmt.Printf("done: %v\n", err) },
	)
}
