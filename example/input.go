// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/joamaki/rxpush/stream"
)

// inputLines emits the lines read from 'in' on the loop. The reading
// goroutine blocks on 'in' and may outlive the observation.
func inputLines(in io.Reader, loop *stream.LoopScheduler) stream.Observable[string] {
	return stream.FuncObservable[string](
		func(ctx context.Context, next func(string), complete func(error)) {
			go func() {
				scanner := bufio.NewScanner(in)
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					loop.Post(func() {
						if ctx.Err() == nil {
							next(line)
						}
					})
				}
				err := scanner.Err()
				loop.Post(func() {
					if ctx.Err() == nil {
						complete(err)
					}
				})
			}()
		})
}
