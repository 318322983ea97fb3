// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/joamaki/rxpush/internal/clicks"
	"github.com/joamaki/rxpush/stream"
)

var clicksCmd = &cobra.Command{
	Use:   "clicks",
	Short: "Detect multi-clicks",
	Long: `Each line read from the input is a click, either empty or "<x> <y>".
Clicks that follow each other quickly are reported as a multi-click.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClicks(cmd.Context(), cmd.InOrStdin())
	},
}

func init() {
	initClicksFlags(clicksCmd.Flags(), clicks.DefaultConfig)
	rootCmd.AddCommand(clicksCmd)
}

func runClicks(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := stream.NewLoopScheduler(nil)
	var inputErr error
	clickEvents := stream.NewSubject[clicks.Click]()

	loop.Post(func() {
		sub := clicks.Log(clickEvents, clicksConfig(cfg), loop, log)
		context.AfterFunc(ctx, sub.Dispose)

		stream.SubscribeContext(ctx, inputLines(in, loop), stream.ObserverFuncs[string]{
			Next: func(line string) {
				c, err := clicks.ParseClick(line)
				if err != nil {
					log.Warn().Err(err).Msg("Invalid click")
					return
				}
				clickEvents.Next(c)
			},
			Error: func(err error) {
				inputErr = err
				clickEvents.Error(err)
				cancel()
			},
			Complete: func() {
				clickEvents.Complete()
				cancel()
			},
		})
	})

	loop.Run(ctx)
	return inputErr
}
