// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joamaki/rxpush/internal/suggest"
	rxhttp "github.com/joamaki/rxpush/sources/http"
	"github.com/joamaki/rxpush/stream"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Show who-to-follow suggestions",
	Long: `Shows user suggestions fetched from a users listing.

Commands are read from the input, one per line:
  r     refresh all suggestions
  <n>   close suggestion n and show another one
  q     quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuggest(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	initSuggestFlags(suggestCmd.Flags(), suggest.DefaultConfig)
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(ctx context.Context, in io.Reader, out io.Writer) error {
	c := suggestConfig(cfg)
	if c.URL == "" {
		url, srv, err := startUsersServer(cfg.GetInt(flagFailEvery))
		if err != nil {
			return err
		}
		defer srv.Close()
		c.URL = url + "/users"
		log.Info().Str("url", c.URL).Msg("Started fake users server")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := stream.NewLoopScheduler(nil)
	client := rxhttp.NewClient(rxhttp.WithPoster(loop), rxhttp.WithLogger(log))
	fetch := func(url string, progress func(float64)) stream.Observable[[]byte] {
		return client.Get(url, rxhttp.WithProgress(progress))
	}

	s, err := suggest.New(c, fetch, loop, log, nil)
	if err != nil {
		return err
	}

	refresh := stream.NewSubject[stream.Unit]()
	closeClicks := make([]*stream.Subject[stream.Unit], c.Slots)
	closes := make([]stream.Observable[stream.Unit], c.Slots)
	for i := range closes {
		closeClicks[i] = stream.NewSubject[stream.Unit]()
		closes[i] = closeClicks[i]
	}

	var pipelineErr error
	rendered := make(chan struct{})

	loop.Post(func() {
		items, errs := stream.CoalesceToChannels(
			ctx,
			s.Suggestions(refresh, closes),
			func(s suggest.Suggestion) int { return s.Slot },
			c.Slots)

		go func() {
			defer close(rendered)
			render(out, c.Slots, items)
			if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
				pipelineErr = err
			}
			cancel()
		}()
	})

	loop.Post(func() {
		stream.SubscribeContext(ctx, inputLines(in, loop), stream.ObserverFuncs[string]{
			Next: func(line string) {
				switch line {
				case "":
				case "q":
					cancel()
				case "r":
					refresh.Next(stream.Unit{})
				default:
					n, err := strconv.Atoi(line)
					if err != nil || n < 1 || n > len(closeClicks) {
						log.Warn().Str("input", line).Msgf("Expected 'r', 'q' or 1-%d", len(closeClicks))
						return
					}
					closeClicks[n-1].Next(stream.Unit{})
				}
			},
			Error:    func(err error) { log.Error().Err(err).Msg("Reading input failed") },
			Complete: cancel,
		})
	})

	loop.Run(ctx)
	<-rendered
	return pipelineErr
}

// render prints all slots each time one of them changes.
func render(out io.Writer, slots int, items <-chan suggest.Suggestion) {
	current := make([]string, slots)
	for i := range current {
		current[i] = suggest.Suggestion{Slot: i}.String()
	}
	for s := range items {
		current[s.Slot] = s.String()
		fmt.Fprintln(out, strings.Join(current, " | "))
	}
}
