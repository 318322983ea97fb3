// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package clicks detects multi-clicks in a stream of clicks.
package clicks

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/joamaki/rxpush/stream"
)

// Click is a click at a position.
type Click struct {
	X, Y int
}

func (c Click) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// ParseClick parses a click from a line of input. An empty line is a
// click at the origin, otherwise the line is "<x> <y>".
func ParseClick(line string) (Click, error) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return Click{}, nil
	case 2:
		x, err := strconv.Atoi(fields[0])
		if err != nil {
			return Click{}, fmt.Errorf("invalid x: %w", err)
		}
		y, err := strconv.Atoi(fields[1])
		if err != nil {
			return Click{}, fmt.Errorf("invalid y: %w", err)
		}
		return Click{X: x, Y: y}, nil
	default:
		return Click{}, fmt.Errorf("expected \"<x> <y>\", got %q", line)
	}
}

type Config struct {
	// Window is how long it must be quiet after a click for the group of
	// clicks to end.
	Window time.Duration

	// MinCount is the smallest group reported.
	MinCount int
}

var DefaultConfig = Config{
	Window:   250 * time.Millisecond,
	MinCount: 2,
}

// MultiClicks groups clicks that follow each other within the window and
// emits the groups of at least MinCount clicks. 'clicks' is observed twice
// and should be hot.
func MultiClicks(clicks stream.Observable[Click], cfg Config, sched stream.Scheduler) stream.Observable[[]Click] {
	return stream.Filter(
		stream.Buffer(clicks, stream.Throttle(clicks, cfg.Window, sched)),
		func(group []Click) bool { return len(group) >= cfg.MinCount })
}

// Log logs every click and every multi-click until disposed.
func Log(clicks stream.Observable[Click], cfg Config, sched stream.Scheduler, log zerolog.Logger) stream.Subscription {
	multi := stream.Subscribe(
		MultiClicks(clicks, cfg, sched),
		stream.OnNextFunc(func(group []Click) {
			log.Info().Int("count", len(group)).Msgf("Double click detected! Count: %d", len(group))
		}))
	single := stream.Subscribe(
		clicks,
		stream.OnNextFunc(func(c Click) {
			log.Info().Int("x", c.X).Int("y", c.Y).Msgf("A click was detected on position: %s", c)
		}))
	return disposeAll{multi, single}
}

type disposeAll []stream.Subscription

func (d disposeAll) Dispose() {
	for _, s := range d {
		s.Dispose()
	}
}

func (d disposeAll) Disposed() bool {
	for _, s := range d {
		if !s.Disposed() {
			return false
		}
	}
	return true
}
