// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joamaki/rxpush/internal/clicks"
	"github.com/joamaki/rxpush/internal/suggest"
)

// Flag names double as configuration keys. Each can also be set from the
// environment, e.g. RXDEMO_REFRESH_RATE.
const (
	flagLogLevel = "log-level"

	// suggest
	flagURL         = "url"
	flagSlots       = "slots"
	flagMaxSince    = "max-since"
	flagRefreshRate = "refresh-rate"
	flagRetries     = "retries"
	flagRetryDelay  = "retry-delay"
	flagFailEvery   = "fail-every"

	// clicks
	flagWindow   = "window"
	flagMinCount = "min-count"
)

func initSuggestFlags(flags *pflag.FlagSet, defaults suggest.Config) {
	flags.String(flagURL, "", "users listing to fetch suggestions from, a local fake server is started if empty")
	flags.Int(flagSlots, defaults.Slots, "number of suggestions shown")
	flags.Int(flagMaxSince, defaults.MaxSince, "upper bound for the random 'since' request parameter")
	flags.Float64(flagRefreshRate, defaults.RefreshRate, "maximum requests per second, 0 for unlimited")
	flags.Uint64(flagRetries, defaults.Retries, "retries for requests that fail without a response")
	flags.Duration(flagRetryDelay, defaults.RetryDelay, "delay before the first retry, doubled on each retry")
	flags.Int(flagFailEvery, 0, "make the local fake server fail every n:th request, 0 to never fail")
}

func suggestConfig(v *viper.Viper) suggest.Config {
	return suggest.Config{
		URL:         v.GetString(flagURL),
		Slots:       v.GetInt(flagSlots),
		MaxSince:    v.GetInt(flagMaxSince),
		RefreshRate: v.GetFloat64(flagRefreshRate),
		Retries:     v.GetUint64(flagRetries),
		RetryDelay:  v.GetDuration(flagRetryDelay),
	}
}

func initClicksFlags(flags *pflag.FlagSet, defaults clicks.Config) {
	flags.Duration(flagWindow, defaults.Window, "quiet time that ends a group of clicks")
	flags.Int(flagMinCount, defaults.MinCount, "smallest group of clicks reported")
}

func clicksConfig(v *viper.Viper) clicks.Config {
	return clicks.Config{
		Window:   v.GetDuration(flagWindow),
		MinCount: v.GetInt(flagMinCount),
	}
}
