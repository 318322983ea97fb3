// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package suggest implements the "who to follow" suggestions: a list of
// users fetched on start and on every refresh, shown in a fixed number of
// slots that can each be closed to show another user from the same list.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/joamaki/rxpush/internal/users"
	rxhttp "github.com/joamaki/rxpush/sources/http"
	"github.com/joamaki/rxpush/stream"
)

// Fetcher returns an observable that fetches the given URL when observed.
// The download progress of the response is reported to 'progress'.
type Fetcher func(url string, progress func(float64)) stream.Observable[[]byte]

type Config struct {
	// URL of the users listing. A random "since" parameter is added to
	// each request to get a different page.
	URL string

	// Slots is the number of suggestions shown at once.
	Slots int

	// MaxSince bounds the random "since" parameter.
	MaxSince int

	// RefreshRate limits the requests per second. Zero disables the limit.
	RefreshRate float64

	// Retries is the number of times a request failing without a response
	// is retried, waiting RetryDelay doubled on each attempt.
	Retries    uint64
	RetryDelay time.Duration
}

var DefaultConfig = Config{
	URL:         "https://api.github.com/users",
	Slots:       3,
	MaxSince:    500,
	RefreshRate: 1,
	Retries:     3,
	RetryDelay:  500 * time.Millisecond,
}

func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid URL %q: scheme and host required", c.URL)
	}
	if c.Slots < 1 {
		return fmt.Errorf("invalid number of slots %d", c.Slots)
	}
	if c.MaxSince < 1 {
		return fmt.Errorf("invalid MaxSince %d", c.MaxSince)
	}
	if c.RefreshRate < 0 {
		return fmt.Errorf("invalid refresh rate %f", c.RefreshRate)
	}
	return nil
}

// Suggestion is the user to show in a slot. A loading user means the slot
// is waiting for a response.
type Suggestion struct {
	Slot int
	User users.User
}

func (s Suggestion) String() string {
	return strconv.Itoa(s.Slot+1) + ": " + s.User.String()
}

type Suggester struct {
	cfg   Config
	base  *url.URL
	fetch Fetcher
	sched stream.Scheduler
	rng   *rand.Rand
	log   zerolog.Logger

	progress *stream.Subject[float64]
}

// New creates a suggester. The returned suggester is meant to be used from
// a single goroutine, e.g. from stream.LoopScheduler. A nil 'rng' is
// seeded from the clock.
func New(cfg Config, fetch Fetcher, sched stream.Scheduler, log zerolog.Logger, rng *rand.Rand) (*Suggester, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, _ := url.Parse(cfg.URL)
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Suggester{
		cfg:   cfg,
		base:  base,
		fetch: fetch,
		sched: sched,
		rng:   rng,
		log:   log.With().Str("component", "suggest").Logger(),

		progress: stream.NewSubject[float64](),
	}, nil
}

func (s *Suggester) nextURL() string {
	u := *s.base
	q := u.Query()
	q.Set("since", strconv.Itoa(s.rng.Intn(s.cfg.MaxSince)))
	u.RawQuery = q.Encode()
	return u.String()
}

// RequestURLs emits a request URL on observation and on each refresh.
func (s *Suggester) RequestURLs(refresh stream.Observable[stream.Unit]) stream.Observable[string] {
	clicks := stream.StartWith(refresh, stream.Unit{})
	if s.cfg.RefreshRate > 0 {
		clicks = stream.RateLimit(clicks, s.cfg.RefreshRate, 1, s.sched)
	}
	return stream.Map(clicks, func(stream.Unit) string { return s.nextURL() })
}

func (s *Suggester) newBackoff() retry.Backoff {
	delay := s.cfg.RetryDelay
	var b retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) {
		d := delay
		delay *= 2
		return d, false
	})
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(s.cfg.Retries, b)
}

func isTransportError(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Responses fetches the users for each request URL. A failed request is
// logged and skipped, leaving the stream running. Responses that fail to
// parse terminate the stream.
func (s *Suggester) Responses(urls stream.Observable[string]) stream.Observable[[]users.User] {
	return stream.FlatMap(urls, func(u string) stream.Observable[[]users.User] {
		log := s.log.With().Str("url", u).Logger()

		src := stream.MapErr(s.fetch(u, s.progress.Next), users.Parse)
		src = stream.Retry(src, s.sched, s.newBackoff, func(err error) bool {
			if isTransportError(err) {
				log.Warn().Err(err).Msg("Request failed, retrying")
				return true
			}
			return false
		})
		src = stream.OnNext(src, func(us []users.User) {
			log.Info().Int("users", len(us)).Msg("Success")
		})
		src = stream.CatchIgnore(src, func(err *rxhttp.ResponseError) {
			log.Error().Int("status", err.StatusCode).Msgf("Error: %s", err.Message)
			for _, h := range err.Headers {
				log.Error().Msgf("%s: %s", h.Key, h.Value)
			}
		})
		src = stream.CatchIgnore(src, func(err *url.Error) {
			log.Error().Err(err).Msg("Request failed")
		})
		return stream.Filter(src, func(us []users.User) bool {
			if len(us) == 0 {
				log.Warn().Msg("Empty response")
				return false
			}
			return true
		})
	})
}

// Slot is the suggestion stream of one slot. It starts out loading, picks
// a random user from each response and again on each close click, and goes
// back to loading on each refresh.
func (s *Suggester) Slot(closes stream.Observable[stream.Unit], refresh stream.Observable[stream.Unit], responses stream.Observable[[]users.User]) stream.Observable[users.User] {
	picked := stream.CombineLatest(
		stream.StartWith(closes, stream.Unit{}),
		responses,
		func(_ stream.Unit, us []users.User) users.User {
			return us[s.rng.Intn(len(us))]
		})
	loading := stream.Map(refresh, func(stream.Unit) users.User { return users.User{} })
	return stream.StartWith(stream.Merge(picked, loading), users.User{})
}

// Suggestions wires the request pipeline to one slot per close click
// stream. 'refresh' and 'closes' are observed more than once and should be
// hot, e.g. stream.Subject. The responses are shared between the slots, so
// each refresh makes a single request.
func (s *Suggester) Suggestions(refresh stream.Observable[stream.Unit], closes []stream.Observable[stream.Unit]) stream.Observable[Suggestion] {
	return stream.FuncObservable[Suggestion](
		func(ctx context.Context, next func(Suggestion), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			ctx, cancel := context.WithCancel(ctx)
			responses := stream.NewSubject[[]users.User]()

			slots := make([]stream.Observable[Suggestion], len(closes))
			for i, c := range closes {
				i := i
				slots[i] = stream.Map(
					s.Slot(c, refresh, responses),
					func(u users.User) Suggestion { return Suggestion{Slot: i, User: u} })
			}

			s.progress.Observe(
				ctx,
				func(p float64) {
					s.log.Debug().Float64("progress", p).Msgf("Progress: %.2f", p)
				},
				func(error) {})

			// Slots are observed first so that they see the first response
			// even when it arrives synchronously.
			stream.Merge(slots...).Observe(
				ctx,
				next,
				func(err error) {
					cancel()
					complete(err)
				})
			if ctx.Err() != nil {
				return
			}

			s.Responses(s.RequestURLs(refresh)).Observe(
				ctx,
				responses.Next,
				func(err error) {
					if err != nil {
						responses.Error(err)
					} else {
						responses.Complete()
					}
				})
		})
}
