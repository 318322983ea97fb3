// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joamaki/rxpush/stream"
)

// RequestIDHeader carries the identifier generated for each request.
const RequestIDHeader = "X-Request-Id"

// Option modifies a request before it is sent.
type Option func(*request)

// request is an outgoing request with the settings that are not part of
// http.Request itself.
type request struct {
	*http.Request
	body     []byte
	progress func(float64)
}

func WithBasicAuth(username, password string) Option {
	return func(req *request) {
		req.SetBasicAuth(username, password)
	}
}

// WithBody sets the request body. Each request gets a fresh reader over
// 'body', so the same observable can be observed again.
func WithBody(body []byte) Option {
	return func(req *request) {
		req.body = body
	}
}

func WithHeader(key, value string) Option {
	return func(req *request) {
		req.Header.Add(key, value)
	}
}

// WithProgress reports the download progress of the response body as a
// fraction between 0 and 1. The last report of a successful request is 1.
// The reports are delivered like the other notifications, via the client's
// Poster when one is set.
func WithProgress(progress func(float64)) Option {
	return func(req *request) {
		req.progress = progress
	}
}

// Header is a single response header value.
type Header struct {
	Key   string
	Value string
}

// ResponseError is the failure of a request that got a response with a
// non-2xx status. Headers are ordered by key, values of a key keep the order
// they were received in.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Headers    []Header
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
}

// HeaderLines formats the headers one per line as "Key: Value".
func (e *ResponseError) HeaderLines() []string {
	lines := make([]string, len(e.Headers))
	for i, h := range e.Headers {
		lines[i] = h.Key + ": " + strings.TrimSpace(h.Value)
	}
	return lines
}

// Poster runs functions on the goroutine that owns the streams, e.g.
// stream.LoopScheduler.
type Poster interface {
	Post(fn func())
}

// Client turns HTTP requests into observables. Each observation performs
// one request on its own goroutine and emits the response body, followed by
// completion. The notifications are handed to the Poster when one is set.
type Client struct {
	client *http.Client
	poster Poster
	log    zerolog.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.client = c }
}

// WithPoster makes the client deliver its notifications via 'p'.
func WithPoster(p Poster) ClientOption {
	return func(cl *Client) { cl.poster = p }
}

// WithLogger sets the logger for request logging. Disabled by default.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(cl *Client) { cl.log = log }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		client: http.DefaultClient,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "http").Logger()
	return c
}

var defaultClient = NewClient()

// Get performs a GET request with the default client.
func Get(url string, options ...Option) stream.Observable[[]byte] {
	return defaultClient.Get(url, options...)
}

// Post performs a POST request with the default client.
func Post(url string, body io.Reader, options ...Option) stream.Observable[[]byte] {
	return defaultClient.Post(url, body, options...)
}

func (c *Client) Get(url string, options ...Option) stream.Observable[[]byte] {
	return c.request(http.MethodGet, url, options)
}

// Post reads 'body' once and sends it with every request made by the
// returned observable.
func (c *Client) Post(url string, body io.Reader, options ...Option) stream.Observable[[]byte] {
	var data []byte
	if body != nil {
		var err error
		if data, err = io.ReadAll(body); err != nil {
			return stream.Error[[]byte](fmt.Errorf("%s %s: reading request body: %w", http.MethodPost, url, err))
		}
	}
	return c.request(http.MethodPost, url, append([]Option{WithBody(data)}, options...))
}

func (c *Client) deliver(fn func()) {
	if c.poster != nil {
		c.poster.Post(fn)
	} else {
		fn()
	}
}

func (c *Client) request(method, url string, options []Option) stream.Observable[[]byte] {
	return stream.FuncObservable[[]byte](
		func(ctx context.Context, next func([]byte), complete func(error)) {
			if ctx.Err() != nil {
				return
			}
			httpReq, err := http.NewRequestWithContext(ctx, method, url, nil)
			if err != nil {
				complete(err)
				return
			}
			id := uuid.New().String()
			httpReq.Header.Set(RequestIDHeader, id)
			req := &request{Request: httpReq}
			for _, opt := range options {
				opt(req)
			}
			if req.body != nil {
				body := req.body
				httpReq.ContentLength = int64(len(body))
				httpReq.GetBody = func() (io.ReadCloser, error) {
					return io.NopCloser(bytes.NewReader(body)), nil
				}
				httpReq.Body, _ = httpReq.GetBody()
			}

			var report func(float64)
			if req.progress != nil {
				report = func(p float64) {
					c.deliver(func() {
						if ctx.Err() == nil {
							req.progress(p)
						}
					})
				}
			}

			log := c.log.With().
				Str("method", method).
				Str("url", url).
				Str("requestID", id).
				Logger()

			go func() {
				start := time.Now()
				data, err := c.do(httpReq, report)
				if ctx.Err() != nil {
					log.Debug().Msg("Request cancelled")
					return
				}
				if err != nil {
					log.Debug().Err(err).Dur("duration", time.Since(start)).Msg("Request failed")
				} else {
					log.Debug().Int("bytes", len(data)).Dur("duration", time.Since(start)).Msg("Request completed")
				}

				c.deliver(func() {
					if ctx.Err() != nil {
						return
					}
					if err != nil {
						complete(err)
						return
					}
					next(data)
					complete(nil)
				})
			}()
		})
}

func (c *Client) do(req *http.Request, report func(float64)) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if report != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, report: report}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading body: %w", req.Method, req.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
			Headers:    sortedHeaders(resp.Header),
			Body:       data,
		}
	}
	if report != nil {
		report(1)
	}
	return data, nil
}

// progressReader reports the fraction of 'total' read so far. Nothing is
// reported while reading when the length is unknown.
type progressReader struct {
	r      io.Reader
	read   int64
	total  int64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if n > 0 && p.total > 0 && p.read < p.total {
		p.report(float64(p.read) / float64(p.total))
	}
	return n, err
}

func sortedHeaders(h http.Header) []Header {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]Header, 0, len(h))
	for _, k := range keys {
		for _, v := range h[k] {
			headers = append(headers, Header{Key: k, Value: v})
		}
	}
	return headers
}
