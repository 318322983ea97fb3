// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joamaki/rxpush/stream"
)

func startHTTPServer(t *testing.T) string {
	mux := http.NewServeMux()
	mux.HandleFunc("/test", func(w http.ResponseWriter, req *http.Request) {
		user, pass, _ := req.BasicAuth()
		fmt.Fprintf(w, "method:%s header[foo]:%s id:%t auth:%s/%s\n",
			req.Method, req.Header.Get("foo"), req.Header.Get(RequestIDHeader) != "", user, pass)
		defer req.Body.Close()
		b, err := io.ReadAll(req.Body)
		if err != nil {
			w.Write([]byte(err.Error()))
		} else {
			w.Write(b)
		}
	})
	mux.HandleFunc("/fail", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Add("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("rate limit exceeded"))
	})
	mux.HandleFunc("/large", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(largeBody)))
		w.Write(largeBody)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, req *http.Request) {
		<-req.Context().Done()
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestHttp(t *testing.T) {
	// Create a context in which to execute the requests.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Start a local HTTP server to test against.
	url := startHTTPServer(t) + "/test"

	// Test GET with extra header
	respBody, err := stream.First(ctx, Get(url, WithHeader("foo", "bar")))
	require.NoError(t, err, "Get")
	assert.Equal(t, "method:GET header[foo]:bar id:true auth:/\n", string(respBody))

	// Test POST
	body := bytes.NewBufferString("hello")
	respBody, err = stream.First(ctx, Post(url, body, WithHeader("foo", "baz")))
	require.NoError(t, err, "Post")
	assert.Equal(t, "method:POST header[foo]:baz id:true auth:/\nhello", string(respBody))
}

var largeBody = bytes.Repeat([]byte("0123456789abcdef"), 64*1024)

func TestRequestOptions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startHTTPServer(t) + "/test"

	// 1. basic auth
	respBody, err := stream.First(ctx, Get(url, WithBasicAuth("user", "secret")))
	require.NoError(t, err)
	assert.Equal(t, "method:GET header[foo]: id:true auth:user/secret\n", string(respBody))

	// 2. explicit body
	respBody, err = stream.First(ctx, Get(url, WithBody([]byte("payload"))))
	require.NoError(t, err)
	assert.Equal(t, "method:GET header[foo]: id:true auth:/\npayload", string(respBody))
}

func TestPostObservedTwice(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The body is sent on every observation, e.g. when retried.
	post := Post(startHTTPServer(t)+"/test", strings.NewReader("hello"))
	for i := 0; i < 2; i++ {
		respBody, err := stream.First(ctx, post)
		require.NoError(t, err, "attempt %d", i)
		assert.Equal(t, "method:POST header[foo]: id:true auth:/\nhello", string(respBody), "attempt %d", i)
	}
}

func TestProgress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startHTTPServer(t)
	poster := &recordingPoster{}
	client := NewClient(WithPoster(poster))

	// 1. progress of a large body increases up to 1
	var progress []float64
	respBody, err := stream.First(ctx, client.Get(url+"/large", WithProgress(func(p float64) {
		progress = append(progress, p)
	})))
	require.NoError(t, err)
	assert.Len(t, respBody, len(largeBody))
	require.NotEmpty(t, progress)
	assert.True(t, sort.Float64sAreSorted(progress), "progress not increasing: %v", progress)
	assert.Greater(t, progress[0], 0.0)
	assert.Equal(t, 1.0, progress[len(progress)-1])

	// 2. failed requests never reach 1
	progress = nil
	_, err = stream.First(ctx, client.Get(url+"/fail", WithProgress(func(p float64) {
		progress = append(progress, p)
	})))
	require.Error(t, err)
	assert.NotContains(t, progress, 1.0)
}

func TestResponseError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startHTTPServer(t) + "/fail"
	items, err := stream.ToSlice(ctx, NewClient().Get(url))
	require.Error(t, err)
	assert.Empty(t, items)

	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr), "expected *ResponseError, got %T", err)
	assert.Equal(t, http.StatusForbidden, respErr.StatusCode)
	assert.Equal(t, "403 Forbidden", respErr.Message)
	assert.Equal(t, "rate limit exceeded", string(respErr.Body))

	// Headers are ordered by key.
	keys := []string{}
	for _, h := range respErr.Headers {
		keys = append(keys, h.Key)
	}
	assert.True(t, sort.StringsAreSorted(keys), "headers not sorted: %v", keys)
	assert.Contains(t, keys, "Cache-Control")
	assert.Contains(t, respErr.HeaderLines(), "X-Ratelimit-Remaining: 0")
}

func TestTransportError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 1. malformed URL fails when observed
	_, err := stream.First(ctx, Get("http://127.0.0.1:80/\x7f"))
	require.Error(t, err)

	// 2. nobody listening
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err = stream.First(ctx, Get(url))
	require.Error(t, err)

	var respErr *ResponseError
	assert.False(t, errors.As(err, &respErr), "transport errors are not response errors")
}

type recordingPoster struct {
	mu    sync.Mutex
	calls int
}

func (p *recordingPoster) Post(fn func()) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	fn()
}

func TestPoster(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poster := &recordingPoster{}
	client := NewClient(WithPoster(poster), WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))

	_, err := stream.First(ctx, client.Get(startHTTPServer(t)+"/test"))
	require.NoError(t, err)

	poster.mu.Lock()
	defer poster.mu.Unlock()
	assert.Equal(t, 1, poster.calls, "expected notifications to go through the poster")
}

func TestCancelledRequest(t *testing.T) {
	poster := &recordingPoster{}
	client := NewClient(WithPoster(poster))
	url := startHTTPServer(t) + "/slow"

	ctx, cancel := context.WithCancel(context.Background())
	completed := make(chan error, 1)
	client.Get(url).Observe(ctx, func([]byte) {}, func(err error) { completed <- err })

	time.Sleep(10 * time.Millisecond)
	cancel()

	// Cancelling is not reported as a completion.
	select {
	case err := <-completed:
		t.Fatalf("unexpected completion after cancel: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	poster.mu.Lock()
	defer poster.mu.Unlock()
	assert.Zero(t, poster.calls)
}
