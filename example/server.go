// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package main

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/atomic"

	"github.com/joamaki/rxpush/internal/users"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const usersPerPage = 30

// usersHandler serves a listing of made up users in the format of the
// GitHub users API. Every failEvery'th request is refused as rate limited.
func usersHandler(failEvery int) http.HandlerFunc {
	var requests atomic.Int64
	return func(w http.ResponseWriter, r *http.Request) {
		n := requests.Inc()
		if failEvery > 0 && n%int64(failEvery) == 0 {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
			return
		}

		since := 0
		if s := r.URL.Query().Get("since"); s != "" {
			var err error
			if since, err = strconv.Atoi(s); err != nil || since < 0 {
				w.WriteHeader(http.StatusUnprocessableEntity)
				fmt.Fprintf(w, `{"message": "invalid since %q"}`+"\n", s)
				return
			}
		}

		page := make([]users.User, usersPerPage)
		for i := range page {
			id := int64(since + i + 1)
			page[i] = users.User{Login: "user" + strconv.FormatInt(id, 10), ID: id}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(page); err != nil {
			log.Warn().Err(err).Msg("Writing response failed")
		}
	}
}

// startUsersServer starts the fake users server on a random local port.
// Returns the base URL.
func startUsersServer(failEvery int) (string, *http.Server, error) {
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("error from Listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/users", usersHandler(failEvery))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		srv.Serve(listener)
		listener.Close()
	}()
	return "http://" + listener.Addr().String(), srv, nil
}
