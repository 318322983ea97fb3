// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package users decodes the user listings served by the GitHub users API.
package users

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// User is one entry of the listing. The zero User stands for a user that
// is still being loaded.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// Loading is true for the placeholder user.
func (u User) Loading() bool {
	return u.Login == ""
}

func (u User) String() string {
	if u.Loading() {
		return "LOADING..."
	}
	return u.Login + " (" + strconv.FormatInt(u.ID, 10) + ")"
}

// Parse decodes a JSON array of users. Fields other than login and id are
// ignored. Entries without a login are dropped.
func Parse(data []byte) ([]User, error) {
	var raw []User
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing users: %w", err)
	}
	users := make([]User, 0, len(raw))
	for _, u := range raw {
		if u.Login != "" {
			users = append(users, u)
		}
	}
	return users, nil
}
