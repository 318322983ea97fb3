// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `[
  {"login": "mojombo", "id": 1, "node_id": "MDQ6VXNlcjE=", "site_admin": false},
  {"login": "defunkt", "id": 2, "type": "User"},
  {"id": 3}
]`

func TestParse(t *testing.T) {
	users, err := Parse([]byte(listing))
	require.NoError(t, err)
	assert.Equal(t, []User{{Login: "mojombo", ID: 1}, {Login: "defunkt", ID: 2}}, users)

	users, err = Parse([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{``, `{"login": "x"}`, `[{"login": 1}]`, `[`} {
		_, err := Parse([]byte(input))
		assert.Error(t, err, "input %q", input)
	}
}

func TestUserString(t *testing.T) {
	assert.True(t, User{}.Loading())
	assert.Equal(t, "LOADING...", User{}.String())
	assert.Equal(t, "mojombo (1)", User{Login: "mojombo", ID: 1}.String())
}
