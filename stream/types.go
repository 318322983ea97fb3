// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package stream

// Unit signals that something happened without carrying anything, e.g.
// a button click or a frame tick.
type Unit struct{}

type Tuple2[V1, V2 any] struct {
	V1 V1
	V2 V2
}
