// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// rxdemo runs the suggestion and click demos on the terminal. Input lines
// stand in for button presses and mouse clicks.
package main

func main() {
	Execute()
}
