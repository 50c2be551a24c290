// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package app

var counter int
var base = 100
var scaled int64 = 7

func init() {
	counter = base + 1
}

func init() {
	counter *= 2
}

func bump(n int) int {
	counter += n
	return counter
}

func set(n int) {
	counter = n
}

func set_and_get(n int) int {
	set(n)
	return counter
}

func get_scaled(x int64) int64 {
	return scaled * x
}
