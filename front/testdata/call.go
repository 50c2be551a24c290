// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package app

func times_ten_plus_one(x int) int {
	return x*10 + 1
}

func call(n int) int {
	r0 := times_ten_plus_one(n)
	r1 := times_ten_plus_one(n + 10)
	return r0 + r1
}

func fact(n int) int {
	if n < 2 {
		return 1
	}
	return n * fact(n-1)
}
