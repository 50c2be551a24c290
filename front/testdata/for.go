// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package app

func fact_for(n int) int {
	r := 1
	for i := 2; i <= n; i++ {
		r *= i
	}
	return r
}

func fact_while(n int) int {
	r := 1
	i := 2
	for i <= n {
		r *= i
		i += 1
	}
	return r
}

func fact_break(n int) int {
	r := 1
	i := 2
	for {
		if n < i {
			break
		}
		r *= i
		i += 1
	}
	return r
}

func fact_break2(n int) int {
	r := 1
	for i := 2; ; i++ {
		if n < i {
			break
		}
		r *= i
	}
	return r
}

func fact_no_three(n int) int {
	r := 1
	for i := 2; i <= n; i += 1 {
		if i == 3 {
			continue
		}
		r *= i
	}
	return r
}

func odd_sum(n int) int {
	r := 0
	for 0 < n {
		n--
		if n%2 == 0 {
			continue
		}
		r += n
	}
	return r
}

func nested_for(n int, m int) int {
	r := 0
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			r += i*10 + j
		}
	}
	return r
}
