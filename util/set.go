// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package util

import (
	"slices"
)

// A set is a map from members to the empty struct.  Iterating over
// a map is not deterministic, so anything whose output order matters
// should go through Sorted.

type SetT[E comparable] map[E]struct{}

func NewSet[E comparable](members ...E) SetT[E] {
	set := SetT[E]{}
	set.Add(members...)
	return set
}

func (set SetT[E]) Add(members ...E) {
	for _, member := range members {
		set[member] = struct{}{}
	}
}

func (set SetT[E]) AddAll(other SetT[E]) {
	for member := range other {
		set[member] = struct{}{}
	}
}

func (set SetT[E]) Remove(member E) {
	delete(set, member)
}

func (set SetT[E]) Contains(member E) bool {
	_, found := set[member]
	return found
}

// The members ordered by 'cmp', which has the same contract as the
// comparison function passed to slices.SortFunc.

func (set SetT[E]) Sorted(cmp func(a, b E) int) []E {
	result := make([]E, 0, len(set))
	for member := range set {
		result = append(result, member)
	}
	slices.SortFunc(result, cmp)
	return result
}
