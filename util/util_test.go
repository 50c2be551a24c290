// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package util

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSorted(t *testing.T) {
	set := NewSet(5, 1, 3)
	set.Add(3, 4)
	set.Remove(5)
	assert.True(t, set.Contains(4))
	assert.False(t, set.Contains(5))
	assert.Equal(t, []int{1, 3, 4}, set.Sorted(cmp.Compare[int]))

	other := NewSet(9)
	other.AddAll(set)
	assert.Equal(t, []int{1, 3, 4, 9}, other.Sorted(cmp.Compare[int]))
}

func TestStack(t *testing.T) {
	stack := StackT[string]{}
	require.True(t, stack.IsEmpty())
	stack.Push("a", "b")
	stack.Push("c")
	assert.Equal(t, 3, stack.Len())
	assert.Equal(t, "c", stack.Top())
	assert.Equal(t, "c", stack.Pop())
	assert.Equal(t, "b", stack.Pop())
	assert.Equal(t, "a", stack.Pop())
	assert.Panics(t, func() { stack.Pop() })
}
