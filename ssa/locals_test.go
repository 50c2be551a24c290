// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ssa

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBeforeWrite(t *testing.T) {
	x := MakeVariable("x", LocalVar, IntType)
	fn := MakeFunction("reads", nil, IntType)
	block := fn.NewBlock(fn.Entry)
	placeholder := block.Read(x)
	assert.Same(t, placeholder, block.Read(x))
	assert.Same(t, placeholder, block.Locals().UndefinedUsage(x))
	value := block.IntConst(3)
	block.Write(x, value)
	assert.Same(t, value, block.Read(x))
	assert.True(t, block.Locals().HasUndefinedUsages())
}

func TestPhiReusesPlaceholder(t *testing.T) {
	x := MakeVariable("x", LocalVar, IntType)
	fn := MakeFunction("reuse", nil, IntType)
	block := fn.NewBlock(fn.Entry)
	placeholder := block.Read(x)
	block.Phis().placePhiNode(x)
	block.Phis().placePhiNode(x)
	assert.Equal(t, 1, block.Phis().PendingCount())
	assert.False(t, block.Locals().HasUndefinedUsages())
	written, found := block.Locals().Written(x)
	require.True(t, found)
	assert.Same(t, placeholder, written)

	other := MakeVariable("other", LocalVar, IntType)
	block.Phis().placePhiNode(other)
	phiTemp, found := block.Locals().Written(other)
	require.True(t, found)
	assert.NotSame(t, placeholder, phiTemp)
}

// The nearest single-parent ancestor with a value wins, even when an
// ancestor further up has a phi node for the variable.
func TestResolveStopsAtNearestWrite(t *testing.T) {
	x := MakeVariable("x", LocalVar, IntType)
	fn := MakeFunction("nearest", nil, IntType)
	fn.Entry.Declare(x, fn.Entry.IntConst(1))
	upper := fn.NewBlock(fn.Entry)
	upper.Phis().placePhiNode(x)
	middle := fn.NewBlock(upper)
	five := middle.IntConst(5)
	middle.Write(x, five)
	lower := fn.NewBlock(middle)
	lower.Return(lower.Read(x))

	lower.Locals().resolveUndefinedUsages()

	ret := lower.Instructions[0].(*ReturnT)
	assert.Same(t, five, ret.Value)
}

// When the walk up reaches a block with more than one parent without
// finding a value, all ancestors are searched breadth first in parent
// order.  With no phi node at the merge, the first parent's value is
// the one found.
func TestResolveFallbackSearch(t *testing.T) {
	x := MakeVariable("x", LocalVar, IntType)
	fn := MakeFunction("fallback", nil, IntType)
	fn.Entry.Declare(x, fn.Entry.IntConst(0))
	left := fn.NewBlock(fn.Entry)
	right := fn.NewBlock(fn.Entry)
	leftValue := left.IntConst(1)
	left.Write(x, leftValue)
	right.Write(x, right.IntConst(2))
	merge := fn.NewBlock(left, right)
	below := fn.NewBlock(merge)
	below.Return(below.Read(x))

	replacements := below.Locals().resolveUndefinedUsages()

	require.Len(t, replacements, 1)
	ret := below.Instructions[0].(*ReturnT)
	assert.Same(t, leftValue, ret.Value)
}

func TestResolveFailurePanics(t *testing.T) {
	x := MakeVariable("x", LocalVar, IntType)
	fn := MakeFunction("undefined", nil, IntType)
	block := fn.NewBlock(fn.Entry)
	block.Return(block.Read(x))
	assert.Panics(t, func() { block.Locals().resolveUndefinedUsages() })
}

func TestNoReachingValuePanics(t *testing.T) {
	x := MakeVariable("x", LocalVar, IntType)
	fn := MakeFunction("unreached", nil, IntType)
	block := fn.NewBlock(fn.Entry)
	message := fmt.Sprintf("no value for %s reaches %s", x, block)
	assert.PanicsWithValue(t, message, func() { block.locals.temporaryFor(x) })
}
