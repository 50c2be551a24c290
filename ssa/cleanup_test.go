// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entry -> a (empty) -> b (empty) -> c
func TestRemoveBlockChain(t *testing.T) {
	fn := MakeFunction("chain", nil, IntType)
	entry := fn.Entry
	entry.IntConst(1)
	a := fn.NewBlock(entry)
	entry.Goto(a)
	a.Comment("a")
	b := fn.NewBlock(a)
	b.Comment("b")
	c := fn.NewBlock(b)
	c.Return(c.IntConst(3))

	fn.RemoveRedundantBlocks()

	assert.Equal(t, []*BlockT{entry, c}, fn.Blocks())
	assert.Equal(t, []*BlockT{c}, entry.Children)
	assert.Equal(t, []*BlockT{entry}, c.Parents)
	jump := entry.Instructions[1].(*GotoT)
	assert.Same(t, c, jump.Target)
	assert.Equal(t, []string{"; a", "; b"}, instructionStrings(c)[:2])
}

// An empty 'then' branch goes away and the conditional jumps
// straight to the join.
func TestRemoveEmptyBranch(t *testing.T) {
	c := MakeVariable("c", ParamVar, BoolType)
	fn := MakeFunction("branch", []*VariableT{c}, IntType)
	entry := fn.Entry
	elze := fn.NewBlock(entry)
	then := fn.NewBlock(entry)
	entry.CondGoto(entry.Read(c), elze, then)
	elze.Call("f", true)
	join := fn.NewBlock(elze, then)
	elze.Goto(join)
	join.Return(join.IntConst(0))

	fn.RemoveRedundantBlocks()

	assert.Equal(t, []*BlockT{elze, join}, entry.Children)
	assert.Equal(t, []*BlockT{elze, entry}, join.Parents)
	cgoto := entry.Instructions[0].(*CondGotoT)
	assert.Same(t, join, cgoto.Then)
	assert.Same(t, elze, cgoto.Else)
	assert.Equal(t, []*BlockT{entry, elze, join}, fn.Blocks())
}

func TestRemovableBlockWithTwoChildrenPanics(t *testing.T) {
	fn := MakeFunction("bad", nil, IntType)
	fork := fn.NewBlock(fn.Entry)
	fn.Entry.Call("f", true)
	left := fn.NewBlock(fork)
	right := fn.NewBlock(fork)
	left.Return(left.IntConst(1))
	right.Return(right.IntConst(2))
	assert.Panics(t, func() { fn.RemoveRedundantBlocks() })
}

// Blocks that only move values between variables have no
// instructions but are not empty.
func TestBlockWithWritesIsKept(t *testing.T) {
	x := MakeVariable("x", ParamVar, IntType)
	y := MakeVariable("y", LocalVar, IntType)
	fn := MakeFunction("copy", []*VariableT{x}, IntType)
	fn.Entry.Declare(y, fn.Entry.IntConst(0))
	copier := fn.NewBlock(fn.Entry)
	copier.Write(y, copier.Read(x))
	last := fn.NewBlock(copier)
	last.Return(last.Read(y))
	fn.Finish()

	assert.Len(t, fn.Blocks(), 3)
	ret := last.Instructions[0].(*ReturnT)
	assert.Same(t, fn.ParamTemporary(0), ret.Value)
}

func TestRemoveRedundantLoads(t *testing.T) {
	g := MakeVariable("g", GlobalVar, IntType)
	fn := MakeFunction("loads", nil, IntType)
	entry := fn.Entry
	first := entry.Load(g)
	second := entry.Load(g)
	sum := entry.Binary(OpAdd, first, second)
	entry.Store(g, sum)
	third := entry.Load(g)
	entry.Return(third)

	fn.RemoveRedundantBlocks()
	fn.RemoveRedundantLoads()

	require.Len(t, entry.Instructions, 4)
	add := entry.Instructions[1].(*BinaryT)
	assert.Same(t, first, add.Left)
	assert.Same(t, first, add.Right)
	ret := entry.Instructions[3].(*ReturnT)
	assert.Same(t, sum, ret.Value)

	before := instructionStrings(entry)
	assert.Equal(t, 0, removeRedundantLoads(fn))
	assert.Equal(t, before, instructionStrings(entry))
}

func TestLoadCacheLimits(t *testing.T) {
	g := MakeVariable("g", GlobalVar, IntType)
	h := MakeVariable("h", GlobalVar, IntType)
	fn := MakeFunction("limits", nil, IntType)
	entry := fn.Entry
	a := entry.Load(g)
	entry.Load(h)
	entry.Store(g, entry.IntConst(5))
	b := entry.Load(g)
	entry.Call("f", true)
	c := entry.Load(g)
	next := fn.NewBlock(entry)
	d := next.Load(g)
	next.Return(next.Binary(OpAdd, next.Binary(OpAdd, a, b), next.Binary(OpAdd, c, d)))

	fn.RemoveRedundantBlocks()
	assert.Equal(t, 1, removeRedundantLoads(fn))

	loads := 0
	for _, block := range fn.Blocks() {
		for _, inst := range block.Instructions {
			if _, isLoad := inst.(*LoadT); isLoad {
				loads += 1
			}
		}
	}
	assert.Equal(t, 4, loads)
	sum := next.Instructions[1].(*BinaryT)
	assert.NotSame(t, b, sum.Right)
	assert.Same(t, entry.Instructions[2].Result(), sum.Right)
}
