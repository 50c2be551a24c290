// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Simplifications done before the SSA conversion.

package ssa

import (
	"fmt"
	"slices"
)

//----------------------------------------------------------------
// Removing blocks that do nothing.  A block is removable if it has
// no instructions other than comments and its local manager has no
// reads or writes.  The entry block is never removed.  A removable
// block must have exactly one child; anything else is a lowering bug.

func (block *BlockT) isRemovable() bool {
	if block == block.Function.Entry {
		return false
	}
	for _, inst := range block.Instructions {
		if HasOpcode(inst) {
			return false
		}
	}
	return len(block.locals.written) == 0 && len(block.locals.undefined) == 0
}

func removeRedundantBlocks(fn *FunctionT) int {
	blocks := traverse(fn.Entry)
	removed := 0
	for _, block := range blocks {
		if !block.isRemovable() {
			continue
		}
		if len(block.Children) != 1 {
			panic(fmt.Sprintf("removable block %s has %d children", block, len(block.Children)))
		}
		child := block.Children[0]
		if child == block {
			panic(fmt.Sprintf("removable block %s is its own child", block))
		}
		for _, other := range blocks {
			for _, inst := range other.Instructions {
				retargetJumps(inst, block, child)
			}
		}
		for _, parent := range block.Parents {
			i := slices.Index(parent.Children, block)
			if slices.Contains(parent.Children, child) {
				parent.Children = slices.Delete(parent.Children, i, i+1)
			} else {
				parent.Children[i] = child
			}
		}
		child.Parents = slices.DeleteFunc(child.Parents, func(b *BlockT) bool {
			return b == block
		})
		for _, parent := range block.Parents {
			child.Parents = slices.DeleteFunc(child.Parents, func(b *BlockT) bool {
				return b == parent
			})
			child.Parents = append(child.Parents, parent)
		}
		child.Instructions = append(block.Instructions, child.Instructions...)
		block.Parents = nil
		block.Children = nil
		block.Instructions = nil
		removed += 1
	}
	return removed
}

//----------------------------------------------------------------
// Removing repeated loads of a variable within a block.  A load of a
// variable whose value is already in a temporary, because of an
// earlier load or store in the same block, is deleted and its result
// replaced by that temporary.  Calls may store into any variable, so
// they empty the cache.  The stream is processed in block order and
// the cache starts empty in each block.

func removeRedundantLoads(fn *FunctionT) int {
	subst := map[*TemporaryT]*TemporaryT{}
	removed := 0
	blocks := traverse(fn.Entry)
	for _, block := range blocks {
		cache := map[*VariableT]*TemporaryT{}
		kept := make([]InstructionT, 0, len(block.Instructions))
		for _, rawInst := range block.Instructions {
			substituteTemporaries(rawInst, subst)
			switch inst := rawInst.(type) {
			case *LoadT:
				if cached, found := cache[inst.Var]; found {
					subst[inst.Dest] = cached
					removed += 1
					continue
				}
				cache[inst.Var] = inst.Dest
			case *StoreT:
				cache[inst.Var] = inst.Value
			case *CallT:
				clear(cache)
			}
			kept = append(kept, rawInst)
		}
		block.Instructions = kept
	}
	substituteEverywhere(blocks, subst)
	return removed
}

//----------------------------------------------------------------

// Apply 'subst', following chains, to the instructions, phi nodes
// and written values of every block.

func substituteEverywhere(blocks []*BlockT, subst map[*TemporaryT]*TemporaryT) {
	if len(subst) == 0 {
		return
	}
	closed := make(map[*TemporaryT]*TemporaryT, len(subst))
	for from := range subst {
		to := subst[from]
		for steps := 0; steps < len(subst); steps++ {
			next, found := subst[to]
			if !found || next == to {
				break
			}
			to = next
		}
		closed[from] = to
	}
	for _, block := range blocks {
		for _, inst := range block.Instructions {
			substituteTemporaries(inst, closed)
		}
		for _, phi := range block.phis.computed {
			substituteTemporaries(phi, closed)
		}
		for vart, temp := range block.locals.written {
			if actual, found := closed[temp]; found {
				block.locals.written[vart] = actual
			}
		}
	}
}
