// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Dominators and dominance frontiers.
//
// Dominators are found with the straightforward iterative data-flow
// algorithm:
//   DOM(entry) = {entry}
//   DOM(n)     = {n} + intersection of DOM(p) for all parents p
// iterated in reverse postorder until nothing changes.  This is
// quadratic but the block graphs are small.
//
// Frontiers come from Cytron, Ferrante, Rosen, Wegman and Zadeck,
// "Efficiently Computing Static Single Assignment Form and the
// Control Dependence Graph", using the runner formulation.

package ssa

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/s48/bytecode/util"
)

// Blocks reachable from 'entry' by following children, each one
// listed after all of its children that it reached first.

func postorder(entry *BlockT) []*BlockT {
	result := []*BlockT{}
	visited := util.NewSet[*BlockT]()
	var walk func(block *BlockT)
	walk = func(block *BlockT) {
		visited.Add(block)
		for _, child := range block.Children {
			if !visited.Contains(child) {
				walk(child)
			}
		}
		result = append(result, block)
	}
	walk(entry)
	return result
}

func computeDominance(entry *BlockT) {
	blocks := postorder(entry)
	all := mapset.NewThreadUnsafeSet(blocks...)
	for _, block := range blocks {
		block.idom = nil
		if block == entry {
			block.dominators = mapset.NewThreadUnsafeSet(entry)
		} else {
			block.dominators = all.Clone()
		}
	}

	for changed := true; changed; {
		changed = false
		for i := len(blocks) - 1; 0 <= i; i-- {
			block := blocks[i]
			if block == entry {
				continue
			}
			var meet mapset.Set[*BlockT]
			for _, parent := range block.Parents {
				if parent.dominators == nil {
					continue // not reachable from the entry
				}
				if meet == nil {
					meet = parent.dominators.Clone()
				} else {
					meet = meet.Intersect(parent.dominators)
				}
			}
			if meet == nil {
				meet = mapset.NewThreadUnsafeSet[*BlockT]()
			}
			meet.Add(block)
			if !meet.Equal(block.dominators) {
				block.dominators = meet
				changed = true
			}
		}
	}

	for _, block := range blocks {
		block.idom = immediateDominator(block)
	}
}

// The strict dominator of 'block' that is dominated by all of the
// others.

func immediateDominator(block *BlockT) *BlockT {
	strict := block.dominators.Clone()
	strict.Remove(block)
	var result *BlockT
	strict.Each(func(candidate *BlockT) bool {
		if strict.IsSubset(candidate.dominators) {
			result = candidate
			return true
		}
		return false
	})
	return result
}

func computeFrontier(blocks []*BlockT) {
	for _, block := range blocks {
		block.frontier = util.NewSet[*BlockT]()
	}
	for _, block := range blocks {
		if len(block.Parents) < 2 {
			continue
		}
		for _, parent := range block.Parents {
			for runner := parent; runner != nil && runner != block.idom; runner = runner.idom {
				runner.frontier.Add(block)
			}
		}
	}
}

// Does 'a' dominate 'b'?
func Dominates(a *BlockT, b *BlockT) bool {
	return b.dominators != nil && b.dominators.Contains(a)
}
