// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ssa

import (
	"slices"

	"github.com/s48/bytecode/util"
)

// Phi nodes requested for a block, and the ones that survive once
// their incoming edges are known.

type PhiManagerT struct {
	block    *BlockT
	pending  map[*VariableT]*uncomputedPhiT
	computed []*PhiNodeT
}

type uncomputedPhiT struct {
	vart     *VariableT
	dest     *TemporaryT
	incoming map[*BlockT]*TemporaryT
}

func makePhiManager(block *BlockT) *PhiManagerT {
	return &PhiManagerT{block: block, pending: map[*VariableT]*uncomputedPhiT{}}
}

// If the block already read 'vart' before writing it, the read's
// placeholder becomes the phi node's result.

func (phis *PhiManagerT) placePhiNode(vart *VariableT) {
	if _, found := phis.pending[vart]; found {
		return
	}
	dest := phis.block.locals.UndefinedUsage(vart)
	if dest == nil {
		dest = phis.block.NewTemporary()
	}
	phis.pending[vart] = &uncomputedPhiT{
		vart:     vart,
		dest:     dest,
		incoming: map[*BlockT]*TemporaryT{}}
	phis.block.locals.define(vart, dest)
}

func (phis *PhiManagerT) PendingCount() int {
	return len(phis.pending)
}

func (phis *PhiManagerT) Computed() []*PhiNodeT {
	return phis.computed
}

// Fill in the incoming edges of every pending phi node.  Nodes with
// fewer than two edges are dropped; when exactly one edge exists the
// dropped result is mapped to that edge's value in 'dropped'.  Nodes
// for variables that are not in scope are dropped with no mapping.

func (phis *PhiManagerT) compute(dropped map[*TemporaryT]*TemporaryT) {
	phis.computed = nil
	vars := util.NewSet[*VariableT]()
	for vart := range phis.pending {
		vars.Add(vart)
	}
	for _, vart := range vars.Sorted(compareVariables) {
		phi := phis.pending[vart]
		node := phi.compute(phis.block)
		if node != nil {
			phis.computed = append(phis.computed, node)
		} else if len(phi.incoming) == 1 {
			for _, value := range phi.incoming {
				if value != phi.dest {
					dropped[phi.dest] = value
				}
			}
		}
	}
}

// 'vart' must be in scope in the block and in every parent.  If any
// parent lacks it the block is outside its scope, even when other
// parents supply values, and no read of 'vart' can reach the block.

func (phi *uncomputedPhiT) compute(block *BlockT) *PhiNodeT {
	if !block.locals.IsAlive(phi.vart) {
		return nil
	}
	for _, parent := range block.Parents {
		if !parent.locals.IsAlive(phi.vart) {
			return nil
		}
	}
	for _, parent := range block.Parents {
		phi.incoming[parent] = parent.locals.temporaryFor(phi.vart)
	}
	if len(phi.incoming) <= 1 {
		return nil
	}
	node := &PhiNodeT{Dest: phi.dest, Var: phi.vart}
	for parent, value := range phi.incoming {
		node.Edges = append(node.Edges, PhiEdgeT{Block: parent, Value: value})
	}
	slices.SortFunc(node.Edges, func(a, b PhiEdgeT) int {
		return a.Block.Index() - b.Block.Index()
	})
	return node
}
