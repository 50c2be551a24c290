// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Functions and the pipeline that turns a freshly lowered block
// graph into numbered SSA form.

package ssa

import (
	"fmt"
	"slices"

	"golang.org/x/exp/slog"

	"github.com/s48/bytecode/util"
)

type FunctionT struct {
	Name       string
	Params     []*VariableT
	ResultType TypeT
	Entry      *BlockT

	paramTemps []*TemporaryT
	variables  []*VariableT // params then locals, after numbering

	nextBlockId int
	nextTempId  int

	stage            stageT
	numbered         bool
	blocks           []*BlockT
	temporaryCount   int
	instructionCount int
}

type stageT int

const (
	stageLowering stageT = iota
	stageBlocksRemoved
	stageLoadsRemoved
	stageBlocksNumbered
	stageDominance
	stageFrontier
	stagePhisPlaced
	stagePhisResolved
	stagePhisComputed
	stageNumbered
)

// The parameters are declared in the entry block.  Their temporaries
// are numbered first, as 0 through len(params) - 1.

func MakeFunction(name string, params []*VariableT, resultType TypeT) *FunctionT {
	fn := &FunctionT{Name: name, Params: params, ResultType: resultType}
	fn.Entry = fn.NewBlock()
	for _, param := range params {
		temp := fn.newTemporary()
		fn.paramTemps = append(fn.paramTemps, temp)
		fn.Entry.Declare(param, temp)
	}
	return fn
}

func (fn *FunctionT) newTemporary() *TemporaryT {
	temp := &TemporaryT{id: fn.nextTempId, index: -1}
	fn.nextTempId += 1
	return temp
}

func (fn *FunctionT) ParamTemporary(i int) *TemporaryT {
	return fn.paramTemps[i]
}

func (fn *FunctionT) advance(from stageT, to stageT) {
	if fn.stage != from {
		panic(fmt.Sprintf("ordering violation: %s is at stage %d, expected %d", fn.Name, fn.stage, from))
	}
	fn.stage = to
}

func (fn *FunctionT) checkNumbered(what string) {
	if fn.stage != stageNumbered {
		panic(fmt.Sprintf("ordering violation: %s of %s requested before numbering", what, fn.Name))
	}
}

//----------------------------------------------------------------
// The pipeline.  Each stage requires the one before it.

func (fn *FunctionT) Finish() {
	if fn.ResultType == VoidType {
		fn.insertVoidReturn()
	}
	fn.RemoveRedundantBlocks()
	fn.RemoveRedundantLoads()
	fn.NumberBlocks()
	fn.ComputeDominance()
	fn.ComputeFrontier()
	fn.PlacePhiNodes()
	fn.ResolvePhiNodeUsages()
	fn.ComputePhiNodes()
	fn.Number()
}

// A void function may fall off the end of its last block.
func (fn *FunctionT) insertVoidReturn() {
	blocks := traverse(fn.Entry)
	last := blocks[len(blocks)-1]
	if !last.IsTerminated() {
		last.Return(nil)
	}
}

func (fn *FunctionT) RemoveRedundantBlocks() {
	fn.advance(stageLowering, stageBlocksRemoved)
	removed := removeRedundantBlocks(fn)
	slog.Debug("Removed redundant blocks", "func", fn.Name, "count", removed)
}

func (fn *FunctionT) RemoveRedundantLoads() {
	fn.advance(stageBlocksRemoved, stageLoadsRemoved)
	removed := removeRedundantLoads(fn)
	slog.Debug("Removed redundant loads", "func", fn.Name, "count", removed)
}

func (fn *FunctionT) NumberBlocks() {
	fn.advance(stageLoadsRemoved, stageBlocksNumbered)
	fn.blocks = traverse(fn.Entry)
	for i, block := range fn.blocks {
		block.index = i
	}
}

func (fn *FunctionT) ComputeDominance() {
	fn.advance(stageBlocksNumbered, stageDominance)
	computeDominance(fn.Entry)
}

func (fn *FunctionT) ComputeFrontier() {
	fn.advance(stageDominance, stageFrontier)
	computeFrontier(fn.blocks)
}

// For each variable, every block that assigns to it seeds a worklist.
// Each block in the frontier of a block on the worklist gets a phi
// node for the variable, which counts as an assignment and so puts
// that block on the worklist as well.  'hasAlready' and 'work' hold
// the number of the last variable for which a block received a phi
// node or was put on the worklist.

func (fn *FunctionT) PlacePhiNodes() {
	fn.advance(stageFrontier, stagePhisPlaced)
	assignments := map[*VariableT][]*BlockT{}
	vars := util.NewSet[*VariableT]()
	for _, block := range fn.blocks {
		for _, vart := range block.locals.writtenVars() {
			assignments[vart] = append(assignments[vart], block)
			vars.Add(vart)
		}
	}
	hasAlready := map[*BlockT]int{}
	work := map[*BlockT]int{}
	placed := 0
	for i, vart := range vars.Sorted(compareVariables) {
		iteration := i + 1
		worklist := util.StackT[*BlockT]{}
		for _, block := range assignments[vart] {
			work[block] = iteration
			worklist.Push(block)
		}
		for !worklist.IsEmpty() {
			block := worklist.Pop()
			for _, frontier := range block.frontier.Sorted(compareBlocks) {
				if hasAlready[frontier] < iteration {
					frontier.phis.placePhiNode(vart)
					placed += 1
					hasAlready[frontier] = iteration
					if work[frontier] < iteration {
						work[frontier] = iteration
						worklist.Push(frontier)
					}
				}
			}
		}
	}
	slog.Debug("Placed phi nodes", "func", fn.Name, "count", placed)
}

// Blocks are resolved in order.  A placeholder that one block copies
// from another before the other block is resolved is fixed up at the
// end.

func (fn *FunctionT) ResolvePhiNodeUsages() {
	fn.advance(stagePhisPlaced, stagePhisResolved)
	all := map[*TemporaryT]*TemporaryT{}
	for _, block := range fn.blocks {
		for from, to := range block.locals.resolveUndefinedUsages() {
			all[from] = to
		}
	}
	substituteEverywhere(fn.blocks, all)
}

func (fn *FunctionT) ComputePhiNodes() {
	fn.advance(stagePhisResolved, stagePhisComputed)
	dropped := map[*TemporaryT]*TemporaryT{}
	kept := 0
	for _, block := range fn.blocks {
		block.phis.compute(dropped)
		kept += len(block.phis.computed)
	}
	substituteEverywhere(fn.blocks, dropped)
	slog.Debug("Computed phi nodes", "func", fn.Name, "kept", kept, "dropped", len(dropped))
}

// Numbers the variables, the temporaries and the instructions.
func (fn *FunctionT) Number() {
	fn.advance(stagePhisComputed, stageNumbered)
	fn.numberVariables()
	fn.numberTemporaries()
	fn.numberInstructions()
	fn.numbered = true
}

func (fn *FunctionT) numberVariables() {
	fn.variables = append([]*VariableT{}, fn.Params...)
	// A variable may be declared in more than one block.
	seen := util.NewSet(fn.Params...)
	for _, block := range fn.blocks {
		for _, vart := range block.locals.declared.Sorted(compareVariables) {
			if vart.Kind != ParamVar && !seen.Contains(vart) {
				seen.Add(vart)
				fn.variables = append(fn.variables, vart)
			}
		}
	}
	for i, vart := range fn.variables {
		vart.index = i
	}
}

func (fn *FunctionT) numberTemporaries() {
	for i, temp := range fn.paramTemps {
		temp.index = i
	}
	next := len(fn.paramTemps)
	for _, block := range fn.blocks {
		for _, phi := range block.phis.computed {
			phi.Dest.index = next
			next += 1
		}
		for _, inst := range block.Instructions {
			if result := inst.Result(); result != nil {
				result.index = next
				next += 1
			}
		}
	}
	fn.temporaryCount = next
}

func (fn *FunctionT) numberInstructions() {
	fn.instructionCount = 0
	for _, block := range fn.blocks {
		fn.instructionCount += len(block.phis.computed)
		for _, inst := range block.Instructions {
			if HasOpcode(inst) {
				fn.instructionCount += 1
			}
		}
	}
}

//----------------------------------------------------------------
// Queries on a finished function.

// The blocks in canonical order.  Before numbering this is computed
// fresh on every call.
func (fn *FunctionT) Blocks() []*BlockT {
	if fn.stage < stageBlocksNumbered {
		return traverse(fn.Entry)
	}
	return fn.blocks
}

func (fn *FunctionT) BlockCount() int {
	fn.checkNumbered("block count")
	return len(fn.blocks)
}

func (fn *FunctionT) InstructionCount() int {
	fn.checkNumbered("instruction count")
	return fn.instructionCount
}

func (fn *FunctionT) TemporaryCount() int {
	fn.checkNumbered("temporary count")
	return fn.temporaryCount
}

// Parameters followed by locals.
func (fn *FunctionT) Variables() []*VariableT {
	fn.checkNumbered("variables")
	return fn.variables
}

func (fn *FunctionT) IsFinished() bool {
	return fn.stage == stageNumbered
}

func compareBlocks(a, b *BlockT) int {
	return a.Index() - b.Index()
}

// The children of 'block' in successor order, without duplicates.
func uniqueChildren(block *BlockT) []*BlockT {
	result := []*BlockT{}
	for _, child := range block.Children {
		if !slices.Contains(result, child) {
			result = append(result, child)
		}
	}
	return result
}
