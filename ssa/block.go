// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Basic blocks and the primitives the lowering code uses to build
// them.

package ssa

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/s48/bytecode/util"
)

// Parents are ordered.  The last parent is the block's owner, the
// one that created it; traversal reaches a block only through its
// owner.  Back edges and other late edges are inserted at the front
// so they never become the owner.

type BlockT struct {
	Function     *FunctionT
	Instructions []InstructionT
	Parents      []*BlockT
	Children     []*BlockT

	id    int
	index int

	locals *LocalManagerT
	phis   *PhiManagerT

	// Set by dominance and frontier computation.
	dominators mapset.Set[*BlockT]
	idom       *BlockT
	frontier   util.SetT[*BlockT]

	constants map[constKeyT]*TemporaryT
}

type constKeyT struct {
	typ   TypeT
	value int64
}

// Makes a new block with the given parents.  The block inherits the
// variables that are alive in each parent.

func (fn *FunctionT) NewBlock(parents ...*BlockT) *BlockT {
	if fn.numbered {
		panic("ordering violation: adding a block to a finished function")
	}
	block := &BlockT{
		Function:  fn,
		id:        fn.nextBlockId,
		index:     -1,
		constants: map[constKeyT]*TemporaryT{}}
	fn.nextBlockId += 1
	block.locals = makeLocalManager(block)
	block.phis = makePhiManager(block)
	for _, parent := range parents {
		parent.Children = append(parent.Children, block)
		block.Parents = append(block.Parents, parent)
		block.locals.allAlive.AddAll(parent.locals.allAlive)
	}
	return block
}

// Adds 'target' as a child of 'block' without making 'block' its
// owner.  Used for loop back edges, 'break' and 'continue'.

func (block *BlockT) AddEdge(target *BlockT) {
	block.Children = append(block.Children, target)
	target.Parents = slices.Insert(target.Parents, 0, block)
}

// Called once the last block of a loop body is known, to close the
// loop back to its header.
func (block *BlockT) CreateCycle(header *BlockT) {
	block.AddEdge(header)
}

func (block *BlockT) owner() *BlockT {
	if len(block.Parents) == 0 {
		return nil
	}
	return block.Parents[len(block.Parents)-1]
}

func (block *BlockT) Index() int {
	if block.index < 0 {
		panic(fmt.Sprintf("ordering violation: block ?b%d has not been numbered", block.id))
	}
	return block.index
}

func (block *BlockT) String() string {
	if block.index < 0 {
		return fmt.Sprintf("?b%d", block.id)
	}
	return fmt.Sprintf("b%d", block.index)
}

func (block *BlockT) Idom() *BlockT {
	return block.idom
}

func (block *BlockT) Dominators() mapset.Set[*BlockT] {
	return block.dominators
}

func (block *BlockT) Frontier() util.SetT[*BlockT] {
	return block.frontier
}

func (block *BlockT) Locals() *LocalManagerT {
	return block.locals
}

func (block *BlockT) Phis() *PhiManagerT {
	return block.phis
}

//----------------------------------------------------------------
// Adding instructions.

func (block *BlockT) NewTemporary() *TemporaryT {
	return block.Function.newTemporary()
}

func (block *BlockT) Add(inst InstructionT) {
	if block.IsTerminated() {
		panic(fmt.Sprintf("adding %s after the end of block %s", InstructionString(inst), block))
	}
	block.Instructions = append(block.Instructions, inst)
}

func (block *BlockT) IsTerminated() bool {
	for i := len(block.Instructions) - 1; 0 <= i; i-- {
		inst := block.Instructions[i]
		if HasOpcode(inst) {
			return isTerminator(inst)
		}
	}
	return false
}

// Constants are interned per block, never across blocks.

func (block *BlockT) Const(typ TypeT, value int64) *TemporaryT {
	key := constKeyT{typ, value}
	if temp, found := block.constants[key]; found {
		return temp
	}
	temp := block.NewTemporary()
	block.Add(&ConstT{Dest: temp, Type: typ, Value: value})
	block.constants[key] = temp
	return temp
}

func (block *BlockT) IntConst(value int64) *TemporaryT {
	return block.Const(IntType, value)
}

func (block *BlockT) LongConst(value int64) *TemporaryT {
	return block.Const(LongType, value)
}

func (block *BlockT) BoolConst(value bool) *TemporaryT {
	if value {
		return block.Const(BoolType, 1)
	}
	return block.Const(BoolType, 0)
}

func (block *BlockT) Comment(text string) {
	block.Add(&CommentT{Text: text})
}

func (block *BlockT) Binary(op OpcodeT, left *TemporaryT, right *TemporaryT) *TemporaryT {
	temp := block.NewTemporary()
	block.Add(&BinaryT{Op: op, Dest: temp, Left: left, Right: right})
	return temp
}

func (block *BlockT) Unary(op OpcodeT, operand *TemporaryT) *TemporaryT {
	temp := block.NewTemporary()
	block.Add(&UnaryT{Op: op, Dest: temp, Operand: operand})
	return temp
}

func (block *BlockT) Load(vart *VariableT) *TemporaryT {
	temp := block.NewTemporary()
	block.Add(&LoadT{Dest: temp, Var: vart})
	return temp
}

func (block *BlockT) Store(vart *VariableT, value *TemporaryT) {
	block.Add(&StoreT{Var: vart, Value: value})
}

// Returns nil when 'void' is true.
func (block *BlockT) Call(callee string, void bool, args ...*TemporaryT) *TemporaryT {
	var temp *TemporaryT
	if !void {
		temp = block.NewTemporary()
	}
	block.Add(&CallT{Dest: temp, Callee: callee, Args: args})
	return temp
}

func (block *BlockT) Goto(target *BlockT) {
	block.Add(&GotoT{Target: target})
}

func (block *BlockT) CondGoto(cond *TemporaryT, elze *BlockT, then *BlockT) {
	block.Add(&CondGotoT{Cond: cond, Else: elze, Then: then})
}

func (block *BlockT) Return(value *TemporaryT) {
	block.Add(&ReturnT{Value: value})
}

// Variable access goes through the block's local manager.

func (block *BlockT) Declare(vart *VariableT, init *TemporaryT) {
	block.locals.Declare(vart, init)
}

func (block *BlockT) Read(vart *VariableT) *TemporaryT {
	return block.locals.Read(vart)
}

func (block *BlockT) Write(vart *VariableT, value *TemporaryT) {
	block.locals.Write(vart, value)
}

//----------------------------------------------------------------
// Finalized views used by the emitter.

// The number of phi nodes plus the number of non-comment instructions.
func (block *BlockT) InstructionCount() int {
	block.Function.checkNumbered("instruction count")
	count := len(block.phis.computed)
	for _, inst := range block.Instructions {
		if HasOpcode(inst) {
			count += 1
		}
	}
	return count
}

func (block *BlockT) SuccessorIndices() []int {
	result := make([]int, len(block.Children))
	for i, child := range block.Children {
		result[i] = child.Index()
	}
	return result
}

// Phi nodes followed by the instructions.
func (block *BlockT) Flat() []InstructionT {
	result := make([]InstructionT, 0, len(block.phis.computed)+len(block.Instructions))
	for _, phi := range block.phis.computed {
		result = append(result, phi)
	}
	return append(result, block.Instructions...)
}

//----------------------------------------------------------------
// The canonical order: a block, then, in order, each child that the
// block owns along with everything that child owns.

func traverse(entry *BlockT) []*BlockT {
	order := []*BlockT{}
	visited := util.NewSet[*BlockT]()
	stack := util.StackT[*BlockT]{}
	stack.Push(entry)
	for !stack.IsEmpty() {
		block := stack.Pop()
		if visited.Contains(block) {
			continue
		}
		visited.Add(block)
		order = append(order, block)
		for i := len(block.Children) - 1; 0 <= i; i-- {
			child := block.Children[i]
			if child.owner() == block {
				stack.Push(child)
			}
		}
	}
	return order
}
