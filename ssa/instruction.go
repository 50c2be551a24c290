// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// The instruction set.  This is a closed sum type: every operation
// that looks inside instructions is a type switch that panics on an
// unknown kind, so adding a kind without updating them fails loudly.

package ssa

import (
	"bytes"
	"fmt"
)

type InstructionT interface {
	Opcode() OpcodeT
	Result() *TemporaryT // nil if there is none
	isInstruction()
}

type CommentT struct {
	Text string
}

type ConstT struct {
	Dest  *TemporaryT
	Type  TypeT
	Value int64 // booleans are 0 or 1
}

type LoadT struct {
	Dest *TemporaryT
	Var  *VariableT
}

type StoreT struct {
	Var   *VariableT
	Value *TemporaryT
}

type BinaryT struct {
	Op          OpcodeT
	Dest        *TemporaryT
	Left, Right *TemporaryT
}

type UnaryT struct {
	Op      OpcodeT
	Dest    *TemporaryT
	Operand *TemporaryT
}

// Dest is nil for calls whose value is not used.
type CallT struct {
	Dest   *TemporaryT
	Callee string
	Args   []*TemporaryT
}

type GotoT struct {
	Target *BlockT
}

// Jumps to Then if Cond is true, otherwise to Else.
type CondGotoT struct {
	Cond       *TemporaryT
	Else, Then *BlockT
}

// Value is nil in void functions.
type ReturnT struct {
	Value *TemporaryT
}

// Phi nodes are not kept in a block's instruction list; the block's
// phi manager holds them.  Edges are ordered by predecessor index.
type PhiNodeT struct {
	Dest  *TemporaryT
	Var   *VariableT
	Edges []PhiEdgeT
}

type PhiEdgeT struct {
	Block *BlockT
	Value *TemporaryT
}

func (*CommentT) Opcode() OpcodeT     { return 0 }
func (*ConstT) Opcode() OpcodeT       { return OpConst }
func (inst *BinaryT) Opcode() OpcodeT { return inst.Op }
func (inst *UnaryT) Opcode() OpcodeT  { return inst.Op }
func (*GotoT) Opcode() OpcodeT        { return OpGoto }
func (*CondGotoT) Opcode() OpcodeT    { return OpConditionalGoto }
func (*PhiNodeT) Opcode() OpcodeT     { return OpPhi }

func (inst *LoadT) Opcode() OpcodeT {
	if inst.Var.Kind == GlobalVar {
		return OpLoadGlobal
	}
	return OpLoad
}

func (inst *StoreT) Opcode() OpcodeT {
	if inst.Var.Kind == GlobalVar {
		return OpStoreGlobal
	}
	return OpStore
}

func (inst *CallT) Opcode() OpcodeT {
	if inst.Dest == nil {
		return OpVoidCall
	}
	return OpCall
}

func (inst *ReturnT) Opcode() OpcodeT {
	if inst.Value == nil {
		return OpReturnVoid
	}
	return OpReturn
}

func (*CommentT) Result() *TemporaryT      { return nil }
func (inst *ConstT) Result() *TemporaryT   { return inst.Dest }
func (inst *LoadT) Result() *TemporaryT    { return inst.Dest }
func (*StoreT) Result() *TemporaryT        { return nil }
func (inst *BinaryT) Result() *TemporaryT  { return inst.Dest }
func (inst *UnaryT) Result() *TemporaryT   { return inst.Dest }
func (inst *CallT) Result() *TemporaryT    { return inst.Dest }
func (*GotoT) Result() *TemporaryT         { return nil }
func (*CondGotoT) Result() *TemporaryT     { return nil }
func (*ReturnT) Result() *TemporaryT       { return nil }
func (inst *PhiNodeT) Result() *TemporaryT { return inst.Dest }

func (*CommentT) isInstruction()  {}
func (*ConstT) isInstruction()    {}
func (*LoadT) isInstruction()     {}
func (*StoreT) isInstruction()    {}
func (*BinaryT) isInstruction()   {}
func (*UnaryT) isInstruction()    {}
func (*CallT) isInstruction()     {}
func (*GotoT) isInstruction()     {}
func (*CondGotoT) isInstruction() {}
func (*ReturnT) isInstruction()   {}
func (*PhiNodeT) isInstruction()  {}

// Everything but comments ends up in the bytecode.
func HasOpcode(inst InstructionT) bool {
	_, isComment := inst.(*CommentT)
	return !isComment
}

func isTerminator(inst InstructionT) bool {
	switch inst.(type) {
	case *GotoT, *CondGotoT, *ReturnT:
		return true
	}
	return false
}

//----------------------------------------------------------------

// Replace operands using 'subst'.  Results are left alone.

func substituteTemporaries(rawInst InstructionT, subst map[*TemporaryT]*TemporaryT) {
	if len(subst) == 0 {
		return
	}
	replace := func(temp *TemporaryT) *TemporaryT {
		if temp == nil {
			return nil
		}
		if other, found := subst[temp]; found {
			return other
		}
		return temp
	}
	switch inst := rawInst.(type) {
	case *CommentT, *ConstT, *LoadT, *GotoT:
	case *StoreT:
		inst.Value = replace(inst.Value)
	case *BinaryT:
		inst.Left = replace(inst.Left)
		inst.Right = replace(inst.Right)
	case *UnaryT:
		inst.Operand = replace(inst.Operand)
	case *CallT:
		for i, arg := range inst.Args {
			inst.Args[i] = replace(arg)
		}
	case *CondGotoT:
		inst.Cond = replace(inst.Cond)
	case *ReturnT:
		inst.Value = replace(inst.Value)
	case *PhiNodeT:
		for i := range inst.Edges {
			inst.Edges[i].Value = replace(inst.Edges[i].Value)
		}
	default:
		panic(fmt.Sprintf("substituteTemporaries: unknown instruction %T", rawInst))
	}
}

func retargetJumps(rawInst InstructionT, from *BlockT, to *BlockT) {
	switch inst := rawInst.(type) {
	case *GotoT:
		if inst.Target == from {
			inst.Target = to
		}
	case *CondGotoT:
		if inst.Else == from {
			inst.Else = to
		}
		if inst.Then == from {
			inst.Then = to
		}
	case *CommentT, *ConstT, *LoadT, *StoreT, *BinaryT, *UnaryT, *CallT, *ReturnT, *PhiNodeT:
	default:
		panic(fmt.Sprintf("retargetJumps: unknown instruction %T", rawInst))
	}
}

func Operands(rawInst InstructionT) []*TemporaryT {
	switch inst := rawInst.(type) {
	case *CommentT, *ConstT, *LoadT, *GotoT:
		return nil
	case *StoreT:
		return []*TemporaryT{inst.Value}
	case *BinaryT:
		return []*TemporaryT{inst.Left, inst.Right}
	case *UnaryT:
		return []*TemporaryT{inst.Operand}
	case *CallT:
		return inst.Args
	case *CondGotoT:
		return []*TemporaryT{inst.Cond}
	case *ReturnT:
		if inst.Value == nil {
			return nil
		}
		return []*TemporaryT{inst.Value}
	case *PhiNodeT:
		result := make([]*TemporaryT, len(inst.Edges))
		for i, edge := range inst.Edges {
			result[i] = edge.Value
		}
		return result
	default:
		panic(fmt.Sprintf("Operands: unknown instruction %T", rawInst))
	}
}

//----------------------------------------------------------------

func InstructionString(rawInst InstructionT) string {
	buf := new(bytes.Buffer)
	if result := rawInst.Result(); result != nil {
		fmt.Fprintf(buf, "%s = ", result)
	}
	switch inst := rawInst.(type) {
	case *CommentT:
		fmt.Fprintf(buf, "; %s", inst.Text)
	case *ConstT:
		switch inst.Type {
		case BoolType:
			fmt.Fprintf(buf, "const %t", inst.Value != 0)
		case LongType:
			fmt.Fprintf(buf, "const %dL", inst.Value)
		default:
			fmt.Fprintf(buf, "const %d", inst.Value)
		}
	case *LoadT:
		fmt.Fprintf(buf, "%s %s", inst.Opcode(), inst.Var.Name)
	case *StoreT:
		fmt.Fprintf(buf, "%s %s %s", inst.Opcode(), inst.Var.Name, inst.Value)
	case *BinaryT:
		fmt.Fprintf(buf, "%s %s %s", inst.Op, inst.Left, inst.Right)
	case *UnaryT:
		fmt.Fprintf(buf, "%s %s", inst.Op, inst.Operand)
	case *CallT:
		fmt.Fprintf(buf, "%s %s", inst.Opcode(), inst.Callee)
		for _, arg := range inst.Args {
			fmt.Fprintf(buf, " %s", arg)
		}
	case *GotoT:
		fmt.Fprintf(buf, "goto %s", inst.Target)
	case *CondGotoT:
		fmt.Fprintf(buf, "cgoto %s %s else %s", inst.Cond, inst.Then, inst.Else)
	case *ReturnT:
		if inst.Value == nil {
			fmt.Fprintf(buf, "retv")
		} else {
			fmt.Fprintf(buf, "ret %s", inst.Value)
		}
	case *PhiNodeT:
		fmt.Fprintf(buf, "phi %s", inst.Var.Name)
		for _, edge := range inst.Edges {
			fmt.Fprintf(buf, " [%s %s]", edge.Block, edge.Value)
		}
	default:
		panic(fmt.Sprintf("InstructionString: unknown instruction %T", rawInst))
	}
	return buf.String()
}
