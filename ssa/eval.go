// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Run finished functions as a program for testing.
//
// Values live in a register file indexed by temporary index.  All
// values are int64s; booleans are 0 or 1.

package ssa

import (
	"github.com/pkg/errors"
)

const maxCallDepth = 10000

type MachineT struct {
	program *ProgramT
	globals map[*VariableT]int64
	depth   int
}

// Makes a machine and runs the program's init function, if any.
func MakeMachine(program *ProgramT) (*MachineT, error) {
	machine := &MachineT{program: program, globals: map[*VariableT]int64{}}
	if program.Lookup(InitFunctionName) != nil {
		if _, err := machine.Call(InitFunctionName, nil); err != nil {
			return nil, err
		}
	}
	return machine, nil
}

// Convenience for running a single function in a fresh machine.
func Evaluate(program *ProgramT, name string, args ...int64) (int64, error) {
	machine, err := MakeMachine(program)
	if err != nil {
		return 0, err
	}
	return machine.Call(name, args)
}

func (machine *MachineT) Global(vart *VariableT) int64 {
	return machine.globals[vart]
}

// The result of a void function is zero.

func (machine *MachineT) Call(name string, args []int64) (int64, error) {
	fn := machine.program.Lookup(name)
	if fn == nil {
		return 0, errors.Errorf("no function named '%s'", name)
	}
	if len(args) != len(fn.Params) {
		return 0, errors.Errorf("%s takes %d arguments, got %d", name, len(fn.Params), len(args))
	}
	if !fn.IsFinished() {
		return 0, errors.Errorf("%s has not been compiled", name)
	}
	if maxCallDepth <= machine.depth {
		return 0, errors.Errorf("call depth exceeded in %s", name)
	}
	machine.depth += 1
	defer func() { machine.depth -= 1 }()

	regs := make([]int64, fn.TemporaryCount())
	for i, arg := range args {
		regs[fn.ParamTemporary(i).Index()] = arg
	}
	var previous *BlockT
	block := fn.Entry
	for {
		if err := evalPhis(block, previous, regs); err != nil {
			return 0, errors.Wrap(err, name)
		}
		next, result, done, err := machine.evalBlock(block, regs)
		if err != nil {
			return 0, errors.Wrap(err, name)
		}
		if done {
			return result, nil
		}
		previous, block = block, next
	}
}

// Phi nodes all read their inputs before any of them is set.

func evalPhis(block *BlockT, previous *BlockT, regs []int64) error {
	phis := block.phis.computed
	if len(phis) == 0 {
		return nil
	}
	values := make([]int64, len(phis))
	for i, phi := range phis {
		found := false
		for _, edge := range phi.Edges {
			if edge.Block == previous {
				values[i] = regs[edge.Value.Index()]
				found = true
				break
			}
		}
		if !found {
			from := "the entry"
			if previous != nil {
				from = previous.String()
			}
			return errors.Errorf("phi for %s in %s has no edge from %s", phi.Var.Name, block, from)
		}
	}
	for i, phi := range phis {
		regs[phi.Dest.Index()] = values[i]
	}
	return nil
}

func (machine *MachineT) evalBlock(block *BlockT, regs []int64) (*BlockT, int64, bool, error) {
	for _, rawInst := range block.Instructions {
		switch inst := rawInst.(type) {
		case *CommentT:
		case *ConstT:
			regs[inst.Dest.Index()] = inst.Value
		case *LoadT:
			regs[inst.Dest.Index()] = machine.globals[inst.Var]
		case *StoreT:
			machine.globals[inst.Var] = regs[inst.Value.Index()]
		case *BinaryT:
			value, err := evalBinary(inst.Op, regs[inst.Left.Index()], regs[inst.Right.Index()])
			if err != nil {
				return nil, 0, false, err
			}
			regs[inst.Dest.Index()] = value
		case *UnaryT:
			operand := regs[inst.Operand.Index()]
			switch inst.Op {
			case OpNeg:
				regs[inst.Dest.Index()] = -operand
			case OpNot:
				regs[inst.Dest.Index()] = boolValue(operand == 0)
			default:
				return nil, 0, false, errors.Errorf("unknown unary operator %s", inst.Op)
			}
		case *CallT:
			args := make([]int64, len(inst.Args))
			for i, arg := range inst.Args {
				args[i] = regs[arg.Index()]
			}
			value, err := machine.Call(inst.Callee, args)
			if err != nil {
				return nil, 0, false, err
			}
			if inst.Dest != nil {
				regs[inst.Dest.Index()] = value
			}
		case *GotoT:
			return inst.Target, 0, false, nil
		case *CondGotoT:
			if regs[inst.Cond.Index()] != 0 {
				return inst.Then, 0, false, nil
			}
			return inst.Else, 0, false, nil
		case *ReturnT:
			if inst.Value == nil {
				return nil, 0, true, nil
			}
			return nil, regs[inst.Value.Index()], true, nil
		default:
			return nil, 0, false, errors.Errorf("cannot evaluate %T", rawInst)
		}
	}
	if len(block.Children) != 1 {
		return nil, 0, false, errors.Errorf("%s falls through with %d children", block, len(block.Children))
	}
	return block.Children[0], 0, false, nil
}

func evalBinary(op OpcodeT, left int64, right int64) (int64, error) {
	switch op {
	case OpAdd:
		return left + right, nil
	case OpSub:
		return left - right, nil
	case OpMul:
		return left * right, nil
	case OpDiv, OpMod:
		if right == 0 {
			return 0, errors.New("division by zero")
		}
		if op == OpDiv {
			return left / right, nil
		}
		return left % right, nil
	case OpAnd:
		return left & right, nil
	case OpOr:
		return left | right, nil
	case OpLogicalAnd:
		return boolValue(left != 0 && right != 0), nil
	case OpLogicalOr:
		return boolValue(left != 0 || right != 0), nil
	case OpGt:
		return boolValue(left > right), nil
	case OpGte:
		return boolValue(left >= right), nil
	case OpEq:
		return boolValue(left == right), nil
	case OpNeq:
		return boolValue(left != right), nil
	case OpLte:
		return boolValue(left <= right), nil
	case OpLt:
		return boolValue(left < right), nil
	}
	return 0, errors.Errorf("unknown binary operator %s", op)
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
