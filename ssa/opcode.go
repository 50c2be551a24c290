// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ssa

import (
	"fmt"
)

// Bytecode opcodes.  The numeric values are part of the bytecode
// format and must not change.

type OpcodeT int

const (
	OpLoad            OpcodeT = 1
	OpStore           OpcodeT = 2
	OpConst           OpcodeT = 3
	OpAdd             OpcodeT = 4
	OpSub             OpcodeT = 5
	OpMul             OpcodeT = 6
	OpDiv             OpcodeT = 7
	OpMod             OpcodeT = 8
	OpNeg             OpcodeT = 9
	OpGt              OpcodeT = 10
	OpGte             OpcodeT = 11
	OpEq              OpcodeT = 12
	OpNeq             OpcodeT = 13
	OpLte             OpcodeT = 14
	OpLt              OpcodeT = 15
	OpAnd             OpcodeT = 16
	OpOr              OpcodeT = 17
	OpLogicalAnd      OpcodeT = 18
	OpLogicalOr       OpcodeT = 19
	OpNot             OpcodeT = 20
	OpNew             OpcodeT = 21
	OpGoto            OpcodeT = 22
	OpConditionalGoto OpcodeT = 23
	OpLength          OpcodeT = 25
	OpPhi             OpcodeT = 26
	OpCall            OpcodeT = 28
	OpVoidCall        OpcodeT = 30
	OpReturnVoid      OpcodeT = 32
	OpReturn          OpcodeT = 33
	OpLoadGlobal      OpcodeT = 103
	OpStoreGlobal     OpcodeT = 104
)

var opcodeNames = map[OpcodeT]string{
	OpLoad:            "load",
	OpStore:           "store",
	OpConst:           "const",
	OpAdd:             "add",
	OpSub:             "sub",
	OpMul:             "mul",
	OpDiv:             "div",
	OpMod:             "mod",
	OpNeg:             "neg",
	OpGt:              "gt",
	OpGte:             "gte",
	OpEq:              "eq",
	OpNeq:             "neq",
	OpLte:             "lte",
	OpLt:              "lt",
	OpAnd:             "and",
	OpOr:              "or",
	OpLogicalAnd:      "land",
	OpLogicalOr:       "lor",
	OpNot:             "not",
	OpNew:             "new",
	OpGoto:            "goto",
	OpConditionalGoto: "cgoto",
	OpLength:          "length",
	OpPhi:             "phi",
	OpCall:            "call",
	OpVoidCall:        "vcall",
	OpReturnVoid:      "retv",
	OpReturn:          "ret",
	OpLoadGlobal:      "loadg",
	OpStoreGlobal:     "storeg",
}

func (op OpcodeT) String() string {
	name, found := opcodeNames[op]
	if !found {
		return fmt.Sprintf("op%d", int(op))
	}
	return name
}

// Binary operators whose result is a boolean.
func (op OpcodeT) IsComparison() bool {
	switch op {
	case OpGt, OpGte, OpEq, OpNeq, OpLte, OpLt:
		return true
	}
	return false
}
