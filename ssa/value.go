// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// SSA values and source variables.

package ssa

import (
	"fmt"
	"sync/atomic"
)

type TypeT int

const (
	VoidType TypeT = iota
	IntType
	LongType
	BoolType
)

func (typ TypeT) String() string {
	return [...]string{"void", "int", "long", "bool"}[typ]
}

//----------------------------------------------------------------
// A temporary is an SSA value.  Identity is the pointer; the index
// is assigned once, by numbering, and is meaningless before then.

type TemporaryT struct {
	id    int
	index int
}

func (temp *TemporaryT) Index() int {
	if !temp.IsNumbered() {
		panic(fmt.Sprintf("ordering violation: temporary ?%d has not been numbered", temp.id))
	}
	return temp.index
}

func (temp *TemporaryT) IsNumbered() bool {
	return 0 <= temp.index
}

func (temp *TemporaryT) String() string {
	if !temp.IsNumbered() {
		return fmt.Sprintf("?%d", temp.id)
	}
	return fmt.Sprintf("t%d", temp.index)
}

//----------------------------------------------------------------
// Source-level storage locations.

type VarKindT int

const (
	ParamVar VarKindT = iota
	LocalVar
	GlobalVar
)

type VariableT struct {
	Name  string
	Kind  VarKindT
	Type  TypeT
	Id    int // unique, increasing in creation order
	index int
}

var nextVariableId atomic.Int64

func MakeVariable(name string, kind VarKindT, typ TypeT) *VariableT {
	return &VariableT{
		Name:  name,
		Kind:  kind,
		Type:  typ,
		Id:    int(nextVariableId.Add(1)),
		index: -1}
}

func (vart *VariableT) Index() int {
	if vart.index < 0 {
		panic(fmt.Sprintf("ordering violation: variable %s has not been numbered", vart.Name))
	}
	return vart.index
}

func (vart *VariableT) String() string {
	return fmt.Sprintf("%s_%d", vart.Name, vart.Id)
}

func compareVariables(a, b *VariableT) int {
	return a.Id - b.Id
}
