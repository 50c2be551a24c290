// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Per-block variable bookkeeping.
//
// Lowering reads and writes source variables through the block it is
// currently filling.  A read of a variable the block has not written
// gets a placeholder temporary that is recorded as an undefined usage.
// Once phi nodes have been placed every placeholder is replaced by
// either a phi node's result or the nearest upstream write.

package ssa

import (
	"fmt"

	"github.com/s48/bytecode/util"
)

type LocalManagerT struct {
	block *BlockT
	// Variables declared in this block.
	declared util.SetT[*VariableT]
	// Variables declared here or in any block this one was created from.
	allAlive util.SetT[*VariableT]
	// The value each variable has on leaving the block, as far as is
	// known so far.
	written map[*VariableT]*TemporaryT
	// Variables read before being written, with their placeholders.
	undefined map[*VariableT]*TemporaryT
}

func makeLocalManager(block *BlockT) *LocalManagerT {
	return &LocalManagerT{
		block:     block,
		declared:  util.NewSet[*VariableT](),
		allAlive:  util.NewSet[*VariableT](),
		written:   map[*VariableT]*TemporaryT{},
		undefined: map[*VariableT]*TemporaryT{}}
}

func (locals *LocalManagerT) Declare(vart *VariableT, init *TemporaryT) {
	locals.declared.Add(vart)
	locals.allAlive.Add(vart)
	locals.Write(vart, init)
}

func (locals *LocalManagerT) Write(vart *VariableT, value *TemporaryT) {
	locals.written[vart] = value
}

func (locals *LocalManagerT) Read(vart *VariableT) *TemporaryT {
	if temp, found := locals.written[vart]; found {
		return temp
	}
	if temp, found := locals.undefined[vart]; found {
		return temp
	}
	temp := locals.block.NewTemporary()
	locals.undefined[vart] = temp
	return temp
}

func (locals *LocalManagerT) Written(vart *VariableT) (*TemporaryT, bool) {
	temp, found := locals.written[vart]
	return temp, found
}

func (locals *LocalManagerT) IsDeclared(vart *VariableT) bool {
	return locals.declared.Contains(vart)
}

func (locals *LocalManagerT) IsAlive(vart *VariableT) bool {
	return locals.allAlive.Contains(vart)
}

func (locals *LocalManagerT) UndefinedUsage(vart *VariableT) *TemporaryT {
	return locals.undefined[vart]
}

func (locals *LocalManagerT) HasUndefinedUsages() bool {
	return 0 < len(locals.undefined)
}

func (locals *LocalManagerT) ensureWritten(vart *VariableT, value *TemporaryT) {
	if _, found := locals.written[vart]; !found {
		locals.written[vart] = value
	}
}

// A phi node for 'vart' now supplies 'value' at the top of the block.
func (locals *LocalManagerT) define(vart *VariableT, value *TemporaryT) {
	locals.ensureWritten(vart, value)
	delete(locals.undefined, vart)
}

func (locals *LocalManagerT) writtenVars() []*VariableT {
	vars := util.NewSet[*VariableT]()
	for vart := range locals.written {
		vars.Add(vart)
	}
	return vars.Sorted(compareVariables)
}

func (locals *LocalManagerT) undefinedVars() []*VariableT {
	vars := util.NewSet[*VariableT]()
	for vart := range locals.undefined {
		vars.Add(vart)
	}
	return vars.Sorted(compareVariables)
}

// The nearest value for 'vart' found by searching breadth first
// from this block up through its parents.

func (locals *LocalManagerT) temporaryFor(vart *VariableT) *TemporaryT {
	temp := searchWritten(vart, []*BlockT{locals.block})
	if temp == nil {
		panic(fmt.Sprintf("no value for %s reaches %s", vart, locals.block))
	}
	return temp
}

func searchWritten(vart *VariableT, start []*BlockT) *TemporaryT {
	visited := util.NewSet[*BlockT]()
	queue := append([]*BlockT{}, start...)
	for 0 < len(queue) {
		block := queue[0]
		queue = queue[1:]
		if visited.Contains(block) {
			continue
		}
		visited.Add(block)
		if temp, found := block.locals.written[vart]; found {
			return temp
		}
		queue = append(queue, block.Parents...)
	}
	return nil
}

// Replace this block's placeholders.  First walk up the chain of
// single-parent ancestors; a phi node placed in an ancestor is
// recorded in that ancestor's written map, so the first ancestor
// with a value for the variable supplies it.  Anything left over is
// found by searching all ancestors breadth first.  The substitutions
// are applied to the block's instructions and returned.

func (locals *LocalManagerT) resolveUndefinedUsages() map[*TemporaryT]*TemporaryT {
	replacement := map[*TemporaryT]*TemporaryT{}
	resolve := func(vart *VariableT, actual *TemporaryT) {
		replacement[locals.undefined[vart]] = actual
		delete(locals.undefined, vart)
	}

	parent := locals.block
	for locals.HasUndefinedUsages() && len(parent.Parents) == 1 {
		parent = parent.Parents[0]
		for _, vart := range locals.undefinedVars() {
			if temp, found := parent.locals.written[vart]; found {
				resolve(vart, temp)
			}
		}
	}

	for _, vart := range locals.undefinedVars() {
		temp := searchWritten(vart, locals.block.Parents)
		if temp == nil {
			panic(fmt.Sprintf("could not find a value for %s read in %s", vart, locals.block))
		}
		resolve(vart, temp)
	}

	for vart, temp := range locals.written {
		if actual, found := replacement[temp]; found {
			locals.written[vart] = actual
		}
	}
	for _, inst := range locals.block.Instructions {
		substituteTemporaries(inst, replacement)
	}
	return replacement
}
