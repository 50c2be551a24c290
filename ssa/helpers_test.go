// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ssa

import (
	mapset "github.com/deckarep/golang-set/v2"
)

func setOf(blocks ...*BlockT) mapset.Set[*BlockT] {
	return mapset.NewThreadUnsafeSet(blocks...)
}

func instructionStrings(block *BlockT) []string {
	result := []string{}
	for _, inst := range block.Instructions {
		result = append(result, InstructionString(inst))
	}
	return result
}
