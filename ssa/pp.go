// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Pretty-printer for finished functions.  Each counted instruction
// (phi nodes and everything but comments) is prefixed with its
// position in the function.

package ssa

import (
	"fmt"
	"io"
	"strings"
)

func PpFunction(out io.Writer, fn *FunctionT) {
	writer := MakePpWriter(out)
	fmt.Fprintf(writer, "func %s(", fn.Name)
	for i, param := range fn.Params {
		if 0 < i {
			fmt.Fprintf(writer, ", ")
		}
		fmt.Fprintf(writer, "%s %s", param.Name, param.Type)
	}
	fmt.Fprintf(writer, ") %s", fn.ResultType)
	writer.Newline()
	count := 0
	for _, block := range fn.Blocks() {
		ppBlockHeader(block, writer)
		for _, inst := range block.Flat() {
			if HasOpcode(inst) {
				writer.IndentTo(2)
				fmt.Fprintf(writer, "%d", count)
				count += 1
			}
			writer.IndentTo(8)
			fmt.Fprintf(writer, "%s", InstructionString(inst))
			writer.Newline()
		}
	}
}

func ppBlockHeader(block *BlockT, writer *PpWriterT) {
	fmt.Fprintf(writer, "%s:", block)
	writer.IndentTo(8)
	fmt.Fprintf(writer, "parents %s", blockList(block.Parents))
	writer.IndentTo(32)
	fmt.Fprintf(writer, "children %s", blockList(block.Children))
	if block.idom != nil {
		writer.IndentTo(56)
		fmt.Fprintf(writer, "idom %s", block.idom)
	}
	writer.Newline()
}

func blockList(blocks []*BlockT) string {
	names := make([]string, len(blocks))
	for i, block := range blocks {
		names[i] = block.String()
	}
	return "(" + strings.Join(names, " ") + ")"
}

//----------------------------------------------------------------
// An io.Writer that keeps track of the current column.

type PpWriterT struct {
	writer io.Writer
	Column int
}

func MakePpWriter(writer io.Writer) *PpWriterT {
	return &PpWriterT{writer: writer}
}

func (writer *PpWriterT) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			writer.Column = 0
		} else {
			writer.Column += 1
		}
	}
	return writer.writer.Write(p)
}

func (writer *PpWriterT) Newline() {
	writer.Write([]byte("\n"))
}

// Moves to 'column', starting a new line if we are already past it.
func (writer *PpWriterT) IndentTo(column int) {
	if column < writer.Column {
		writer.Newline()
	}
	if writer.Column < column {
		writer.Write([]byte(strings.Repeat(" ", column-writer.Column)))
	}
}
