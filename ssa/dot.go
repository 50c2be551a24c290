// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ssa

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Writes the block graph in Graphviz DOT format.  Back edges and
// other non-owning edges are dashed.

func WriteDot(out io.Writer, fn *FunctionT, title string) error {
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "digraph %q {\n", fn.Name)
	fmt.Fprintln(w, "  node [shape=box, fontname=\"monospace\"];")
	if title != "" {
		fmt.Fprintf(w, "  labelloc=\"t\";\n  label=\"%s\";\n", escapeDot(title))
	}
	blocks := fn.Blocks()
	for _, block := range blocks {
		lines := []string{block.String()}
		for _, inst := range block.Flat() {
			lines = append(lines, InstructionString(inst))
		}
		label := strings.Join(lines, "\\l") + "\\l"
		fmt.Fprintf(w, "  n%d [label=\"%s\"];\n", block.id, escapeDot(label))
	}
	for _, block := range blocks {
		for _, child := range uniqueChildren(block) {
			if child.owner() == block {
				fmt.Fprintf(w, "  n%d -> n%d;\n", block.id, child.id)
			} else {
				fmt.Fprintf(w, "  n%d -> n%d [style=dashed];\n", block.id, child.id)
			}
		}
	}
	fmt.Fprintln(w, "}")
	return w.Flush()
}

// Quotes are escaped; backslash sequences such as \l are left for
// Graphviz.
func escapeDot(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
