// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package front

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s48/bytecode/ssa"
)

func compileString(t *testing.T, source string) *ssa.ProgramT {
	program, err := CompileFile("source.go", []byte(source), "")
	require.NoError(t, err)
	return program
}

func compileTestdata(t *testing.T, name string) *ssa.ProgramT {
	path := filepath.Join("testdata", name)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	program, err := CompileFile(path, contents, "testdata")
	require.NoError(t, err)
	return program
}

func allPhis(fn *ssa.FunctionT) []*ssa.PhiNodeT {
	phis := []*ssa.PhiNodeT{}
	for _, block := range fn.Blocks() {
		phis = append(phis, block.Phis().Computed()...)
	}
	return phis
}

func TestCases(t *testing.T) {
	cases, err := LoadCases(filepath.Join("testdata", "cases.toml"))
	require.NoError(t, err)
	require.NotEmpty(t, cases)
	results := RunCases("testdata", cases, "")
	require.Len(t, results, len(cases))
	for _, result := range results {
		if assert.NoError(t, result.Err, "%s %v", result.Case.Func, result.Case.Args) {
			assert.Equal(t, result.Case.Want, result.Got, "%s %v", result.Case.Func, result.Case.Args)
		}
	}
}

func TestRunCasesFilter(t *testing.T) {
	cases, err := LoadCases(filepath.Join("testdata", "cases.toml"))
	require.NoError(t, err)
	results := RunCases("testdata", cases, "fact")
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, "fact", result.Case.Func)
		assert.True(t, result.Passed())
	}
}

func TestLoadCasesRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[case]]\nfunk = \"fact\"\n"), 0o644))
	_, err := LoadCases(path)
	assert.Error(t, err)
}

func TestMissingSourceFile(t *testing.T) {
	results := RunCases("testdata", []CaseT{{File: "missing.go", Func: "f"}}, "")
	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Err, "reading source")
	assert.False(t, results[0].Passed())
}

func TestIfElseGetsOnePhi(t *testing.T) {
	program := compileString(t, `package app

func pick(c bool, a int, b int) int {
	x := 0
	if c {
		x = a
	} else {
		x = b
	}
	return x
}
`)
	fn := program.Lookup("pick")
	require.NotNil(t, fn)
	phis := allPhis(fn)
	require.Len(t, phis, 1)
	assert.Equal(t, "x", phis[0].Var.Name)
	assert.Len(t, phis[0].Edges, 2)

	result, err := ssa.Evaluate(program, "pick", 1, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result)
	result, err = ssa.Evaluate(program, "pick", 0, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result)
}

func TestAndOrResultVariable(t *testing.T) {
	program := compileTestdata(t, "and.go")
	fn := program.Lookup("and")
	require.NotNil(t, fn)
	found := 0
	for _, vart := range fn.Variables() {
		if vart.Name == "&&1" {
			found += 1
		}
	}
	// Declared on both paths but numbered once.
	assert.Equal(t, 1, found)
	for i, vart := range fn.Variables() {
		assert.Equal(t, i, vart.Index())
	}
}

func TestGlobalsAndInit(t *testing.T) {
	program := compileTestdata(t, "globals.go")
	names := []string{}
	for _, vart := range program.Globals {
		names = append(names, vart.Name)
		assert.Equal(t, ssa.GlobalVar, vart.Kind)
	}
	assert.Equal(t, []string{"counter", "base", "scaled"}, names)
	require.NotNil(t, program.Lookup("init"))
	require.NotNil(t, program.Lookup("init.1"))
	require.NotNil(t, program.Lookup("init.2"))

	machine, err := ssa.MakeMachine(program)
	require.NoError(t, err)
	assert.Equal(t, int64(202), machine.Global(program.Globals[0]))
	assert.Equal(t, int64(100), machine.Global(program.Globals[1]))
	assert.Equal(t, int64(7), machine.Global(program.Globals[2]))

	result, err := machine.Call("bump", []int64{5})
	require.NoError(t, err)
	assert.Equal(t, int64(207), result)
	result, err = machine.Call("bump", []int64{3})
	require.NoError(t, err)
	assert.Equal(t, int64(210), result)
}

func TestNoInitWithoutInitializers(t *testing.T) {
	program := compileString(t, `package app

var total int

func add(n int) int {
	total += n
	return total
}
`)
	assert.Nil(t, program.Lookup("init"))
	result, err := ssa.Evaluate(program, "add", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result)
}

func TestUnreachableStatementsAreSkipped(t *testing.T) {
	program := compileString(t, `package app

func f(n int) int {
	for {
		return n
		n++
	}
}

func g(n int) {
	return
	n++
}
`)
	result, err := ssa.Evaluate(program, "f", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(6), result)
	_, err = ssa.Evaluate(program, "g", 6)
	assert.NoError(t, err)
}

func TestShadowing(t *testing.T) {
	program := compileString(t, `package app

func f(n int) int {
	x := n
	if 0 < n {
		x := x * 2
		n = x
	}
	return x + n
}
`)
	result, err := ssa.Evaluate(program, "f", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), result)
	result, err = ssa.Evaluate(program, "f", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), result)
}

// 'y' is written on both break paths but is out of scope at the loop
// exit, which is also reached when the condition fails.
func TestLoopLocalGetsNoPhiAtExit(t *testing.T) {
	program := compileString(t, `package app

func f(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		y := i
		if y == 5 {
			break
		}
		if y == 7 {
			break
		}
		s += y
	}
	return s
}
`)
	fn := program.Lookup("f")
	require.NotNil(t, fn)
	for _, phi := range allPhis(fn) {
		assert.NotEqual(t, "y", phi.Var.Name)
	}
	for _, test := range []struct{ n, want int64 }{{3, 3}, {6, 10}, {20, 10}} {
		result, err := ssa.Evaluate(program, "f", test.n)
		require.NoError(t, err)
		assert.Equal(t, test.want, result, "f(%d)", test.n)
	}
}

func TestUnsupported(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"goto", `package app

func f(n int) int {
loop:
	n--
	if 0 < n {
		goto loop
	}
	return n
}
`, "unsupported statement *ast.LabeledStmt"},
		{"switch", `package app

func f(n int) int {
	switch n {
	case 1:
		return 2
	}
	return n
}
`, "unsupported statement *ast.SwitchStmt"},
		{"string", `package app

func f(s string) int {
	return 1
}
`, "unsupported type string"},
		{"type declaration", `package app

type count int
`, "unsupported type declaration"},
		{"multiple results", `package app

func f() (int, int) {
	return 1, 2
}
`, "unsupported multiple results"},
		{"closure", `package app

func f() int {
	g := func() int { return 1 }
	return g()
}
`, "unsupported expression *ast.FuncLit"},
		{"builtin", `package app

func f(n int) int {
	return max(n, 3)
}
`, "unsupported call of max"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := CompileFile("source.go", []byte(test.source), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "source.go:")
			assert.Contains(t, err.Error(), test.want)
		})
	}
}

func TestParseAndTypeErrors(t *testing.T) {
	_, err := CompileFile("bad.go", []byte("package app\nfunc {"), "")
	assert.ErrorContains(t, err, "parse failed")
	_, err = CompileFile("bad.go", []byte("package app\nfunc f() int { return x }\n"), "")
	assert.ErrorContains(t, err, "type check failed")
}
