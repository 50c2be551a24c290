// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Compile, inspect and evaluate test files.
//  run     Evaluates the cases in a TOML file, 'front/testdata/cases.toml'
//          by default, and prints a table of the results.
//  dump    Prints the blocks of the functions in --file.
//  dot     Writes the block graph of --func in --file in DOT format.
//  blocks  Prints a table summarizing the blocks of --func in --file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"

	"github.com/s48/bytecode/front"
	"github.com/s48/bytecode/ssa"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug",
		Value: 2,
	}
	dirFlag = &cli.StringFlag{
		Name:  "dir",
		Usage: "Directory holding the source files",
		Value: filepath.Join("front", "testdata"),
	}
	casesFlag = &cli.StringFlag{
		Name:  "cases",
		Usage: "TOML file of evaluation cases (default: <dir>/cases.toml)",
	}
	fileFlag = &cli.StringFlag{
		Name:     "file",
		Usage:    "Go source file, relative to --dir",
		Required: true,
	}
	funcFlag = &cli.StringFlag{
		Name:  "func",
		Usage: "Only use the named function",
	}
	requiredFuncFlag = &cli.StringFlag{
		Name:     "func",
		Usage:    "The function to use",
		Required: true,
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Output file (default: standard output)",
	}

	runCommand = &cli.Command{
		Action: runCases,
		Name:   "run",
		Usage:  "Compile the source files and evaluate the cases",
		Flags:  []cli.Flag{casesFlag, funcFlag},
	}
	dumpCommand = &cli.Command{
		Action: dumpFunctions,
		Name:   "dump",
		Usage:  "Print the blocks and instructions of each function",
		Flags:  []cli.Flag{fileFlag, funcFlag},
	}
	dotCommand = &cli.Command{
		Action: writeDot,
		Name:   "dot",
		Usage:  "Write a function's block graph in DOT format",
		Flags:  []cli.Flag{fileFlag, requiredFuncFlag, outFlag},
	}
	blocksCommand = &cli.Command{
		Action: blockTable,
		Name:   "blocks",
		Usage:  "Print a table summarizing a function's blocks",
		Flags:  []cli.Flag{fileFlag, requiredFuncFlag},
	}
)

func main() {
	app := &cli.App{
		Name:     "bytecode",
		Usage:    "compile a subset of Go to SSA blocks",
		Flags:    []cli.Flag{verbosityFlag, dirFlag},
		Before:   setupLogging,
		Commands: []*cli.Command{runCommand, dumpCommand, dotCommand, blocksCommand},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) error {
	var level slog.Level
	switch verbosity := ctx.Int(verbosityFlag.Name); {
	case verbosity <= 0:
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil
	case verbosity == 1:
		level = slog.LevelError
	case verbosity == 2:
		level = slog.LevelWarn
	case verbosity == 3:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

func compile(ctx *cli.Context) (*ssa.ProgramT, error) {
	directory := ctx.String(dirFlag.Name)
	source := filepath.Join(directory, ctx.String(fileFlag.Name))
	contents, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	slog.Info("Compiling", "file", source)
	return front.CompileFile(source, contents, directory)
}

func lookupFunction(ctx *cli.Context, program *ssa.ProgramT) (*ssa.FunctionT, error) {
	name := ctx.String(requiredFuncFlag.Name)
	fn := program.Lookup(name)
	if fn == nil {
		return nil, errors.Errorf("no function named '%s'", name)
	}
	return fn, nil
}

//----------------------------------------------------------------

func runCases(ctx *cli.Context) error {
	directory := ctx.String(dirFlag.Name)
	casesFile := ctx.String(casesFlag.Name)
	if casesFile == "" {
		casesFile = filepath.Join(directory, "cases.toml")
	}
	cases, err := front.LoadCases(casesFile)
	if err != nil {
		return err
	}
	results := front.RunCases(directory, cases, ctx.String(funcFlag.Name))

	failed := 0
	rows := [][]string{}
	for _, result := range results {
		status := "ok"
		got := strconv.FormatInt(result.Got, 10)
		if result.Err != nil {
			status = "error"
			got = result.Err.Error()
		} else if !result.Passed() {
			status = "FAIL"
		}
		if !result.Passed() {
			failed += 1
		}
		rows = append(rows, []string{
			result.Case.File,
			result.Case.Func,
			formatArgs(result.Case.Args),
			strconv.FormatInt(result.Case.Want, 10),
			got,
			status})
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Func", "Args", "Want", "Got", "Result"})
	table.SetFooter([]string{"", "", "", "", "Failed", strconv.Itoa(failed)})
	table.AppendBulk(rows)
	table.Render()

	if 0 < failed {
		return errors.Errorf("%d of %d cases failed", failed, len(results))
	}
	return nil
}

func formatArgs(args []int64) string {
	strs := make([]string, len(args))
	for i, arg := range args {
		strs[i] = strconv.FormatInt(arg, 10)
	}
	return strings.Join(strs, " ")
}

func dumpFunctions(ctx *cli.Context) error {
	program, err := compile(ctx)
	if err != nil {
		return err
	}
	only := ctx.String(funcFlag.Name)
	for _, vart := range program.Globals {
		fmt.Printf("global %s %s\n", vart.Name, vart.Type)
	}
	for _, fn := range program.Functions {
		if only == "" || only == fn.Name {
			ssa.PpFunction(os.Stdout, fn)
			fmt.Println()
		}
	}
	return nil
}

func writeDot(ctx *cli.Context) error {
	program, err := compile(ctx)
	if err != nil {
		return err
	}
	fn, err := lookupFunction(ctx, program)
	if err != nil {
		return err
	}
	out := os.Stdout
	if name := ctx.String(outFlag.Name); name != "" {
		out, err = os.Create(name)
		if err != nil {
			return err
		}
		defer out.Close()
	}
	return ssa.WriteDot(out, fn, ctx.String(fileFlag.Name)+": "+fn.Name)
}

func blockTable(ctx *cli.Context) error {
	program, err := compile(ctx)
	if err != nil {
		return err
	}
	fn, err := lookupFunction(ctx, program)
	if err != nil {
		return err
	}
	rows := [][]string{}
	for _, block := range fn.Blocks() {
		idom := ""
		if block.Idom() != nil {
			idom = block.Idom().String()
		}
		rows = append(rows, []string{
			block.String(),
			joinBlocks(block.Parents),
			joinBlocks(block.Children),
			idom,
			strconv.Itoa(len(block.Phis().Computed())),
			strconv.Itoa(block.InstructionCount())})
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Block", "Parents", "Children", "Idom", "Phis", "Instructions"})
	table.SetFooter([]string{"", "", "", "", "Total", strconv.Itoa(fn.InstructionCount())})
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func joinBlocks(blocks []*ssa.BlockT) string {
	strs := make([]string, len(blocks))
	for i, block := range blocks {
		strs[i] = block.String()
	}
	return strings.Join(strs, " ")
}
