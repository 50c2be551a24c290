// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ssa

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

// The functions and global variables of one compilation unit.

type ProgramT struct {
	Functions []*FunctionT
	Globals   []*VariableT
	byName    map[string]*FunctionT
}

// The name of the function that initializes globals, if there is one.
const InitFunctionName = "init"

func MakeProgram() *ProgramT {
	return &ProgramT{byName: map[string]*FunctionT{}}
}

func (program *ProgramT) AddFunction(fn *FunctionT) {
	if _, found := program.byName[fn.Name]; found {
		panic("function '" + fn.Name + "' defined twice")
	}
	program.Functions = append(program.Functions, fn)
	program.byName[fn.Name] = fn
}

func (program *ProgramT) AddGlobal(vart *VariableT) {
	vart.index = len(program.Globals)
	program.Globals = append(program.Globals, vart)
}

// Returns nil if there is no such function.
func (program *ProgramT) Lookup(name string) *FunctionT {
	return program.byName[name]
}

// Run the pipeline on every function.  Functions are independent of
// one another so they are done in parallel, each on its own
// goroutine.  A panic within a function's pipeline is reported as an
// error for the whole program.

func (program *ProgramT) Finish() error {
	group := new(errgroup.Group)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for _, fn := range program.Functions {
		fn := fn
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Errorf("%s: %v", fn.Name, r)
				}
			}()
			fn.Finish()
			slog.Debug("Finished function", "func", fn.Name,
				"blocks", fn.BlockCount(),
				"temporaries", fn.TemporaryCount(),
				"instructions", fn.InstructionCount())
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "compilation failed")
	}
	return nil
}

func (program *ProgramT) String() string {
	return fmt.Sprintf("program with %d functions and %d globals",
		len(program.Functions), len(program.Globals))
}
