// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Evaluation cases: a TOML file listing functions to compile and run,
// their arguments and the results they should produce.
//
//   [[case]]
//   file = "call.go"
//   func = "fact"
//   args = [5]
//   want = 120

package front

import (
	"bufio"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"

	"github.com/s48/bytecode/ssa"
)

type CaseT struct {
	File string
	Func string
	Args []int64
	Want int64
}

type caseFileT struct {
	Case []CaseT
}

// Keys are the lower-case field names.  Unknown keys are errors.
var caseSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return strings.ToLower(key)
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return strings.ToLower(field)
	},
	MissingField: func(rt reflect.Type, field string) error {
		return errors.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

func LoadCases(path string) ([]CaseT, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var cases caseFileT
	err = caseSettings.NewDecoder(bufio.NewReader(file)).Decode(&cases)
	// Add the file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	if err != nil {
		return nil, err
	}
	return cases.Case, nil
}

type CaseResultT struct {
	Case CaseT
	Got  int64
	Err  error
}

func (result *CaseResultT) Passed() bool {
	return result.Err == nil && result.Got == result.Case.Want
}

// Runs the cases whose function is 'only', or all of them if 'only'
// is empty.  Each source file is compiled once, relative to
// 'directory'.

func RunCases(directory string, cases []CaseT, only string) []CaseResultT {
	type compiledT struct {
		program *ssa.ProgramT
		err     error
	}
	compiled := map[string]compiledT{}
	results := []CaseResultT{}
	for _, testCase := range cases {
		if only != "" && only != testCase.Func {
			continue
		}
		entry, found := compiled[testCase.File]
		if !found {
			entry.program, entry.err = compileSource(directory, testCase.File)
			compiled[testCase.File] = entry
		}
		result := CaseResultT{Case: testCase, Err: entry.err}
		if entry.err == nil {
			result.Got, result.Err = ssa.Evaluate(entry.program, testCase.Func, testCase.Args...)
		}
		if !result.Passed() {
			slog.Debug("Case failed", "file", testCase.File, "func", testCase.Func,
				"got", result.Got, "want", testCase.Want, "err", result.Err)
		}
		results = append(results, result)
	}
	return results
}

func compileSource(directory string, fileName string) (*ssa.ProgramT, error) {
	path := filepath.Join(directory, fileName)
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading source")
	}
	return CompileFile(path, contents, directory)
}
