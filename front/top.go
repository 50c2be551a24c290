// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Parsing and type checking Go source, and compiling every function
// in a file.

package front

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"github.com/s48/bytecode/ssa"
)

type ParsedFileT struct {
	AstFile   *ast.File
	Package   *types.Package
	TypesInfo *types.Info
	FileSet   *token.FileSet
}

// Imported packages are loaded from 'directory' with go/packages.

func ParseFile(fileName string, fileContents []byte, directory string) (*ParsedFileT, error) {
	fileSet := token.NewFileSet()
	// As recommended in the docs, we skip the old, pre-Generic object resolution.
	file, err := parser.ParseFile(fileSet, fileName, fileContents, parser.SkipObjectResolution)
	if err != nil {
		return nil, errors.Wrap(err, "parse failed")
	}

	imports := importsT{packages: map[string]*types.Package{}}
	if 0 < len(file.Imports) {
		paths := []string{}
		for _, spec := range file.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "bad import %s", spec.Path.Value)
			}
			paths = append(paths, path)
		}
		mode := packages.NeedName | packages.NeedTypes
		packageConf := &packages.Config{Mode: mode, Dir: directory}
		peckages, err := packages.Load(packageConf, paths...)
		if err != nil {
			return nil, errors.Wrap(err, "loading imports failed")
		}
		if 0 < packages.PrintErrors(peckages) {
			return nil, errors.New("imported packages had errors")
		}
		for _, peckage := range peckages {
			imports.packages[peckage.PkgPath] = peckage.Types
		}
	}

	conf := types.Config{Importer: imports}
	typeInfo := &types.Info{
		Types: map[ast.Expr]types.TypeAndValue{},
		Defs:  map[*ast.Ident]types.Object{},
		Uses:  map[*ast.Ident]types.Object{}}
	peckage, err := conf.Check(file.Name.Name, fileSet, []*ast.File{file}, typeInfo)
	if err != nil {
		return nil, errors.Wrap(err, "type check failed")
	}
	return &ParsedFileT{file, peckage, typeInfo, fileSet}, nil
}

// This implements the types.Importer interface.

type importsT struct {
	packages map[string]*types.Package
}

func (imports importsT) Import(path string) (*types.Package, error) {
	peckage := imports.packages[path]
	if peckage == nil {
		return nil, errors.Errorf("package '%s' not found", path)
	}
	return peckage, nil
}

//----------------------------------------------------------------

func CompileFile(fileName string, fileContents []byte, directory string) (*ssa.ProgramT, error) {
	parsedFile, err := ParseFile(fileName, fileContents, directory)
	if err != nil {
		return nil, errors.Wrap(err, fileName)
	}
	program, err := Compile(parsedFile)
	if err != nil {
		return nil, errors.Wrap(err, fileName)
	}
	return program, nil
}

// Lowers every function, each on its own goroutine, and then runs
// the SSA pipeline on all of them.  Package-level variables with
// initializers and any 'init' functions are combined into a single
// 'init' function.

func Compile(parsedFile *ParsedFileT) (*ssa.ProgramT, error) {
	program := ssa.MakeProgram()
	unit := &unitT{
		parsedFile: parsedFile,
		globals:    map[types.Object]*ssa.VariableT{}}

	var initSpecs []*ast.ValueSpec
	var funcDecls []*ast.FuncDecl
	var funcNames []string
	initCount := 0
	for _, rawDecl := range parsedFile.AstFile.Decls {
		switch decl := rawDecl.(type) {
		case *ast.FuncDecl:
			name := decl.Name.Name
			if name == ssa.InitFunctionName && decl.Recv == nil {
				initCount += 1
				name = initFunctionName(initCount)
			}
			funcDecls = append(funcDecls, decl)
			funcNames = append(funcNames, name)
		case *ast.GenDecl:
			switch decl.Tok {
			case token.IMPORT, token.CONST:
			case token.VAR:
				for _, rawSpec := range decl.Specs {
					spec := rawSpec.(*ast.ValueSpec)
					vars, err := unit.declareGlobals(spec)
					if err != nil {
						return nil, err
					}
					for _, vart := range vars {
						program.AddGlobal(vart)
					}
					if spec.Values != nil {
						initSpecs = append(initSpecs, spec)
					}
				}
			default:
				return nil, unit.unsupported(decl, decl.Tok.String()+" declaration")
			}
		}
	}

	functions := make([]*ssa.FunctionT, len(funcDecls))
	group := new(errgroup.Group)
	for i, decl := range funcDecls {
		i, decl := i, decl
		group.Go(func() error {
			fn, err := unit.lowerFunction(decl, funcNames[i])
			functions[i] = fn
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if 0 < len(initSpecs) || 0 < initCount {
		fn, err := unit.lowerInit(initSpecs, initCount)
		if err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}
	for _, fn := range functions {
		program.AddFunction(fn)
		slog.Debug("Lowered function", "func", fn.Name, "params", len(fn.Params))
	}
	if err := program.Finish(); err != nil {
		return nil, err
	}
	slog.Debug("Compiled", "functions", len(program.Functions), "globals", len(program.Globals))
	return program, nil
}
