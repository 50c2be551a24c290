// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Converting Go ASTs into blocks.  This handles a small subset of
// Go: ints, int64s and bools, package-level functions and variables,
// and the usual statements.  Anything else is reported as unsupported.

package front

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/s48/bytecode/ssa"
	"github.com/s48/bytecode/util"
)

// State shared by all of the functions in a file.  It is read-only
// once the globals have been declared.

type unitT struct {
	parsedFile *ParsedFileT
	globals    map[types.Object]*ssa.VariableT
}

// Keeping track of where we are in the Go AST.

type envT struct {
	unit     *unitT
	typeInfo *types.Info
	fn       *ssa.FunctionT
	// Source objects -> variables from within the function.
	bindings map[types.Object]*ssa.VariableT
	// The block being filled, or nil if the code is unreachable.
	current *ssa.BlockT
	// Enclosing loops, innermost on top.
	loops util.StackT[*loopT]
	// For naming variables that hold the values of && and ||.
	synthetic int
}

// 'break' and 'continue' blocks are collected while the body is
// lowered and connected once the body is done.

type loopT struct {
	header    *ssa.BlockT
	after     *ssa.BlockT // nil for loops with no condition
	breaks    []*ssa.BlockT
	continues []*ssa.BlockT
}

// Unsupported constructs abandon the function by panicking with a
// bailout, which lowerFunction turns back into an error.

type bailoutT struct {
	err error
}

func catchBailout(err *error) {
	if r := recover(); r != nil {
		bailout, ok := r.(bailoutT)
		if !ok {
			panic(r)
		}
		*err = bailout.err
	}
}

func (unit *unitT) unsupported(node ast.Node, what string) error {
	position := unit.parsedFile.FileSet.Position(node.Pos())
	return errors.Errorf("%s: unsupported %s", position, what)
}

func (env *envT) fail(node ast.Node, format string, args ...any) {
	panic(bailoutT{env.unit.unsupported(node, fmt.Sprintf(format, args...))})
}

func (unit *unitT) makeEnv() *envT {
	return &envT{
		unit:     unit,
		typeInfo: unit.parsedFile.TypesInfo,
		bindings: map[types.Object]*ssa.VariableT{}}
}

//----------------------------------------------------------------
// Declarations

func (unit *unitT) declareGlobals(spec *ast.ValueSpec) (vars []*ssa.VariableT, err error) {
	defer catchBailout(&err)
	env := unit.makeEnv()
	for _, ident := range spec.Names {
		if ident.Name == "_" {
			continue
		}
		obj := env.typeInfo.Defs[ident]
		vart := ssa.MakeVariable(ident.Name, ssa.GlobalVar, env.ssaType(ident, obj.Type()))
		unit.globals[obj] = vart
		vars = append(vars, vart)
	}
	return vars, nil
}

func (unit *unitT) lowerFunction(decl *ast.FuncDecl, name string) (fn *ssa.FunctionT, err error) {
	defer catchBailout(&err)
	env := unit.makeEnv()
	if decl.Recv != nil {
		env.fail(decl, "method %s", decl.Name.Name)
	}
	if decl.Type.TypeParams != nil {
		env.fail(decl, "generic function %s", decl.Name.Name)
	}
	if decl.Body == nil {
		env.fail(decl, "function without a body %s", decl.Name.Name)
	}
	params := env.makeParams(decl.Type.Params)
	resultType := env.resultType(decl.Type.Results)
	env.fn = ssa.MakeFunction(name, params, resultType)
	env.current = env.fn.Entry
	env.lowerBlock(decl.Body)
	env.finishBody(decl)
	return env.fn, nil
}

// A file may have any number of 'init' functions.  They are
// compiled as 'init.1', 'init.2' and so on, which can't clash with
// names from the source.

func initFunctionName(i int) string {
	return fmt.Sprintf("%s.%d", ssa.InitFunctionName, i)
}

// The global initializers, in source order, followed by calls to
// the user's init functions.

func (unit *unitT) lowerInit(specs []*ast.ValueSpec, initCount int) (fn *ssa.FunctionT, err error) {
	defer catchBailout(&err)
	env := unit.makeEnv()
	env.fn = ssa.MakeFunction(ssa.InitFunctionName, nil, ssa.VoidType)
	env.current = env.fn.Entry
	for _, spec := range specs {
		values := env.lowerExprs(spec.Values)
		if len(values) != len(spec.Names) {
			env.fail(spec, "multi-value initializer")
		}
		for i, ident := range spec.Names {
			if ident.Name != "_" {
				env.current.Store(unit.globals[env.typeInfo.Defs[ident]], values[i])
			}
		}
	}
	for i := 1; i <= initCount; i++ {
		env.current.Call(initFunctionName(i), true)
	}
	env.current.Return(nil)
	return env.fn, nil
}

// Make the variables for a function's parameters.
func (env *envT) makeParams(fields *ast.FieldList) []*ssa.VariableT {
	params := []*ssa.VariableT{}
	for _, field := range fields.List {
		typ := env.ssaType(field.Type, env.typeInfo.TypeOf(field.Type))
		if len(field.Names) == 0 {
			params = append(params, ssa.MakeVariable("_", ssa.ParamVar, typ))
			continue
		}
		for _, ident := range field.Names {
			param := ssa.MakeVariable(ident.Name, ssa.ParamVar, typ)
			if obj := env.typeInfo.Defs[ident]; obj != nil {
				env.bindings[obj] = param
			}
			params = append(params, param)
		}
	}
	return params
}

func (env *envT) resultType(fields *ast.FieldList) ssa.TypeT {
	if fields == nil || len(fields.List) == 0 {
		return ssa.VoidType
	}
	if 1 < len(fields.List) || 1 < len(fields.List[0].Names) {
		env.fail(fields, "multiple results")
	}
	if len(fields.List[0].Names) != 0 {
		env.fail(fields, "named result")
	}
	field := fields.List[0]
	return env.ssaType(field.Type, env.typeInfo.TypeOf(field.Type))
}

// Falling off the end is only allowed in functions without results.
func (env *envT) finishBody(decl *ast.FuncDecl) {
	if env.current == nil {
		return
	}
	if env.fn.ResultType != ssa.VoidType {
		env.fail(decl.Body, "missing return in %s", decl.Name.Name)
	}
	env.current.Return(nil)
}

func (env *envT) ssaType(node ast.Node, typ types.Type) ssa.TypeT {
	if basic, ok := typ.Underlying().(*types.Basic); ok {
		switch basic.Kind() {
		case types.Int, types.UntypedInt:
			return ssa.IntType
		case types.Int64:
			return ssa.LongType
		case types.Bool, types.UntypedBool:
			return ssa.BoolType
		}
	}
	env.fail(node, "type %s", typ)
	return ssa.VoidType
}

func (env *envT) exprType(expr ast.Expr) ssa.TypeT {
	return env.ssaType(expr, env.typeInfo.TypeOf(expr))
}

func (env *envT) zeroValue(typ ssa.TypeT) *ssa.TemporaryT {
	if typ == ssa.BoolType {
		return env.current.BoolConst(false)
	}
	return env.current.Const(typ, 0)
}

func (env *envT) newLocal(ident *ast.Ident, value *ssa.TemporaryT) {
	obj := env.typeInfo.Defs[ident]
	vart := ssa.MakeVariable(ident.Name, ssa.LocalVar, env.ssaType(ident, obj.Type()))
	env.bindings[obj] = vart
	env.current.Declare(vart, value)
}

//----------------------------------------------------------------
// Statements

func (env *envT) lowerBlock(block *ast.BlockStmt) {
	for _, stmt := range block.List {
		env.lowerStmt(stmt)
	}
}

func (env *envT) lowerStmt(astNode ast.Stmt) {
	if env.current == nil {
		return // unreachable
	}
	switch x := astNode.(type) {
	case *ast.BlockStmt:
		env.lowerBlock(x)
	case *ast.EmptyStmt:
	case *ast.DeclStmt:
		env.lowerDeclStmt(x)
	case *ast.AssignStmt:
		env.lowerAssign(x)
	case *ast.IncDecStmt:
		op := ssa.OpAdd
		if x.Tok == token.DEC {
			op = ssa.OpSub
		}
		before := env.lowerExpr(x.X)
		one := env.current.Const(env.exprType(x.X), 1)
		env.assign(x.X, env.current.Binary(op, before, one), false)
	case *ast.ExprStmt:
		call, ok := astutil.Unparen(x.X).(*ast.CallExpr)
		if !ok {
			env.fail(x, "expression statement")
		}
		env.lowerCall(call, true)
	case *ast.ReturnStmt:
		if len(x.Results) == 0 {
			env.current.Return(nil)
		} else if len(x.Results) == 1 {
			env.current.Return(env.lowerExpr(x.Results[0]))
		} else {
			env.fail(x, "multiple return values")
		}
		env.current = nil
	case *ast.IfStmt:
		env.lowerIf(x)
	case *ast.ForStmt:
		env.lowerFor(x)
	case *ast.BranchStmt:
		env.lowerBranch(x)
	default:
		env.fail(astNode, "statement %T", astNode)
	}
}

func (env *envT) lowerDeclStmt(x *ast.DeclStmt) {
	decl, ok := x.Decl.(*ast.GenDecl)
	if !ok {
		env.fail(x, "declaration")
	}
	switch decl.Tok {
	case token.CONST:
	case token.VAR:
		for _, rawSpec := range decl.Specs {
			spec := rawSpec.(*ast.ValueSpec)
			var values []*ssa.TemporaryT
			if spec.Values != nil {
				values = env.lowerExprs(spec.Values)
				if len(values) != len(spec.Names) {
					env.fail(spec, "multi-value initializer")
				}
			}
			for i, ident := range spec.Names {
				if ident.Name == "_" {
					continue
				}
				if values == nil {
					typ := env.ssaType(ident, env.typeInfo.Defs[ident].Type())
					env.newLocal(ident, env.zeroValue(typ))
				} else {
					env.newLocal(ident, values[i])
				}
			}
		}
	default:
		env.fail(x, "%s declaration", decl.Tok)
	}
}

var opAssignOpcodes = map[token.Token]ssa.OpcodeT{
	token.ADD_ASSIGN: ssa.OpAdd,
	token.SUB_ASSIGN: ssa.OpSub,
	token.MUL_ASSIGN: ssa.OpMul,
	token.QUO_ASSIGN: ssa.OpDiv,
	token.REM_ASSIGN: ssa.OpMod,
	token.AND_ASSIGN: ssa.OpAnd,
	token.OR_ASSIGN:  ssa.OpOr}

func (env *envT) lowerAssign(x *ast.AssignStmt) {
	switch x.Tok {
	case token.DEFINE, token.ASSIGN:
		// All of the values are computed before any are assigned.
		if len(x.Lhs) != len(x.Rhs) {
			env.fail(x, "multi-value assignment")
		}
		values := env.lowerExprs(x.Rhs)
		for i, lhs := range x.Lhs {
			env.assign(lhs, values[i], x.Tok == token.DEFINE)
		}
	default:
		op, found := opAssignOpcodes[x.Tok]
		if !found {
			env.fail(x, "assignment operator %s", x.Tok)
		}
		before := env.lowerExpr(x.Lhs[0])
		after := env.current.Binary(op, before, env.lowerExpr(x.Rhs[0]))
		env.assign(x.Lhs[0], after, false)
	}
}

// Identifiers are the only assignable expressions we handle.  With
// 'define' set an identifier may introduce a new variable.

func (env *envT) assign(lhs ast.Expr, value *ssa.TemporaryT, define bool) {
	ident, ok := astutil.Unparen(lhs).(*ast.Ident)
	if !ok {
		env.fail(lhs, "assignment to %T", lhs)
	}
	if ident.Name == "_" {
		return
	}
	if define && env.typeInfo.Defs[ident] != nil {
		env.newLocal(ident, value)
		return
	}
	obj := env.typeInfo.ObjectOf(ident)
	if vart, found := env.bindings[obj]; found {
		env.current.Write(vart, value)
	} else if vart, found := env.unit.globals[obj]; found {
		env.current.Store(vart, value)
	} else {
		env.fail(ident, "assignment to %s", ident.Name)
	}
}

// The context block ends with a conditional jump to the 'then' block,
// falling through to the 'else' block.  The 'else' block jumps to the
// join and the 'then' block falls through to it.  Branches that
// return or break do not reach the join; if neither does there is no
// join and the statement does not complete.

func (env *envT) lowerIf(x *ast.IfStmt) {
	if x.Init != nil {
		env.lowerStmt(x.Init)
	}
	cond := env.lowerExpr(x.Cond)
	context := env.current
	context.Comment("if")
	elze := env.fn.NewBlock(context)
	then := env.fn.NewBlock(context)
	context.CondGoto(cond, elze, then)

	env.current = then
	env.lowerBlock(x.Body)
	thenOut := env.current

	env.current = elze
	if x.Else != nil {
		env.lowerStmt(x.Else)
	}
	elzeOut := env.current

	switch {
	case elzeOut != nil && thenOut != nil:
		env.current = env.fn.NewBlock(elzeOut, thenOut)
		elzeOut.Goto(env.current)
	case elzeOut != nil:
		env.current = env.fn.NewBlock(elzeOut)
	case thenOut != nil:
		env.current = env.fn.NewBlock(thenOut)
	default:
		env.current = nil
	}
}

// The header evaluates the condition and jumps to 'after' when it is
// false.  The body, followed by the post statement, jumps back to
// the header.
//
// From the Go spec, for Go 1.22 and later each iteration has its own
// copy of variables declared by the init statement.  That is only
// visible to closures, which we don't have.

func (env *envT) lowerFor(x *ast.ForStmt) {
	if x.Init != nil {
		env.lowerStmt(x.Init)
	}
	header := env.fn.NewBlock(env.current)
	header.Comment("for")
	loop := &loopT{header: header}
	var body *ssa.BlockT
	env.current = header
	if x.Cond == nil {
		body = env.fn.NewBlock(header)
	} else {
		cond := env.lowerExpr(x.Cond)
		test := env.current
		notCond := test.Unary(ssa.OpNot, cond)
		body = env.fn.NewBlock(test)
		loop.after = env.fn.NewBlock(test)
		test.CondGoto(notCond, body, loop.after)
	}

	env.loops.Push(loop)
	env.current = body
	env.lowerBlock(x.Body)
	env.loops.Pop()
	bodyOut := env.current

	// Continues go to the post statement if there is one, otherwise
	// back to the header.
	if x.Post == nil {
		for _, block := range loop.continues {
			block.Goto(header)
			block.AddEdge(header)
		}
	} else {
		sources := loop.continues
		if bodyOut != nil {
			sources = append(sources, bodyOut)
		}
		if 0 < len(sources) {
			owner := sources[len(sources)-1]
			post := env.fn.NewBlock(owner)
			post.Comment("post")
			owner.Goto(post)
			for _, block := range sources[:len(sources)-1] {
				block.Goto(post)
				block.AddEdge(post)
			}
			env.current = post
			env.lowerStmt(x.Post)
			bodyOut = env.current
		}
	}
	if bodyOut != nil {
		bodyOut.Goto(header)
		bodyOut.CreateCycle(header)
	}

	after := loop.after
	for _, block := range loop.breaks {
		if after == nil {
			after = env.fn.NewBlock(block)
		} else {
			block.AddEdge(after)
		}
		block.Goto(after)
	}
	env.current = after
}

func (env *envT) lowerBranch(x *ast.BranchStmt) {
	if x.Label != nil {
		env.fail(x, "labeled %s", x.Tok)
	}
	if env.loops.IsEmpty() {
		env.fail(x, "%s outside of a loop", x.Tok)
	}
	loop := env.loops.Top()
	switch x.Tok {
	case token.BREAK:
		loop.breaks = append(loop.breaks, env.current)
	case token.CONTINUE:
		loop.continues = append(loop.continues, env.current)
	default:
		env.fail(x, "%s", x.Tok)
	}
	env.current = nil
}

//----------------------------------------------------------------
// Expressions

// What Go says about the order of evaluation:
//
//   ..., when evaluating the operands of an expression, assignment, or
//   return statement, all function calls, method calls, and (channel)
//   communication operations are evaluated in lexical left-to-right order.
//
// We evaluate everything left to right.

func (env *envT) lowerExprs(exprs []ast.Expr) []*ssa.TemporaryT {
	values := make([]*ssa.TemporaryT, len(exprs))
	for i, expr := range exprs {
		values[i] = env.lowerExpr(expr)
	}
	return values
}

var binaryOpcodes = map[token.Token]ssa.OpcodeT{
	token.ADD: ssa.OpAdd,
	token.SUB: ssa.OpSub,
	token.MUL: ssa.OpMul,
	token.QUO: ssa.OpDiv,
	token.REM: ssa.OpMod,
	token.AND: ssa.OpAnd,
	token.OR:  ssa.OpOr,
	token.EQL: ssa.OpEq,
	token.NEQ: ssa.OpNeq,
	token.LSS: ssa.OpLt,
	token.LEQ: ssa.OpLte,
	token.GTR: ssa.OpGt,
	token.GEQ: ssa.OpGte}

func (env *envT) lowerExpr(astNode ast.Expr) *ssa.TemporaryT {
	astNode = astutil.Unparen(astNode)
	typeAndValue := env.typeInfo.Types[astNode]
	if typeAndValue.Value != nil {
		return env.lowerConstant(astNode, typeAndValue.Value)
	}
	switch x := astNode.(type) {
	case *ast.Ident:
		obj := env.typeInfo.ObjectOf(x)
		if vart, found := env.bindings[obj]; found {
			return env.current.Read(vart)
		}
		if vart, found := env.unit.globals[obj]; found {
			return env.current.Load(vart)
		}
		env.fail(x, "reference to %s", x.Name)
	case *ast.BinaryExpr:
		if x.Op == token.LAND || x.Op == token.LOR {
			return env.lowerAndOr(x)
		}
		op, found := binaryOpcodes[x.Op]
		if !found {
			env.fail(x, "operator %s", x.Op)
		}
		left := env.lowerExpr(x.X)
		right := env.lowerExpr(x.Y)
		return env.current.Binary(op, left, right)
	case *ast.UnaryExpr:
		operand := env.lowerExpr(x.X)
		switch x.Op {
		case token.ADD:
			return operand
		case token.SUB:
			return env.current.Unary(ssa.OpNeg, operand)
		case token.NOT:
			return env.current.Unary(ssa.OpNot, operand)
		}
		env.fail(x, "operator %s", x.Op)
	case *ast.CallExpr:
		return env.lowerCall(x, false)
	default:
		env.fail(astNode, "expression %T", astNode)
	}
	return nil
}

func (env *envT) lowerConstant(expr ast.Expr, value constant.Value) *ssa.TemporaryT {
	typ := env.exprType(expr)
	if typ == ssa.BoolType {
		return env.current.BoolConst(constant.BoolVal(value))
	}
	n, exact := constant.Int64Val(constant.ToInt(value))
	if !exact {
		env.fail(expr, "constant %s", value)
	}
	return env.current.Const(typ, n)
}

// && and || require conditionals because the second argument is
// evaluated only if the first is true (&&) or false (||).  The
// result is written to a new variable on both paths and read back at
// the join, which gives the join a phi node.

func (env *envT) lowerAndOr(x *ast.BinaryExpr) *ssa.TemporaryT {
	left := env.lowerExpr(x.X)
	env.synthetic += 1
	result := ssa.MakeVariable(fmt.Sprintf("%s%d", x.Op, env.synthetic), ssa.LocalVar, ssa.BoolType)

	context := env.current
	context.Comment(x.Op.String())
	elze := env.fn.NewBlock(context)
	then := env.fn.NewBlock(context)
	context.CondGoto(left, elze, then)

	// && short circuits when 'left' is false, || when it is true.
	shortCircuit, second := elze, then
	if x.Op == token.LOR {
		shortCircuit, second = then, elze
	}
	shortCircuit.Declare(result, shortCircuit.BoolConst(x.Op == token.LOR))
	env.current = second
	right := env.lowerExpr(x.Y)
	second = env.current
	second.Declare(result, right)

	join := env.fn.NewBlock(shortCircuit, second)
	shortCircuit.Goto(join)
	env.current = join
	return join.Read(result)
}

// Calls to package-level functions and conversions between integer
// types.  Returns nil for calls whose value is discarded.

func (env *envT) lowerCall(x *ast.CallExpr, discard bool) *ssa.TemporaryT {
	ident, ok := astutil.Unparen(x.Fun).(*ast.Ident)
	if !ok {
		env.fail(x, "call of %T", x.Fun)
	}
	switch obj := env.typeInfo.ObjectOf(ident).(type) {
	case *types.TypeName:
		if len(x.Args) != 1 {
			env.fail(x, "conversion")
		}
		env.exprType(x)
		// Ints and int64s have the same representation.
		return env.lowerExpr(x.Args[0])
	case *types.Func:
		if obj.Parent() != obj.Pkg().Scope() {
			env.fail(x, "call of %s", ident.Name)
		}
		if x.Ellipsis.IsValid() {
			env.fail(x, "variadic call")
		}
		signature := obj.Type().(*types.Signature)
		if 1 < signature.Results().Len() {
			env.fail(x, "call of %s with multiple results", ident.Name)
		}
		args := env.lowerExprs(x.Args)
		void := discard || signature.Results().Len() == 0
		return env.current.Call(ident.Name, void, args...)
	default:
		env.fail(x, "call of %s", ident.Name)
	}
	return nil
}
