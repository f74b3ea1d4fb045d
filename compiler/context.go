// Package compiler lowers a MathVM AST into bytecode (spec §4.4, §4.6).
//
// Context implements the translation context of spec §4.4: stacks of
// active function ids and scopes, variable declaration, and
// context-depth resolution for non-local variable access. It is
// grounded on original_source/context.hpp (enterFunction/exitFunction/
// enterScope/exitScope/declare) generalized to Go, and on the
// teacher's compiler.SymbolTable for the "Outer scope chain" idiom —
// but MathVM resolves non-locals by counting static nesting depth
// rather than by capturing free variables into a closure, so no
// FreeScope/closure machinery is carried over (see DESIGN.md).
package compiler

import (
	"github.com/dr8co/mathvm/ast"
	"github.com/dr8co/mathvm/bytecode"
	"github.com/dr8co/mathvm/vm"
)

// Context tracks the state needed while walking the AST: which
// function and scope are currently being compiled, and the
// expression-type side-table of spec §4.3 (kept here, not on the AST
// nodes). Variable (function id, local id) pairs are not kept here:
// Declare writes them to the Ref slot of each ast.Var.
type Context struct {
	Code *vm.Code

	funcStack  []int
	scopeStack []*ast.Scope

	exprTypes map[ast.Expression]bytecode.ValType
}

// NewContext creates a Context over a fresh code registry.
func NewContext() *Context {
	return &Context{Code: vm.NewCode(), exprTypes: make(map[ast.Expression]bytecode.ValType)}
}

// SetType records the inferred type of an evaluated expression node
// (spec §4.3: "producers must set it").
func (c *Context) SetType(e ast.Expression, t bytecode.ValType) {
	c.exprTypes[e] = t
}

// TypeOf returns the type a producer recorded for e (spec §4.3:
// "consumers must read the producer's annotation"). Returns
// VTInvalid if e was never annotated.
func (c *Context) TypeOf(e ast.Expression) bytecode.ValType {
	return c.exprTypes[e]
}

// CurrentFunctionID returns the id of the function currently being
// compiled.
func (c *Context) CurrentFunctionID() int {
	return c.funcStack[len(c.funcStack)-1]
}

// CurrentScope returns the innermost active scope.
func (c *Context) CurrentScope() *ast.Scope {
	return c.scopeStack[len(c.scopeStack)-1]
}

// Register assigns fn a stable id and creates its vm.Function entry if
// this is the first time fn has been seen, without compiling its body
// or making it the active function. Idempotent. Called for every
// function declared directly in a scope before any of their bodies
// are generated, so a call to a sibling function declared later in
// source order still resolves to a valid id (spec §4.6: "registering
// every function in the current scope... so forward references
// succeed").
func (c *Context) Register(fn *ast.Function) int {
	if fn.IDSet {
		return fn.ID
	}
	vfn := &vm.Function{
		Name:        fn.Name,
		ReturnType:  fn.ReturnType,
		Depth:       len(c.funcStack),
		LocalsCount: 0,
	}
	for _, p := range fn.Params {
		vfn.Params = append(vfn.Params, vm.Param{Name: p.Name, Type: p.Type})
	}
	vfn.Bytecode = &bytecode.Bytecode{}
	id := c.Code.AddFunction(vfn)
	fn.ID = id
	fn.IDSet = true
	return id
}

// EnterFunction registers fn if needed and pushes it as the active
// function being compiled.
func (c *Context) EnterFunction(fn *ast.Function) int {
	id := c.Register(fn)
	c.funcStack = append(c.funcStack, id)
	return id
}

// ExitFunction pops the active function.
func (c *Context) ExitFunction() {
	c.funcStack = c.funcStack[:len(c.funcStack)-1]
}

// EnterScope pushes scope as the active scope.
func (c *Context) EnterScope(scope *ast.Scope) {
	c.scopeStack = append(c.scopeStack, scope)
}

// ExitScope pops the active scope.
func (c *Context) ExitScope() {
	c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
}

// Declare allocates the next local id in the current function for v,
// increments that function's LocalsCount, and records (function id,
// local id) on v.Ref.
func (c *Context) Declare(v *ast.Var) ast.VarRef {
	fnID := c.CurrentFunctionID()
	fn := c.Code.FunctionByID(fnID)
	localID := fn.LocalsCount
	fn.LocalsCount++
	ref := ast.VarRef{FunctionID: fnID, LocalID: localID, Valid: true}
	v.Ref = ref
	return ref
}

// ContextDepth computes the number of lexical function boundaries to
// cross to reach v from the function currently being compiled (spec
// §4.4): always >= 1 for a genuinely non-local variable, 0 if v is
// local to the current function.
func (c *Context) ContextDepth(v *ast.Var) int {
	if !v.Ref.Valid {
		return 0
	}
	if v.Ref.FunctionID == c.CurrentFunctionID() {
		return 0
	}
	curFn := c.Code.FunctionByID(c.CurrentFunctionID())
	varFn := c.Code.FunctionByID(v.Ref.FunctionID)
	return curFn.Depth - varFn.Depth
}
