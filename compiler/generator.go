// Generator implements the bytecode generator of spec §4.6: a single
// pass over the AST that emits bytecode into the functions Context
// registers, grounded on original_source/bytecode_generator.cpp for
// exact emission order and operand-stack discipline, and on the
// teacher's switch-on-node-type Compile dispatch for Go shape.
package compiler

import (
	"fmt"

	"github.com/dr8co/mathvm/ast"
	"github.com/dr8co/mathvm/bytecode"
	"github.com/dr8co/mathvm/token"
	"github.com/dr8co/mathvm/vm"
)

// Generator walks an AST and emits bytecode into a Context's code
// registry. It follows spec §4.6.9 strategy (b): the first error
// encountered is latched and generation keeps walking the tree (fail
// ignores every later error, so only the first is ever reported),
// but no bytecode reaches the registry as "final" if err != nil --
// Generate reports the latched error instead of the partially built
// Code.
type Generator struct {
	ctx *Context
	err *TranslationError
}

// Generate compiles program into a Code registry, or returns the
// first TranslationError encountered.
func Generate(program *ast.Program) (*vm.Code, error) {
	g := &Generator{ctx: NewContext()}
	g.genFunction(program.Top)
	if g.err != nil {
		return nil, g.err
	}
	return g.ctx.Code, nil
}

func (g *Generator) fail(n ast.Node, format string, args ...any) {
	if g.err != nil {
		return
	}
	pos := n.Pos()
	g.err = &TranslationError{
		Message: fmt.Sprintf(format, args...),
		Line:    pos.Line,
		Column:  pos.Column,
	}
}

// bc returns the bytecode buffer of the function currently being
// compiled.
func (g *Generator) bc() *bytecode.Bytecode {
	return g.ctx.Code.FunctionByID(g.ctx.CurrentFunctionID()).Bytecode
}

func (g *Generator) isTopLevel(fn *ast.Function) bool {
	return fn.ID == 0
}

// genFunction compiles fn in full: registers it (if not already),
// declares its parameters and top-level locals, emits the parameter
// prologue, compiles its body, and appends the function's
// unconditional terminator (spec §4.6: "ending with STOP for the
// top-level function or RETURN otherwise").
func (g *Generator) genFunction(fn *ast.Function) {
	g.ctx.EnterFunction(fn)
	for _, p := range fn.Params {
		if p.Type == bytecode.VTString {
			g.fail(fn, "string parameters are not allowed (%s in %s)", p.Name, fn.Name)
		}
	}

	block := fn.Body
	g.ctx.EnterScope(block.Scope)
	for _, v := range block.Scope.Vars {
		g.ctx.Declare(v)
	}
	g.genParamPrologue(fn)
	for _, nested := range block.Scope.Functions {
		g.ctx.Register(nested)
	}
	for _, nested := range block.Scope.Functions {
		g.genFunction(nested)
	}
	for _, stmt := range block.Statements {
		g.genStatement(stmt)
	}
	g.ctx.ExitScope()

	if g.isTopLevel(fn) {
		g.bc().AddInsn(bytecode.OpStop)
	} else {
		g.bc().AddInsn(bytecode.OpReturn)
	}
	g.ctx.ExitFunction()
}

// genParamPrologue emits spec §4.6.1's prologue: the operand stack
// holds the call's arguments with the rightmost parameter on top, so
// they are popped into their local slots in reverse declaration order.
func (g *Generator) genParamPrologue(fn *ast.Function) {
	n := len(fn.Params)
	if n == 0 {
		return
	}
	params := fn.Body.Scope.Vars[:n]
	for i := n - 1; i >= 0; i-- {
		g.storeVar(fn, params[i])
	}
}

// genBlock enters block's own scope, declares every variable declared
// directly in it, registers every function declared directly in it
// (assigning each an id before any of their bodies are compiled, so a
// function may call a sibling declared later in the same block),
// compiles those bodies, then visits the statements in source order.
// Used for every nested block (if/while/for bodies); a function's own
// top block is handled directly by genFunction so the parameter
// prologue can be inserted between declaration and the first
// statement.
func (g *Generator) genBlock(block *ast.Block) {
	g.ctx.EnterScope(block.Scope)
	for _, v := range block.Scope.Vars {
		g.ctx.Declare(v)
	}
	for _, fn := range block.Scope.Functions {
		g.ctx.Register(fn)
	}
	for _, fn := range block.Scope.Functions {
		g.genFunction(fn)
	}
	for _, stmt := range block.Statements {
		g.genStatement(stmt)
	}
	g.ctx.ExitScope()
}

func (g *Generator) genStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Block:
		g.genBlock(s)
	case *ast.ExpressionStatement:
		if s.Expression == nil {
			return
		}
		t := g.genExpr(s.Expression)
		if t != bytecode.VTVoid {
			g.bc().AddInsn(bytecode.OpPop)
		}
	case *ast.VarDecl:
		// Already declared by the enclosing genBlock's scope pass.
	case *ast.IfNode:
		g.genIf(s)
	case *ast.WhileNode:
		g.genWhile(s)
	case *ast.ForNode:
		g.genFor(s)
	case *ast.ReturnNode:
		g.genReturn(s)
	case *ast.PrintNode:
		g.genPrint(s)
	case *ast.StoreNode:
		g.genStore(s)
	default:
		g.fail(stmt, "unsupported statement %T", stmt)
	}
}

// genIf emits:
//
//	<cond>            ; value on stack
//	ILOAD0
//	IFICMPE else
//	<consequence>
//	JA end            ; only if an alternative exists
//
// else:
//
//	<alternative>
//
// end:
func (g *Generator) genIf(n *ast.IfNode) {
	elseLabel := g.genCondAndBranchIfZero(n.Condition)
	g.genBlock(n.Consequence)
	if n.Alternative != nil {
		endLabel := &bytecode.Label{}
		g.bc().AddBranch(bytecode.OpJA, endLabel)
		g.bc().Bind(elseLabel)
		g.genBlock(n.Alternative)
		g.bc().Bind(endLabel)
	} else {
		g.bc().Bind(elseLabel)
	}
}

// genCondAndBranchIfZero compiles cond, then emits a branch to a fresh
// (not-yet-bound) label taken when cond evaluated to 0. The caller
// binds the returned label at whichever point the "false" path
// resumes.
func (g *Generator) genCondAndBranchIfZero(cond ast.Expression) *bytecode.Label {
	t := g.genExpr(cond)
	if t != bytecode.VTInt && t != bytecode.VTInvalid {
		g.fail(cond, "condition must be int, got %s", t)
	}
	g.bc().AddInsn(bytecode.OpILoad0)
	label := &bytecode.Label{}
	g.bc().AddBranch(bytecode.OpIfICmpE, label)
	return label
}

func (g *Generator) genWhile(n *ast.WhileNode) {
	top := &bytecode.Label{}
	g.bc().Bind(top)
	exit := g.genCondAndBranchIfZero(n.Condition)
	g.genBlock(n.Body)
	g.bc().AddBranch(bytecode.OpJA, top)
	g.bc().Bind(exit)
}

// genFor lowers `for (v in lo..hi) body` to a counted loop over a
// compiler-synthesized hidden local holding hi, evaluating lo and hi
// exactly once (Open Question decision recorded in DESIGN.md): inclusive
// of hi, integer step 1.
func (g *Generator) genFor(n *ast.ForNode) {
	v, _ := g.ctx.CurrentScope().LookupVar(n.VarName)
	if v == nil {
		g.fail(n, "undeclared variable %s", n.VarName)
		return
	}
	if v.Type != bytecode.VTInt {
		g.fail(n, "for-loop variable must be int")
	}
	loT := g.genExpr(n.Lo)
	if loT != bytecode.VTInt && loT != bytecode.VTInvalid {
		g.fail(n.Lo, "for-loop lower bound must be int, got %s", loT)
	}
	g.storeVar(n, v)

	hiVar := &ast.Var{Name: "$hi", Type: bytecode.VTInt}
	g.ctx.Declare(hiVar)
	hiT := g.genExpr(n.Hi)
	if hiT != bytecode.VTInt && hiT != bytecode.VTInvalid {
		g.fail(n.Hi, "for-loop upper bound must be int, got %s", hiT)
	}
	g.storeVar(n, hiVar)

	top := &bytecode.Label{}
	g.bc().Bind(top)
	g.loadVar(n, v)
	g.loadVar(n, hiVar)
	exit := &bytecode.Label{}
	g.bc().AddBranch(bytecode.OpIfICmpG, exit)

	g.genBlock(n.Body)

	g.loadVar(n, v)
	g.bc().AddInsn(bytecode.OpILoad1)
	g.bc().AddInsn(bytecode.OpIAdd)
	g.storeVar(n, v)
	g.bc().AddBranch(bytecode.OpJA, top)
	g.bc().Bind(exit)
}

func (g *Generator) genReturn(n *ast.ReturnNode) {
	fn := g.ctx.Code.FunctionByID(g.ctx.CurrentFunctionID())
	if n.ReturnExpr == nil {
		if fn.ReturnType != bytecode.VTVoid {
			g.fail(n, "missing return value in function %s returning %s", fn.Name, fn.ReturnType)
		}
		g.bc().AddInsn(bytecode.OpReturn)
		return
	}
	t := g.genExpr(n.ReturnExpr)
	g.coerceTo(n.ReturnExpr, t, fn.ReturnType)
	g.bc().AddInsn(bytecode.OpReturn)
}

func (g *Generator) genPrint(n *ast.PrintNode) {
	for _, op := range n.Operands {
		t := g.genExpr(op)
		switch t {
		case bytecode.VTInt:
			g.bc().AddInsn(bytecode.OpIPrint)
		case bytecode.VTDouble:
			g.bc().AddInsn(bytecode.OpDPrint)
		case bytecode.VTString:
			g.bc().AddInsn(bytecode.OpSPrint)
		default:
			g.fail(op, "cannot print value of type %s", t)
		}
	}
}

// genStore emits `var op= value;`. For the compound forms the current
// value is loaded first, the new value is computed with the same
// int/double promotion rule as a binary operator, then stored.
func (g *Generator) genStore(n *ast.StoreNode) {
	v, _ := g.ctx.CurrentScope().LookupVar(n.Name)
	if v == nil {
		g.fail(n, "undeclared variable %s", n.Name)
		g.genExpr(n.Value)
		return
	}
	if n.Op == token.TAssign {
		t := g.genExpr(n.Value)
		g.coerceTo(n.Value, t, v.Type)
		g.storeVar(n, v)
		return
	}

	g.loadVar(n, v)
	rt := g.genExpr(n.Value)
	lt := v.Type
	resT := g.promote(n, lt, rt)
	switch n.Op {
	case token.TIncrSet:
		if resT == bytecode.VTInt {
			g.bc().AddInsn(bytecode.OpIAdd)
		} else {
			g.bc().AddInsn(bytecode.OpDAdd)
		}
	case token.TDecrSet:
		if resT == bytecode.VTInt {
			g.bc().AddInsn(bytecode.OpISub)
		} else {
			g.bc().AddInsn(bytecode.OpDSub)
		}
	default:
		g.fail(n, "unsupported assignment operator %s", n.Op)
	}
	g.coerceTo(n, resT, v.Type)
	g.storeVar(n, v)
}

// genExpr compiles e, leaving exactly one value on the operand stack
// (none for a call to a void function), and returns (and records via
// ctx.SetType) the type of that value.
func (g *Generator) genExpr(e ast.Expression) bytecode.ValType {
	var t bytecode.ValType
	switch n := e.(type) {
	case *ast.Identifier:
		v, _ := g.ctx.CurrentScope().LookupVar(n.Name)
		if v == nil {
			g.fail(n, "undeclared variable %s", n.Name)
			t = bytecode.VTInvalid
			break
		}
		g.loadVar(n, v)
		t = v.Type
	case *ast.IntLiteral:
		g.genIntLiteral(n.Value)
		t = bytecode.VTInt
	case *ast.DoubleLiteral:
		g.genDoubleLiteral(n.Value)
		t = bytecode.VTDouble
	case *ast.StringLiteral:
		id := g.ctx.Code.InternString(n.Value)
		g.bc().AddInsn(bytecode.OpSLoad)
		g.bc().AddU16(uint16(id))
		t = bytecode.VTString
	case *ast.BinaryOpNode:
		t = g.genBinary(n)
	case *ast.UnaryOpNode:
		t = g.genUnary(n)
	case *ast.CallNode:
		t = g.genCall(n)
	default:
		g.fail(e, "unsupported expression %T", e)
		t = bytecode.VTInvalid
	}
	g.ctx.SetType(e, t)
	return t
}

func (g *Generator) genIntLiteral(v int64) {
	switch v {
	case 0:
		g.bc().AddInsn(bytecode.OpILoad0)
	case 1:
		g.bc().AddInsn(bytecode.OpILoad1)
	case -1:
		g.bc().AddInsn(bytecode.OpILoadM1)
	default:
		g.bc().AddInsn(bytecode.OpILoad)
		g.bc().AddI64(v)
	}
}

func (g *Generator) genDoubleLiteral(v float64) {
	switch v {
	case 0:
		g.bc().AddInsn(bytecode.OpDLoad0)
	case 1:
		g.bc().AddInsn(bytecode.OpDLoad1)
	case -1:
		g.bc().AddInsn(bytecode.OpDLoadM1)
	default:
		g.bc().AddInsn(bytecode.OpDLoad)
		g.bc().AddDouble(v)
	}
}

// promote records and emits the int-to-double coercion spec §4.6.6
// requires when a binary operator's two operands disagree: the
// "deeper" (already-pushed) operand is promoted in place via
// SWAP;I2D;SWAP, the nearer one via a plain I2D. Returns the operator's
// common result type.
func (g *Generator) promote(n ast.Node, lt, rt bytecode.ValType) bytecode.ValType {
	switch {
	case lt == bytecode.VTDouble && rt == bytecode.VTInt:
		g.bc().AddInsn(bytecode.OpI2D)
		return bytecode.VTDouble
	case lt == bytecode.VTInt && rt == bytecode.VTDouble:
		g.bc().AddInsn(bytecode.OpSwap)
		g.bc().AddInsn(bytecode.OpI2D)
		g.bc().AddInsn(bytecode.OpSwap)
		return bytecode.VTDouble
	case lt == bytecode.VTInt && rt == bytecode.VTInt:
		return bytecode.VTInt
	case lt == bytecode.VTDouble && rt == bytecode.VTDouble:
		return bytecode.VTDouble
	default:
		g.fail(n, "operands must be numeric, got %s and %s", lt, rt)
		return bytecode.VTInvalid
	}
}

// coerceTo emits an I2D when assigning/returning an int into a double
// slot, a D2I when narrowing a double into an int slot (spec §4.6.7),
// and fails on any other mismatch.
func (g *Generator) coerceTo(n ast.Node, from, to bytecode.ValType) {
	if from == to || from == bytecode.VTInvalid {
		return
	}
	switch {
	case from == bytecode.VTInt && to == bytecode.VTDouble:
		g.bc().AddInsn(bytecode.OpI2D)
	case from == bytecode.VTDouble && to == bytecode.VTInt:
		g.bc().AddInsn(bytecode.OpD2I)
	default:
		g.fail(n, "cannot use %s value as %s", from, to)
	}
}

func (g *Generator) genBinary(n *ast.BinaryOpNode) bytecode.ValType {
	switch n.Op {
	case token.TOr, token.TAnd:
		return g.genLogical(n)
	}

	lt := g.genExpr(n.Left)

	switch n.Op {
	case token.TAdd, token.TSub, token.TMul, token.TDiv:
		rt := g.genExpr(n.Right)
		resT := g.promote(n, lt, rt)
		g.emitArith(n, n.Op, resT)
		return resT
	case token.TMod:
		rt := g.genExpr(n.Right)
		if lt != bytecode.VTInt || rt != bytecode.VTInt {
			g.fail(n, "%% requires int operands, got %s and %s", lt, rt)
		}
		g.bc().AddInsn(bytecode.OpIMod)
		return bytecode.VTInt
	case token.TAOr, token.TAAnd, token.TAXor:
		rt := g.genExpr(n.Right)
		if lt != bytecode.VTInt || rt != bytecode.VTInt {
			g.fail(n, "bitwise operators require int operands, got %s and %s", lt, rt)
		}
		switch n.Op {
		case token.TAOr:
			g.bc().AddInsn(bytecode.OpIAOr)
		case token.TAAnd:
			g.bc().AddInsn(bytecode.OpIAAnd)
		case token.TAXor:
			g.bc().AddInsn(bytecode.OpIAXor)
		}
		return bytecode.VTInt
	case token.TEq, token.TNeq, token.TGt, token.TGe, token.TLt, token.TLe:
		rt := g.genExpr(n.Right)
		return g.genCompare(n, n.Op, lt, rt)
	default:
		g.fail(n, "unsupported operator %s", n.Op)
		return bytecode.VTInvalid
	}
}

func (g *Generator) emitArith(n ast.Node, op token.Kind, t bytecode.ValType) {
	isInt := t == bytecode.VTInt
	switch op {
	case token.TAdd:
		if isInt {
			g.bc().AddInsn(bytecode.OpIAdd)
		} else {
			g.bc().AddInsn(bytecode.OpDAdd)
		}
	case token.TSub:
		if isInt {
			g.bc().AddInsn(bytecode.OpISub)
		} else {
			g.bc().AddInsn(bytecode.OpDSub)
		}
	case token.TMul:
		if isInt {
			g.bc().AddInsn(bytecode.OpIMul)
		} else {
			g.bc().AddInsn(bytecode.OpDMul)
		}
	case token.TDiv:
		if isInt {
			g.bc().AddInsn(bytecode.OpIDiv)
		} else {
			g.bc().AddInsn(bytecode.OpDDiv)
		}
	}
}

// genCompare emits a comparison yielding 1/0: the promoted operands
// are reduced to a -1/0/1 tri-state via ICMP/DCMP, then that tri-state
// is compared against 0 with the matching IFICMP* branch, normalizing
// to an int 1 or 0 (spec §4.6.6, grounded on
// original_source/bytecode_generator.cpp's genForRelOp).
func (g *Generator) genCompare(n ast.Node, op token.Kind, lt, rt bytecode.ValType) bytecode.ValType {
	g.promote(n, lt, rt)
	if lt == bytecode.VTInt && rt == bytecode.VTInt {
		g.bc().AddInsn(bytecode.OpICmp)
	} else {
		g.bc().AddInsn(bytecode.OpDCmp)
	}
	g.bc().AddInsn(bytecode.OpILoad0)

	var branchOp bytecode.Op
	switch op {
	case token.TEq:
		branchOp = bytecode.OpIfICmpE
	case token.TNeq:
		branchOp = bytecode.OpIfICmpNE
	case token.TGt:
		branchOp = bytecode.OpIfICmpG
	case token.TGe:
		branchOp = bytecode.OpIfICmpGE
	case token.TLt:
		branchOp = bytecode.OpIfICmpL
	case token.TLe:
		branchOp = bytecode.OpIfICmpLE
	}

	trueLabel := &bytecode.Label{}
	endLabel := &bytecode.Label{}
	g.bc().AddBranch(branchOp, trueLabel)
	g.bc().AddInsn(bytecode.OpILoad0)
	g.bc().AddBranch(bytecode.OpJA, endLabel)
	g.bc().Bind(trueLabel)
	g.bc().AddInsn(bytecode.OpILoad1)
	g.bc().Bind(endLabel)
	return bytecode.VTInt
}

// normalizeBool pops the int on top of the stack and pushes 1 if it
// was nonzero, 0 otherwise, so && / || always yield a clean boolean
// regardless of what truthy int fed them.
func (g *Generator) normalizeBool() {
	zero := &bytecode.Label{}
	end := &bytecode.Label{}
	g.bc().AddInsn(bytecode.OpILoad0)
	g.bc().AddBranch(bytecode.OpIfICmpE, zero)
	g.bc().AddInsn(bytecode.OpILoad1)
	g.bc().AddBranch(bytecode.OpJA, end)
	g.bc().Bind(zero)
	g.bc().AddInsn(bytecode.OpILoad0)
	g.bc().Bind(end)
}

// genLogical emits short-circuit && / || as explicit branches rather
// than native boolean opcodes (spec §4.6.6): a zero left operand
// short-circuits && to 0 without evaluating the right side; a nonzero
// left operand short-circuits || to 1.
func (g *Generator) genLogical(n *ast.BinaryOpNode) bytecode.ValType {
	lt := g.genExpr(n.Left)
	if lt != bytecode.VTInt && lt != bytecode.VTInvalid {
		g.fail(n.Left, "logical operators require int operands, got %s", lt)
	}

	shortCircuit := &bytecode.Label{}
	end := &bytecode.Label{}
	g.bc().AddInsn(bytecode.OpILoad0)

	if n.Op == token.TAnd {
		g.bc().AddBranch(bytecode.OpIfICmpE, shortCircuit)
	} else {
		g.bc().AddBranch(bytecode.OpIfICmpNE, shortCircuit)
	}

	rt := g.genExpr(n.Right)
	if rt != bytecode.VTInt && rt != bytecode.VTInvalid {
		g.fail(n.Right, "logical operators require int operands, got %s", rt)
	}
	g.normalizeBool()
	g.bc().AddBranch(bytecode.OpJA, end)

	g.bc().Bind(shortCircuit)
	if n.Op == token.TAnd {
		g.bc().AddInsn(bytecode.OpILoad0)
	} else {
		g.bc().AddInsn(bytecode.OpILoad1)
	}
	g.bc().Bind(end)
	return bytecode.VTInt
}

func (g *Generator) genUnary(n *ast.UnaryOpNode) bytecode.ValType {
	t := g.genExpr(n.Operand)
	switch n.Op {
	case token.TSub:
		switch t {
		case bytecode.VTInt:
			g.bc().AddInsn(bytecode.OpINeg)
		case bytecode.VTDouble:
			g.bc().AddInsn(bytecode.OpDNeg)
		default:
			g.fail(n, "unary - requires a numeric operand, got %s", t)
		}
		return t
	case token.TNot:
		if t != bytecode.VTInt {
			g.fail(n, "! requires an int operand, got %s", t)
		}
		g.bc().AddInsn(bytecode.OpILoad0)
		trueLabel := &bytecode.Label{}
		end := &bytecode.Label{}
		g.bc().AddBranch(bytecode.OpIfICmpE, trueLabel)
		g.bc().AddInsn(bytecode.OpILoad0)
		g.bc().AddBranch(bytecode.OpJA, end)
		g.bc().Bind(trueLabel)
		g.bc().AddInsn(bytecode.OpILoad1)
		g.bc().Bind(end)
		return bytecode.VTInt
	default:
		g.fail(n, "unsupported unary operator %s", n.Op)
		return bytecode.VTInvalid
	}
}

func (g *Generator) genCall(n *ast.CallNode) bytecode.ValType {
	astFn := g.ctx.CurrentScope().LookupFunction(n.Name)
	if astFn == nil {
		g.fail(n, "call to undeclared function %s", n.Name)
		for _, a := range n.Arguments {
			g.genExpr(a)
		}
		return bytecode.VTInvalid
	}
	// astFn is guaranteed registered already: genBlock/genFunction
	// register every function declared directly in a scope before
	// compiling any of their bodies or the scope's statements, so a
	// lookup reaching astFn here always finds fn.IDSet true, even when
	// astFn's own body hasn't been compiled yet (a call to a sibling
	// declared later in the same block).
	fn := g.ctx.Code.FunctionByID(astFn.ID)
	if len(n.Arguments) != len(fn.Params) {
		g.fail(n, "function %s expects %d arguments, got %d", n.Name, len(fn.Params), len(n.Arguments))
	}
	for i, a := range n.Arguments {
		at := g.genExpr(a)
		if i < len(fn.Params) {
			g.coerceTo(a, at, fn.Params[i].Type)
		}
	}
	g.bc().AddInsn(bytecode.OpCall)
	g.bc().AddU16(uint16(fn.ID))
	return fn.ReturnType
}

// isIntSlotted reports whether v's declared type shares the int local
// slot: plain ints do, and so do strings, since a string value is just
// its constant-pool id, zero-extended into the same 8-byte slot as an
// int (spec §6.2/§6.3 -- there is no dedicated LOADSVAR/STORESVAR,
// only SLOAD to produce the id and SPRINT to consume it).
func isIntSlotted(t bytecode.ValType) bool {
	return t == bytecode.VTInt || t == bytecode.VTString
}

// loadVar emits the LOAD family instruction for v, choosing the
// zero-context local form or the cross-function context form
// depending on spec §4.4's static-depth computation.
func (g *Generator) loadVar(site ast.Node, v *ast.Var) {
	depth := g.ctx.ContextDepth(v)
	if depth == 0 {
		switch {
		case isIntSlotted(v.Type):
			g.bc().AddInsn(bytecode.OpLoadIVar)
		case v.Type == bytecode.VTDouble:
			g.bc().AddInsn(bytecode.OpLoadDVar)
		default:
			g.fail(site, "cannot load variable of type %s", v.Type)
			return
		}
		g.bc().AddU16(uint16(v.Ref.LocalID))
		return
	}
	switch {
	case isIntSlotted(v.Type):
		g.bc().AddInsn(bytecode.OpLoadCtxIVar)
	case v.Type == bytecode.VTDouble:
		g.bc().AddInsn(bytecode.OpLoadCtxDVar)
	default:
		g.fail(site, "cannot load non-local variable of type %s", v.Type)
		return
	}
	g.bc().AddU16(uint16(depth))
	g.bc().AddU16(uint16(v.Ref.LocalID))
}

func (g *Generator) storeVar(site ast.Node, v *ast.Var) {
	depth := g.ctx.ContextDepth(v)
	if depth == 0 {
		switch {
		case isIntSlotted(v.Type):
			g.bc().AddInsn(bytecode.OpStoreIVar)
		case v.Type == bytecode.VTDouble:
			g.bc().AddInsn(bytecode.OpStoreDVar)
		default:
			g.fail(site, "cannot store variable of type %s", v.Type)
			return
		}
		g.bc().AddU16(uint16(v.Ref.LocalID))
		return
	}
	switch {
	case isIntSlotted(v.Type):
		g.bc().AddInsn(bytecode.OpStoreCtxIVar)
	case v.Type == bytecode.VTDouble:
		g.bc().AddInsn(bytecode.OpStoreCtxDVar)
	default:
		g.fail(site, "cannot store non-local variable of type %s", v.Type)
		return
	}
	g.bc().AddU16(uint16(depth))
	g.bc().AddU16(uint16(v.Ref.LocalID))
}
