// Package ast defines the abstract syntax tree for MathVM source.
//
// Node is the base interface for all AST nodes. Expression nodes leave
// exactly one value on the interpreter's operand stack when compiled
// (a call to a void function leaves none); statement nodes leave none.
// The tree is produced by package parser and consumed by package
// compiler, which never mutates it except through the mutable VarRef
// slot on Var (populated by compiler.Context.Declare) and the ID/IDSet
// fields on Function (set by compiler.Context.Register). VarRef is
// kept on the node, unlike the expression-type side table of spec
// §4.3, because it must outlive any single Generator pass when a
// function is visited for a forward reference before its own scope is
// entered.
package ast

import (
	"strings"

	"github.com/dr8co/mathvm/bytecode"
	"github.com/dr8co/mathvm/token"
)

// Node is implemented by every AST node.
type Node interface {
	TokenLiteral() string
	String() string
	Pos() token.Token
}

// Statement is implemented by statement nodes.
type Statement interface {
	Node
	statementNode()
}

// Expression is implemented by expression nodes.
type Expression interface {
	Node
	expressionNode()
}

// VarRef is the (function id, local id) pair a declared variable is
// assigned by compiler.Context.Declare. It is the mutable side-slot
// spec §6.1 requires on variable nodes.
type VarRef struct {
	FunctionID int
	LocalID    int
	Valid      bool
}

// Var is a declared variable: a name and its static type, living in
// exactly one Scope.
type Var struct {
	Name string
	Type bytecode.ValType
	Ref  VarRef
}

// Scope is a lexical block scope: the variables declared directly in
// it, the functions declared directly in it, and a link to the
// enclosing scope (nil for the top-level program scope).
type Scope struct {
	Parent    *Scope
	Vars      []*Var
	Functions []*Function
}

// NewScope creates a scope nested inside parent (nil for top level).
func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent}
}

// Declare adds a new variable to the scope and returns it.
func (s *Scope) Declare(name string, typ bytecode.ValType) *Var {
	v := &Var{Name: name, Type: typ}
	s.Vars = append(s.Vars, v)
	return v
}

// DeclareFunction registers a function in the scope so forward
// references within the scope resolve.
func (s *Scope) DeclareFunction(fn *Function) {
	s.Functions = append(s.Functions, fn)
}

// LookupVar walks the scope chain outward for a variable named name.
func (s *Scope) LookupVar(name string) (*Var, *Scope) {
	for sc := s; sc != nil; sc = sc.Parent {
		for _, v := range sc.Vars {
			if v.Name == name {
				return v, sc
			}
		}
	}
	return nil, nil
}

// LookupFunction walks the scope chain outward for a function named
// name.
func (s *Scope) LookupFunction(name string) *Function {
	for sc := s; sc != nil; sc = sc.Parent {
		for _, fn := range sc.Functions {
			if fn.Name == name {
				return fn
			}
		}
	}
	return nil
}

// Param is one parameter of a function declaration.
type Param struct {
	Name string
	Type bytecode.ValType
}

// Function is a function declaration: name, typed parameter list,
// return type, and body. The top-level program is represented as a
// Function named "<top>" with a Void return type and no parameters.
//
// A function has exactly one scope, Body.Scope: the parser declares
// the parameters into it first, in declaration order, before any
// variable the body declares directly, so Body.Scope.Vars[:len(Params)]
// are always the parameters (spec §3's invariant that parameters
// occupy local indices 0..params_count once declared).
type Function struct {
	Token      token.Token
	Name       string
	ReturnType bytecode.ValType
	Params     []Param
	Body       *Block

	// ID is assigned once by compiler.Context.Register, which runs
	// before the function's body is compiled (0 for the top-level
	// program); stable afterward.
	ID    int
	IDSet bool
}

func (f *Function) TokenLiteral() string { return f.Token.Literal }
func (f *Function) Pos() token.Token     { return f.Token }
func (f *Function) String() string {
	var out strings.Builder
	out.WriteString("function ")
	out.WriteString(f.Name)
	out.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(p.Name)
	}
	out.WriteString(") ")
	out.WriteString(f.Body.String())
	return out.String()
}
func (f *Function) statementNode() {}

// Program is the root of the AST: the top-level function body plus
// any functions it declares.
type Program struct {
	Top *Function
}

func (p *Program) TokenLiteral() string {
	if p.Top != nil {
		return p.Top.TokenLiteral()
	}
	return ""
}
func (p *Program) String() string {
	if p.Top == nil {
		return ""
	}
	return p.Top.Body.String()
}
func (p *Program) Pos() token.Token {
	if p.Top != nil {
		return p.Top.Token
	}
	return token.Token{}
}

// Block is a brace-delimited statement list with its own Scope.
type Block struct {
	Token      token.Token
	Scope      *Scope
	Statements []Statement
}

func (b *Block) TokenLiteral() string { return b.Token.Literal }
func (b *Block) Pos() token.Token     { return b.Token }
func (b *Block) String() string {
	var out strings.Builder
	out.WriteString("{ ")
	for _, s := range b.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}
func (b *Block) statementNode() {}

// ExpressionStatement wraps an expression used in statement position.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (e *ExpressionStatement) TokenLiteral() string { return e.Token.Literal }
func (e *ExpressionStatement) Pos() token.Token     { return e.Token }
func (e *ExpressionStatement) String() string {
	if e.Expression == nil {
		return ""
	}
	return e.Expression.String()
}
func (e *ExpressionStatement) statementNode() {}

// VarDecl declares a variable without initializing it
// ("int x;"/"double y;"/"string s;").
type VarDecl struct {
	Token token.Token
	Var   *Var
}

func (v *VarDecl) TokenLiteral() string { return v.Token.Literal }
func (v *VarDecl) Pos() token.Token     { return v.Token }
func (v *VarDecl) String() string       { return v.Token.Literal + " " + v.Var.Name + ";" }
func (v *VarDecl) statementNode()       {}

// IfNode is `if (cond) then [else alt]`.
type IfNode struct {
	Token       token.Token
	Condition   Expression
	Consequence *Block
	Alternative *Block
}

func (n *IfNode) TokenLiteral() string { return n.Token.Literal }
func (n *IfNode) Pos() token.Token     { return n.Token }
func (n *IfNode) String() string {
	var out strings.Builder
	out.WriteString("if (")
	out.WriteString(n.Condition.String())
	out.WriteString(") ")
	out.WriteString(n.Consequence.String())
	if n.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(n.Alternative.String())
	}
	return out.String()
}
func (n *IfNode) statementNode() {}

// WhileNode is `while (cond) body`.
type WhileNode struct {
	Token     token.Token
	Condition Expression
	Body      *Block
}

func (n *WhileNode) TokenLiteral() string { return n.Token.Literal }
func (n *WhileNode) Pos() token.Token     { return n.Token }
func (n *WhileNode) String() string {
	return "while (" + n.Condition.String() + ") " + n.Body.String()
}
func (n *WhileNode) statementNode() {}

// ForNode is `for (VarName in Lo..Hi) Body`, inclusive of Hi, step 1
// (see DESIGN.md for the Open Question disposition). VarName is
// resolved against the enclosing scope chain at generation time, like
// Identifier and CallNode, so it may name a variable declared
// anywhere visible to this point (spec's declare-before-visit block
// semantics).
type ForNode struct {
	Token   token.Token
	VarName string
	Lo      Expression
	Hi      Expression
	Body    *Block
}

func (n *ForNode) TokenLiteral() string { return n.Token.Literal }
func (n *ForNode) Pos() token.Token     { return n.Token }
func (n *ForNode) String() string {
	return "for (" + n.VarName + " in " + n.Lo.String() + ".." + n.Hi.String() + ") " + n.Body.String()
}
func (n *ForNode) statementNode() {}

// ReturnNode is `return [expr];`.
type ReturnNode struct {
	Token      token.Token
	ReturnExpr Expression // nil if no return value
}

func (n *ReturnNode) TokenLiteral() string { return n.Token.Literal }
func (n *ReturnNode) Pos() token.Token     { return n.Token }
func (n *ReturnNode) String() string {
	if n.ReturnExpr == nil {
		return "return;"
	}
	return "return " + n.ReturnExpr.String() + ";"
}
func (n *ReturnNode) statementNode() {}

// PrintNode is `print(a, b, ...);`.
type PrintNode struct {
	Token    token.Token
	Operands []Expression
}

func (n *PrintNode) TokenLiteral() string { return n.Token.Literal }
func (n *PrintNode) Pos() token.Token     { return n.Token }
func (n *PrintNode) String() string {
	var out strings.Builder
	out.WriteString("print(")
	for i, op := range n.Operands {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(op.String())
	}
	out.WriteString(");")
	return out.String()
}
func (n *PrintNode) statementNode() {}

// StoreNode is an assignment statement: `name op= value;` where op is
// one of tASSIGN, tINCRSET, tDECRSET. Name is resolved against the
// enclosing scope chain at generation time (see Identifier).
type StoreNode struct {
	Token token.Token
	Name  string
	Op    token.Kind
	Value Expression
}

func (n *StoreNode) TokenLiteral() string { return n.Token.Literal }
func (n *StoreNode) Pos() token.Token     { return n.Token }
func (n *StoreNode) String() string {
	return n.Name + " " + string(n.Op) + " " + n.Value.String() + ";"
}
func (n *StoreNode) statementNode() {}

// Identifier is a read reference to a variable by name. It is
// deliberately NOT resolved to a *Var by the parser: spec's BlockNode
// semantics declare every variable in a block before visiting any of
// its statements, so a reference may precede its declaration
// textually or name a function declared later in the same block.
// compiler.Generator resolves Name against the scope active at the
// point of generation, by which time the whole block has already been
// declared.
type Identifier struct {
	Token token.Token
	Name  string
}

func (n *Identifier) TokenLiteral() string { return n.Token.Literal }
func (n *Identifier) Pos() token.Token     { return n.Token }
func (n *Identifier) String() string       { return n.Name }
func (n *Identifier) expressionNode()      {}

// IntLiteral is an integer literal.
type IntLiteral struct {
	Token token.Token
	Value int64
}

func (n *IntLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *IntLiteral) Pos() token.Token     { return n.Token }
func (n *IntLiteral) String() string       { return n.Token.Literal }
func (n *IntLiteral) expressionNode()      {}

// DoubleLiteral is a floating-point literal.
type DoubleLiteral struct {
	Token token.Token
	Value float64
}

func (n *DoubleLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *DoubleLiteral) Pos() token.Token     { return n.Token }
func (n *DoubleLiteral) String() string       { return n.Token.Literal }
func (n *DoubleLiteral) expressionNode()      {}

// StringLiteral is a single-quoted string literal.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (n *StringLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *StringLiteral) Pos() token.Token     { return n.Token }
func (n *StringLiteral) String() string       { return "'" + n.Value + "'" }
func (n *StringLiteral) expressionNode()      {}

// BinaryOpNode is a two-operand operator expression.
type BinaryOpNode struct {
	Token token.Token
	Op    token.Kind
	Left  Expression
	Right Expression
}

func (n *BinaryOpNode) TokenLiteral() string { return n.Token.Literal }
func (n *BinaryOpNode) Pos() token.Token     { return n.Token }
func (n *BinaryOpNode) String() string {
	return "(" + n.Left.String() + " " + string(n.Op) + " " + n.Right.String() + ")"
}
func (n *BinaryOpNode) expressionNode() {}

// UnaryOpNode is a one-operand prefix operator expression (`-`, `!`).
type UnaryOpNode struct {
	Token   token.Token
	Op      token.Kind
	Operand Expression
}

func (n *UnaryOpNode) TokenLiteral() string { return n.Token.Literal }
func (n *UnaryOpNode) Pos() token.Token     { return n.Token }
func (n *UnaryOpNode) String() string {
	return "(" + string(n.Op) + n.Operand.String() + ")"
}
func (n *UnaryOpNode) expressionNode() {}

// CallNode is a function call expression. Name is resolved against the
// enclosing scope chain at generation time (see Identifier), so a call
// may forward-reference a function declared later in the same block.
type CallNode struct {
	Token     token.Token
	Name      string
	Arguments []Expression
}

func (n *CallNode) TokenLiteral() string { return n.Token.Literal }
func (n *CallNode) Pos() token.Token     { return n.Token }
func (n *CallNode) String() string {
	var out strings.Builder
	out.WriteString(n.Name)
	out.WriteString("(")
	for i, a := range n.Arguments {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(a.String())
	}
	out.WriteString(")")
	return out.String()
}
func (n *CallNode) expressionNode() {}
