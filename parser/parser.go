// Package parser implements the syntactic analyzer for MathVM source.
//
// It is a single-pass recursive-descent parser with Pratt parsing
// (precedence climbing) for expressions, in the style of the lexer's
// sibling package. It builds ast.Scope objects as it parses each
// block, declaring variables and functions into them as they are
// encountered; it never resolves a name to a *ast.Var or *ast.Function
// itself — every Identifier, StoreNode, ForNode, and CallNode it
// produces simply carries the referenced name as a string, deferring
// resolution to package compiler, which runs only after an entire
// block (and therefore every declaration in it) has already been
// parsed. This is what lets a statement name a variable or function
// declared later in the same block.
package parser

import (
	"fmt"
	"strconv"

	"github.com/dr8co/mathvm/ast"
	"github.com/dr8co/mathvm/bytecode"
	"github.com/dr8co/mathvm/lexer"
	"github.com/dr8co/mathvm/token"
)

const (
	_ int = iota

	// Lowest is the default precedence passed at the top of an
	// expression and after every statement-level separator.
	Lowest

	// Or is the precedence of the logical-or operator.
	Or // ||

	// And is the precedence of the logical-and operator.
	And // &&

	// BitOr is the precedence of the bitwise-or operator.
	BitOr // |

	// BitXor is the precedence of the bitwise-xor operator.
	BitXor // ^

	// BitAnd is the precedence of the bitwise-and operator.
	BitAnd // &

	// Equals is the precedence of the equality operators.
	Equals // == !=

	// LessGreater is the precedence of the relational operators.
	LessGreater // > >= < <=

	// Sum is the precedence of addition and subtraction.
	Sum // + -

	// Product is the precedence of multiplication, division, modulo.
	Product // * / %

	// Prefix is the precedence of unary operators.
	Prefix // -x !x

	// Call is the precedence of a function-call expression.
	Call // f(x)
)

var precedences = map[token.Kind]int{
	token.TOr:   Or,
	token.TAnd:  And,
	token.TAOr:  BitOr,
	token.TAXor: BitXor,
	token.TAAnd: BitAnd,
	token.TEq:   Equals,
	token.TNeq:  Equals,
	token.TGt:   LessGreater,
	token.TGe:   LessGreater,
	token.TLt:   LessGreater,
	token.TLe:   LessGreater,
	token.TAdd:  Sum,
	token.TSub:  Sum,
	token.TMul:  Product,
	token.TDiv:  Product,
	token.TMod:  Product,
	token.LPAREN: Call,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser parses MathVM source into an *ast.Program.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	currentToken token.Token
	peekToken    token.Token

	prefixParseFns map[token.Kind]prefixParseFn
	infixParseFns  map[token.Kind]infixParseFn
}

// New creates a Parser over l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.Kind]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntLiteral)
	p.registerPrefix(token.DOUBLE, p.parseDoubleLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TSub, p.parsePrefixExpression)
	p.registerPrefix(token.TNot, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[token.Kind]infixParseFn)
	for _, k := range []token.Kind{
		token.TAdd, token.TSub, token.TMul, token.TDiv, token.TMod,
		token.TAOr, token.TAAnd, token.TAXor,
		token.TEq, token.TNeq, token.TGt, token.TGe, token.TLt, token.TLe,
		token.TOr, token.TAnd,
	} {
		p.registerInfix(k, p.parseInfixExpression)
	}
	p.registerInfix(token.LPAREN, p.parseCallExpression)

	p.nextToken()
	p.nextToken()
	return p
}

// Parse is a convenience entry point: it lexes and parses src, and
// reports the first syntax error (if any) as an error value.
func Parse(src string) (*ast.Program, error) {
	p := New(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("%s", errs[0])
	}
	return program, nil
}

func (p *Parser) registerPrefix(k token.Kind, fn prefixParseFn) { p.prefixParseFns[k] = fn }
func (p *Parser) registerInfix(k token.Kind, fn infixParseFn)   { p.infixParseFns[k] = fn }

// Errors returns the syntax errors accumulated while parsing.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) errorf(format string, args ...any) {
	msg := fmt.Sprintf("%d:%d: %s", p.currentToken.Line, p.currentToken.Column, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

func (p *Parser) peekError(k token.Kind) {
	p.errorf("expected next token to be %s, got %s instead", k, p.peekToken.Kind)
}

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) currentTokenIs(k token.Kind) bool { return p.currentToken.Kind == k }
func (p *Parser) peekTokenIs(k token.Kind) bool    { return p.peekToken.Kind == k }

func (p *Parser) expectPeek(k token.Kind) bool {
	if p.peekTokenIs(k) {
		p.nextToken()
		return true
	}
	p.peekError(k)
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Kind]; ok {
		return prec
	}
	return Lowest
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.currentToken.Kind]; ok {
		return prec
	}
	return Lowest
}

// ParseProgram parses a complete MathVM source file: the top-level
// statements become the body of a synthesized "<top>" function with
// no parameters and a Void return type (spec's "top-level function
// is id 0" convention).
func (p *Parser) ParseProgram() *ast.Program {
	topTok := p.currentToken
	topScope := ast.NewScope(nil)

	var stmts []ast.Statement
	for !p.currentTokenIs(token.EOF) {
		stmts = append(stmts, p.parseStatement(topScope)...)
		p.nextToken()
	}

	top := &ast.Function{
		Token:      topTok,
		Name:       "<top>",
		ReturnType: bytecode.VTVoid,
		Body:       &ast.Block{Token: topTok, Scope: topScope, Statements: stmts},
	}
	return &ast.Program{Top: top}
}

// parseStatement parses one source statement and declares it into
// scope if it is itself a declaration. A function declaration returns
// no ast.Statement (it only registers into scope.Functions, visited
// separately by the generator); a variable declaration with an
// initializer returns both the declaration and the synthesized
// assignment.
func (p *Parser) parseStatement(scope *ast.Scope) []ast.Statement {
	switch p.currentToken.Kind {
	case token.INT_TYPE, token.DOUBLE_TYPE, token.STRING_TYPE:
		return p.parseVarDecl(scope)
	case token.FUNCTION:
		p.parseFunctionDecl(scope)
		return nil
	case token.IF:
		return []ast.Statement{p.parseIf(scope)}
	case token.WHILE:
		return []ast.Statement{p.parseWhile(scope)}
	case token.FOR:
		return []ast.Statement{p.parseFor(scope)}
	case token.RETURN:
		return []ast.Statement{p.parseReturn()}
	case token.PRINT:
		return []ast.Statement{p.parsePrint()}
	case token.LBRACE:
		return []ast.Statement{p.parseBlock(scope)}
	case token.SEMICOLON:
		return nil
	case token.IDENT:
		if p.peekTokenIs(token.TAssign) || p.peekTokenIs(token.TIncrSet) || p.peekTokenIs(token.TDecrSet) {
			return []ast.Statement{p.parseStore()}
		}
		return []ast.Statement{p.parseExpressionStatement()}
	default:
		return []ast.Statement{p.parseExpressionStatement()}
	}
}

func typeFromToken(tok token.Token) (bytecode.ValType, bool) {
	switch tok.Kind {
	case token.INT_TYPE:
		return bytecode.VTInt, true
	case token.DOUBLE_TYPE:
		return bytecode.VTDouble, true
	case token.STRING_TYPE:
		return bytecode.VTString, true
	case token.VOID_TYPE:
		return bytecode.VTVoid, true
	default:
		return bytecode.VTInvalid, false
	}
}

func (p *Parser) parseVarDecl(scope *ast.Scope) []ast.Statement {
	typTok := p.currentToken
	typ, ok := typeFromToken(typTok)
	if !ok {
		p.errorf("expected a type, got %s", typTok.Kind)
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	nameTok := p.currentToken
	v := scope.Declare(nameTok.Literal, typ)
	stmts := []ast.Statement{&ast.VarDecl{Token: typTok, Var: v}}

	if p.peekTokenIs(token.TAssign) {
		p.nextToken()
		p.nextToken()
		val := p.parseExpression(Lowest)
		stmts = append(stmts, &ast.StoreNode{Token: nameTok, Name: nameTok.Literal, Op: token.TAssign, Value: val})
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmts
}

// parseFunctionDecl parses `function <type> name(<type> p, ...) { ... }`
// and registers the result into scope; it produces no ast.Statement.
func (p *Parser) parseFunctionDecl(scope *ast.Scope) {
	fnTok := p.currentToken
	p.nextToken()
	retType, ok := typeFromToken(p.currentToken)
	if !ok {
		p.errorf("expected a return type, got %s", p.currentToken.Kind)
		return
	}
	if !p.expectPeek(token.IDENT) {
		return
	}
	name := p.currentToken.Literal

	if !p.expectPeek(token.LPAREN) {
		return
	}
	params := p.parseParams()

	if !p.expectPeek(token.LBRACE) {
		return
	}
	bodyScope := ast.NewScope(scope)
	for _, prm := range params {
		bodyScope.Declare(prm.Name, prm.Type)
	}
	bodyTok := p.currentToken
	stmts := p.parseBlockStatements(bodyScope)

	fn := &ast.Function{
		Token:      fnTok,
		Name:       name,
		ReturnType: retType,
		Params:     params,
		Body:       &ast.Block{Token: bodyTok, Scope: bodyScope, Statements: stmts},
	}
	scope.DeclareFunction(fn)
}

func (p *Parser) parseParams() []ast.Param {
	var params []ast.Param
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	typ, ok := typeFromToken(p.currentToken)
	if !ok {
		p.errorf("expected a parameter type, got %s", p.currentToken.Kind)
		return params
	}
	if !p.expectPeek(token.IDENT) {
		return params
	}
	params = append(params, ast.Param{Name: p.currentToken.Literal, Type: typ})

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		typ, ok := typeFromToken(p.currentToken)
		if !ok {
			p.errorf("expected a parameter type, got %s", p.currentToken.Kind)
			break
		}
		if !p.expectPeek(token.IDENT) {
			break
		}
		params = append(params, ast.Param{Name: p.currentToken.Literal, Type: typ})
	}

	if !p.expectPeek(token.RPAREN) {
		return params
	}
	return params
}

// parseBlockStatements parses statements until a closing brace,
// assuming the current token is the opening brace. It leaves the
// current token positioned on the closing brace.
func (p *Parser) parseBlockStatements(scope *ast.Scope) []ast.Statement {
	p.nextToken()
	var stmts []ast.Statement
	for !p.currentTokenIs(token.RBRACE) && !p.currentTokenIs(token.EOF) {
		stmts = append(stmts, p.parseStatement(scope)...)
		p.nextToken()
	}
	return stmts
}

// parseBlock parses a brace-delimited nested block with its own child
// scope, assuming the current token is the opening brace.
func (p *Parser) parseBlock(parent *ast.Scope) *ast.Block {
	tok := p.currentToken
	scope := ast.NewScope(parent)
	stmts := p.parseBlockStatements(scope)
	return &ast.Block{Token: tok, Scope: scope, Statements: stmts}
}

func (p *Parser) parseStore() *ast.StoreNode {
	nameTok := p.currentToken
	p.nextToken()
	op := p.currentToken.Kind
	p.nextToken()
	val := p.parseExpression(Lowest)
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.StoreNode{Token: nameTok, Name: nameTok.Literal, Op: op, Value: val}
}

func (p *Parser) parseIf(scope *ast.Scope) *ast.IfNode {
	tok := p.currentToken
	if !p.expectPeek(token.LPAREN) {
		return &ast.IfNode{Token: tok}
	}
	p.nextToken()
	cond := p.parseExpression(Lowest)
	if !p.expectPeek(token.RPAREN) {
		return &ast.IfNode{Token: tok, Condition: cond}
	}
	if !p.expectPeek(token.LBRACE) {
		return &ast.IfNode{Token: tok, Condition: cond}
	}
	cons := p.parseBlock(scope)

	n := &ast.IfNode{Token: tok, Condition: cond, Consequence: cons}
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if !p.expectPeek(token.LBRACE) {
			return n
		}
		n.Alternative = p.parseBlock(scope)
	}
	return n
}

func (p *Parser) parseWhile(scope *ast.Scope) *ast.WhileNode {
	tok := p.currentToken
	if !p.expectPeek(token.LPAREN) {
		return &ast.WhileNode{Token: tok}
	}
	p.nextToken()
	cond := p.parseExpression(Lowest)
	if !p.expectPeek(token.RPAREN) {
		return &ast.WhileNode{Token: tok, Condition: cond}
	}
	if !p.expectPeek(token.LBRACE) {
		return &ast.WhileNode{Token: tok, Condition: cond}
	}
	body := p.parseBlock(scope)
	return &ast.WhileNode{Token: tok, Condition: cond, Body: body}
}

func (p *Parser) parseFor(scope *ast.Scope) *ast.ForNode {
	tok := p.currentToken
	if !p.expectPeek(token.LPAREN) {
		return &ast.ForNode{Token: tok}
	}
	if !p.expectPeek(token.IDENT) {
		return &ast.ForNode{Token: tok}
	}
	varName := p.currentToken.Literal
	if !p.expectPeek(token.IN) {
		return &ast.ForNode{Token: tok, VarName: varName}
	}
	p.nextToken()
	lo := p.parseExpression(Lowest)
	if !p.expectPeek(token.RANGE) {
		return &ast.ForNode{Token: tok, VarName: varName, Lo: lo}
	}
	p.nextToken()
	hi := p.parseExpression(Lowest)
	if !p.expectPeek(token.RPAREN) {
		return &ast.ForNode{Token: tok, VarName: varName, Lo: lo, Hi: hi}
	}
	if !p.expectPeek(token.LBRACE) {
		return &ast.ForNode{Token: tok, VarName: varName, Lo: lo, Hi: hi}
	}
	body := p.parseBlock(scope)
	return &ast.ForNode{Token: tok, VarName: varName, Lo: lo, Hi: hi, Body: body}
}

func (p *Parser) parseReturn() *ast.ReturnNode {
	tok := p.currentToken
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return &ast.ReturnNode{Token: tok}
	}
	p.nextToken()
	expr := p.parseExpression(Lowest)
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.ReturnNode{Token: tok, ReturnExpr: expr}
}

func (p *Parser) parsePrint() *ast.PrintNode {
	tok := p.currentToken
	if !p.expectPeek(token.LPAREN) {
		return &ast.PrintNode{Token: tok}
	}
	ops := p.parseExpressionList(token.RPAREN)
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.PrintNode{Token: tok, Operands: ops}
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	tok := p.currentToken
	expr := p.parseExpression(Lowest)
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}

func (p *Parser) parseExpressionList(end token.Kind) []ast.Expression {
	var list []ast.Expression
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(Lowest))
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(Lowest))
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.currentToken.Kind]
	if prefix == nil {
		p.errorf("no prefix parse function for %s found", p.currentToken.Kind)
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Kind]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.currentToken, Name: p.currentToken.Literal}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	tok := p.currentToken
	v, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		p.errorf("could not parse %q as an integer", tok.Literal)
		return nil
	}
	return &ast.IntLiteral{Token: tok, Value: v}
}

func (p *Parser) parseDoubleLiteral() ast.Expression {
	tok := p.currentToken
	v, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.errorf("could not parse %q as a double", tok.Literal)
		return nil
	}
	return &ast.DoubleLiteral{Token: tok, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.currentToken
	op := tok.Kind
	p.nextToken()
	operand := p.parseExpression(Prefix)
	return &ast.UnaryOpNode{Token: tok, Op: op, Operand: operand}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	tok := p.currentToken
	op := tok.Kind
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(prec)
	return &ast.BinaryOpNode{Token: tok, Op: op, Left: left, Right: right}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(Lowest)
	if !p.expectPeek(token.RPAREN) {
		return exp
	}
	return exp
}

func (p *Parser) parseCallExpression(left ast.Expression) ast.Expression {
	tok := p.currentToken
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.errorf("cannot call a non-function expression")
		p.parseExpressionList(token.RPAREN)
		return left
	}
	args := p.parseExpressionList(token.RPAREN)
	return &ast.CallNode{Token: tok, Name: ident.Name, Arguments: args}
}
