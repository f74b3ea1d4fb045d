package parser

import (
	"testing"

	"github.com/dr8co/mathvm/ast"
	"github.com/dr8co/mathvm/bytecode"
	"github.com/dr8co/mathvm/lexer"
)

func parseOrFatal(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return program
}

func TestVarDeclWithInitializer(t *testing.T) {
	program := parseOrFatal(t, "int x = 5;")
	top := program.Top
	if len(top.Body.Scope.Vars) != 1 || top.Body.Scope.Vars[0].Name != "x" {
		t.Fatalf("expected one declared var x, got %+v", top.Body.Scope.Vars)
	}
	if len(top.Body.Statements) != 2 {
		t.Fatalf("expected [VarDecl, StoreNode], got %d statements", len(top.Body.Statements))
	}
	if _, ok := top.Body.Statements[0].(*ast.VarDecl); !ok {
		t.Fatalf("statement 0 is %T, want *ast.VarDecl", top.Body.Statements[0])
	}
	store, ok := top.Body.Statements[1].(*ast.StoreNode)
	if !ok {
		t.Fatalf("statement 1 is %T, want *ast.StoreNode", top.Body.Statements[1])
	}
	if store.Name != "x" {
		t.Fatalf("expected store to x, got %s", store.Name)
	}
}

func TestFunctionDeclRegistersIntoScopeNotStatements(t *testing.T) {
	program := parseOrFatal(t, `
function int add(int a, int b) {
	return a + b;
}
print(add(1, 2));
`)
	top := program.Top
	if len(top.Body.Scope.Functions) != 1 || top.Body.Scope.Functions[0].Name != "add" {
		t.Fatalf("expected function add registered in scope, got %+v", top.Body.Scope.Functions)
	}
	for _, s := range top.Body.Statements {
		if _, ok := s.(*ast.Function); ok {
			t.Fatalf("function declarations must not appear in Statements")
		}
	}
	fn := top.Body.Scope.Functions[0]
	if len(fn.Params) != 2 || fn.Params[0].Type != bytecode.VTInt {
		t.Fatalf("expected two int params, got %+v", fn.Params)
	}
	if len(fn.Body.Scope.Vars) != 2 {
		t.Fatalf("expected params pre-declared as locals, got %+v", fn.Body.Scope.Vars)
	}
}

func TestSiblingForwardCall(t *testing.T) {
	program := parseOrFatal(t, `
function int f() {
	return g();
}
function int g() {
	return 1;
}
`)
	scope := program.Top.Body.Scope
	if len(scope.Functions) != 2 {
		t.Fatalf("expected both f and g registered, got %+v", scope.Functions)
	}
	found := false
	for _, fn := range scope.Functions {
		if fn.Name == "g" {
			found = true
		}
	}
	if !found {
		t.Fatalf("g must be registered even though f (declared first) calls it")
	}
}

func TestIfWhileForNesting(t *testing.T) {
	program := parseOrFatal(t, `
int i;
for (i in 0..10) {
	if (i > 5) {
		print(i);
	} else {
		i += 1;
	}
}
while (i < 20) {
	i += 1;
}
`)
	stmts := program.Top.Body.Statements
	if len(stmts) != 3 {
		t.Fatalf("expected [VarDecl, ForNode, WhileNode], got %d: %+v", len(stmts), stmts)
	}
	forNode, ok := stmts[1].(*ast.ForNode)
	if !ok {
		t.Fatalf("statement 1 is %T, want *ast.ForNode", stmts[1])
	}
	if forNode.VarName != "i" {
		t.Fatalf("expected loop variable i, got %s", forNode.VarName)
	}
	if len(forNode.Body.Statements) != 1 {
		t.Fatalf("expected one statement in for body, got %d", len(forNode.Body.Statements))
	}
	ifNode, ok := forNode.Body.Statements[0].(*ast.IfNode)
	if !ok {
		t.Fatalf("for body statement is %T, want *ast.IfNode", forNode.Body.Statements[0])
	}
	if ifNode.Alternative == nil {
		t.Fatalf("expected an else branch")
	}
}

func TestExpressionPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3;", "(1 + (2 * 3))"},
		{"1 * 2 + 3;", "((1 * 2) + 3)"},
		{"a || b && c;", "(a || (b && c))"},
		{"a < b == c > d;", "((a < b) == (c > d))"},
		{"-a * b;", "((-a) * b)"},
		{"!a == b;", "((!a) == b)"},
		{"a + b | c;", "((a + b) | c)"},
	}
	for _, tt := range tests {
		program := parseOrFatal(t, tt.input)
		stmt, ok := program.Top.Body.Statements[0].(*ast.ExpressionStatement)
		if !ok {
			t.Fatalf("%q: statement 0 is %T, want *ast.ExpressionStatement", tt.input, program.Top.Body.Statements[0])
		}
		if got := stmt.Expression.String(); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCallExpression(t *testing.T) {
	program := parseOrFatal(t, "foo(1, x + 2);")
	stmt := program.Top.Body.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallNode)
	if !ok {
		t.Fatalf("expected *ast.CallNode, got %T", stmt.Expression)
	}
	if call.Name != "foo" || len(call.Arguments) != 2 {
		t.Fatalf("unexpected call: %+v", call)
	}
}

func TestCompoundAssignment(t *testing.T) {
	program := parseOrFatal(t, "int x; x += 1;")
	store := program.Top.Body.Statements[1].(*ast.StoreNode)
	if store.Op != "+=" {
		t.Fatalf("expected += operator, got %s", store.Op)
	}
}

func TestSyntaxErrorReported(t *testing.T) {
	p := New(lexer.New("int x = ;"))
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected a syntax error for a missing expression")
	}
}
