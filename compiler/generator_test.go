package compiler

import (
	"bytes"
	"testing"

	"github.com/dr8co/mathvm/parser"
	"github.com/dr8co/mathvm/vm"
)

// run translates src and executes it, returning whatever it wrote to
// stdout. It fails the test on any translation or runtime error.
func run(t *testing.T, src string) string {
	t.Helper()
	program, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	code, err := Generate(program)
	if err != nil {
		t.Fatalf("generate %q: %v", src, err)
	}
	var out bytes.Buffer
	interp := vm.NewInterpreter(code, vm.Options{Output: &out})
	if err := interp.Run(); err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return out.String()
}

func TestE1FunctionCallAndReturn(t *testing.T) {
	got := run(t, `function int add(int a, int b) { return a + b; } print(add(2, 3));`)
	if got != "5" {
		t.Fatalf("E1: got %q, want %q", got, "5")
	}
}

func TestE2WhileLoopWithCompoundAssign(t *testing.T) {
	got := run(t, `int i; i = 0; while (i < 3) { print(i, ' '); i += 1; }`)
	if got != "0 1 2 " {
		t.Fatalf("E2: got %q, want %q", got, "0 1 2 ")
	}
}

func TestE3DoubleArithmeticAndReassignment(t *testing.T) {
	got := run(t, `double x; x = 1; x = x + 0.5; print(x);`)
	if got != "1.5" {
		t.Fatalf("E3: got %q, want %q", got, "1.5")
	}
}

func TestE4LogicalAndShortCircuit(t *testing.T) {
	got := run(t, `int n; n = 10; if (n > 0 && n < 100) { print('ok'); } else { print('no'); }`)
	if got != "ok" {
		t.Fatalf("E4: got %q, want %q", got, "ok")
	}
}

func TestE5NestedFunctionReadsOuterLocal(t *testing.T) {
	got := run(t, `function int outer() { int x; x = 7; function int inner() { return x; } return inner(); } print(outer());`)
	if got != "7" {
		t.Fatalf("E5: got %q, want %q", got, "7")
	}
}

func TestE6MixedTypeArithmeticIsATranslationError(t *testing.T) {
	program, err := parser.Parse(`print(1 + 'a');`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = Generate(program)
	if err == nil {
		t.Fatalf("expected a translation error mixing int and string operands")
	}
	if _, ok := err.(*TranslationError); !ok {
		t.Fatalf("error = %T, want *TranslationError", err)
	}
}

func TestForLoopIsInclusiveOfUpperBound(t *testing.T) {
	got := run(t, `int i; for (i in 1..3) { print(i); }`)
	if got != "123" {
		t.Fatalf("for-loop: got %q, want %q", got, "123")
	}
}

func TestForLoopEvaluatesBoundsOnce(t *testing.T) {
	got := run(t, `
function int bump(int x) {
	print('b');
	return x;
}
int i;
for (i in 0..bump(2)) {
	print(i);
}
`)
	if got != "b012" {
		t.Fatalf("for-loop bound side effect: got %q, want one 'b' then 012", got)
	}
}

func TestIntDoubleCoercionInMixedArithmetic(t *testing.T) {
	got := run(t, `double x; x = 2; int y; y = 3; print(x + y);`)
	if got != "5" {
		t.Fatalf("int/double coercion: got %q, want %q", got, "5")
	}
}

func TestSiblingForwardCallCompiles(t *testing.T) {
	got := run(t, `
function int f() { return g() + 1; }
function int g() { return 41; }
print(f());
`)
	if got != "42" {
		t.Fatalf("sibling forward call: got %q, want %q", got, "42")
	}
}

func TestRecursiveFunction(t *testing.T) {
	got := run(t, `
function int fact(int n) {
	if (n < 2) {
		return 1;
	}
	return n * fact(n - 1);
}
print(fact(5));
`)
	if got != "120" {
		t.Fatalf("recursion: got %q, want %q", got, "120")
	}
}

func TestUndeclaredVariableIsATranslationError(t *testing.T) {
	program, err := parser.Parse(`print(y);`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Generate(program); err == nil {
		t.Fatalf("expected a translation error referencing an undeclared variable")
	}
}
