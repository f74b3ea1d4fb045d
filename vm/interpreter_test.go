package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dr8co/mathvm/bytecode"
)

// topLevel builds a one-function Code whose id-0 function runs build
// against a fresh Bytecode buffer, so opcode-level tests don't need a
// translator in front of them.
func topLevel(localsCount int, build func(b *bytecode.Bytecode)) *Code {
	code := NewCode()
	var bc bytecode.Bytecode
	build(&bc)
	code.AddFunction(&Function{
		Name:        "<top>",
		ReturnType:  bytecode.VTVoid,
		Bytecode:    &bc,
		LocalsCount: localsCount,
	})
	return code
}

func TestIPrintLiteral(t *testing.T) {
	code := topLevel(0, func(b *bytecode.Bytecode) {
		b.AddInsn(bytecode.OpILoad)
		b.AddI64(7)
		b.AddInsn(bytecode.OpIPrint)
		b.AddInsn(bytecode.OpStop)
	})

	var out bytes.Buffer
	interp := NewInterpreter(code, Options{Output: &out})
	if err := interp.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "7" {
		t.Fatalf("output = %q, want %q", out.String(), "7")
	}
}

func TestArithmeticAndPrint(t *testing.T) {
	code := topLevel(0, func(b *bytecode.Bytecode) {
		b.AddInsn(bytecode.OpILoad)
		b.AddI64(2)
		b.AddInsn(bytecode.OpILoad)
		b.AddI64(3)
		b.AddInsn(bytecode.OpIMul)
		b.AddInsn(bytecode.OpILoad)
		b.AddI64(1)
		b.AddInsn(bytecode.OpIAdd)
		b.AddInsn(bytecode.OpIPrint)
		b.AddInsn(bytecode.OpStop)
	})

	var out bytes.Buffer
	interp := NewInterpreter(code, Options{Output: &out})
	if err := interp.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "7" {
		t.Fatalf("output = %q, want %q (2*3+1)", out.String(), "7")
	}
}

func TestIntegerDivideByZero(t *testing.T) {
	code := topLevel(0, func(b *bytecode.Bytecode) {
		b.AddInsn(bytecode.OpILoad)
		b.AddI64(1)
		b.AddInsn(bytecode.OpILoad0)
		b.AddInsn(bytecode.OpIDiv)
		b.AddInsn(bytecode.OpStop)
	})

	interp := NewInterpreter(code, Options{})
	err := interp.Run()
	if err == nil {
		t.Fatalf("expected a runtime error dividing by zero")
	}
	if !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("error = %v, want errors.Is(..., ErrDivideByZero)", err)
	}
}

func TestUnrecognizedOpcode(t *testing.T) {
	code := topLevel(0, func(b *bytecode.Bytecode) {
		b.AddInsn(bytecode.OpNativeCall)
	})

	err := NewInterpreter(code, Options{}).Run()
	if !errors.Is(err, ErrBadOpcode) {
		t.Fatalf("error = %v, want errors.Is(..., ErrBadOpcode)", err)
	}
}

func TestVariableLoadStore(t *testing.T) {
	code := topLevel(1, func(b *bytecode.Bytecode) {
		b.AddInsn(bytecode.OpILoad)
		b.AddI64(9)
		b.AddInsn(bytecode.OpStoreIVar)
		b.AddU16(0)
		b.AddInsn(bytecode.OpLoadIVar)
		b.AddU16(0)
		b.AddInsn(bytecode.OpIPrint)
		b.AddInsn(bytecode.OpStop)
	})

	var out bytes.Buffer
	if err := NewInterpreter(code, Options{Output: &out}).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "9" {
		t.Fatalf("output = %q, want %q", out.String(), "9")
	}
}

// TestCallAndReturn builds a two-function program by hand: the
// top-level calls a function that doubles the top-level's local 0
// (reached one hop up the static chain) and returns, making sure
// CALL/RETURN restore the caller's frame and instruction pointer.
func TestCallAndReturn(t *testing.T) {
	code := NewCode()

	var double bytecode.Bytecode
	double.AddInsn(bytecode.OpLoadCtxIVar)
	double.AddU16(1)
	double.AddU16(0)
	double.AddInsn(bytecode.OpLoadCtxIVar)
	double.AddU16(1)
	double.AddU16(0)
	double.AddInsn(bytecode.OpIAdd)
	double.AddInsn(bytecode.OpStoreCtxIVar)
	double.AddU16(1)
	double.AddU16(0)
	double.AddInsn(bytecode.OpReturn)

	// The top-level function must be id 0, so double is registered
	// after it and gets id 1.
	const doubleID = 1

	var top bytecode.Bytecode
	top.AddInsn(bytecode.OpILoad)
	top.AddI64(4)
	top.AddInsn(bytecode.OpStoreIVar)
	top.AddU16(0)
	top.AddInsn(bytecode.OpCall)
	top.AddU16(uint16(doubleID))
	top.AddInsn(bytecode.OpLoadIVar)
	top.AddU16(0)
	top.AddInsn(bytecode.OpIPrint)
	top.AddInsn(bytecode.OpStop)
	code.AddFunction(&Function{Name: "<top>", Bytecode: &top, LocalsCount: 1})
	code.AddFunction(&Function{Name: "double", Bytecode: &double, LocalsCount: 1})

	var out bytes.Buffer
	if err := NewInterpreter(code, Options{Output: &out}).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "8" {
		t.Fatalf("output = %q, want %q", out.String(), "8")
	}
}

func TestStackOverflowOnDeepRecursion(t *testing.T) {
	code := NewCode()
	var recur bytecode.Bytecode
	recur.AddInsn(bytecode.OpCall)
	recur.AddU16(0)
	recur.AddInsn(bytecode.OpReturn)
	code.AddFunction(&Function{Name: "<top>", Bytecode: &recur, LocalsCount: 1})

	interp := NewInterpreter(code, Options{StackSize: 256})
	err := interp.Run()
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("error = %v, want errors.Is(..., ErrStackOverflow)", err)
	}
}
