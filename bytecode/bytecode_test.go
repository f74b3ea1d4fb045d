package bytecode

import (
	"strings"
	"testing"
)

func TestAddAndGetRoundTrip(t *testing.T) {
	var b Bytecode
	b.AddInsn(OpILoad)
	b.AddI64(42)
	b.AddInsn(OpDLoad)
	b.AddDouble(3.5)
	b.AddInsn(OpLoadIVar)
	b.AddU16(7)

	if got := b.GetInsn(0); got != OpILoad {
		t.Fatalf("GetInsn(0) = %s, want ILOAD", got.Name())
	}
	if got := b.GetI64(1); got != 42 {
		t.Fatalf("GetI64(1) = %d, want 42", got)
	}
	if got := b.GetInsn(9); got != OpDLoad {
		t.Fatalf("GetInsn(9) = %s, want DLOAD", got.Name())
	}
	if got := b.GetDouble(10); got != 3.5 {
		t.Fatalf("GetDouble(10) = %v, want 3.5", got)
	}
	if got := b.GetInsn(18); got != OpLoadIVar {
		t.Fatalf("GetInsn(18) = %s, want LOADIVAR", got.Name())
	}
	if got := b.GetU16(19); got != 7 {
		t.Fatalf("GetU16(19) = %d, want 7", got)
	}
}

// TestAddBranchForward exercises the common if/&&/|| shape: the branch
// is emitted before its target is known, and Bind patches every
// pending branch that referenced the label.
func TestAddBranchForward(t *testing.T) {
	var b Bytecode
	label := &Label{}

	b.AddBranch(OpIfICmpE, label)
	b.AddInsn(OpILoad0)
	b.AddInsn(OpIPrint)
	b.Bind(label)
	b.AddInsn(OpStop)

	if label.Unbound() {
		t.Fatalf("label should be bound after Bind")
	}
	offset := b.GetI16(1)
	patchEnd := 3 // opcode + i16 operand
	if int(offset) != label.target-patchEnd {
		t.Fatalf("forward branch offset = %d, want %d", offset, label.target-patchEnd)
	}
}

// TestAddBranchBackward exercises the while/for loop-top shape: the
// label is bound before the branch referencing it is emitted, so
// AddBranch must patch immediately rather than deferring to Bind.
func TestAddBranchBackward(t *testing.T) {
	var b Bytecode
	top := &Label{}

	b.Bind(top)
	b.AddInsn(OpILoad1)
	b.AddInsn(OpPop)
	b.AddBranch(OpJA, top)

	branchPos := 2 // ILOAD1 (1 byte) + POP (1 byte)
	offset := b.GetI16(branchPos + 1)
	want := top.target - (branchPos + 1 + 2)
	if int(offset) != want {
		t.Fatalf("backward branch offset = %d, want %d", offset, want)
	}
}

func TestLabelUnboundWithNoPendingBranches(t *testing.T) {
	label := &Label{}
	if label.Unbound() {
		t.Fatalf("a label nobody branched to is not considered unbound")
	}
}

func TestInstructionsStringDisassemblesKnownOpcodes(t *testing.T) {
	var b Bytecode
	b.AddInsn(OpILoad)
	b.AddI64(5)
	b.AddInsn(OpLoadIVar)
	b.AddU16(2)
	b.AddInsn(OpIAdd)
	b.AddInsn(OpIPrint)
	b.AddInsn(OpStop)

	out := b.Bytes().String()
	for _, want := range []string{"ILOAD 5", "LOADIVAR 2", "IADD", "IPRINT", "STOP"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q, got:\n%s", want, out)
		}
	}
}

func TestLookupUnknownOpcode(t *testing.T) {
	if _, err := Lookup(Op(255)); err == nil {
		t.Fatalf("expected an error looking up an undefined opcode")
	}
}
