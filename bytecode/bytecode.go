// Package bytecode defines the MathVM instruction set and the
// append-only buffer used to emit it.
//
// This is the authoritative wire format of spec §6.2: one opcode byte
// followed by inlined little-endian operands. Both the compiler (which
// writes) and the interpreter (which reads) share this package so the
// encoding cannot drift between the two.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ValType is a MathVM value type.
type ValType byte

const (
	VTInvalid ValType = iota
	VTVoid
	VTInt
	VTDouble
	VTString
)

// String renders a ValType for diagnostics.
func (t ValType) String() string {
	switch t {
	case VTVoid:
		return "void"
	case VTInt:
		return "int"
	case VTDouble:
		return "double"
	case VTString:
		return "string"
	default:
		return "invalid"
	}
}

// IsNumeric reports whether t is Int or Double.
func (t ValType) IsNumeric() bool { return t == VTInt || t == VTDouble }

// Op is a single bytecode opcode.
type Op byte

//nolint:revive
const (
	OpInvalid Op = iota

	OpILoad // i64
	OpDLoad // f64
	OpSLoad // u16 string-id
	OpILoad0
	OpILoad1
	OpILoadM1
	OpDLoad0
	OpDLoad1
	OpDLoadM1

	OpIAdd
	OpISub
	OpIMul
	OpIDiv
	OpIMod
	OpDAdd
	OpDSub
	OpDMul
	OpDDiv

	OpIAOr
	OpIAAnd
	OpIAXor

	OpINeg
	OpDNeg

	OpI2D
	OpD2I

	OpICmp
	OpDCmp

	OpIPrint
	OpDPrint
	OpSPrint

	OpLoadIVar    // u16 id
	OpLoadDVar    // u16 id
	OpStoreIVar   // u16 id
	OpStoreDVar   // u16 id
	OpLoadCtxIVar // u16 ctx, u16 id
	OpLoadCtxDVar // u16 ctx, u16 id
	OpStoreCtxIVar
	OpStoreCtxDVar

	OpJA      // i16 offset
	OpIfICmpE // i16 offset
	OpIfICmpNE
	OpIfICmpG
	OpIfICmpGE
	OpIfICmpL
	OpIfICmpLE

	OpCall // u16 function id
	OpReturn

	OpSwap
	OpPop
	OpStop

	// OpNativeCall is reserved per spec §9's NativeCallNode disposition;
	// the generator never emits it (no grammar production exists for a
	// native function declaration) and the interpreter treats it as an
	// unrecognized opcode like any other runtime error would be.
	OpNativeCall
)

var opNames = map[Op]string{
	OpILoad: "ILOAD", OpDLoad: "DLOAD", OpSLoad: "SLOAD",
	OpILoad0: "ILOAD0", OpILoad1: "ILOAD1", OpILoadM1: "ILOADM1",
	OpDLoad0: "DLOAD0", OpDLoad1: "DLOAD1", OpDLoadM1: "DLOADM1",
	OpIAdd: "IADD", OpISub: "ISUB", OpIMul: "IMUL", OpIDiv: "IDIV", OpIMod: "IMOD",
	OpDAdd: "DADD", OpDSub: "DSUB", OpDMul: "DMUL", OpDDiv: "DDIV",
	OpIAOr: "IAOR", OpIAAnd: "IAAND", OpIAXor: "IAXOR",
	OpINeg: "INEG", OpDNeg: "DNEG",
	OpI2D: "I2D", OpD2I: "D2I",
	OpICmp: "ICMP", OpDCmp: "DCMP",
	OpIPrint: "IPRINT", OpDPrint: "DPRINT", OpSPrint: "SPRINT",
	OpLoadIVar: "LOADIVAR", OpLoadDVar: "LOADDVAR",
	OpStoreIVar: "STOREIVAR", OpStoreDVar: "STOREDVAR",
	OpLoadCtxIVar: "LOADCTXIVAR", OpLoadCtxDVar: "LOADCTXDVAR",
	OpStoreCtxIVar: "STORECTXIVAR", OpStoreCtxDVar: "STORECTXDVAR",
	OpJA: "JA",
	OpIfICmpE: "IFICMPE", OpIfICmpNE: "IFICMPNE",
	OpIfICmpG: "IFICMPG", OpIfICmpGE: "IFICMPGE",
	OpIfICmpL: "IFICMPL", OpIfICmpLE: "IFICMPLE",
	OpCall: "CALL", OpReturn: "RETURN",
	OpSwap: "SWAP", OpPop: "POP", OpStop: "STOP",
	OpNativeCall: "NATIVECALL",
}

// Name returns the mnemonic for op, or "INVALID" if unrecognized.
func (op Op) Name() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "INVALID"
}

// Instructions is a flat byte-encoded instruction stream.
type Instructions []byte

// Bytecode is an append-only instruction buffer with typed writes,
// matching spec §4.1.
type Bytecode struct {
	ins Instructions
}

// CurrentOffset returns the current write offset (the next write
// position).
func (b *Bytecode) CurrentOffset() int { return len(b.ins) }

// Bytes exposes the underlying instruction stream.
func (b *Bytecode) Bytes() Instructions { return b.ins }

// AddInsn appends a single opcode byte.
func (b *Bytecode) AddInsn(op Op) {
	b.ins = append(b.ins, byte(op))
}

// AddU16 appends a little-endian uint16.
func (b *Bytecode) AddU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.ins = append(b.ins, buf[:]...)
}

// AddI16 appends a little-endian int16.
func (b *Bytecode) AddI16(v int16) {
	b.AddU16(uint16(v))
}

// AddI64 appends a little-endian int64.
func (b *Bytecode) AddI64(v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	b.ins = append(b.ins, buf[:]...)
}

// AddDouble appends a little-endian float64.
func (b *Bytecode) AddDouble(v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	b.ins = append(b.ins, buf[:]...)
}

// GetU16 reads a little-endian uint16 at offset.
func (b *Bytecode) GetU16(offset int) uint16 {
	return binary.LittleEndian.Uint16(b.ins[offset:])
}

// GetI16 reads a little-endian int16 at offset.
func (b *Bytecode) GetI16(offset int) int16 {
	return int16(b.GetU16(offset))
}

// GetI64 reads a little-endian int64 at offset.
func (b *Bytecode) GetI64(offset int) int64 {
	return int64(binary.LittleEndian.Uint64(b.ins[offset:]))
}

// GetDouble reads a little-endian float64 at offset.
func (b *Bytecode) GetDouble(offset int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b.ins[offset:]))
}

// GetInsn reads the opcode byte at offset.
func (b *Bytecode) GetInsn(offset int) Op {
	return Op(b.ins[offset])
}

// PatchI16 overwrites the two bytes at offset with a little-endian
// int16.
func (b *Bytecode) PatchI16(offset int, v int16) {
	binary.LittleEndian.PutUint16(b.ins[offset:], uint16(v))
}

// Label is a deferred forward-branch target (spec §4.1). AddBranch
// records positions that need patching once the label is Bind'd; it
// is an error to leave a Label unbound when generation finishes.
type Label struct {
	bound   bool
	target  int
	pending []int
}

// AddBranch emits op followed by a placeholder i16 offset. If label is
// already bound (a backward branch to a loop top, say), the offset is
// computed and patched immediately; otherwise the position is recorded
// against label so Bind can patch it once the target is known.
func (b *Bytecode) AddBranch(op Op, label *Label) {
	b.AddInsn(op)
	pos := b.CurrentOffset()
	b.AddI16(0)
	if label.bound {
		b.PatchI16(pos, int16(label.target-(pos+2)))
		return
	}
	label.pending = append(label.pending, pos)
}

// Bind sets label's target to the current write offset and patches
// every pending branch recorded against it with a signed relative
// offset measured from just after the 2-byte field (spec §4.1, §6.2).
func (b *Bytecode) Bind(label *Label) {
	label.target = b.CurrentOffset()
	label.bound = true
	for _, pos := range label.pending {
		delta := label.target - (pos + 2)
		b.PatchI16(pos, int16(delta))
	}
}

// Unbound reports whether label has pending branches but was never
// Bind'd — a final bytecode stream must have none of these (spec
// §4.1). A label that no branch references is not unbound.
func (l *Label) Unbound() bool { return len(l.pending) > 0 && !l.bound }

// Definition describes an opcode's operand widths, used by the
// disassembler.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Op]*Definition{
	OpILoad: {"ILOAD", []int{8}},
	OpDLoad: {"DLOAD", []int{8}},
	OpSLoad: {"SLOAD", []int{2}},
	OpILoad0: {"ILOAD0", nil}, OpILoad1: {"ILOAD1", nil}, OpILoadM1: {"ILOADM1", nil},
	OpDLoad0: {"DLOAD0", nil}, OpDLoad1: {"DLOAD1", nil}, OpDLoadM1: {"DLOADM1", nil},
	OpIAdd: {"IADD", nil}, OpISub: {"ISUB", nil}, OpIMul: {"IMUL", nil}, OpIDiv: {"IDIV", nil}, OpIMod: {"IMOD", nil},
	OpDAdd: {"DADD", nil}, OpDSub: {"DSUB", nil}, OpDMul: {"DMUL", nil}, OpDDiv: {"DDIV", nil},
	OpIAOr: {"IAOR", nil}, OpIAAnd: {"IAAND", nil}, OpIAXor: {"IAXOR", nil},
	OpINeg: {"INEG", nil}, OpDNeg: {"DNEG", nil},
	OpI2D: {"I2D", nil}, OpD2I: {"D2I", nil},
	OpICmp: {"ICMP", nil}, OpDCmp: {"DCMP", nil},
	OpIPrint: {"IPRINT", nil}, OpDPrint: {"DPRINT", nil}, OpSPrint: {"SPRINT", nil},
	OpLoadIVar: {"LOADIVAR", []int{2}}, OpLoadDVar: {"LOADDVAR", []int{2}},
	OpStoreIVar: {"STOREIVAR", []int{2}}, OpStoreDVar: {"STOREDVAR", []int{2}},
	OpLoadCtxIVar: {"LOADCTXIVAR", []int{2, 2}}, OpLoadCtxDVar: {"LOADCTXDVAR", []int{2, 2}},
	OpStoreCtxIVar: {"STORECTXIVAR", []int{2, 2}}, OpStoreCtxDVar: {"STORECTXDVAR", []int{2, 2}},
	OpJA: {"JA", []int{2}},
	OpIfICmpE: {"IFICMPE", []int{2}}, OpIfICmpNE: {"IFICMPNE", []int{2}},
	OpIfICmpG: {"IFICMPG", []int{2}}, OpIfICmpGE: {"IFICMPGE", []int{2}},
	OpIfICmpL: {"IFICMPL", []int{2}}, OpIfICmpLE: {"IFICMPLE", []int{2}},
	OpCall: {"CALL", []int{2}}, OpReturn: {"RETURN", nil},
	OpSwap: {"SWAP", nil}, OpPop: {"POP", nil}, OpStop: {"STOP", nil},
}

// Lookup returns the Definition for op.
func Lookup(op Op) (*Definition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// String disassembles the buffer into one "offset MNEMONIC operands"
// line per instruction, in the teacher's code.Instructions.String
// style.
func (ins Instructions) String() string {
	var out strings.Builder
	i := 0
	for i < len(ins) {
		op := Op(ins[i])
		def, err := Lookup(op)
		if err != nil {
			fmt.Fprintf(&out, "%04d ERROR: %s\n", i, err)
			i++
			continue
		}
		width := 0
		for _, w := range def.OperandWidths {
			width += w
		}
		operands := formatOperands(def, ins[i+1:i+1+width])
		fmt.Fprintf(&out, "%04d %s%s\n", i, def.Name, operands)
		i += 1 + width
	}
	return out.String()
}

func formatOperands(def *Definition, raw []byte) string {
	if len(def.OperandWidths) == 0 {
		return ""
	}
	var out strings.Builder
	offset := 0
	for _, w := range def.OperandWidths {
		switch w {
		case 2:
			out.WriteString(" ")
			fmt.Fprintf(&out, "%d", binary.LittleEndian.Uint16(raw[offset:]))
		case 8:
			out.WriteString(" ")
			fmt.Fprintf(&out, "%d", binary.LittleEndian.Uint64(raw[offset:]))
		}
		offset += w
	}
	return out.String()
}
