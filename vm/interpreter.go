package vm

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/dr8co/mathvm/bytecode"
)

// DefaultStackSize is the interpreter's fixed stack buffer size in
// bytes, used when Options.StackSize is left zero.
const DefaultStackSize = 1 << 20

// slotSize is the uniform width of every operand/variable slot (spec
// §3: "max(sizeof(i64), sizeof(f64))").
const slotSize = 8

// Options configures a new Interpreter.
type Options struct {
	// StackSize is the fixed byte size of the combined operand/variable
	// region (spec §4.7.1). Zero selects DefaultStackSize.
	StackSize int

	// Output receives IPRINT/DPRINT/SPRINT text. Nil selects os.Stdout.
	Output io.Writer
}

// Interpreter is the MathVM stack machine (spec §4.7). It owns one
// fixed-size byte buffer for the life of the run: the operand stack
// grows upward from offset 0, the variable region grows downward from
// the top, and the two must never cross (spec §4.7.1, §5).
type Interpreter struct {
	code *Code
	out  io.Writer

	mem             []byte
	operandsOffset  int
	variablesOffset int

	frames  []Frame
	fn      *Function
	ip      int
}

// NewInterpreter creates an Interpreter over code, ready to Run.
func NewInterpreter(code *Code, opts Options) *Interpreter {
	size := opts.StackSize
	if size == 0 {
		size = DefaultStackSize
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &Interpreter{
		code:            code,
		out:             out,
		mem:             make([]byte, size),
		variablesOffset: size,
	}
}

// Run executes the top-level function (id 0) to completion: STOP,
// or a RuntimeError.
func (vm *Interpreter) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*RuntimeError); ok {
				err = re
				return
			}
			panic(r)
		}
	}()

	top := vm.code.FunctionByID(0)
	if top == nil {
		return runtimeErrorf(ErrBadOpcode, "no top-level function registered")
	}
	vm.fn = top
	vm.ip = 0
	vm.allocFrame(top)

	for {
		op := vm.fetch()
		switch op {
		case bytecode.OpStop:
			return nil

		case bytecode.OpILoad:
			vm.pushInt(vm.readI64())
		case bytecode.OpDLoad:
			vm.pushDouble(vm.readF64())
		case bytecode.OpSLoad:
			vm.pushInt(int64(vm.readU16()))
		case bytecode.OpILoad0:
			vm.pushInt(0)
		case bytecode.OpILoad1:
			vm.pushInt(1)
		case bytecode.OpILoadM1:
			vm.pushInt(-1)
		case bytecode.OpDLoad0:
			vm.pushDouble(0)
		case bytecode.OpDLoad1:
			vm.pushDouble(1)
		case bytecode.OpDLoadM1:
			vm.pushDouble(-1)

		case bytecode.OpIAdd:
			vm.binInt(func(l, u int64) int64 { return l + u })
		case bytecode.OpISub:
			vm.binInt(func(l, u int64) int64 { return l - u })
		case bytecode.OpIMul:
			vm.binInt(func(l, u int64) int64 { return l * u })
		case bytecode.OpIDiv:
			u := vm.popInt()
			l := vm.popInt()
			if u == 0 {
				panic(runtimeErrorf(ErrDivideByZero, "IDIV"))
			}
			vm.pushInt(l / u)
		case bytecode.OpIMod:
			u := vm.popInt()
			l := vm.popInt()
			if u == 0 {
				panic(runtimeErrorf(ErrDivideByZero, "IMOD"))
			}
			vm.pushInt(l % u)
		case bytecode.OpIAOr:
			vm.binInt(func(l, u int64) int64 { return l | u })
		case bytecode.OpIAAnd:
			vm.binInt(func(l, u int64) int64 { return l & u })
		case bytecode.OpIAXor:
			vm.binInt(func(l, u int64) int64 { return l ^ u })

		case bytecode.OpDAdd:
			vm.binDouble(func(l, u float64) float64 { return l + u })
		case bytecode.OpDSub:
			vm.binDouble(func(l, u float64) float64 { return l - u })
		case bytecode.OpDMul:
			vm.binDouble(func(l, u float64) float64 { return l * u })
		case bytecode.OpDDiv:
			vm.binDouble(func(l, u float64) float64 { return l / u })

		case bytecode.OpICmp:
			u := vm.popInt()
			l := vm.popInt()
			vm.pushInt(threeWay(l, u))
		case bytecode.OpDCmp:
			u := vm.popDouble()
			l := vm.popDouble()
			var r int64
			switch {
			case l == u:
				r = 0
			case l < u:
				r = -1
			default:
				r = 1
			}
			vm.pushInt(r)

		case bytecode.OpINeg:
			vm.pushInt(-vm.popInt())
		case bytecode.OpDNeg:
			vm.pushDouble(-vm.popDouble())

		case bytecode.OpI2D:
			vm.pushDouble(float64(vm.popInt()))
		case bytecode.OpD2I:
			vm.pushInt(int64(vm.popDouble()))

		case bytecode.OpIPrint:
			writeInt(vm.out, vm.popInt())
		case bytecode.OpDPrint:
			writeDouble(vm.out, vm.popDouble())
		case bytecode.OpSPrint:
			id := vm.popInt()
			io.WriteString(vm.out, vm.code.ConstantByID(int(id)))

		case bytecode.OpLoadIVar:
			vm.pushInt(vm.loadVar(vm.currentFrame(), int(vm.readU16())))
		case bytecode.OpLoadDVar:
			vm.pushDouble(math.Float64frombits(uint64(vm.loadVar(vm.currentFrame(), int(vm.readU16())))))
		case bytecode.OpStoreIVar:
			id := int(vm.readU16())
			vm.storeVar(vm.currentFrame(), id, vm.popInt())
		case bytecode.OpStoreDVar:
			id := int(vm.readU16())
			vm.storeVar(vm.currentFrame(), id, int64(math.Float64bits(vm.popDouble())))

		case bytecode.OpLoadCtxIVar:
			ctx := int(vm.readU16())
			id := int(vm.readU16())
			vm.pushInt(vm.loadVar(vm.frameAt(ctx), id))
		case bytecode.OpLoadCtxDVar:
			ctx := int(vm.readU16())
			id := int(vm.readU16())
			vm.pushDouble(math.Float64frombits(uint64(vm.loadVar(vm.frameAt(ctx), id))))
		case bytecode.OpStoreCtxIVar:
			ctx := int(vm.readU16())
			id := int(vm.readU16())
			vm.storeVar(vm.frameAt(ctx), id, vm.popInt())
		case bytecode.OpStoreCtxDVar:
			ctx := int(vm.readU16())
			id := int(vm.readU16())
			vm.storeVar(vm.frameAt(ctx), id, int64(math.Float64bits(vm.popDouble())))

		case bytecode.OpJA:
			off := vm.readI16()
			vm.ip += int(off)
		case bytecode.OpIfICmpE:
			vm.branch(func(l, u int64) bool { return l == u })
		case bytecode.OpIfICmpNE:
			vm.branch(func(l, u int64) bool { return l != u })
		case bytecode.OpIfICmpG:
			vm.branch(func(l, u int64) bool { return l > u })
		case bytecode.OpIfICmpGE:
			vm.branch(func(l, u int64) bool { return l >= u })
		case bytecode.OpIfICmpL:
			vm.branch(func(l, u int64) bool { return l < u })
		case bytecode.OpIfICmpLE:
			vm.branch(func(l, u int64) bool { return l <= u })

		case bytecode.OpCall:
			id := int(vm.readU16())
			vm.callFunction(id)
		case bytecode.OpReturn:
			if !vm.returnFunction() {
				return nil
			}

		case bytecode.OpSwap:
			vm.swap()
		case bytecode.OpPop:
			vm.operandsOffset -= slotSize

		default:
			panic(runtimeErrorf(ErrBadOpcode, "opcode %d at ip %d in function %q", op, vm.ip-1, vm.fn.Name))
		}
	}
}

func threeWay(l, u int64) int64 {
	switch {
	case l == u:
		return 0
	case l < u:
		return -1
	default:
		return 1
	}
}

func (vm *Interpreter) branch(cmp func(l, u int64) bool) {
	u := vm.popInt()
	l := vm.popInt()
	off := vm.readI16()
	if cmp(l, u) {
		vm.ip += int(off)
	}
}

func (vm *Interpreter) binInt(f func(l, u int64) int64) {
	u := vm.popInt()
	l := vm.popInt()
	vm.pushInt(f(l, u))
}

func (vm *Interpreter) binDouble(f func(l, u float64) float64) {
	u := vm.popDouble()
	l := vm.popDouble()
	vm.pushDouble(f(l, u))
}

// fetch reads the next opcode byte and advances ip.
func (vm *Interpreter) fetch() bytecode.Op {
	op := vm.fn.Bytecode.GetInsn(vm.ip)
	vm.ip++
	return op
}

func (vm *Interpreter) readU16() uint16 {
	v := vm.fn.Bytecode.GetU16(vm.ip)
	vm.ip += 2
	return v
}

func (vm *Interpreter) readI16() int16 {
	v := vm.fn.Bytecode.GetI16(vm.ip)
	vm.ip += 2
	return v
}

func (vm *Interpreter) readI64() int64 {
	v := vm.fn.Bytecode.GetI64(vm.ip)
	vm.ip += 8
	return v
}

func (vm *Interpreter) readF64() float64 {
	v := vm.fn.Bytecode.GetDouble(vm.ip)
	vm.ip += 8
	return v
}

func (vm *Interpreter) pushInt(v int64) {
	if vm.operandsOffset+slotSize > vm.variablesOffset {
		panic(runtimeErrorf(ErrStackOverflow, "push"))
	}
	binary.LittleEndian.PutUint64(vm.mem[vm.operandsOffset:], uint64(v))
	vm.operandsOffset += slotSize
}

func (vm *Interpreter) popInt() int64 {
	if vm.operandsOffset < slotSize {
		panic(runtimeErrorf(ErrStackOverflow, "pop from empty operand stack"))
	}
	vm.operandsOffset -= slotSize
	return int64(binary.LittleEndian.Uint64(vm.mem[vm.operandsOffset:]))
}

func (vm *Interpreter) pushDouble(v float64) {
	vm.pushInt(int64(math.Float64bits(v)))
}

func (vm *Interpreter) popDouble() float64 {
	return math.Float64frombits(uint64(vm.popInt()))
}

func (vm *Interpreter) swap() {
	if vm.operandsOffset < 2*slotSize {
		panic(runtimeErrorf(ErrStackOverflow, "SWAP needs two operands"))
	}
	a := vm.operandsOffset - slotSize
	b := vm.operandsOffset - 2*slotSize
	var tmp [slotSize]byte
	copy(tmp[:], vm.mem[a:a+slotSize])
	copy(vm.mem[a:a+slotSize], vm.mem[b:b+slotSize])
	copy(vm.mem[b:b+slotSize], tmp[:])
}

func (vm *Interpreter) currentFrame() *Frame {
	return &vm.frames[len(vm.frames)-1]
}

// frameAt walks ctx hops along ParentFrame starting from the current
// frame (spec §4.7.3).
func (vm *Interpreter) frameAt(ctx int) *Frame {
	f := vm.currentFrame()
	for i := 0; i < ctx; i++ {
		f = &vm.frames[f.ParentFrame]
	}
	return f
}

func (vm *Interpreter) loadVar(f *Frame, id int) int64 {
	off := f.VariablesOffset + id*slotSize
	return int64(binary.LittleEndian.Uint64(vm.mem[off:]))
}

func (vm *Interpreter) storeVar(f *Frame, id int, v int64) {
	off := f.VariablesOffset + id*slotSize
	binary.LittleEndian.PutUint64(vm.mem[off:], uint64(v))
}

// allocFrame reserves locals_count * 8 bytes below the current
// variables offset and pushes a new Frame for fn, implementing the
// static (lexical) parent rule of spec §4.7.2: recursive self-calls
// inherit the current frame's parent rather than pointing at the
// dynamic caller.
func (vm *Interpreter) allocFrame(fn *Function) {
	var parent int
	switch {
	case len(vm.frames) == 0:
		parent = 0
	case fn.ID != 0 && vm.fn != nil && fn.ID == vm.fn.ID:
		parent = vm.currentFrame().ParentFrame
	default:
		parent = len(vm.frames) - 1
	}

	vm.variablesOffset -= slotSize * fn.LocalsCount
	if vm.variablesOffset < vm.operandsOffset {
		panic(runtimeErrorf(ErrStackOverflow, "call to %q", fn.Name))
	}
	vm.frames = append(vm.frames, Frame{
		FunctionID:      fn.ID,
		ReturnIP:        vm.ip,
		ParentFrame:     parent,
		VariablesOffset: vm.variablesOffset,
	})
}

func (vm *Interpreter) callFunction(id int) {
	fn := vm.code.FunctionByID(id)
	if fn == nil {
		panic(runtimeErrorf(ErrBadOpcode, "call to undefined function id %d", id))
	}
	vm.allocFrame(fn)
	vm.fn = fn
	vm.ip = 0
}

// returnFunction pops the current frame and restores the caller's
// state. It reports false when the top-level frame itself returns
// (program end), matching the original interpreter's treatment of
// RETURN from the outermost activation.
func (vm *Interpreter) returnFunction() bool {
	if len(vm.frames) == 0 {
		panic(runtimeErrorf(ErrNoSuchFrame, "RETURN"))
	}
	frame := vm.frames[len(vm.frames)-1]
	vm.ip = frame.ReturnIP
	vm.frames = vm.frames[:len(vm.frames)-1]

	if len(vm.frames) == 0 {
		return false
	}
	top := vm.frames[len(vm.frames)-1]
	vm.variablesOffset = top.VariablesOffset
	vm.fn = vm.code.FunctionByID(top.FunctionID)
	return true
}

func writeInt(w io.Writer, v int64) {
	io.WriteString(w, itoa(v))
}

func writeDouble(w io.Writer, v float64) {
	io.WriteString(w, ftoa(v))
}
