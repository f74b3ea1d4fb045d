package vm

// Frame is one function activation record (spec §3): the executing
// function, the caller's saved instruction pointer, the lexically
// enclosing activation's index (not the dynamic caller — see
// allocFrame in interpreter.go), and the byte offset into the
// interpreter's stack buffer at which this frame's locals begin.
//
// ParentFrame is a numeric index into the interpreter's frame slice
// (spec §9's Design Notes: "store parent_frame_index as a numeric
// index, never a pointer, so the vector may grow without invalidating
// links"), generalizing the teacher's vm.Frame{cl, ip, basePointer}
// to MathVM's static-chain addressing, which has no closure object to
// point at.
type Frame struct {
	FunctionID      int
	ReturnIP        int
	ParentFrame     int
	VariablesOffset int
}
