package vm

import "math"

// VM owns every piece of mutable state for one execution: the shared
// Memory, the Compiler cursor, the Digest, the symbol table, and the
// four execution registers. Nothing here is package-global — callers
// are expected to create one VM per logical program, matching the
// single-threaded invariant of spec section 5.
type VM struct {
	Mem     *Memory
	Compile *Compiler
	Digest  *Digest
	Symbols *SymbolTable
	Out     *Host

	IP uint32 // offset within SegCode
	SP uint32 // offset within SegStack, always a multiple of 4
	RP uint32 // offset within SegRStack
	BP uint32 // offset within SegRStack: top of rstack at the last call

	Running bool
	Debug   bool

	handlers map[Opcode]func(*VM) error
}

func NewVM(out *Host) *VM {
	mem := NewMemory()
	vm := &VM{
		Mem:      mem,
		Compile:  NewCompiler(mem),
		Digest:   NewDigest(mem),
		Symbols:  NewSymbolTable(),
		Out:      out,
		handlers: make(map[Opcode]func(*VM) error),
	}
	RegisterBuiltins(vm)
	return vm
}

const cellSize = 4

// push/pop operate on the data stack (SegStack), SP denominated in
// bytes, always moving by whole cells.
func (vm *VM) push(v float32) error {
	if vm.SP+cellSize > vm.Mem.SegmentSize(SegStack) {
		return newStackError(KindStackOverflow, nil, "data stack overflow")
	}
	if err := vm.Mem.Write32F(SegStack, vm.SP, v); err != nil {
		return err
	}
	vm.SP += cellSize
	return nil
}

func (vm *VM) pop() (float32, error) {
	if vm.SP < cellSize {
		return 0, newStackError(KindStackUnderflow, vm.stackSnapshot(), "stack underflow")
	}
	vm.SP -= cellSize
	return vm.Mem.Read32F(SegStack, vm.SP)
}

// cellAt reads the cell at byte offset off within the data stack,
// without touching SP.
func (vm *VM) cellAt(off uint32) (float32, error) {
	return vm.Mem.Read32F(SegStack, off)
}

func (vm *VM) setCellAt(off uint32, v float32) error {
	return vm.Mem.Write32F(SegStack, off, v)
}

// peekDepth returns the cell that is depthCells below the current top
// (0 = the cell just under SP, i.e. TOS).
func (vm *VM) peekDepth(depthCells uint32) (float32, error) {
	off := int64(vm.SP) - int64(depthCells+1)*cellSize
	if off < 0 {
		return 0, newStackError(KindStackUnderflow, vm.stackSnapshot(), "stack underflow")
	}
	return vm.cellAt(uint32(off))
}

func (vm *VM) rpushRaw(v uint32) error {
	if vm.RP+cellSize > vm.Mem.SegmentSize(SegRStack) {
		return newStackError(KindReturnStackOverflow, nil, "return stack overflow")
	}
	if err := vm.Mem.Write32(SegRStack, vm.RP, v); err != nil {
		return err
	}
	vm.RP += cellSize
	return nil
}

func (vm *VM) rpopRaw() (uint32, error) {
	if vm.RP < cellSize {
		return 0, newError(KindStackUnderflow, "return stack underflow")
	}
	vm.RP -= cellSize
	return vm.Mem.Read32(SegRStack, vm.RP)
}

func (vm *VM) rpushTagged(v float32) error { return vm.rpushRaw(math.Float32bits(v)) }
func (vm *VM) rpopTagged() (float32, error) {
	bits, err := vm.rpopRaw()
	return math.Float32frombits(bits), err
}

// stackSnapshot copies the live portion of the data stack, for error
// messages that must include "the stack state" per spec 7.
func (vm *VM) stackSnapshot() []float32 {
	n := vm.SP / cellSize
	out := make([]float32, n)
	for i := uint32(0); i < n; i++ {
		v, _ := vm.Mem.Read32F(SegStack, i*cellSize)
		out[i] = v
	}
	return out
}

func (vm *VM) readCode8() (byte, error) {
	b, err := vm.Mem.Read8(SegCode, vm.IP)
	if err != nil {
		return 0, err
	}
	vm.IP++
	return b, nil
}

func (vm *VM) readCode16() (uint16, error) {
	v, err := vm.Mem.Read16(SegCode, vm.IP)
	if err != nil {
		return 0, err
	}
	vm.IP += 2
	return v, nil
}

func (vm *VM) readCodeFloat32() (float32, error) {
	v, err := vm.Mem.Read32F(SegCode, vm.IP)
	if err != nil {
		return 0, err
	}
	vm.IP += 4
	return v, nil
}

// callFrame performs the CALL/EVAL(CODE) frame-push discipline of spec 4.6:
// save the return IP and the current BP, then hand BP the current RP
// and jump.
func (vm *VM) callFrame(target uint32) error {
	if err := vm.rpushTagged(ToTagged(TagCode, uint16(vm.IP))); err != nil {
		return err
	}
	if err := vm.rpushRaw(vm.BP); err != nil {
		return err
	}
	vm.BP = vm.RP
	vm.IP = target
	return nil
}

// Run starts execution at startAddr (an offset within CODE) and
// dispatches opcodes until ABORT, EXIT-at-top-level, or a fatal error.
func (vm *VM) Run(startAddr uint32) (err error) {
	vm.IP = startAddr
	vm.Running = true

	defer func() {
		if r := recover(); r != nil {
			vm.Running = false
			err = wrapRuntime(r, vm.stackSnapshot())
		}
	}()

	for vm.Running {
		if err := vm.step(); err != nil {
			vm.Running = false
			return err
		}
	}
	return nil
}

// Step executes exactly one opcode; used by the debug single-step
// REPL in repl.go.
func (vm *VM) Step() error {
	if !vm.Running {
		return nil
	}
	if err := vm.step(); err != nil {
		vm.Running = false
		return err
	}
	return nil
}

func (vm *VM) step() error {
	opByte, err := vm.readCode8()
	if err != nil {
		return err
	}
	op := Opcode(opByte)

	switch op {
	case OpNop:
		return nil

	case OpLiteralNumber:
		v, err := vm.readCodeFloat32()
		if err != nil {
			return err
		}
		return vm.push(v)

	case OpLiteralString:
		addr, err := vm.readCode16()
		if err != nil {
			return err
		}
		return vm.push(ToTagged(TagString, addr))

	case OpBranch:
		off, err := vm.readCode16()
		if err != nil {
			return err
		}
		vm.IP = uint32(int64(vm.IP) + int64(int16(off)))
		return nil

	case OpBranchCall:
		off, err := vm.readCode16()
		if err != nil {
			return err
		}
		target := uint32(int64(vm.IP) + int64(int16(off)))
		if err := vm.push(ToTagged(TagCode, uint16(vm.IP))); err != nil {
			return err
		}
		vm.IP = target
		return nil

	case OpCall:
		addr, err := vm.readCode16()
		if err != nil {
			return err
		}
		return vm.callFrame(uint32(addr))

	case OpEval:
		return vm.execEval()

	case OpExit:
		return vm.execExit()

	case OpAbort:
		vm.Running = false
		return nil

	default:
		if h, ok := vm.handlers[op]; ok {
			return h(vm)
		}
		return newError(KindInvalidOpcode, "Invalid opcode: %d", opByte)
	}
}

func (vm *VM) execEval() error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	tv := FromTagged(v)
	switch tv.Tag {
	case TagCode:
		return vm.callFrame(uint32(tv.Value))
	case TagBuiltin:
		if h, ok := vm.handlers[Opcode(tv.Value)]; ok {
			return h(vm)
		}
		return newError(KindInvalidOpcode, "Invalid opcode: %d", tv.Value)
	default:
		return vm.push(v)
	}
}

func (vm *VM) execExit() error {
	if vm.RP < 2*cellSize {
		vm.Running = false
		return nil
	}
	vm.RP = vm.BP
	bp, err := vm.rpopRaw()
	if err != nil {
		return err
	}
	vm.BP = bp
	ret, err := vm.rpopTagged()
	if err != nil {
		return err
	}
	retTag := FromTagged(ret)
	vm.IP = uint32(retTag.Value)
	return nil
}
