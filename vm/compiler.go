package vm

// Compiler is a cursor into the CODE segment. It knows nothing about
// words or syntax; the Parser drives it. BCP/CP are offsets relative
// to the CODE segment base, matching how the interpreter's IP and the
// CALL/BRANCH operand addresses are interpreted.
type Compiler struct {
	mem *Memory

	bcp      uint32 // base code pointer: start of the next top-level program
	cp       uint32 // current write cursor
	preserve bool
	nesting  int
}

func NewCompiler(mem *Memory) *Compiler {
	return &Compiler{mem: mem}
}

// Reset implements the two-mode semantics of 4.4/9: when preserve was
// set by a just-closed definition or code block, the next top-level
// program is emitted above it (BCP advances to CP); otherwise the
// write cursor rewinds and prior scratch top-level code is discarded.
func (c *Compiler) Reset() {
	if c.preserve {
		c.bcp = c.cp
		c.preserve = false
	} else {
		c.cp = c.bcp
	}
}

// Preserve marks the code just emitted as worth keeping across the
// next Reset. Colon definitions and code blocks both call this.
func (c *Compiler) Preserve() { c.preserve = true }

// CP returns the current write cursor (an offset within CODE).
func (c *Compiler) CP() uint32 { return c.cp }

// BCP returns the start address of the program about to be compiled.
func (c *Compiler) BCP() uint32 { return c.bcp }

func (c *Compiler) CompileOpcode(op Opcode) error {
	return c.compile8(byte(op))
}

func (c *Compiler) compile8(b byte) error {
	if err := c.mem.Write8(SegCode, c.cp, b); err != nil {
		return newError(KindRange, "code segment overflow at %d", c.cp)
	}
	c.cp++
	return nil
}

func (c *Compiler) Compile16(v uint16) error {
	if err := c.mem.Write16(SegCode, c.cp, v); err != nil {
		return newError(KindRange, "code segment overflow at %d", c.cp)
	}
	c.cp += 2
	return nil
}

func (c *Compiler) CompileFloat32(v float32) error {
	if err := c.mem.Write32F(SegCode, c.cp, v); err != nil {
		return newError(KindRange, "code segment overflow at %d", c.cp)
	}
	c.cp += 4
	return nil
}

// ReserveSlot16 emits a placeholder 16-bit value (for a forward branch
// offset to be patched later) and returns its address.
func (c *Compiler) ReserveSlot16() (uint32, error) {
	addr := c.cp
	if err := c.Compile16(0); err != nil {
		return 0, err
	}
	return addr, nil
}

// PatchSigned16 back-patches a previously reserved 16-bit slot with a
// signed displacement, without disturbing the current write cursor.
func (c *Compiler) PatchSigned16(slotAddr uint32, value int16) error {
	return c.mem.Write16(SegCode, slotAddr, uint16(value))
}

// BranchOffset computes the signed displacement a BRANCH/BRANCH_CALL
// operand must carry so that, added to the IP just past the 2-byte
// operand field, execution resumes at endAddr.
func BranchOffset(slotAddr, endAddr uint32) int16 {
	return int16(int64(endAddr) - int64(slotAddr+2))
}

func (c *Compiler) EnterNesting() { c.nesting++ }
func (c *Compiler) ExitNesting()  { c.nesting-- }
func (c *Compiler) Nesting() int  { return c.nesting }
