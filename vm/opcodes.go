package vm

/*
	Opcodes are a single byte. Immediate operand width is fixed per
	opcode (see OperandBytes): 0, 2 or 4 bytes of little-endian data
	immediately following the opcode byte in the CODE segment.

	Groups, mirroring the numbering scheme of the surface words:
		0x0_ control flow and literals
		0x1_ list grouping
		0x2_ stack shuffling (list-aware)
		0x3_ list structural ops
		0x4_-0x5_ arithmetic, comparison, logic, unary
		0x6_ host IO
*/

type Opcode byte

const (
	OpNop Opcode = 0x00

	OpLiteralNumber Opcode = 0x01
	OpLiteralString Opcode = 0x02
	OpBranch        Opcode = 0x03
	OpBranchCall    Opcode = 0x04
	OpCall          Opcode = 0x05
	OpEval          Opcode = 0x06
	OpExit          Opcode = 0x07
	OpAbort         Opcode = 0x08

	OpOpenList  Opcode = 0x10 // groupLeft
	OpCloseList Opcode = 0x11 // groupRight

	OpDup    Opcode = 0x20
	OpDrop   Opcode = 0x21
	OpSwap   Opcode = 0x22
	OpOver   Opcode = 0x23
	OpNip    Opcode = 0x24
	OpTuck   Opcode = 0x25
	OpRot    Opcode = 0x26
	OpRevRot Opcode = 0x27
	OpPick   Opcode = 0x28

	OpLength  Opcode = 0x30
	OpSlots   Opcode = 0x31
	OpHead    Opcode = 0x32
	OpTail    Opcode = 0x33
	OpCons    Opcode = 0x34
	OpUncons  Opcode = 0x35
	OpConcat  Opcode = 0x36
	OpReverse Opcode = 0x37
	OpPack    Opcode = 0x38
	OpUnpack  Opcode = 0x39

	OpAdd   Opcode = 0x40
	OpSub   Opcode = 0x41
	OpMul   Opcode = 0x42
	OpDiv   Opcode = 0x43
	OpMod   Opcode = 0x44
	OpMin   Opcode = 0x45
	OpMax   Opcode = 0x46
	OpEq    Opcode = 0x47
	OpLt    Opcode = 0x48
	OpLe    Opcode = 0x49
	OpGt    Opcode = 0x4A
	OpGe    Opcode = 0x4B
	OpPow   Opcode = 0x4C
	OpAbs   Opcode = 0x4D
	OpNeg   Opcode = 0x4E
	OpSign  Opcode = 0x4F
	OpRecip Opcode = 0x50
	OpFloor Opcode = 0x51
	OpNot   Opcode = 0x52
	OpExp   Opcode = 0x53
	OpLn    Opcode = 0x54
	OpLog   Opcode = 0x55
	OpSqrt  Opcode = 0x56

	OpPrint Opcode = 0x60
)

var opcodeNames = map[Opcode]string{
	OpNop:           "nop",
	OpLiteralNumber: "literal_number",
	OpLiteralString: "literal_string",
	OpBranch:        "branch",
	OpBranchCall:    "branch_call",
	OpCall:          "call",
	OpEval:          "eval",
	OpExit:          "exit",
	OpAbort:         "abort",
	OpOpenList:      "open_list",
	OpCloseList:     "close_list",
	OpDup:           "dup",
	OpDrop:          "drop",
	OpSwap:          "swap",
	OpOver:          "over",
	OpNip:           "nip",
	OpTuck:          "tuck",
	OpRot:           "rot",
	OpRevRot:        "revrot",
	OpPick:          "pick",
	OpLength:        "length",
	OpSlots:         "slots",
	OpHead:          "head",
	OpTail:          "tail",
	OpCons:          "cons",
	OpUncons:        "uncons",
	OpConcat:        "concat",
	OpReverse:       "reverse",
	OpPack:          "pack",
	OpUnpack:        "unpack",
	OpAdd:           "+",
	OpSub:           "-",
	OpMul:           "*",
	OpDiv:           "/",
	OpMod:           "mod",
	OpMin:           "min",
	OpMax:           "max",
	OpEq:            "eq",
	OpLt:            "lt",
	OpLe:            "le",
	OpGt:            "gt",
	OpGe:            "ge",
	OpPow:           "pow",
	OpAbs:           "abs",
	OpNeg:           "neg",
	OpSign:          "sign",
	OpRecip:         "recip",
	OpFloor:         "floor",
	OpNot:           "not",
	OpExp:           "exp",
	OpLn:            "ln",
	OpLog:           "log",
	OpSqrt:          "sqrt",
	OpPrint:         "print",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return "?unknown?"
}

// OperandBytes returns the fixed immediate width that follows this
// opcode byte in the CODE segment, per spec 6.2.
func (o Opcode) OperandBytes() int {
	switch o {
	case OpLiteralNumber:
		return 4
	case OpLiteralString, OpBranch, OpBranchCall, OpCall:
		return 2
	default:
		return 0
	}
}

// isControlFlow is used only to build the default symbol table;
// every opcode not explicitly a control-flow primitive is registered
// as a plain builtin word under its opcodeNames spelling.
func isControlFlow(o Opcode) bool {
	switch o {
	case OpNop, OpLiteralNumber, OpLiteralString, OpBranch, OpBranchCall, OpCall, OpExit, OpAbort, OpOpenList, OpCloseList:
		return true
	default:
		return false
	}
}
