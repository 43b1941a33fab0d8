package vm

// RegisterBuiltins wires every non-control-flow opcode into both the
// dispatch table (vm.handlers) and the default symbol table, so
// surface words resolve to exactly the opcode the bytecode dispatch
// loop already knows how to run. Grounded on the teacher's
// strToInstrMap/instrToStrMap init() pattern (vm/bytecode.go), adapted
// from a static map pair to a single handler table plus the opcode's
// own opcodeNames spelling.
func RegisterBuiltins(vm *VM) {
	handlers := map[Opcode]func(*VM) error{
		OpOpenList:  opOpenList,
		OpCloseList: opCloseList,

		OpDup:    opDup,
		OpDrop:   opDrop,
		OpSwap:   opSwap,
		OpOver:   opOver,
		OpNip:    opNip,
		OpTuck:   opTuck,
		OpRot:    opRot,
		OpRevRot: opRevRot,
		OpPick:   opPick,

		OpLength:  opLength,
		OpSlots:   opSlots,
		OpHead:    opHead,
		OpTail:    opTail,
		OpCons:    opCons,
		OpUncons:  opUncons,
		OpConcat:  opConcat,
		OpReverse: opReverse,
		OpPack:    opPack,
		OpUnpack:  opUnpack,

		OpAdd: opAdd,
		OpSub: opSub,
		OpMul: opMul,
		OpDiv: opDiv,
		OpMod: opMod,
		OpMin: opMin,
		OpMax: opMax,
		OpEq:  opEq,
		OpLt:  opLt,
		OpLe:  opLe,
		OpGt:  opGt,
		OpGe:  opGe,
		OpPow: opPow,

		OpAbs:   opAbs,
		OpNeg:   opNeg,
		OpSign:  opSign,
		OpRecip: opRecip,
		OpFloor: opFloor,
		OpNot:   opNot,
		OpExp:   opExp,
		OpLn:    opLn,
		OpLog:   opLog,
		OpSqrt:  opSqrt,

		OpPrint: opPrint,
	}

	for op, fn := range handlers {
		vm.handlers[op] = fn
		if isControlFlow(op) {
			continue
		}
		vm.Symbols.Define(Symbol{Name: opcodeNames[op], Kind: ActionBuiltin, Opcode: op})
	}

	// `eval` is dispatched by step() itself rather than through
	// vm.handlers, so it is registered as a word here.
	vm.Symbols.Define(Symbol{Name: opcodeNames[OpEval], Kind: ActionBuiltin, Opcode: OpEval})

	// `.` is the REPL's traditional print shorthand (spec 6.4).
	vm.Symbols.Define(Symbol{Name: ".", Kind: ActionBuiltin, Opcode: OpPrint})
}
