package vm

// definitionState tracks the colon definition currently being
// compiled, if any.
type definitionState struct {
	name      string
	branchPos uint32 // address of the reserved BRANCH offset slot
}

// Parser drives a Tokenizer, emits bytecode through a Compiler, and
// mutates a SymbolTable for `:` definitions. One Parser is created per
// top-level invocation (one REPL line, or one source file); the
// Compiler/Digest/SymbolTable it's handed are long-lived VM state.
type Parser struct {
	tok     *Tokenizer
	compile *Compiler
	digest  *Digest
	symbols *SymbolTable

	currentDefinition *definitionState
	insideCodeBlock   bool
	openListDepth     int
}

func NewParser(tok *Tokenizer, compile *Compiler, digest *Digest, symbols *SymbolTable) *Parser {
	return &Parser{tok: tok, compile: compile, digest: digest, symbols: symbols}
}

// Parse consumes the entire token stream, compiling one top-level
// program terminated by ABORT (spec 4.5 "At EOF").
func (p *Parser) Parse() error {
	for {
		tok, err := p.tok.Next()
		if err != nil {
			return err
		}
		if tok.Type == TokEOF {
			break
		}
		if err := p.parseToken(tok); err != nil {
			return err
		}
	}

	if p.currentDefinition != nil {
		return newError(KindSyntax, "Unclosed definition for %s", p.currentDefinition.name)
	}
	if p.insideCodeBlock {
		return newError(KindSyntax, "Unclosed code block")
	}
	if p.openListDepth > 0 {
		return newError(KindSyntax, "Unclosed list literal")
	}
	return p.compile.CompileOpcode(OpAbort)
}

func (p *Parser) parseToken(tok Token) error {
	switch tok.Type {
	case TokNumber:
		if err := p.compile.CompileOpcode(OpLiteralNumber); err != nil {
			return err
		}
		return p.compile.CompileFloat32(tok.Number)

	case TokString:
		return p.emitStringLiteral(tok.Text)

	case TokWord:
		return p.parseWord(tok.Text)

	case TokSpecial:
		return p.parseSpecial(tok.Text)
	}
	return nil
}

func (p *Parser) emitStringLiteral(s string) error {
	addr, err := p.digest.Intern(s)
	if err != nil {
		return err
	}
	if err := p.compile.CompileOpcode(OpLiteralString); err != nil {
		return err
	}
	return p.compile.Compile16(uint16(addr))
}

func (p *Parser) parseWord(name string) error {
	sym, ok := p.symbols.Find(name)
	if !ok {
		return newError(KindSyntax, "Unknown word: %s", name)
	}
	switch sym.Kind {
	case ActionBuiltin:
		return p.compile.CompileOpcode(sym.Opcode)
	case ActionCall:
		if err := p.compile.CompileOpcode(OpCall); err != nil {
			return err
		}
		return p.compile.Compile16(sym.Addr)
	}
	return nil
}

func (p *Parser) parseSpecial(ch string) error {
	switch ch {
	case ":":
		return p.beginDefinition()
	case ";":
		return p.endDefinition()
	case "(":
		return p.beginCodeBlock()
	case ")":
		return p.endCodeBlock()
	case "{":
		return p.beginList()
	case "}":
		return p.endList()
	case "`":
		return p.parseSymbolLiteral()
	}
	return newError(KindSyntax, "unrecognized special token: %s", ch)
}

func (p *Parser) beginDefinition() error {
	if p.insideCodeBlock {
		return newError(KindSyntax, "Cannot nest definition inside code block")
	}
	if p.currentDefinition != nil {
		return newError(KindSyntax, "Nested definitions are not allowed")
	}

	nameTok, err := p.tok.Next()
	if err != nil {
		return err
	}
	var name string
	switch nameTok.Type {
	case TokWord:
		name = nameTok.Text
	case TokNumber:
		name = formatNumberName(nameTok.Number)
	default:
		return newError(KindSyntax, "expected a name after ':'")
	}

	if p.symbols.Defined(name) {
		return newError(KindSyntax, "Word already defined: %s", name)
	}

	if err := p.compile.CompileOpcode(OpBranch); err != nil {
		return err
	}
	slot, err := p.compile.ReserveSlot16()
	if err != nil {
		return err
	}

	entry := p.compile.CP()
	p.symbols.Define(Symbol{Name: name, Kind: ActionCall, Addr: uint16(entry)})
	p.currentDefinition = &definitionState{name: name, branchPos: slot}
	p.compile.Preserve()
	return nil
}

func (p *Parser) endDefinition() error {
	if p.currentDefinition == nil {
		return newError(KindSyntax, "Unexpected semicolon")
	}
	if err := p.compile.CompileOpcode(OpExit); err != nil {
		return err
	}
	def := p.currentDefinition
	p.currentDefinition = nil
	return p.compile.PatchSigned16(def.branchPos, BranchOffset(def.branchPos, p.compile.CP()))
}

func (p *Parser) beginCodeBlock() error {
	p.compile.EnterNesting()
	prevInside := p.insideCodeBlock
	if err := p.compile.CompileOpcode(OpBranchCall); err != nil {
		return err
	}
	slot, err := p.compile.ReserveSlot16()
	if err != nil {
		return err
	}
	p.insideCodeBlock = true

	for {
		tok, err := p.tok.Next()
		if err != nil {
			return err
		}
		if tok.Type == TokEOF {
			return newError(KindSyntax, "Unclosed code block")
		}
		if tok.Type == TokSpecial && tok.Text == ")" {
			break
		}
		if err := p.parseToken(tok); err != nil {
			return err
		}
	}

	if err := p.compile.CompileOpcode(OpExit); err != nil {
		return err
	}
	if err := p.compile.PatchSigned16(slot, BranchOffset(slot, p.compile.CP())); err != nil {
		return err
	}
	p.compile.ExitNesting()
	p.insideCodeBlock = prevInside
	p.compile.Preserve()
	return nil
}

func (p *Parser) endCodeBlock() error {
	return newError(KindSyntax, "Unexpected closing parenthesis")
}

func (p *Parser) beginList() error {
	p.openListDepth++
	return p.compile.CompileOpcode(OpOpenList)
}

func (p *Parser) endList() error {
	if p.openListDepth == 0 {
		return newError(KindSyntax, "Unexpected closing brace")
	}
	p.openListDepth--
	return p.compile.CompileOpcode(OpCloseList)
}

func (p *Parser) parseSymbolLiteral() error {
	nameTok, err := p.tok.Next()
	if err != nil {
		return err
	}
	if nameTok.Type != TokWord {
		return newError(KindSyntax, "expected a name after '`'")
	}
	return p.emitStringLiteral(nameTok.Text)
}

func formatNumberName(v float32) string {
	return formatFloat(v)
}
