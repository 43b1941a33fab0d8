package vm

import (
	"fmt"
	"math"
	"testing"
)

// assert mirrors the teacher's own helper (vm/vm_test.go): a single
// fatal check with a formatted message, used instead of testify.
func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// runSource compiles and runs source against a fresh VM, returning the
// live data stack as decoded TaggedValues, top last.
func runSource(t *testing.T, source string) (*VM, []TaggedValue, error) {
	t.Helper()
	pr, err := NewProgram(source, NewHost(discardWriter{}))
	if err != nil {
		return nil, nil, err
	}
	if err := pr.Run(); err != nil {
		return pr.VM, decodeStack(pr.VM), err
	}
	return pr.VM, decodeStack(pr.VM), nil
}

func decodeStack(vm *VM) []TaggedValue {
	raw := vm.stackSnapshot()
	out := make([]TaggedValue, len(raw))
	for i, v := range raw {
		out[i] = FromTagged(v)
	}
	return out
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func assertNumberStack(t *testing.T, source string, want ...float32) {
	t.Helper()
	_, stack, err := runSource(t, source)
	assert(t, err == nil, "unexpected error running %q: %v", source, err)
	assert(t, len(stack) == len(want), "stack depth mismatch for %q: got %d want %d (%v)", source, len(stack), len(want), stack)
	for i, w := range want {
		assert(t, stack[i].Tag == TagNumber, "cell %d of %q is not NUMBER: %v", i, source, stack[i])
		assert(t, stack[i].Number == w, "cell %d of %q: got %v want %v", i, source, stack[i].Number, w)
	}
}

func TestArithmetic(t *testing.T) {
	assertNumberStack(t, "5 3 +", 8)
	assertNumberStack(t, "10 3 -", 7)
	assertNumberStack(t, "5 3 *", 15)
	assertNumberStack(t, "15 3 /", 5)
	assertNumberStack(t, "7 3 mod", 1)
	assertNumberStack(t, "2 10 pow", 1024)
	assertNumberStack(t, "-5 abs", 5)
	assertNumberStack(t, "4 sqrt", 2)
}

func TestComparisonAndLogic(t *testing.T) {
	assertNumberStack(t, "3 3 eq", 1)
	assertNumberStack(t, "3 4 eq", 0)
	assertNumberStack(t, "3 4 lt", 1)
	assertNumberStack(t, "4 3 gt", 1)
	assertNumberStack(t, "0 not", 1)
	assertNumberStack(t, "1 not", 0)
}

// TestDivisionByZeroYieldsInfinity exercises spec 4.8's chosen behavior directly: "/" by
// zero yields +Infinity rather than a fatal error, so the full
// expression completes normally.
func TestDivisionByZeroYieldsInfinity(t *testing.T) {
	_, stack, err := runSource(t, "5 3 0 / +")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, len(stack) == 1, "expected one cell, got %v", stack)
	assert(t, math.IsInf(float64(stack[0].Number), 1), "expected +Infinity, got %v", stack[0].Number)
}

func TestStackShuffling(t *testing.T) {
	assertNumberStack(t, "1 2 3 drop swap dup", 2, 1, 1)
	assertNumberStack(t, "1 2 over", 1, 2, 1)
	assertNumberStack(t, "1 2 nip", 2)
	assertNumberStack(t, "1 2 tuck", 2, 1, 2)
	assertNumberStack(t, "1 2 3 rot", 2, 3, 1)
	assertNumberStack(t, "1 2 3 revrot", 3, 1, 2)
	assertNumberStack(t, "1 2 swap swap", 1, 2)
	assertNumberStack(t, "10 20 30 2 pick", 10, 20, 30, 10)
}

func TestCodeBlockEval(t *testing.T) {
	assertNumberStack(t, "(30 20 *) eval", 600)
}

func TestColonDefinitions(t *testing.T) {
	assertNumberStack(t, ": square dup * ; 3 square", 9)
	assertNumberStack(t, ": double 2 * ; : quadruple double double ; 5 quadruple", 20)
}

// TestColonDefinitionLayout checks invariant 10: a colon definition
// compiles to BRANCH <off> body EXIT with <off> equal to the byte
// length of body EXIT.
func TestColonDefinitionLayout(t *testing.T) {
	pr, err := NewProgram(": double 2 * ;", StdoutHost())
	assert(t, err == nil, "compile error: %v", err)
	vm := pr.VM

	// BRANCH opcode + 2-byte offset at BCP.
	branchByte, err := vm.Mem.Read8(SegCode, pr.Entry)
	assert(t, err == nil, "%v", err)
	assert(t, Opcode(branchByte) == OpBranch, "expected BRANCH at entry, got %v", Opcode(branchByte))

	off, err := vm.Mem.Read16(SegCode, pr.Entry+1)
	assert(t, err == nil, "%v", err)

	target := uint32(int64(pr.Entry+3) + int64(int16(off)))
	exitByte, err := vm.Mem.Read8(SegCode, target-1)
	assert(t, err == nil, "%v", err)
	assert(t, Opcode(exitByte) == OpExit, "expected EXIT just before branch target, got %v", Opcode(exitByte))
}

func TestListLiteral(t *testing.T) {
	_, stack, err := runSource(t, "{ 1 2 3 }")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, len(stack) == 4, "expected 4 cells (3 payload + header), got %d: %v", len(stack), stack)
	assert(t, stack[3].Tag == TagList, "top cell should be LIST header, got %v", stack[3])
	assert(t, stack[3].Value == 3, "header value should be 3, got %d", stack[3].Value)
}

func TestListLengthAndSlots(t *testing.T) {
	_, stack, err := runSource(t, "{ 1 { 2 3 } 4 } length")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, len(stack) == 1, "expected 1 cell, got %v", stack)
	assert(t, stack[0].Tag == TagInteger && stack[0].Value == 3, "expected length 3, got %v", stack[0])

	_, stack, err = runSource(t, "{ 1 { 2 3 } 4 } slots")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, stack[0].Tag == TagInteger && stack[0].Value == 5, "expected slots 5, got %v", stack[0])
}

func TestListHeadTailConsUncons(t *testing.T) {
	assertNumberStack(t, "{ 1 2 3 } head", 1)

	_, stack, err := runSource(t, "{ 1 2 3 } tail length")
	assert(t, err == nil, "%v", err)
	assert(t, stack[0].Tag == TagInteger && stack[0].Value == 2, "expected tail length 2, got %v", stack[0])

	_, stack, err = runSource(t, "{ 2 3 } 1 cons length")
	assert(t, err == nil, "%v", err)
	assert(t, stack[0].Value == 3, "expected cons'd length 3, got %v", stack[0])

	_, stack, err = runSource(t, "{ 1 2 3 } uncons")
	assert(t, err == nil, "%v", err)
	assert(t, stack[len(stack)-1].Tag == TagNumber && stack[len(stack)-1].Number == 1, "expected head 1 on top after uncons, got %v", stack)
}

func TestListConcatReversePackUnpack(t *testing.T) {
	_, stack, err := runSource(t, "{ 1 2 } { 3 4 } concat slots")
	assert(t, err == nil, "%v", err)
	assert(t, stack[0].Value == 4, "expected concat slots 4, got %v", stack[0])

	assertNumberStack(t, "{ 1 2 3 } reverse unpack", 3, 2, 1)
	assertNumberStack(t, "1 2 3 3 pack unpack", 1, 2, 3)
}

func TestDigestIntern(t *testing.T) {
	d := NewDigest(NewMemory())
	a1, err := d.Intern("hello")
	assert(t, err == nil, "%v", err)
	a2, err := d.Intern("hello")
	assert(t, err == nil, "%v", err)
	assert(t, a1 == a2, "interning the same string twice should return the same address, got %d and %d", a1, a2)

	_, ok := d.Find("missing")
	assert(t, !ok, "Find should report false for an un-added string")
}

func TestUnknownWordIsSyntaxError(t *testing.T) {
	_, err := NewProgram("bogusword", StdoutHost())
	assert(t, err != nil, "expected a syntax error for an unknown word")
	verr, ok := err.(*VMError)
	assert(t, ok, "expected *VMError, got %T", err)
	assert(t, verr.Kind == KindSyntax, "expected KindSyntax, got %v", verr.Kind)
}

func TestStackUnderflowReportsStackState(t *testing.T) {
	_, _, err := runSource(t, "1 +")
	assert(t, err != nil, "expected a stack underflow error")
	assert(t, fmt.Sprintf("%v", err) != "", "error should have a message")
	verr, ok := err.(*VMError)
	assert(t, ok, "expected *VMError, got %T", err)
	assert(t, verr.Kind == KindStackUnderflow, "expected KindStackUnderflow, got %v", verr.Kind)
	assert(t, verr.Stack != nil, "stack underflow error should carry a stack snapshot")
}

func TestPrintFormatsIntegerWithoutTrailingZero(t *testing.T) {
	assert(t, formatFloat(8) == "8", "expected \"8\", got %q", formatFloat(8))
	assert(t, formatFloat(2.5) == "2.5", "expected \"2.5\", got %q", formatFloat(2.5))
}
