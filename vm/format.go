package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// formatFloat renders a plain NUMBER cell per spec 4.9: integers with
// no trailing ".0", non-integers trimmed to at most two decimals, and
// pi recognised and rendered at full precision.
func formatFloat(v float32) string {
	switch {
	case math.IsInf(float64(v), 1):
		return "Infinity"
	case math.IsInf(float64(v), -1):
		return "-Infinity"
	case math.IsNaN(float64(v)):
		return "NaN"
	}
	if v == float32(math.Trunc(float64(v))) {
		return strconv.FormatInt(int64(v), 10)
	}
	if math.Abs(float64(v)-math.Pi) < 1e-6 {
		return strconv.FormatFloat(math.Pi, 'f', -1, 64)
	}
	s := strconv.FormatFloat(float64(v), 'f', 2, 32)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

// formatCell renders a single non-LIST cell. LIST cells never reach
// here directly: opPrint always routes them through formatElementSpan,
// since a LIST header alone can't be rendered without its payload.
func formatCell(vm *VM, cell float32) string {
	tv := FromTagged(cell)
	switch tv.Tag {
	case TagNumber:
		return formatFloat(tv.Number)
	case TagInteger:
		return strconv.Itoa(int(tv.Value))
	case TagString:
		s, err := vm.Digest.Get(uint32(tv.Value))
		if err != nil {
			return fmt.Sprintf("[STRING:%d]", tv.Value)
		}
		return s
	default:
		return fmt.Sprintf("[%s:%d]", tv.Tag, tv.Value)
	}
}

// formatElementSpan renders one logical element's full cell span
// (spec 4.9's recursive "( e1 e2 … en )" rule), where a scalar span is
// a single cell and a nested-list span ends in its own LIST header.
func formatElementSpan(vm *VM, span []float32) string {
	last := FromTagged(span[len(span)-1])
	if last.Tag != TagList {
		return formatCell(vm, span[0])
	}
	inner := listElements(span)
	if len(inner) == 0 {
		return "( )"
	}
	parts := make([]string, len(inner))
	for i, e := range inner {
		parts[i] = formatElementSpan(vm, e)
	}
	return "( " + strings.Join(parts, " ") + " )"
}

// opPrint pops the topmost value — a whole span, for LIST values — and
// writes its formatted form to the host sink followed by a newline.
func opPrint(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk, err := vm.popSpanCells(size)
	if err != nil {
		return err
	}
	return vm.Out.Println(formatElementSpan(vm, chunk))
}
