package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a fatal VM error per the error taxonomy. It is
// normative which kind a given failure is reported as, but the exact
// English wording is not.
type ErrorKind int

const (
	KindRange ErrorKind = iota
	KindString
	KindSyntax
	KindStackUnderflow
	KindStackOverflow
	KindReturnStackOverflow
	KindInvalidOpcode
	KindRuntime
)

func (k ErrorKind) String() string {
	switch k {
	case KindRange:
		return "RangeError"
	case KindString:
		return "StringError"
	case KindSyntax:
		return "SyntaxError"
	case KindStackUnderflow:
		return "StackUnderflow"
	case KindStackOverflow:
		return "StackOverflow"
	case KindReturnStackOverflow:
		return "ReturnStackOverflow"
	case KindInvalidOpcode:
		return "InvalidOpcode"
	case KindRuntime:
		return "RuntimeError"
	default:
		return "UnknownError"
	}
}

// VMError is the concrete error type raised by every fallible operation
// in the core. It carries the kind so callers (the REPL) can decide
// whether to resume, and an optional stack snapshot for the kinds that
// the spec requires to surface one.
type VMError struct {
	Kind    ErrorKind
	Message string
	Stack   []float32
}

func (e *VMError) Error() string {
	if e.Stack != nil {
		return fmt.Sprintf("%s: %s (stack: %v)", e.Kind, e.Message, e.Stack)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) error {
	return &VMError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func newStackError(kind ErrorKind, stack []float32, format string, args ...any) error {
	cp := make([]float32, len(stack))
	copy(cp, stack)
	return &VMError{Kind: kind, Message: fmt.Sprintf(format, args...), Stack: cp}
}

// wrapRuntime turns an arbitrary recovered panic value into a RuntimeError
// that carries the data stack at the moment of failure, per 7 RuntimeError.
func wrapRuntime(r any, stack []float32) error {
	if err, ok := r.(error); ok {
		return errors.Wrapf(&VMError{Kind: KindRuntime, Message: err.Error(), Stack: append([]float32(nil), stack...)}, "runtime error")
	}
	return &VMError{Kind: KindRuntime, Message: fmt.Sprintf("%v", r), Stack: append([]float32(nil), stack...)}
}
