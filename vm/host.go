package vm

import (
	"bufio"
	"io"
	"os"
)

// Host is the single synchronous print sink spec 4.9/6.4 requires:
// print always writes through exactly one Host, never racing against
// anything else, so buffering without a mutex is safe. Grounded on the
// teacher's own vm.stdout bufio.Writer field (vm.go NewVirtualMachine).
type Host struct {
	w *bufio.Writer
}

func NewHost(w io.Writer) *Host {
	return &Host{w: bufio.NewWriter(w)}
}

// StdoutHost is the default sink used by the CLI entry point and REPL.
func StdoutHost() *Host { return NewHost(os.Stdout) }

func (h *Host) Println(s string) error {
	if _, err := h.w.WriteString(s); err != nil {
		return err
	}
	if err := h.w.WriteByte('\n'); err != nil {
		return err
	}
	return h.w.Flush()
}
