package vm

import (
	"bufio"
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
	"strings"
)

// Program ties together everything one source gets compiled into:
// a VM plus the entry point its top-level code starts at.
type Program struct {
	VM    *VM
	Entry uint32
}

// NewProgram creates a VM, wires builtins, and parses source into it.
// The returned Program's Entry is BCP at parse time: spec 4.4's
// preserve semantics mean top-level code always starts at BCP, not 0.
func NewProgram(source string, out *Host) (*Program, error) {
	vm := NewVM(out)
	entry := vm.Compile.BCP()
	p := NewParser(NewTokenizer(source), vm.Compile, vm.Digest, vm.Symbols)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	vm.Compile.Reset()
	return &Program{VM: vm, Entry: entry}, nil
}

// Load compiles additional source into an existing VM, preserving
// everything already defined, and returns the new top-level entry.
func (pr *Program) Load(source string) (uint32, error) {
	entry := pr.VM.Compile.BCP()
	p := NewParser(NewTokenizer(source), pr.VM.Compile, pr.VM.Digest, pr.VM.Symbols)
	if err := p.Parse(); err != nil {
		return 0, err
	}
	pr.VM.Compile.Reset()
	return entry, nil
}

// Run executes the program to completion, disabling the collector for
// the duration of the tight dispatch loop — the teacher's own
// RunProgram does the same. The VM's byte memory is allocated up
// front; list and print builtins still allocate short-lived slices.
func (pr *Program) Run() error {
	defer debug.SetGCPercent(debug.SetGCPercent(-1))
	return pr.VM.Run(pr.Entry)
}

// RunDebug is a single-step, breakpoint-aware REPL loop over the
// program's execution, adapted from the teacher's
// RunProgramDebugMode: "n"/"next" steps one opcode, "r"/"run" free
// runs, "b <addr>" toggles a breakpoint on a CODE offset.
func RunDebug(pr *Program, in io.Reader, out io.Writer) error {
	vm := pr.VM
	vm.IP = pr.Entry
	vm.Running = true
	vm.Debug = true

	reader := bufio.NewReader(in)
	breakpoints := make(map[uint32]struct{})
	waitForInput := true
	lastBreak := uint32(0xFFFFFFFF)

	fmt.Fprintf(out, "Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb <addr>: toggle breakpoint\n\n")

	for vm.Running {
		if waitForInput {
			fmt.Fprint(out, "\n->")
			line, _ := reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
			switch {
			case line == "n" || line == "next":
				lastBreak = 0xFFFFFFFF
				if err := vm.Step(); err != nil {
					return err
				}
				fmt.Fprintf(out, "IP=%d SP=%d RP=%d stack=%v\n", vm.IP, vm.SP, vm.RP, vm.stackSnapshot())
			case line == "r" || line == "run":
				waitForInput = false
			case strings.HasPrefix(line, "b"):
				arg := strings.TrimSpace(strings.TrimPrefix(line, "b"))
				addr, err := strconv.ParseUint(arg, 10, 32)
				if err != nil {
					fmt.Fprintln(out, "unknown address:", err)
					continue
				}
				if _, ok := breakpoints[uint32(addr)]; ok {
					delete(breakpoints, uint32(addr))
				} else {
					breakpoints[uint32(addr)] = struct{}{}
				}
			}
			continue
		}

		if _, ok := breakpoints[vm.IP]; ok && lastBreak != vm.IP {
			fmt.Fprintln(out, "breakpoint")
			fmt.Fprintf(out, "IP=%d SP=%d RP=%d stack=%v\n", vm.IP, vm.SP, vm.RP, vm.stackSnapshot())
			waitForInput = true
			lastBreak = vm.IP
			continue
		}

		if err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}
