package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"forthvm/vm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "forthvm",
		Short: "A concatenative, NaN-boxed stack-machine interpreter",
	}

	var debug bool

	runCmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Compile and execute a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "reading %s", args[0])
			}
			pr, err := vm.NewProgram(string(src), vm.StdoutHost())
			if err != nil {
				return errors.Wrap(err, "compile error")
			}
			if debug {
				return vm.RunDebug(pr, os.Stdin, os.Stdout)
			}
			return pr.Run()
		},
	}
	runCmd.Flags().BoolVarP(&debug, "debug", "d", false, "single-step, breakpoint-aware execution")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive read-eval-print loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(os.Stdin, os.Stdout)
		},
	}

	rootCmd.AddCommand(runCmd, replCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runREPL implements the line-oriented surface of spec 6.4: each line
// not handled by a meta-command is compiled and run against a single
// persistent Program, so colon definitions and list/stack state live
// across lines exactly as 4.4's preserve semantics intend.
func runREPL(in *os.File, out *os.File) error {
	host := vm.NewHost(out)
	pr, err := vm.NewProgram("", host)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "exit":
			return nil
		case strings.HasPrefix(line, "load "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "load "))
			if err := loadFile(pr, path); err != nil {
				fmt.Fprintln(out, err)
			}
			continue
		}

		entry, err := pr.Load(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if err := pr.VM.Run(entry); err != nil {
			fmt.Fprintln(out, err)
		}
	}
}

func loadFile(pr *vm.Program, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "\\") {
			continue
		}
		entry, err := pr.Load(line)
		if err != nil {
			return err
		}
		if err := pr.VM.Run(entry); err != nil {
			return err
		}
	}
	return scanner.Err()
}
