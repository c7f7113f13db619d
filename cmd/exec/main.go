// Command exec loads an OS image and a user program and runs them on the
// LC-3 emulator (spec.md §6 "exec <os.obj> <program.obj>").
package main

import (
	"flag"
	"fmt"
	"os"

	"lc3/config"
	"lc3/loader"
	"lc3/vm"
)

func main() {
	var (
		edition   = flag.String("edition", "", "override the configured edition (\"second\" or \"third\")")
		maxCycles = flag.Uint64("max-cycles", 0, "stop after this many steps (0 = use config, unbounded by default)")
	)
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: exec [-edition second|third] [-max-cycles N] <os.obj> <program.obj>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Arg(1), *edition, *maxCycles); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(osPath, programPath, editionFlag string, maxCycles uint64) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if editionFlag != "" {
		cfg.Execution.Edition = editionFlag
	}
	if maxCycles == 0 {
		maxCycles = cfg.Execution.MaxCycles
	}

	// Raw-mode terminal I/O is out of scope (SPEC_FULL.md §1); the
	// emulator reads/writes through plain stdin/stdout instead.
	machine := vm.NewVM(os.Stdin, os.Stdout, cfg.Edition())

	osFile, err := os.Open(osPath) // #nosec G304 -- user-supplied OS image path
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	defer osFile.Close()
	if _, err := loader.LoadProgram(machine.Memory, osFile); err != nil {
		return fmt.Errorf("exec: loading OS image: %w", err)
	}

	programFile, err := os.Open(programPath) // #nosec G304 -- user-supplied program image path
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	defer programFile.Close()
	if _, err := loader.LoadProgram(machine.Memory, programFile); err != nil {
		return fmt.Errorf("exec: loading program image: %w", err)
	}

	machine.CPU.PC = 0x0200

	steps, err := machine.Run(maxCycles)
	if err != nil {
		return fmt.Errorf("exec: after %d steps: %w", steps, err)
	}
	return nil
}
