// Command disasm prints a textual listing of an LC-3 object file (spec.md
// §6 "disasm <object>").
package main

import (
	"flag"
	"fmt"
	"os"

	"lc3/disasm"
	"lc3/loader"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: disasm <object.obj>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	f, err := os.Open(path) // #nosec G304 -- user-supplied object path
	if err != nil {
		return fmt.Errorf("disasm: %w", err)
	}
	defer f.Close()

	origin, words, err := loader.ReadObject(f)
	if err != nil {
		return fmt.Errorf("disasm: %w", err)
	}

	full := append([]uint16{origin}, words...)
	for _, line := range disasm.DecodeObject(full) {
		fmt.Printf("%04X: %04X (%s)\n", line.Addr, line.Word, line.Text)
	}
	return nil
}
