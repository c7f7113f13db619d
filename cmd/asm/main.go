// Command asm assembles LC-3 source into an object file (spec.md §6
// "asm <source>").
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"lc3/assemble"
	"lc3/disasm"
	"lc3/loader"
	"lc3/parser"
)

func main() {
	var (
		listing = flag.Bool("listing", false, "also print a disassembly-style listing of the encoded program")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: asm [-listing] <source.asm>")
		os.Exit(2)
	}
	source := flag.Arg(0)

	if err := run(source, *listing); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(source string, listing bool) error {
	text, err := os.ReadFile(source) // #nosec G304 -- user-supplied source path
	if err != nil {
		return fmt.Errorf("asm: %w", err)
	}

	p := parser.NewParser(string(text), source)
	prog, err := p.Parse()
	if err != nil {
		return err
	}

	words, err := assemble.Assemble(prog)
	if err != nil {
		return err
	}

	outPath := strings.TrimSuffix(source, ".asm") + ".obj"
	out, err := os.Create(outPath) // #nosec G304 -- derived from user-supplied source path
	if err != nil {
		return fmt.Errorf("asm: %w", err)
	}
	defer out.Close()

	if err := loader.WriteObject(out, words[0], words[1:]); err != nil {
		return fmt.Errorf("asm: %w", err)
	}

	if listing {
		for _, line := range disasm.DecodeObject(words) {
			fmt.Printf("%04X: %04X (%s)\n", line.Addr, line.Word, line.Text)
		}
	}
	return nil
}
