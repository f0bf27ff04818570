package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nenuphar/lang/compiler"
)

// Compile runs the compiler on each file and, on success, reports the
// number of instructions and constants generated for the top-level chunk;
// on failure it prints the single collected syntax error the way the
// compiler's panic/recover unwind reports it.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(stdio, args...)
}

// Dis runs the compiler and prints a full disassembly listing of the
// resulting Proto and every nested function, named the way `luac -l`
// names its listing mode.
func (c *Cmd) Dis(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DisFiles(stdio, args...)
}

func compileOne(stdio mainer.Stdio, filename string) (*compiler.Proto, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return nil, err
	}
	proto, err := compiler.Compile(filename, src)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return nil, err
	}
	return proto, nil
}

func CompileFiles(stdio mainer.Stdio, files ...string) error {
	var firstErr error
	for _, filename := range files {
		proto, err := compileOne(stdio, filename)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Fprintf(stdio.Stdout, "%s: ok (%d instructions, %d constants)\n", filename, len(proto.Code), len(proto.Constants))
	}
	return firstErr
}

func DisFiles(stdio mainer.Stdio, files ...string) error {
	var firstErr error
	for _, filename := range files {
		proto, err := compileOne(stdio, filename)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Fprint(stdio.Stdout, compiler.Disassemble(proto))
	}
	return firstErr
}
