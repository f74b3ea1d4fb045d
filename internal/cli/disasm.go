package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
)

// DisasmCmd translates a source file and prints the disassembly of
// every function it produced, without executing anything.
type DisasmCmd struct{}

func (*DisasmCmd) Name() string     { return "disasm" }
func (*DisasmCmd) Synopsis() string { return "translate a file and print its bytecode disassembly" }
func (*DisasmCmd) Usage() string {
	return `disasm <file>:
  Translate the given file and print one disassembly per function. Never executes the program.
`
}
func (*DisasmCmd) SetFlags(*flag.FlagSet) {}

func (*DisasmCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "disasm: expected exactly one file argument")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "disasm: %v\n", err)
		return ExitRuntimeError
	}

	code, err := Translate(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitTranslationError
	}

	for id := 0; id < code.NumFunctions(); id++ {
		fn := code.FunctionByID(id)
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
		}
		fmt.Printf("function %s %s(%s) [id %d]\n", fn.ReturnType, fn.Name, strings.Join(params, ", "), fn.ID)
		fmt.Print(fn.Bytecode.Bytes().String())
		fmt.Println()
	}
	return subcommands.ExitSuccess
}
