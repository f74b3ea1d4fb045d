// Package cli implements the mathvm command-line subcommands, grounded
// on the google/subcommands "one type per command" shape shown by
// informatter-nilan's cmd_run.go and cmd_emit_bytecode.go.
package cli

import (
	"io"

	"github.com/google/subcommands"

	"github.com/dr8co/mathvm/compiler"
	"github.com/dr8co/mathvm/parser"
	"github.com/dr8co/mathvm/vm"
)

// Exit statuses for run/eval, distinguishing a translation failure from
// a runtime failure so a shell script driving mathvm can tell the two
// apart without scraping output.
const (
	ExitTranslationError = subcommands.ExitStatus(1)
	ExitRuntimeError     = subcommands.ExitStatus(2)
)

// Translate parses and compiles src, or returns the first syntax or
// translation error encountered.
func Translate(src string) (*vm.Code, error) {
	program, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return compiler.Generate(program)
}

// RunSource translates and executes src, writing print output to out.
// The returned status is ExitTranslationError or ExitRuntimeError on
// failure, subcommands.ExitSuccess otherwise.
func RunSource(src string, out io.Writer) (subcommands.ExitStatus, error) {
	code, err := Translate(src)
	if err != nil {
		return ExitTranslationError, err
	}
	interp := vm.NewInterpreter(code, vm.Options{Output: out})
	if err := interp.Run(); err != nil {
		return ExitRuntimeError, err
	}
	return subcommands.ExitSuccess, nil
}
