package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// RunCmd translates and executes a MathVM source file.
type RunCmd struct{}

func (*RunCmd) Name() string     { return "run" }
func (*RunCmd) Synopsis() string { return "translate and execute a MathVM source file" }
func (*RunCmd) Usage() string {
	return `run <file>:
  Translate the given file and execute it, writing print output to stdout.
`
}
func (*RunCmd) SetFlags(*flag.FlagSet) {}

func (*RunCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "run: expected exactly one file argument")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return ExitRuntimeError
	}

	status, err := RunSource(string(data), os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return status
}
