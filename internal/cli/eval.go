package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// EvalCmd translates and executes an inline MathVM program passed with
// -e, for quick one-liners that don't warrant a source file.
type EvalCmd struct {
	code string
}

func (*EvalCmd) Name() string     { return "eval" }
func (*EvalCmd) Synopsis() string { return "translate and execute an inline MathVM program" }
func (*EvalCmd) Usage() string {
	return `eval -e <code>:
  Translate and execute an inline program, writing print output to stdout.
`
}

func (c *EvalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.code, "e", "", "inline MathVM source")
}

func (c *EvalCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.code == "" {
		fmt.Fprintln(os.Stderr, "eval: -e <code> is required")
		return subcommands.ExitUsageError
	}

	status, err := RunSource(c.code, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return status
}
