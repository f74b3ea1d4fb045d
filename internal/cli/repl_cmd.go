package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/dr8co/mathvm/repl"
)

// ReplCmd starts the interactive REPL.
type ReplCmd struct {
	noColor bool
}

func (*ReplCmd) Name() string     { return "repl" }
func (*ReplCmd) Synopsis() string { return "start the interactive MathVM REPL" }
func (*ReplCmd) Usage() string {
	return `repl:
  Start the interactive read-eval-print loop.
`
}

func (c *ReplCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noColor, "no-color", false, "disable styled output")
}

func (c *ReplCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	repl.Start(repl.Options{NoColor: c.noColor})
	return subcommands.ExitSuccess
}
