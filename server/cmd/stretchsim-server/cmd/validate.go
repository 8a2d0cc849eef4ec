package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/yaroslav/stretchsim/pkg/scenario"
)

// ExecuteValidate checks a scenario file and reports the first problem.
//
// Usage: stretchsim-server validate <scenario.yaml>
func ExecuteValidate(args []string) error {
	return validate(args, os.Stdout)
}

func validate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := scenarioArg(fs.Args(), true)
	if err != nil {
		return err
	}

	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	name := sc.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(out, "%s: valid scenario %s, %d events, %d ticks\n", path, name, len(sc.Events), sc.Ticks)
	return nil
}
