package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/pkg/render"
	"github.com/yaroslav/stretchsim/pkg/scenario"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/sim"
)

// DefaultRunTicks is used when neither the flag nor the scenario sets a length.
const DefaultRunTicks = 100

// runResult is the JSON output of a headless run.
type runResult struct {
	Scenario    string              `json:"scenario"`
	Seed        int64               `json:"seed"`
	Ticks       uint64              `json:"ticks"`
	Transitions []models.Transition `json:"transitions"`
	Final       models.Snapshot     `json:"final"`
}

// ExecuteRun runs a scenario headless and prints the transitions it caused.
//
// Usage: stretchsim-server run [-ticks N] [-seed S] [-json] [-verbose] [scenario.yaml]
func ExecuteRun(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	ticks := fs.Int("ticks", 0, "Number of ticks (default: scenario ticks, else 100)")
	seed := fs.Int64("seed", 0, "Random seed override (0 keeps the scenario's seed)")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	verbose := fs.Bool("verbose", getEnv("STRETCHSIM_VERBOSE", "") == "true", "Log protocol detail to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := scenarioArg(fs.Args(), false)
	if err != nil {
		return err
	}

	sc := &scenario.Scenario{}
	if path != "" {
		if sc, err = scenario.Load(path); err != nil {
			return err
		}
	}
	if *seed != 0 {
		sc.Seed = *seed
	}

	n := *ticks
	if n == 0 {
		n = sc.Ticks
	}
	if n == 0 {
		n = DefaultRunTicks
	}
	if n < 0 || n > scenario.MaxTicks {
		return fmt.Errorf("ticks must be between 1 and %d, got %d", scenario.MaxTicks, n)
	}

	logger, err := logging.NewRunLogger(*verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	s, err := sim.NewFromScenario(sc, logger)
	if err != nil {
		return err
	}

	transitions, err := s.Run(ctx, n)
	if err != nil {
		logger.Warn("run interrupted", zap.Uint64(logging.FieldTick, s.CurrentTick()), zap.Error(err))
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runResult{
			Scenario:    sc.Name,
			Seed:        s.Config().Seed,
			Ticks:       s.CurrentTick(),
			Transitions: transitions,
			Final:       s.Snapshot(),
		})
	}

	title := sc.Name
	if title == "" {
		title = "default scenario"
	}
	fmt.Fprintf(out, "%s: %d ticks, seed %d\n\n", title, s.CurrentTick(), s.Config().Seed)
	render.Transitions(out, transitions)
	fmt.Fprintln(out)
	render.Pods(out, s.Snapshot().Pods)
	return nil
}
