package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/cmd/stretchsim/watch"
	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/pkg/render"
)

func newWatchCmd(opts *options) *cobra.Command {
	var interval time.Duration
	var fromStart bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow transitions as the simulation advances",
		Long: `Poll the server and print the transitions of every new tick until
interrupted. Ticks can be driven by the server's tick interval or by
"stretchsim tick" from another terminal.

With --output json each batch is printed as one JSON document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval < 10*time.Millisecond {
				return fmt.Errorf("interval must be at least 10ms (got %s)", interval)
			}

			client, err := opts.client()
			if err != nil {
				return err
			}
			logger, err := opts.logger()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Sync()

			out := cmd.OutOrStdout()
			poller := watch.NewPoller(watch.PollerConfig{
				Source:    client,
				Logger:    logger,
				Interval:  interval,
				FromStart: fromStart,
				OnTransitions: func(to uint64, transitions []models.Transition) error {
					if opts.json() {
						return printJSON(out, models.TickResponse{Tick: to, Transitions: transitions})
					}
					if len(transitions) == 0 {
						return nil
					}
					render.Transitions(out, transitions)
					return nil
				},
			})

			poller.Run(cmd.Context())
			logger.Debug("watch finished", zap.Uint64("tick", poller.LastTick()))
			return nil
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", watch.DefaultInterval, "Polling interval")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "Print the journal from tick 1 first")
	return cmd
}
