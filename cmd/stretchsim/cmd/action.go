package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/pkg/render"
)

func newActionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "action <device> <action>",
		Short: "Deliver an action to a device",
		Long: `Deliver an action to a device, link or controller.

Actions:
  fail       take the device offline
  recover    bring the device back online
  promote    promote a secondary controller to primary
  step       advance only this device (debugging)

Actions apply at once; the protocol reacts on the next tick.`,
		Example: `  stretchsim action site2fa1 fail
  stretchsim action site1fa1-ct1 promote
  stretchsim action cloud-mediator recover`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			res, err := client.Action(ctx, args[0], models.Action(args[1]))
			if err != nil {
				return err
			}

			if opts.json() {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s applied at tick %d\n", res.Device, res.Action, res.Tick)
			return nil
		},
	}
}

func newTickCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tick [count]",
		Short: "Advance the simulation",
		Long:  `Advance the simulation by count ticks (default 1) and print the transitions they caused.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("count must be a positive integer (got %q)", args[0])
				}
				count = n
			}

			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			res, err := client.Tick(ctx, count)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json() {
				return printJSON(out, res)
			}
			fmt.Fprintf(out, "Tick %d\n", res.Tick)
			render.Transitions(out, res.Transitions)
			return nil
		},
	}
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Rebuild the simulation from tick zero",
		Long:  `Rebuild the loaded scenario from tick zero and clear the transition journal.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			if err := client.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "simulation reset")
			return nil
		},
	}
}
