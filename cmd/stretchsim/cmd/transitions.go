package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/pkg/render"
	"github.com/yaroslav/stretchsim/sdk"
)

func newTransitionsCmd(opts *options) *cobra.Command {
	var filter sdk.TransitionFilter
	var kind string

	cmd := &cobra.Command{
		Use:   "transitions",
		Short: "Query the transition journal",
		Long: `List the state changes the server has recorded, oldest first.

Kinds: controller, pod_state, election, epoch, mediation, link.`,
		Example: `  stretchsim transitions --from 10 --to 20
  stretchsim transitions --kind mediation
  stretchsim transitions --subject pod1/site2fa1 --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Kind = models.TransitionKind(kind)

			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			res, err := client.Transitions(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json() {
				return printJSON(out, res)
			}
			render.Transitions(out, res.Transitions)
			fmt.Fprintf(out, "%d shown, %d recorded\n", len(res.Transitions), res.Total)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Uint64Var(&filter.FromTick, "from", 0, "First tick (inclusive)")
	flags.Uint64Var(&filter.ToTick, "to", 0, "Last tick (inclusive)")
	flags.StringVar(&kind, "kind", "", "Only this transition kind")
	flags.StringVar(&filter.Subject, "subject", "", "Only this subject, e.g. pod1/site2fa1")
	flags.IntVar(&filter.Limit, "limit", 0, "Maximum number of transitions (server default if 0)")
	return cmd
}

func newWANLatencyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "wan-latency <round-trip>",
		Short: "Set the WAN round-trip latency",
		Long: `Set the round-trip latency between the two sites. Each WAN link gets
half of it. Pods pause replication once a heartbeat round trip reaches
the WAN latency threshold (12 by default).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			latency, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("latency must be a number (got %q)", args[0])
			}

			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			if err := client.SetWANLatency(ctx, latency); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "WAN latency set to %g\n", latency)
			return nil
		},
	}
}

func newPreferenceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preference",
		Short: "Manage pod failover preferences",
		Long: `A pod's failover preference names the array the mediator should grant
when both arrays race for it. A lone request from the other array is held
for a few ticks in case the preferred array asks too.`,
	}

	show := func(cmd *cobra.Command, device *sdk.Device) error {
		out := cmd.OutOrStdout()
		if opts.json() {
			return printJSON(out, device)
		}
		pod, err := device.Pod()
		if err != nil {
			return err
		}
		render.Pods(out, []models.PodStatus{*pod})
		return nil
	}

	setCmd := &cobra.Command{
		Use:     "set <pod> <array>",
		Short:   "Prefer an array for a pod",
		Example: `  stretchsim preference set pod1 site1fa1`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			device, err := client.SetFailoverPreference(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return show(cmd, device)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <pod>",
		Short: "Remove a pod's failover preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			device, err := client.ClearFailoverPreference(ctx, args[0])
			if err != nil {
				return err
			}
			return show(cmd, device)
		},
	}

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}
