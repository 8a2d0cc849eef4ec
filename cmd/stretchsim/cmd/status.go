package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/pkg/render"
)

func newStatusCmd(opts *options) *cobra.Command {
	var allLinks bool
	var pod string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the simulation snapshot",
		Long: `Display arrays, pods, hosts and WAN links as of the last completed tick.

Use --all-links to include LAN, SAN and replication links, and --pod to
show a single pod.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			status, err := client.Status(ctx)
			if err != nil {
				return err
			}

			snap := status.Snapshot
			if pod != "" {
				snap.Pods = lo.Filter(snap.Pods, func(p models.PodStatus, _ int) bool { return p.Name == pod })
				if len(snap.Pods) == 0 {
					return fmt.Errorf("pod %s not found", pod)
				}
			}

			out := cmd.OutOrStdout()
			if opts.json() {
				status.Snapshot = snap
				return printJSON(out, status)
			}

			scenario := lo.Ternary(status.Scenario == "", "default scenario", status.Scenario)
			mode := lo.Ternary(status.AutoTick, "auto tick", "manual tick")
			fmt.Fprintf(out, "Run %s (%s, %s)\n", status.RunID, scenario, mode)

			if pod != "" {
				render.Pods(out, snap.Pods)
				return nil
			}
			fmt.Fprintf(out, "Tick %d\n", snap.Tick)
			render.Arrays(out, snap.Arrays)
			render.Pods(out, snap.Pods)
			render.Hosts(out, snap.Hosts)
			render.Links(out, snap.Connections, allLinks)
			for _, m := range snap.Mediators {
				fmt.Fprintf(out, "Mediator %s: %s, %d pending\n", m.Name, lo.Ternary(m.Online, "online", "offline"), m.Pending)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allLinks, "all-links", false, "Show every link, not only WAN links")
	cmd.Flags().StringVar(&pod, "pod", "", "Show only this pod")
	return cmd
}

func newDeviceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "device <name>",
		Short: "Show one device, pod or connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			device, err := client.Device(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json() {
				return printJSON(out, device)
			}

			switch device.Kind {
			case models.KindPod:
				pod, err := device.Pod()
				if err != nil {
					return err
				}
				render.Pods(out, []models.PodStatus{*pod})
			case models.KindArray:
				array, err := device.Array()
				if err != nil {
					return err
				}
				render.Arrays(out, []models.ArrayStatus{*array})
			default:
				var fields map[string]any
				if err := device.Decode(&fields); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s (%s)\n", device.Name, device.Kind)
				keys := lo.Keys(fields)
				slices.Sort(keys)
				for _, k := range keys {
					if k == "name" {
						continue
					}
					fmt.Fprintf(out, "  %s: %v\n", k, fields[k])
				}
			}
			return nil
		},
	}
}

// splitServers parses the comma-separated --server value.
func splitServers(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(u string, _ int) string {
		return strings.TrimSpace(u)
	}))
}
