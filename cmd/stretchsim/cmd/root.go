package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yaroslav/stretchsim/sdk"
)

var (
	// Version information (set at build time via ldflags)
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	server  string
	timeout time.Duration
	output  string
	verbose bool
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "stretchsim",
		Short: "stretchsim - control a simulated stretched storage cluster",
		Long: `stretchsim drives a running stretchsim-server.

The server simulates two storage arrays in different sites that share a
stretched pod, a cloud mediator and the hosts writing to it. With this
client you can:
  - inspect arrays, pods, hosts and WAN links
  - fail and recover any device, link or controller
  - advance the simulation tick by tick
  - change WAN latency and pod failover preferences
  - follow the transition journal as it grows`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputTable && opts.output != outputJSON {
				return fmt.Errorf("output must be %s or %s (got %q)", outputTable, outputJSON, opts.output)
			}
			if opts.timeout <= 0 {
				return fmt.Errorf("timeout must be positive (got %s)", opts.timeout)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", getEnv("STRETCHSIM_SERVER", "http://localhost:8080"),
		"stretchsim-server URL, comma-separated for fallbacks (env STRETCHSIM_SERVER)")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.StringVarP(&opts.output, "output", "o", outputTable, "Output format (table, json)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log requests and polling to stderr")

	rootCmd.AddCommand(
		newStatusCmd(opts),
		newDeviceCmd(opts),
		newActionCmd(opts),
		newTickCmd(opts),
		newTransitionsCmd(opts),
		newWANLatencyCmd(opts),
		newPreferenceCmd(opts),
		newResetCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

// client creates an SDK client for the --server URLs.
func (o *options) client() (*sdk.Client, error) {
	return sdk.NewClient(sdk.ClientConfig{
		BaseURLs: splitServers(o.server),
		Timeout:  o.timeout,
	})
}

// requestContext bounds a single API call by --timeout.
func (o *options) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

// logger writes to stderr: development output with --verbose, warnings only
// otherwise.
func (o *options) logger() (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !o.verbose {
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		config.DisableStacktrace = true
	}
	return config.Build()
}

func (o *options) json() bool { return o.output == outputJSON }

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// getEnv retrieves an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
