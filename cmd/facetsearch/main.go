// Command facetsearch runs faceted searches against a research-data portal
// from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nainya/facetsearch/internal/logger"
	"github.com/nainya/facetsearch/internal/metrics"
	"github.com/nainya/facetsearch/internal/server"
	"github.com/nainya/facetsearch/pkg/client"
	"github.com/nainya/facetsearch/pkg/registry"
	"github.com/nainya/facetsearch/pkg/search"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	server      string
	configPath  string
	logLevel    string
	pretty      bool
	metricsPort int
	timeout     time.Duration
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:     "facetsearch",
		Short:   "Faceted search client for research-data portals",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitGlobalLogger(logger.Config{
				Level:  flags.logLevel,
				Pretty: flags.pretty,
				Output: os.Stderr,
			})
		},
	}

	cmd.PersistentFlags().StringVar(&flags.server, "server", "http://localhost:8000", "portal base URL")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "attribute config file (YAML); built-in defaults when empty")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&flags.pretty, "pretty", true, "pretty-print logs")
	cmd.PersistentFlags().IntVar(&flags.metricsPort, "metrics-port", 0, "serve /metrics and pprof on this port (0 = disabled)")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "request timeout")

	cmd.AddCommand(schemasCmd(flags))
	cmd.AddCommand(searchCmd(flags))
	cmd.AddCommand(linkCmd())

	return cmd
}

// newSession builds the registry, client and session from the global flags.
func newSession(flags *globalFlags) (*search.Session, error) {
	cfg := registry.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := registry.LoadConfig(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	reg, err := registry.New(cfg)
	if err != nil {
		return nil, err
	}

	api, err := client.New(flags.server, client.WithLogger(logger.GetGlobalLogger()))
	if err != nil {
		return nil, err
	}

	opts := []search.SessionOption{search.WithLogger(logger.GetGlobalLogger())}
	if flags.metricsPort > 0 {
		m := metrics.NewMetrics()
		opts = append(opts, search.WithMetrics(m))

		obs := server.NewObservabilityServer(flags.metricsPort, logger.GetGlobalLogger())
		go func() {
			if err := obs.Start(); err != nil {
				logger.GetGlobalLogger().Error("observability server stopped").Err(err).Send()
			}
		}()
	}

	return search.NewSession(reg, api, opts...), nil
}

func withTimeout(flags *globalFlags) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), flags.timeout)
}
