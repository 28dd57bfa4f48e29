// Command storefront runs the bookstore session engine as a daemon and
// offers a few one-shot commands against the same configuration.
package main

import (
	"fmt"
	"os"

	"github.com/bookstore/storefront/internal/config"
	"github.com/bookstore/storefront/pkg/logger"
	"github.com/spf13/cobra"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	apiURL     string
	stateDSN   string
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Bookstore client session engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "YAML config file (overrides "+config.FileEnv+")")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&g.apiURL, "api", "", "Bookstore API base URL")
	flags.StringVar(&g.stateDSN, "state", "", "Intent database DSN (sqlite://... or postgres://...)")

	cmd.AddCommand(
		serveCmd(g),
		catalogCmd(g),
		intentsCmd(g),
		versionCmd(),
	)
	return cmd
}

// load resolves configuration, letting flags win over file and environment.
func (g *globals) load() (*config.Config, error) {
	if g.configPath != "" {
		if err := os.Setenv(config.FileEnv, g.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.apiURL != "" {
		cfg.APIBaseURL = g.apiURL
	}
	if g.stateDSN != "" {
		cfg.StateDSN = g.stateDSN
	}
	return cfg, nil
}

// setup loads configuration and builds the logger and shared dependencies.
func (g *globals) setup() (*app, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	a, err := newApp(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return a, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storefront %s (built %s)\n", Version, BuildTime)
		},
	}
}
