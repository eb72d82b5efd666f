// Command relief-node runs the disaster relief ledger: the campaign and
// claim ledger behind an HTTP API, paying claims from a vault or an
// on-chain hot wallet.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vocdoni/aadhaar-relief/config"
	"github.com/vocdoni/aadhaar-relief/log"
)

const programName = "relief-node"

type configKey struct{}

var configFile string

func configFromContext(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(configKey{}).(*config.Config)
	return cfg
}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Anonymous disaster relief ledger node",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the YAML config file")

	serve := serveCommand()
	// only serve needs the node configuration
	serve.PreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log.Init(cfg.LogLevel, cfg.LogOutput, nil)
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	}

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(keygenCommand())
	rootCmd.AddCommand(signalHashCommand())

	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}
