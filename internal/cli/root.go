// Package cli wires the statement-batch commands.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-batch/internal/config"
	"github.com/insightdelivered/statement-batch/internal/logger"
)

// Version is reported by the version command and the health endpoint.
const Version = "1.0.0"

type rootOptions struct {
	cfgFile string
	verbose bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "statement-batch",
		Short: "Batch extraction of bank statement PDFs into CSV tables",
		Long: `statement-batch reads a folder of bank statement PDFs, pulls the account
details and transaction tables out of each one, and writes combined
accounts and transactions tables plus a run log and a failure ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newExtractCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.cfgFile)
}

func (o *rootOptions) logger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	level := cfg.Log.Level
	if o.verbose {
		level = "debug"
	}
	return logger.New(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
}
