package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-batch/internal/batch"
	"github.com/insightdelivered/statement-batch/internal/config"
	"github.com/insightdelivered/statement-batch/internal/extractor"
	"github.com/insightdelivered/statement-batch/internal/logger"
	"github.com/insightdelivered/statement-batch/internal/parser"
	"github.com/insightdelivered/statement-batch/internal/writer"
)

type runOptions struct {
	input    string
	output   string
	limit    int
	workbook bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every statement in the input folder",
		Long: `Process up to --limit PDFs from the input folder in name order. A document
that cannot be read is recorded in the failure ledger and the run continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return runBatch(cmd, root, cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "folder containing statement PDFs")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "folder for the output tables and run log")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "maximum number of PDFs to process")
	cmd.Flags().BoolVar(&opts.workbook, "workbook", false, "also write an .xlsx workbook")
	return cmd
}

// apply overlays explicitly set flags on cfg.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	if o.input != "" {
		cfg.Input.Dir = o.input
	}
	if o.output != "" {
		cfg.Output.Dir = o.output
	}
	if cmd.Flags().Changed("limit") {
		cfg.Input.Limit = o.limit
	}
	if o.workbook && cfg.Output.Workbook == "" {
		cfg.Output.Workbook = config.DefaultWorkbook
	}
	return cfg.Validate()
}

func runBatch(cmd *cobra.Command, root *rootOptions, cfg *config.Config) error {
	log := root.logger(cmd, cfg)

	proc, err := parser.New(cfg.ParserOptions())
	if err != nil {
		return err
	}
	src := extractor.NewDirSource(cfg.Input.Dir, cfg.Input.Pattern, cfg.Input.Limit)
	sink := writer.New(cfg.WriterPaths())

	runner := batch.NewRunner(batch.Config{
		AuditLogPath: cfg.AuditLogPath(),
		InputLabel:   cfg.Input.Dir,
	}, src, proc, sink)

	res, err := runner.Run(logger.WithContext(cmd.Context(), log))
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	s := res.Summary()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d PDF(s): %d account(s), %d transaction(s), %d failure(s)\n",
		s.Documents, s.Accounts, s.Transactions, s.Failures)
	fmt.Fprintf(out, "Total debit: %s  Total credit: %s\n", s.TotalDebit.StringFixed(2), s.TotalCredit.StringFixed(2))
	fmt.Fprintf(out, "Output: %s\n", cfg.Output.Dir)
	return nil
}
