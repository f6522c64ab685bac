package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-batch/internal/extractor"
	"github.com/insightdelivered/statement-batch/internal/models"
	"github.com/insightdelivered/statement-batch/internal/parser"
	"github.com/insightdelivered/statement-batch/internal/writer"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract <statement.pdf>",
		Short: "Extract one statement into a transactions CSV",
		Long: `Extract a single statement. The transactions table is written next to the
PDF with a .csv extension unless --output is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			inputPath := args[0]
			if ext := strings.ToLower(filepath.Ext(inputPath)); ext != ".pdf" {
				return fmt.Errorf("expected .pdf file, got %q", ext)
			}

			proc, err := parser.New(cfg.ParserOptions())
			if err != nil {
				return err
			}
			doc, err := extractor.Load(inputPath)
			if err != nil {
				return fmt.Errorf("PDF extraction failed: %w", err)
			}
			acc, txns, err := proc.Process(doc)
			if err != nil {
				return err
			}

			outPath := output
			if outPath == "" {
				outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".csv"
			}
			if err := writeTransactionsFile(outPath, txns); err != nil {
				return err
			}

			printAccount(cmd, acc, len(txns), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV path")
	return cmd
}

func writeTransactionsFile(path string, txns []models.TransactionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writer.WriteTransactions(f, txns); err != nil {
		f.Close()
		return fmt.Errorf("CSV write failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func printAccount(cmd *cobra.Command, acc models.AccountRecord, rows int, outPath string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processing: %s\n", acc.PDFFile)
	if acc.AccountNumber != nil {
		fmt.Fprintf(out, "  Account number: %s\n", *acc.AccountNumber)
	}
	if acc.HolderName != nil {
		fmt.Fprintf(out, "  Account holder: %s\n", *acc.HolderName)
	}
	if acc.PeriodFrom != nil && acc.PeriodTo != nil {
		fmt.Fprintf(out, "  Period: %s to %s\n", *acc.PeriodFrom, *acc.PeriodTo)
	}
	fmt.Fprintf(out, "  Found %d transaction(s)\n", rows)
	if rows == 0 {
		fmt.Fprintln(out, "  Warning: no transaction table found. The layout may not match the expected headers.")
	}
	fmt.Fprintf(out, "  Output: %s\n", outPath)
}
