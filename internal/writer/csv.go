package writer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-batch/internal/models"
)

// Paths names the output files. File names are joined onto Dir.
type Paths struct {
	Dir          string
	Accounts     string
	Transactions string
	Failures     string
	// Workbook is optional; empty disables the .xlsx output.
	Workbook string
}

type accountRow struct {
	PDFFile       string `csv:"pdf_file"`
	AccountNumber string `csv:"account_number"`
	HolderName    string `csv:"holder_name"`
	CustomerID    string `csv:"customer_id"`
	IFSCCode      string `csv:"ifsc_code"`
	Branch        string `csv:"branch"`
	PeriodFrom    string `csv:"period_from"`
	PeriodTo      string `csv:"period_to"`
}

type transactionRow struct {
	PDFFile       string `csv:"pdf_file"`
	AccountNumber string `csv:"account_number"`
	TxnDate       string `csv:"txn_date"`
	Narration     string `csv:"narration"`
	Reference     string `csv:"reference"`
	DrCr          string `csv:"dr_cr"`
	Debit         string `csv:"debit"`
	Credit        string `csv:"credit"`
	Balance       string `csv:"balance"`
}

type failureRow struct {
	PDFFile string `csv:"pdf_file"`
	Error   string `csv:"error"`
}

// CSVWriter persists the batch tables, overwriting earlier runs.
type CSVWriter struct {
	Paths Paths
}

// New returns a CSVWriter for p.
func New(p Paths) *CSVWriter {
	return &CSVWriter{Paths: p}
}

func (w *CSVWriter) path(name string) string {
	return filepath.Join(w.Paths.Dir, name)
}

// WriteAccounts writes the account table and returns its path.
func (w *CSVWriter) WriteAccounts(accounts []models.AccountRecord) (string, error) {
	path := w.path(w.Paths.Accounts)
	return path, writeFile(path, func(out io.Writer) error { return WriteAccounts(out, accounts) })
}

// WriteTransactions writes the transaction table and returns its path.
func (w *CSVWriter) WriteTransactions(txns []models.TransactionRecord) (string, error) {
	path := w.path(w.Paths.Transactions)
	return path, writeFile(path, func(out io.Writer) error { return WriteTransactions(out, txns) })
}

// WriteFailures writes the failure ledger and returns its path.
func (w *CSVWriter) WriteFailures(failures []models.FailureEntry) (string, error) {
	path := w.path(w.Paths.Failures)
	return path, writeFile(path, func(out io.Writer) error { return WriteFailures(out, failures) })
}

// ClearFailures removes a ledger left behind by an earlier run.
func (w *CSVWriter) ClearFailures() error {
	err := os.Remove(w.path(w.Paths.Failures))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale failure ledger: %w", err)
	}
	return nil
}

// WriteAccounts encodes accounts as CSV, header first.
func WriteAccounts(out io.Writer, accounts []models.AccountRecord) error {
	rows := make([]accountRow, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, accountRow{
			PDFFile:       a.PDFFile,
			AccountNumber: models.Deref(a.AccountNumber),
			HolderName:    models.Deref(a.HolderName),
			CustomerID:    models.Deref(a.CustomerID),
			IFSCCode:      models.Deref(a.IFSCCode),
			Branch:        models.Deref(a.Branch),
			PeriodFrom:    models.Deref(a.PeriodFrom),
			PeriodTo:      models.Deref(a.PeriodTo),
		})
	}
	return gocsv.Marshal(rows, out)
}

// WriteTransactions encodes transactions as CSV; absent amounts are blank.
func WriteTransactions(out io.Writer, txns []models.TransactionRecord) error {
	rows := make([]transactionRow, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, transactionRow{
			PDFFile:       t.PDFFile,
			AccountNumber: models.Deref(t.AccountNumber),
			TxnDate:       models.Deref(t.TxnDate),
			Narration:     models.Deref(t.Narration),
			Reference:     models.Deref(t.Reference),
			DrCr:          models.Deref(t.DrCr),
			Debit:         formatAmount(t.Debit),
			Credit:        formatAmount(t.Credit),
			Balance:       formatAmount(t.Balance),
		})
	}
	return gocsv.Marshal(rows, out)
}

// WriteFailures encodes the failure ledger as CSV.
func WriteFailures(out io.Writer, failures []models.FailureEntry) error {
	rows := make([]failureRow, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, failureRow{PDFFile: f.PDFFile, Error: f.Error})
	}
	return gocsv.Marshal(rows, out)
}

func formatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func writeFile(path string, encode func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory for %q: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return f.Close()
}
