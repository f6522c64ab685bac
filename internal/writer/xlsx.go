package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-batch/internal/models"
)

const (
	sheetAccounts     = "accounts"
	sheetTransactions = "transactions"
	sheetFailures     = "failures"
)

var (
	accountHeader     = []string{"pdf_file", "account_number", "holder_name", "customer_id", "ifsc_code", "branch", "period_from", "period_to"}
	transactionHeader = append([]string{"pdf_file", "account_number"}, models.CanonicalColumns...)
	failureHeader     = []string{"pdf_file", "error"}
)

// WriteWorkbook writes all three tables into one .xlsx, one sheet each.
// It returns "" without writing when no workbook path is configured.
func (w *CSVWriter) WriteWorkbook(accounts []models.AccountRecord, txns []models.TransactionRecord, failures []models.FailureEntry) (string, error) {
	if w.Paths.Workbook == "" {
		return "", nil
	}
	path := w.path(w.Paths.Workbook)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetAccounts); err != nil {
		return path, fmt.Errorf("failed to name sheet: %w", err)
	}
	for _, name := range []string{sheetTransactions, sheetFailures} {
		if _, err := f.NewSheet(name); err != nil {
			return path, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	acctRows := make([][]interface{}, 0, len(accounts))
	for _, a := range accounts {
		acctRows = append(acctRows, []interface{}{
			a.PDFFile, text(a.AccountNumber), text(a.HolderName), text(a.CustomerID),
			text(a.IFSCCode), text(a.Branch), text(a.PeriodFrom), text(a.PeriodTo),
		})
	}
	txnRows := make([][]interface{}, 0, len(txns))
	for _, t := range txns {
		txnRows = append(txnRows, []interface{}{
			t.PDFFile, text(t.AccountNumber), text(t.TxnDate), text(t.Narration),
			text(t.Reference), text(t.DrCr), number(t.Debit), number(t.Credit), number(t.Balance),
		})
	}
	failRows := make([][]interface{}, 0, len(failures))
	for _, fl := range failures {
		failRows = append(failRows, []interface{}{fl.PDFFile, fl.Error})
	}

	if err := writeSheet(f, sheetAccounts, accountHeader, acctRows); err != nil {
		return path, err
	}
	if err := writeSheet(f, sheetTransactions, transactionHeader, txnRows); err != nil {
		return path, err
	}
	if err := writeSheet(f, sheetFailures, failureHeader, failRows); err != nil {
		return path, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, fmt.Errorf("failed to create output directory for %q: %w", path, err)
	}
	if err := f.SaveAs(path); err != nil {
		return path, fmt.Errorf("failed to save workbook %q: %w", path, err)
	}
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// text keeps identifiers as strings so account numbers are not read back
// as numbers.
func text(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func number(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}
