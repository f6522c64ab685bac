package parser

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/statement-batch/internal/models"
)

// ColumnRule maps header labels onto a canonical column. A label matches
// when it starts with any Prefix, contains any of Contains, or equals any
// of Exact. Rules are tried in table order and the first match wins.
type ColumnRule struct {
	Column   string
	Prefix   []string
	Contains []string
	Exact    []string
}

// DefaultColumnRules is ordered: "Debit/Credit Type" must land on dr_cr
// before the debit and credit rules see it.
var DefaultColumnRules = []ColumnRule{
	{Column: models.ColTxnDate, Prefix: []string{"date"}},
	{Column: models.ColNarration, Contains: []string{"narration", "description"}},
	{Column: models.ColReference, Contains: []string{"reference"}, Exact: []string{"ref"}},
	{Column: models.ColDrCr, Contains: []string{"type"}},
	{Column: models.ColDebit, Contains: []string{"debit"}},
	{Column: models.ColCredit, Contains: []string{"credit"}},
	{Column: models.ColBalance, Contains: []string{"balance"}},
}

func (r ColumnRule) matches(label string) bool {
	for _, p := range r.Prefix {
		if strings.HasPrefix(label, p) {
			return true
		}
	}
	for _, c := range r.Contains {
		if strings.Contains(label, c) {
			return true
		}
	}
	for _, e := range r.Exact {
		if label == e {
			return true
		}
	}
	return false
}

// headerKeywords must all appear in a row for it to be a transaction header.
var headerKeywords = []string{"date", "narration", "balance"}

// TableExtractor turns page tables into transaction rows.
type TableExtractor struct {
	// HeaderScanRows bounds how far into a table the header is searched.
	HeaderScanRows int
	// Placeholder fills text columns that a row did not supply.
	Placeholder string
	Rules       []ColumnRule
}

// NewTableExtractor returns an extractor using DefaultColumnRules.
func NewTableExtractor(headerScanRows int, placeholder string) *TableExtractor {
	return &TableExtractor{
		HeaderScanRows: headerScanRows,
		Placeholder:    placeholder,
		Rules:          DefaultColumnRules,
	}
}

// IsHeaderRow reports whether the joined cells mention a date, a narration
// and a balance.
func IsHeaderRow(row []string) bool {
	joined := strings.ToLower(strings.Join(row, " "))
	for _, kw := range headerKeywords {
		if !strings.Contains(joined, kw) {
			return false
		}
	}
	return true
}

// FindHeader returns the index of the header row within the first
// HeaderScanRows rows, or -1 when tbl is not a transaction table.
func (te *TableExtractor) FindHeader(tbl models.Table) int {
	for i, row := range tbl {
		if i >= te.HeaderScanRows {
			break
		}
		if IsHeaderRow(row) {
			return i
		}
	}
	return -1
}

// NormalizeHeader lower-cases a header cell, folds its whitespace and
// shortens "transaction type" to "type".
func NormalizeHeader(cell string) string {
	h := strings.ToLower(collapseSpace(cell))
	return strings.ReplaceAll(h, "transaction type", "type")
}

// RawRows collects every data row of every transaction table in doc, in
// page, table and row order. Fully blank rows are dropped. Cells beyond
// the header width are kept under a synthetic colN label.
func (te *TableExtractor) RawRows(doc *models.Document) []models.RawRow {
	var out []models.RawRow
	for _, page := range doc.Pages {
		for _, tbl := range page.Tables {
			if len(tbl) < 2 {
				continue
			}
			hdr := te.FindHeader(tbl)
			if hdr < 0 {
				continue
			}

			headers := make([]string, len(tbl[hdr]))
			for j, cell := range tbl[hdr] {
				headers[j] = NormalizeHeader(cell)
			}

			for _, row := range tbl[hdr+1:] {
				if len(row) == 0 || allBlank(row) {
					continue
				}
				rec := make(models.RawRow, 0, len(row))
				for j, val := range row {
					label := fmt.Sprintf("col%d", j)
					if j < len(headers) {
						label = headers[j]
					}
					rec = append(rec, models.Field{Label: label, Value: val})
				}
				out = append(out, rec)
			}
		}
	}
	return out
}

// CanonicalColumn returns the canonical column for a header label.
func (te *TableExtractor) CanonicalColumn(label string) (string, bool) {
	label = strings.ToLower(label)
	for _, r := range te.Rules {
		if r.matches(label) {
			return r.Column, true
		}
	}
	return "", false
}

// Canonicalize maps raw rows onto TransactionRecords stamped with pdfFile
// and account. A canonical column is claimed by the first label, in order
// of appearance, that maps to it; columns no label claims stay nil.
func (te *TableExtractor) Canonicalize(rows []models.RawRow, pdfFile string, account *string) []models.TransactionRecord {
	if len(rows) == 0 {
		return nil
	}

	labelFor := make(map[string]string)
	for _, row := range rows {
		for _, f := range row {
			col, ok := te.CanonicalColumn(f.Label)
			if !ok {
				continue
			}
			if _, claimed := labelFor[col]; !claimed {
				labelFor[col] = f.Label
			}
		}
	}

	text := func(row models.RawRow, col string) *string {
		label, present := labelFor[col]
		if !present {
			return nil
		}
		v, ok := row.Get(label)
		if !ok {
			p := te.Placeholder
			return &p
		}
		v = strings.TrimSpace(v)
		return &v
	}
	amount := func(row models.RawRow, col string) (string, bool) {
		label, present := labelFor[col]
		if !present {
			return "", false
		}
		return row.Get(label)
	}

	out := make([]models.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.TransactionRecord{
			PDFFile:       pdfFile,
			AccountNumber: account,
			TxnDate:       text(row, models.ColTxnDate),
			Narration:     text(row, models.ColNarration),
			Reference:     text(row, models.ColReference),
			DrCr:          text(row, models.ColDrCr),
		}
		if v, ok := amount(row, models.ColDebit); ok {
			rec.Debit = NormalizeAmount(v)
		}
		if v, ok := amount(row, models.ColCredit); ok {
			rec.Credit = NormalizeAmount(v)
		}
		if v, ok := amount(row, models.ColBalance); ok {
			rec.Balance = NormalizeAmount(v)
		}
		out = append(out, rec)
	}
	return out
}
