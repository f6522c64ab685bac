package models

import "github.com/shopspring/decimal"

// TransactionRecord is one canonicalized row of a statement's transaction
// tables. Text fields are nil when the column never appeared in the
// document; amounts are invalid when absent.
type TransactionRecord struct {
	PDFFile       string              `json:"pdfFile"`
	AccountNumber *string             `json:"accountNumber"`
	TxnDate       *string             `json:"txnDate"`
	Narration     *string             `json:"narration"`
	Reference     *string             `json:"reference"`
	DrCr          *string             `json:"drCr"`
	Debit         decimal.NullDecimal `json:"debit"`
	Credit        decimal.NullDecimal `json:"credit"`
	Balance       decimal.NullDecimal `json:"balance"`
}

// Totals sums the debit and credit amounts of txns, skipping absent ones.
func Totals(txns []TransactionRecord) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, t := range txns {
		if t.Debit.Valid {
			debit = debit.Add(t.Debit.Decimal)
		}
		if t.Credit.Valid {
			credit = credit.Add(t.Credit.Decimal)
		}
	}
	return debit, credit
}

// Canonical transaction column names.
const (
	ColTxnDate   = "txn_date"
	ColNarration = "narration"
	ColReference = "reference"
	ColDrCr      = "dr_cr"
	ColDebit     = "debit"
	ColCredit    = "credit"
	ColBalance   = "balance"
)

// CanonicalColumns lists the transaction columns in output order.
var CanonicalColumns = []string{
	ColTxnDate, ColNarration, ColReference, ColDrCr, ColDebit, ColCredit, ColBalance,
}

// Field is one labelled cell of a raw table row.
type Field struct {
	Label string
	Value string
}

// RawRow is a table row keyed by normalized header label, in column order.
type RawRow []Field

// Get returns the value for label. A repeated label resolves to its last
// occurrence.
func (r RawRow) Get(label string) (string, bool) {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i].Label == label {
			return r[i].Value, true
		}
	}
	return "", false
}
