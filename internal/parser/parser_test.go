package parser

import (
	"testing"

	"github.com/insightdelivered/statement-batch/internal/extractor"
	"github.com/insightdelivered/statement-batch/internal/models"
)

func TestProcessor_EndToEnd(t *testing.T) {
	p, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := &models.Document{
		Name: "stmt.pdf",
		Pages: []models.Page{
			{
				Number: 1,
				Text:   "Statement of Account\nAccount Number: 123456789012",
				Tables: []models.Table{
					{
						{"Date", "Narration", "Debit", "Credit", "Balance"},
						{"01-04-2023", "UPI/XYZ/Payment", "500.00", "", "4500.00"},
					},
				},
			},
		},
	}

	acct, txns, err := p.Process(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := models.Deref(acct.AccountNumber); got != "123456789012" {
		t.Errorf("account number: got %q", got)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}

	txn := txns[0]
	if models.Deref(txn.TxnDate) != "01-04-2023" {
		t.Errorf("txn date: got %q", models.Deref(txn.TxnDate))
	}
	if models.Deref(txn.Narration) != "UPI/XYZ/Payment" {
		t.Errorf("narration: got %q", models.Deref(txn.Narration))
	}
	if !txn.Debit.Valid || txn.Debit.Decimal.String() != "500" {
		t.Errorf("debit: got %v", txn.Debit)
	}
	if txn.Credit.Valid {
		t.Error("credit should be absent")
	}
	if !txn.Balance.Valid || txn.Balance.Decimal.String() != "4500" {
		t.Errorf("balance: got %v", txn.Balance)
	}
	if models.Deref(txn.AccountNumber) != "123456789012" || txn.PDFFile != "stmt.pdf" {
		t.Errorf("provenance: got %q / %q", models.Deref(txn.AccountNumber), txn.PDFFile)
	}
}

func TestProcessor_FieldPagesOnly(t *testing.T) {
	p, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := &models.Document{
		Name: "late.pdf",
		Pages: []models.Page{
			{Number: 1, Text: "page one"},
			{Number: 2, Text: "page two"},
			{Number: 3, Text: "Account Number: 42"},
		},
	}

	acct, txns, err := p.Process(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.AccountNumber != nil {
		t.Errorf("labels past the field pages must be ignored, got %q", *acct.AccountNumber)
	}
	if len(txns) != 0 {
		t.Errorf("expected no transactions, got %d", len(txns))
	}
}

func TestProcessor_NilAccountStillStamped(t *testing.T) {
	p, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := docWithTables("anon.pdf", models.Table{
		{"Date", "Narration", "Balance"},
		{"01-04-2023", "ATM", "10.00"},
	})

	_, txns, err := p.Process(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 1 || txns[0].AccountNumber != nil || txns[0].PDFFile != "anon.pdf" {
		t.Errorf("unexpected transactions: %+v", txns)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero field pages", func(o *Options) { o.FieldPages = 0 }},
		{"zero scan rows", func(o *Options) { o.HeaderScanRows = 0 }},
		{"bad period", func(o *Options) { o.PeriodPattern = `(` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			if _, err := New(opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestProcessor_NilDocument(t *testing.T) {
	p, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := p.Process(nil); err == nil {
		t.Error("expected error for nil document")
	}
}

func TestProcessor_WrappedNarrationStaysInOneTransaction(t *testing.T) {
	p, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seg := func(x0, x1 float64, text string) extractor.Segment {
		return extractor.Segment{X0: x0, X1: x1, Text: text}
	}
	line := func(segs ...extractor.Segment) extractor.Line {
		return extractor.Line{Segments: segs}
	}
	lines := []extractor.Line{
		line(seg(10, 30, "Date"), seg(60, 110, "Narration"), seg(200, 225, "Debit"), seg(260, 290, "Credit"), seg(330, 365, "Balance")),
		line(seg(10, 55, "01-04-2023"), seg(60, 140, "UPI/XYZ/Payment"), seg(195, 225, "500.00"), seg(325, 365, "4,500.00")),
		line(seg(60, 110, "to merchant")),
		line(seg(10, 55, "02-04-2023"), seg(60, 100, "SALARY"), seg(255, 290, "10,000.00"), seg(325, 365, "14,500.00")),
	}
	doc := docWithTables("wrap.pdf", extractor.DefaultLayout.DetectTables(lines)...)

	_, txns, err := p.Process(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	if got := models.Deref(txns[0].Narration); got != "UPI/XYZ/Payment to merchant" {
		t.Errorf("narration: got %q", got)
	}
	if !txns[0].Debit.Valid || txns[0].Debit.Decimal.String() != "500" {
		t.Errorf("debit: got %v", txns[0].Debit)
	}
	if models.Deref(txns[1].TxnDate) != "02-04-2023" {
		t.Errorf("second date: got %q", models.Deref(txns[1].TxnDate))
	}
}
