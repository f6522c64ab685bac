package parser

import (
	"errors"
	"strings"

	"github.com/insightdelivered/statement-batch/internal/models"
)

// Options configures a Processor.
type Options struct {
	FieldRules     []FieldRule
	PeriodPattern  string
	FieldPages     int
	HeaderScanRows int
	Placeholder    string
}

// DefaultOptions returns the settings used for the supported statements.
func DefaultOptions() Options {
	return Options{
		FieldRules:     DefaultFieldRules,
		PeriodPattern:  DefaultPeriodPattern,
		FieldPages:     2,
		HeaderScanRows: 5,
		Placeholder:    "nan",
	}
}

// Processor extracts the account record and transactions of one document.
type Processor struct {
	fields     *FieldExtractor
	tables     *TableExtractor
	fieldPages int
}

// New builds a Processor from opts.
func New(opts Options) (*Processor, error) {
	fe, err := NewFieldExtractor(opts.FieldRules, opts.PeriodPattern)
	if err != nil {
		return nil, err
	}
	if opts.FieldPages < 1 {
		return nil, errors.New("field pages must be at least 1")
	}
	if opts.HeaderScanRows < 1 {
		return nil, errors.New("header scan rows must be at least 1")
	}
	return &Processor{
		fields:     fe,
		tables:     NewTableExtractor(opts.HeaderScanRows, opts.Placeholder),
		fieldPages: opts.FieldPages,
	}, nil
}

// Process runs field and table extraction over doc. Every transaction is
// stamped with the document name and the extracted account number, even
// when that number is nil.
func (p *Processor) Process(doc *models.Document) (models.AccountRecord, []models.TransactionRecord, error) {
	if doc == nil {
		return models.AccountRecord{}, nil, errors.New("nil document")
	}

	acct := p.fields.Extract(doc.Name, headerText(doc, p.fieldPages))
	rows := p.tables.RawRows(doc)
	txns := p.tables.Canonicalize(rows, doc.Name, acct.AccountNumber)
	return acct, txns, nil
}

// headerText joins the text of the first n pages, each preceded by a newline.
func headerText(doc *models.Document, n int) string {
	var b strings.Builder
	for i, page := range doc.Pages {
		if i >= n {
			break
		}
		b.WriteString("\n")
		b.WriteString(page.Text)
	}
	return b.String()
}
