// Package batch runs the extraction pipeline over a bounded set of
// statement documents and persists the combined tables.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-batch/internal/logger"
	"github.com/insightdelivered/statement-batch/internal/models"
)

// Source lists and opens the documents of one batch.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (*models.Document, error)
}

// Processor turns one document into its account and transaction records.
type Processor interface {
	Process(doc *models.Document) (models.AccountRecord, []models.TransactionRecord, error)
}

// Sink persists the batch tables. Write methods return the path written.
type Sink interface {
	WriteAccounts(accounts []models.AccountRecord) (string, error)
	WriteTransactions(txns []models.TransactionRecord) (string, error)
	WriteFailures(failures []models.FailureEntry) (string, error)
	ClearFailures() error
	WriteWorkbook(accounts []models.AccountRecord, txns []models.TransactionRecord, failures []models.FailureEntry) (string, error)
}

// Config is the per-run configuration of a Runner.
type Config struct {
	AuditLogPath string
	// InputLabel names the input location in audit messages.
	InputLabel string
}

// Outcome is the terminal state of one document.
type Outcome struct {
	PDFFile string
	State   models.DocState
	Rows    int
	Err     string
}

// Result holds everything one run produced, in batch order.
type Result struct {
	RunID        string
	Accounts     []models.AccountRecord
	Transactions []models.TransactionRecord
	Failures     []models.FailureEntry
	Outcomes     []Outcome
}

// Summary is the roll-up reported at the end of a run.
type Summary struct {
	Documents    int
	Accounts     int
	Transactions int
	Failures     int
	TotalDebit   decimal.Decimal
	TotalCredit  decimal.Decimal
}

// Summary counts the run's records and totals debit and credit amounts.
// Absent amounts are skipped.
func (r *Result) Summary() Summary {
	s := Summary{
		Documents:    len(r.Outcomes),
		Accounts:     len(r.Accounts),
		Transactions: len(r.Transactions),
		Failures:     len(r.Failures),
	}
	s.TotalDebit, s.TotalCredit = models.Totals(r.Transactions)
	return s
}

// Runner processes documents one at a time in listing order.
type Runner struct {
	cfg  Config
	src  Source
	proc Processor
	sink Sink
	now  func() time.Time
}

// NewRunner wires a Runner.
func NewRunner(cfg Config, src Source, proc Processor, sink Sink) *Runner {
	return &Runner{cfg: cfg, src: src, proc: proc, sink: sink, now: time.Now}
}

// WithClock replaces the clock used for audit timestamps.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes one batch. A failing document is recorded and skipped;
// only listing, audit-log and output errors abort the run. The logger is
// taken from ctx and tagged with the run id.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := logger.FromContext(ctx).With().Str("run_id", res.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	audit, err := OpenAuditLog(r.cfg.AuditLogPath, log, r.now)
	if err != nil {
		return nil, err
	}
	defer audit.Close()

	names, err := r.src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	if len(names) == 0 {
		audit.Logf("No PDFs found in %s folder.", r.cfg.InputLabel)
		if err := r.persist(res, audit); err != nil {
			return nil, err
		}
		return res, nil
	}

	total := len(names)
	audit.Logf("Found %d PDFs. Starting batch extraction...", total)

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch interrupted before %s: %w", name, err)
		}

		out := Outcome{PDFFile: name, State: models.DocPending}
		audit.Logf("START %d/%d -> %s", i+1, total, name)

		out.State = models.DocExtracting
		acc, txns, err := r.processOne(ctx, name)
		if err != nil {
			out.State = models.DocFailed
			out.Err = err.Error()
			res.Failures = append(res.Failures, models.FailureEntry{PDFFile: name, Error: out.Err})
			res.Outcomes = append(res.Outcomes, out)
			audit.Logf("FAIL  %d/%d -> %s | %s", i+1, total, name, out.Err)
			continue
		}

		res.Accounts = append(res.Accounts, acc)
		res.Transactions = append(res.Transactions, txns...)
		out.State = models.DocSucceeded
		out.Rows = len(txns)
		res.Outcomes = append(res.Outcomes, out)
		audit.Logf("DONE  %d/%d -> rows=%d", i+1, total, len(txns))
	}

	if err := r.persist(res, audit); err != nil {
		return nil, err
	}
	return res, nil
}

// processOne is the isolation boundary for a single document. The
// document is fully read and released by Open before processing starts.
func (r *Runner) processOne(ctx context.Context, name string) (acc models.AccountRecord, txns []models.TransactionRecord, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while processing: %v", rec)
		}
	}()

	doc, err := r.src.Open(ctx, name)
	if err != nil {
		return models.AccountRecord{}, nil, err
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("pdf_file", name).Int("pages", len(doc.Pages)).Msg("document loaded")
	return r.proc.Process(doc)
}

func (r *Runner) persist(res *Result, audit *AuditLog) error {
	accPath, err := r.sink.WriteAccounts(res.Accounts)
	if err != nil {
		return err
	}
	txnPath, err := r.sink.WriteTransactions(res.Transactions)
	if err != nil {
		return err
	}

	s := res.Summary()
	audit.Logf("DONE Saved %s and %s", accPath, txnPath)
	audit.Logf("Accounts rows: %d | Transactions rows: %d", s.Accounts, s.Transactions)
	audit.Logf("Totals: debit=%s credit=%s", s.TotalDebit.StringFixed(2), s.TotalCredit.StringFixed(2))

	if len(res.Failures) > 0 {
		failPath, err := r.sink.WriteFailures(res.Failures)
		if err != nil {
			return err
		}
		audit.Logf("Some PDFs failed: %d (see %s)", len(res.Failures), failPath)
	} else if err := r.sink.ClearFailures(); err != nil {
		return err
	}

	wbPath, err := r.sink.WriteWorkbook(res.Accounts, res.Transactions, res.Failures)
	if err != nil {
		return err
	}
	if wbPath != "" {
		audit.Logf("Saved workbook %s", wbPath)
	}
	return nil
}
