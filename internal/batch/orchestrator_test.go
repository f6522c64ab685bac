package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-batch/internal/logger"
	"github.com/insightdelivered/statement-batch/internal/models"
	"github.com/insightdelivered/statement-batch/internal/parser"
	"github.com/insightdelivered/statement-batch/internal/writer"
)

func quietContext() context.Context {
	return logger.WithContext(context.Background(), zerolog.Nop())
}

type fakeSource struct {
	names  []string
	docs   map[string]*models.Document
	errs   map[string]error
	panics map[string]bool
	opened []string
}

func (s *fakeSource) List(ctx context.Context) ([]string, error) {
	return s.names, nil
}

func (s *fakeSource) Open(ctx context.Context, name string) (*models.Document, error) {
	s.opened = append(s.opened, name)
	if s.panics[name] {
		panic("broken object stream")
	}
	if err := s.errs[name]; err != nil {
		return nil, err
	}
	return s.docs[name], nil
}

type failingSink struct{ *writer.CSVWriter }

func (failingSink) WriteAccounts([]models.AccountRecord) (string, error) {
	return "", errors.New("disk full")
}

func statement(name, account string, rows ...[]string) *models.Document {
	table := models.Table{{"Date", "Narration", "Debit", "Credit", "Balance"}}
	table = append(table, rows...)
	return &models.Document{
		Name: name,
		Pages: []models.Page{{
			Number: 1,
			Text:   "Account Number: " + account,
			Tables: []models.Table{table},
		}},
	}
}

func threeDocSource() *fakeSource {
	return &fakeSource{
		names: []string{"a.pdf", "b.pdf", "c.pdf"},
		docs: map[string]*models.Document{
			"a.pdf": statement("a.pdf", "111111111111",
				[]string{"01-04-2023", "UPI/XYZ/Payment", "500.00", "", "4500.00"},
				[]string{"02-04-2023", "Salary", "", "1,000.00", "5500.00"}),
			"c.pdf": statement("c.pdf", "333333333333",
				[]string{"05-04-2023", "ATM", "200.00", "", "800.00"}),
		},
		errs: map[string]error{"b.pdf": errors.New("corrupt xref table")},
	}
}

type fixture struct {
	dir    string
	runner *Runner
}

func newFixture(t *testing.T, src Source) fixture {
	t.Helper()
	dir := t.TempDir()

	proc, err := parser.New(parser.DefaultOptions())
	require.NoError(t, err)

	sink := writer.New(writer.Paths{
		Dir:          dir,
		Accounts:     "accounts_all.csv",
		Transactions: "transactions_all.csv",
		Failures:     "failed_files.csv",
	})
	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	r := NewRunner(Config{
		AuditLogPath: filepath.Join(dir, "run_log.txt"),
		InputLabel:   "data",
	}, src, proc, sink).WithClock(clock)

	return fixture{dir: dir, runner: r}
}

func (f fixture) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestRun_IsolatesFailingDocument(t *testing.T) {
	fx := newFixture(t, threeDocSource())

	res, err := fx.runner.Run(quietContext())
	require.NoError(t, err)

	require.Len(t, res.Accounts, 2)
	assert.Equal(t, "a.pdf", res.Accounts[0].PDFFile)
	assert.Equal(t, "c.pdf", res.Accounts[1].PDFFile)

	require.Len(t, res.Transactions, 3)
	for _, txn := range res.Transactions {
		assert.NotEqual(t, "b.pdf", txn.PDFFile)
	}
	assert.Equal(t, "Salary", models.Deref(res.Transactions[1].Narration))
	assert.Equal(t, "c.pdf", res.Transactions[2].PDFFile)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, models.FailureEntry{PDFFile: "b.pdf", Error: "corrupt xref table"}, res.Failures[0])

	assert.Equal(t, "pdf_file,error\nb.pdf,corrupt xref table\n", fx.read(t, "failed_files.csv"))

	txns := fx.read(t, "transactions_all.csv")
	assert.Equal(t, 4, strings.Count(txns, "\n"))
	assert.Contains(t, txns, "a.pdf,111111111111,02-04-2023,Salary,,,,1000,5500\n")
	assert.NotEqual(t, "", res.RunID)
}

func TestRun_Outcomes(t *testing.T) {
	fx := newFixture(t, threeDocSource())

	res, err := fx.runner.Run(quietContext())
	require.NoError(t, err)

	assert.Equal(t, []Outcome{
		{PDFFile: "a.pdf", State: models.DocSucceeded, Rows: 2},
		{PDFFile: "b.pdf", State: models.DocFailed, Err: "corrupt xref table"},
		{PDFFile: "c.pdf", State: models.DocSucceeded, Rows: 1},
	}, res.Outcomes)
}

func TestRun_RecoversPanics(t *testing.T) {
	src := threeDocSource()
	src.errs = nil
	src.panics = map[string]bool{"b.pdf": true}
	fx := newFixture(t, src)

	res, err := fx.runner.Run(quietContext())
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "b.pdf", res.Failures[0].PDFFile)
	assert.Contains(t, res.Failures[0].Error, "broken object stream")
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, src.opened)
	assert.Len(t, res.Accounts, 2)
}

func TestRun_AuditLog(t *testing.T) {
	fx := newFixture(t, threeDocSource())

	_, err := fx.runner.Run(quietContext())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(fx.read(t, "run_log.txt")), "\n")
	want := []string{
		"Found 3 PDFs. Starting batch extraction...",
		"START 1/3 -> a.pdf",
		"DONE  1/3 -> rows=2",
		"START 2/3 -> b.pdf",
		"FAIL  2/3 -> b.pdf | corrupt xref table",
		"START 3/3 -> c.pdf",
		"DONE  3/3 -> rows=1",
	}
	require.GreaterOrEqual(t, len(lines), len(want))
	for i, msg := range want {
		assert.Equal(t, "[2024-01-02 03:04:05] "+msg, lines[i])
	}

	log := fx.read(t, "run_log.txt")
	assert.Contains(t, log, "Accounts rows: 2 | Transactions rows: 3")
	assert.Contains(t, log, "Totals: debit=700.00 credit=1000.00")
	assert.Contains(t, log, "Some PDFs failed: 1 (see "+filepath.Join(fx.dir, "failed_files.csv")+")")
}

func TestRun_TruncatesAuditLog(t *testing.T) {
	fx := newFixture(t, threeDocSource())
	logPath := filepath.Join(fx.dir, "run_log.txt")
	require.NoError(t, os.WriteFile(logPath, []byte("previous run\n"), 0644))

	_, err := fx.runner.Run(quietContext())
	require.NoError(t, err)

	assert.NotContains(t, fx.read(t, "run_log.txt"), "previous run")
}

func TestRun_Deterministic(t *testing.T) {
	fx := newFixture(t, threeDocSource())

	_, err := fx.runner.Run(quietContext())
	require.NoError(t, err)
	firstAccounts := fx.read(t, "accounts_all.csv")
	firstTxns := fx.read(t, "transactions_all.csv")

	_, err = fx.runner.Run(quietContext())
	require.NoError(t, err)

	assert.Equal(t, firstAccounts, fx.read(t, "accounts_all.csv"))
	assert.Equal(t, firstTxns, fx.read(t, "transactions_all.csv"))
}

func TestRun_NoDocuments(t *testing.T) {
	fx := newFixture(t, &fakeSource{})

	res, err := fx.runner.Run(quietContext())
	require.NoError(t, err)

	assert.Empty(t, res.Accounts)
	assert.Empty(t, res.Transactions)
	assert.Empty(t, res.Failures)
	assert.Contains(t, fx.read(t, "run_log.txt"), "[2024-01-02 03:04:05] No PDFs found in data folder.\n")
	assert.Equal(t,
		"pdf_file,account_number,txn_date,narration,reference,dr_cr,debit,credit,balance\n",
		fx.read(t, "transactions_all.csv"))

	_, err = os.Stat(filepath.Join(fx.dir, "failed_files.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_RemovesStaleFailureLedger(t *testing.T) {
	src := threeDocSource()
	src.errs = nil
	src.names = []string{"a.pdf", "c.pdf"}
	fx := newFixture(t, src)

	stale := filepath.Join(fx.dir, "failed_files.csv")
	require.NoError(t, os.WriteFile(stale, []byte("pdf_file,error\nold.pdf,boom\n"), 0644))

	res, err := fx.runner.Run(quietContext())
	require.NoError(t, err)
	assert.Empty(t, res.Failures)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_OutputErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	proc, err := parser.New(parser.DefaultOptions())
	require.NoError(t, err)

	r := NewRunner(Config{AuditLogPath: filepath.Join(dir, "run_log.txt")},
		threeDocSource(), proc, failingSink{writer.New(writer.Paths{Dir: dir})})

	_, err = r.Run(quietContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRun_CancelledContext(t *testing.T) {
	fx := newFixture(t, threeDocSource())
	ctx, cancel := context.WithCancel(quietContext())
	cancel()

	_, err := fx.runner.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResult_Summary(t *testing.T) {
	fx := newFixture(t, threeDocSource())

	res, err := fx.runner.Run(quietContext())
	require.NoError(t, err)

	s := res.Summary()
	assert.Equal(t, 3, s.Documents)
	assert.Equal(t, 2, s.Accounts)
	assert.Equal(t, 3, s.Transactions)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, "700", s.TotalDebit.String())
	assert.Equal(t, "1000", s.TotalCredit.String())
}

func TestRun_TagsContextLoggerWithRunID(t *testing.T) {
	fx := newFixture(t, threeDocSource())
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.New(logger.Config{Level: "debug", Format: "json", Output: buf}))

	res, err := fx.runner.Run(ctx)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"run_id":"`+res.RunID+`"`)
	assert.Contains(t, out, `"message":"START 1/3 -> a.pdf"`)
	assert.Contains(t, out, `"pdf_file":"c.pdf"`)
}
