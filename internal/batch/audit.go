package batch

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const auditTimeLayout = "2006-01-02 15:04:05"

// AuditLog is the plain-text narrative of one batch run. Every line is
// also echoed to the structured logger.
type AuditLog struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	log zerolog.Logger
	now func() time.Time
}

// OpenAuditLog truncates (or creates) the log file at path.
func OpenAuditLog(path string, log zerolog.Logger, now func() time.Time) (*AuditLog, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &AuditLog{f: f, w: bufio.NewWriter(f), log: log, now: now}, nil
}

// Logf appends one timestamped line.
func (a *AuditLog) Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.w, "[%s] %s\n", a.now().Format(auditTimeLayout), msg)
	// Flush per line so a crashed run still leaves its narrative behind.
	a.w.Flush()

	a.log.Info().Msg(msg)
}

// Close flushes and closes the file.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.w.Flush(); err != nil {
		a.f.Close()
		return err
	}
	return a.f.Close()
}
