package batch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run_log.txt")
	echo := &bytes.Buffer{}
	clock := func() time.Time { return time.Date(2023, 4, 1, 9, 30, 0, 0, time.UTC) }

	a, err := OpenAuditLog(path, zerolog.New(echo), clock)
	require.NoError(t, err)
	a.Logf("START %d/%d -> %s", 1, 2, "a.pdf")
	require.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[2023-04-01 09:30:00] START 1/2 -> a.pdf\n", string(data))
	assert.Contains(t, echo.String(), `"message":"START 1/2 -> a.pdf"`)
}
