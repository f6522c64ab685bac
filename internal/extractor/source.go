package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/insightdelivered/statement-batch/internal/models"
)

// DirSource lists and loads statement PDFs from a local directory.
type DirSource struct {
	Dir     string
	Pattern string
	Limit   int
	Layout  Layout
}

// NewDirSource returns a source over dir using DefaultLayout.
func NewDirSource(dir, pattern string, limit int) *DirSource {
	return &DirSource{Dir: dir, Pattern: pattern, Limit: limit, Layout: DefaultLayout}
}

// List returns at most Limit matching file names in lexical order. A
// missing directory yields an empty list.
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(s.Dir, s.Pattern))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.Dir, err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)

	if s.Limit > 0 && len(names) > s.Limit {
		names = names[:s.Limit]
	}
	return names, nil
}

// Open reads the named document completely; no handle outlives the call.
func (s *DirSource) Open(ctx context.Context, name string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Layout.Load(filepath.Join(s.Dir, name))
}
