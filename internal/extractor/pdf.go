package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/statement-batch/internal/models"
)

var (
	// ErrNoPages is returned for a PDF that opens but has no pages.
	ErrNoPages = errors.New("PDF has no pages")
	// ErrUnreadable is returned when no text layer could be decoded.
	ErrUnreadable = errors.New("no readable text could be extracted from PDF")
)

// Load opens the PDF at filePath, reads the text and tables of every page
// and closes the file before returning. When the library yields no readable
// text, page text is taken from pdftotext (poppler-utils) if installed;
// tables found by the library are kept either way.
func Load(filePath string) (*models.Document, error) {
	return DefaultLayout.Load(filePath)
}

// Load is like the package-level Load but with custom layout distances.
func (lay Layout) Load(filePath string) (*models.Document, error) {
	doc := &models.Document{Name: filepath.Base(filePath)}

	pages, libErr := lay.readWithLibrary(filePath)
	if libErr == nil && isReadableText(pageTexts(pages)) {
		doc.Pages = pages
		return doc, nil
	}

	texts, popplerErr := extractWithPdftotext(filePath)
	if popplerErr == nil && isReadableText(texts) {
		doc.Pages = mergeText(pages, texts)
		return doc, nil
	}

	if libErr != nil {
		if errors.Is(libErr, ErrNoPages) {
			return nil, libErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, libErr)
	}
	// The file parsed but carries little text. That is a document with
	// no fields, not a failure.
	doc.Pages = pages
	return doc, nil
}

// readWithLibrary uses ledongthuc/pdf, recovering from its panics on
// malformed streams.
func (lay Layout) readWithLibrary(filePath string) (pages []models.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, ErrNoPages
	}

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.Page{Number: i})
			continue
		}
		rows, rowErr := page.GetTextByRow()
		if rowErr != nil {
			pages = append(pages, models.Page{Number: i})
			continue
		}

		// Top of the page first; PDF Y grows upwards.
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Position > rows[b].Position })

		lines := make([]Line, 0, len(rows))
		for _, row := range rows {
			words := make([]Word, 0, len(row.Content))
			for _, t := range row.Content {
				words = append(words, Word{X: t.X, W: t.W, FontSize: t.FontSize, S: t.S})
			}
			lines = append(lines, lay.BuildLine(words))
		}

		pages = append(pages, models.Page{
			Number: i,
			Text:   PageText(lines),
			Tables: lay.DetectTables(lines),
		})
	}
	return pages, nil
}

// popplerTimeout bounds each pdftotext/pdfinfo call so one bad file cannot
// stall a batch.
const popplerTimeout = 30 * time.Second

var pdfinfoPagesLine = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

// extractWithPdftotext runs pdftotext page by page so page boundaries
// survive.
func extractWithPdftotext(filePath string) ([]string, error) {
	bin, err := exec.LookPath("pdftotext")
	if err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}
	if _, err := os.Stat(filePath); err != nil {
		return nil, err
	}

	n := max(pdfinfoPages(filePath), 1)
	texts := make([]string, n)
	for i := range texts {
		page := strconv.Itoa(i + 1)
		out, err := runPoppler(bin, "-layout", "-f", page, "-l", page, filePath, "-")
		if err == nil {
			texts[i] = strings.TrimSpace(string(out))
		}
	}

	if totalTextLen(texts) == 0 {
		return nil, errors.New("pdftotext produced no output")
	}
	return texts, nil
}

// pdfinfoPages returns the page count reported by pdfinfo, or 0.
func pdfinfoPages(filePath string) int {
	out, err := runPoppler("pdfinfo", filePath)
	if err != nil {
		return 0
	}
	m := pdfinfoPagesLine.FindSubmatch(out)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(string(m[1]))
	return n
}

func runPoppler(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), popplerTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

// mergeText replaces page text with fallback text, keeping library tables.
func mergeText(pages []models.Page, texts []string) []models.Page {
	out := make([]models.Page, len(texts))
	for i, t := range texts {
		out[i] = models.Page{Number: i + 1, Text: t}
		if i < len(pages) {
			out[i].Tables = pages[i].Tables
		}
	}
	return out
}

func pageTexts(pages []models.Page) []string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return texts
}

// textQuality returns the share of plain ASCII letters, digits, whitespace
// and common punctuation. Identity-encoded fonts decode to accented junk
// that unicode.IsLetter would accept.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				strings.ContainsRune(".,-/:;()'\"₹$€£%&@#!?+=*", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

var commonWords = []string{
	"bank", "account", "balance", "date", "statement", "narration",
	"debit", "credit", "transaction", "ifsc", "branch", "period",
}

func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires more than 50 characters, over 60% of them plain,
// and at least one word every statement carries.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
