package extractor

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/insightdelivered/statement-batch/internal/models"
)

// Word is a positioned text run as reported by the PDF library.
type Word struct {
	X        float64
	W        float64
	FontSize float64
	S        string
}

// Segment is a horizontally contiguous piece of a line, usually one cell.
type Segment struct {
	X0, X1 float64
	Text   string
}

func (s Segment) center() float64 { return (s.X0 + s.X1) / 2 }

// Line is one baseline of text split into segments, left to right.
type Line struct {
	Segments []Segment
}

// Text joins the segments with single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Segments))
	for i, s := range l.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// Layout holds the distances, in PDF units, that drive table reconstruction.
type Layout struct {
	// SpaceGap is the smallest gap rendered as a space inside a segment.
	SpaceGap float64
	// ColumnGap is the smallest gap that starts a new segment.
	ColumnGap float64
	// AnchorRows bounds the lines searched for column anchors.
	AnchorRows int
	// MaxBridge is how many single-segment lines (wrapped narrations)
	// a table may span before it is considered finished.
	MaxBridge int
}

// DefaultLayout suits 8-11pt statement fonts.
var DefaultLayout = Layout{
	SpaceGap:   1.0,
	ColumnGap:  7.0,
	AnchorRows: 5,
	MaxBridge:  2,
}

// BuildLine merges the runs of one baseline into segments.
func (lay Layout) BuildLine(words []Word) Line {
	sorted := make([]Word, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.S) != "" {
			sorted = append(sorted, w)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var line Line
	var cur *Segment
	var b strings.Builder
	flush := func() {
		if cur != nil {
			cur.Text = strings.TrimSpace(b.String())
			line.Segments = append(line.Segments, *cur)
			cur = nil
			b.Reset()
		}
	}

	for _, w := range sorted {
		end := w.X + runWidth(w)
		if cur != nil {
			gap := w.X - cur.X1
			if gap > lay.ColumnGap {
				flush()
			} else if gap > lay.SpaceGap && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
		}
		if cur == nil {
			cur = &Segment{X0: w.X, X1: end}
		}
		b.WriteString(w.S)
		cur.X1 = math.Max(cur.X1, end)
	}
	flush()
	return line
}

// runWidth estimates a run's width when the PDF did not report one.
func runWidth(w Word) float64 {
	if w.W > 0 {
		return w.W
	}
	size := w.FontSize
	if size <= 0 {
		size = 10
	}
	return float64(utf8.RuneCountInString(w.S)) * size * 0.5
}

// PageText renders lines as newline separated text.
func PageText(lines []Line) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := l.Text(); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n")
}

// DetectTables finds runs of multi-column lines and grids them by column.
func (lay Layout) DetectTables(lines []Line) []models.Table {
	var tables []models.Table

	i := 0
	for i < len(lines) {
		if len(lines[i].Segments) < 2 {
			i++
			continue
		}

		end := i + 1
		for end < len(lines) {
			if len(lines[end].Segments) >= 2 {
				end++
				continue
			}
			next := lay.bridgeEnd(lines, end)
			if next < 0 {
				break
			}
			end = next
		}

		if end-i >= 2 {
			tables = append(tables, lay.grid(lines[i:end]))
		}
		i = end
	}
	return tables
}

// bridgeEnd returns the index of the multi-column line that follows a short
// run of single-segment lines starting at from, or -1.
func (lay Layout) bridgeEnd(lines []Line, from int) int {
	for k := from; k < len(lines) && k-from < lay.MaxBridge; k++ {
		n := len(lines[k].Segments)
		if n == 0 {
			return -1
		}
		if n >= 2 {
			return k
		}
	}
	if k := from + lay.MaxBridge; k < len(lines) && len(lines[k].Segments) >= 2 {
		return k
	}
	return -1
}

func (lay Layout) grid(run []Line) models.Table {
	anchors := run[0].Segments
	for k := 1; k < len(run) && k < lay.AnchorRows; k++ {
		if len(run[k].Segments) > len(anchors) {
			anchors = run[k].Segments
		}
	}

	tbl := make(models.Table, 0, len(run))
	for _, line := range run {
		// A bridged single-segment line is wrapped text of the row above.
		if len(line.Segments) == 1 && len(tbl) > 0 {
			seg := line.Segments[0]
			appendCell(tbl[len(tbl)-1], nearestAnchor(anchors, seg), seg.Text)
			continue
		}
		cells := make([]string, len(anchors))
		for _, seg := range line.Segments {
			appendCell(cells, nearestAnchor(anchors, seg), seg.Text)
		}
		tbl = append(tbl, cells)
	}
	return tbl
}

func appendCell(cells []string, col int, text string) {
	if cells[col] == "" {
		cells[col] = text
	} else {
		cells[col] += " " + text
	}
}

// nearestAnchor picks the column whose anchor span is closest to the
// segment's centre. Right-aligned amounts often start left of their header.
func nearestAnchor(anchors []Segment, seg Segment) int {
	c := seg.center()
	best, bestDist := 0, math.Inf(1)
	for k, a := range anchors {
		var d float64
		switch {
		case c < a.X0:
			d = a.X0 - c
		case c > a.X1:
			d = c - a.X1
		}
		if d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
