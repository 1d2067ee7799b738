// Package index builds and persists the searchable catalog index. Every
// record is rendered to a flat text payload, embedded in batches, and loaded
// into an in-memory cosine-similarity collection alongside a BM25 keyword
// index over the same entries. Snapshots on disk let the server restart
// without re-embedding the whole catalog.
package index

import (
	"strconv"
	"strings"

	"github.com/bricksage/bricksage/internal/catalog"
)

// Entry is one indexed catalog record: the rendered search text, its
// embedding vector, and the fields retrieval analytics report on.
type Entry struct {
	ID      string
	Text    string
	Vector  []float32
	Name    string
	Source  string
	Theme   string
	Year    int
	Pieces  int
	Quality int
}

// NewEntry renders a catalog record into its indexable form. detailCap
// bounds how much of the details payload is carried into the search text.
func NewEntry(rec catalog.Record, detailCap int) Entry {
	e := Entry{
		ID:      rec.ID,
		Name:    rec.Name,
		Source:  rec.Source,
		Quality: rec.QualityScore,
	}
	if rec.Theme != nil {
		e.Theme = *rec.Theme
	}
	if rec.Year != nil {
		e.Year = *rec.Year
	}
	if rec.PieceCount != nil {
		e.Pieces = *rec.PieceCount
	}
	e.Text = renderText(rec, detailCap)
	return e
}

func renderText(rec catalog.Record, detailCap int) string {
	details := rec.Details
	if detailCap > 0 && len(details) > detailCap {
		details = details[:detailCap]
	}
	var b strings.Builder
	b.WriteString("LEGO Set: ")
	b.WriteString(rec.Name)
	b.WriteString(" | Theme: ")
	b.WriteString(strOrUnknown(rec.Theme))
	b.WriteString(" | Year: ")
	b.WriteString(intOrUnknown(rec.Year))
	b.WriteString(" | Pieces: ")
	b.WriteString(intOrUnknown(rec.PieceCount))
	b.WriteString(" | Details: ")
	b.WriteString(details)
	return b.String()
}

func strOrUnknown(s *string) string {
	if s == nil || *s == "" {
		return "Unknown"
	}
	return *s
}

func intOrUnknown(n *int) string {
	if n == nil {
		return "Unknown"
	}
	return strconv.Itoa(*n)
}
