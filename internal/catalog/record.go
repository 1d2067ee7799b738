// Package catalog defines the canonical record shape shared by ingestion,
// storage, and indexing, plus the normalization that produces it.
package catalog

import "time"

// Record is the canonical form of one catalog item. Descriptive fields are
// pointers because sources routinely omit them; absent stays absent instead
// of collapsing into zero values.
type Record struct {
	ID           string
	Source       string
	Name         string
	Details      string
	SetNumber    *string
	Year         *int
	Theme        *string
	PieceCount   *int
	MinifigCount *int
	Price        *float64
	Rating       *float64
	QualityScore int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NativeID returns the source-native identifier or "" when the payload had none.
func (r Record) NativeID() string {
	if r.SetNumber == nil {
		return ""
	}
	return *r.SetNumber
}

// HasNativeID reports whether the record carried its own identifier. Records
// without one share a per-source placeholder id (see RecordID) and overwrite
// each other in the store.
func (r Record) HasNativeID() bool {
	return r.SetNumber != nil && *r.SetNumber != ""
}
