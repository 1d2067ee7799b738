package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultName is used when a source payload has no usable display name.
const DefaultName = "Unknown Set"

// qualityWeight is the credit per populated checklist field. The checklist is
// {name, native id, year, theme, piece count}, so scores land on multiples of 20.
const qualityWeight = 100 / 5

// Normalize maps one raw source payload onto the canonical record shape.
// It is total: any payload yields a record, unparseable values become nulls,
// and identical input always produces byte-identical output.
func Normalize(source string, raw map[string]any) Record {
	nativeID, hasNative := firstString(raw, "set_num", "number", "boid", "id")
	name, hasName := firstString(raw, "name")
	if !hasName {
		name = DefaultName
	}
	year := firstInt(raw, "year", "release_year")
	theme := firstStringPtr(raw, "theme", "theme_name")
	pieces := firstInt(raw, "num_parts", "pieces")
	minifigs := firstInt(raw, "num_minifig", "minifigures")
	price := firstFloat(raw, "price", "retail_price")
	rating := firstFloat(raw, "rating", "user_rating")

	rec := Record{
		ID:           RecordID(source, nativeID),
		Source:       source,
		Name:         name,
		Year:         year,
		Theme:        theme,
		PieceCount:   pieces,
		MinifigCount: minifigs,
		Price:        price,
		Rating:       rating,
	}
	if hasNative {
		rec.SetNumber = &nativeID
	}

	// Credit is awarded for what the payload actually carried, so the
	// "Unknown Set" fallback earns nothing.
	populated := 0
	if hasName {
		populated++
	}
	if hasNative {
		populated++
	}
	if year != nil {
		populated++
	}
	if theme != nil {
		populated++
	}
	if pieces != nil {
		populated++
	}
	rec.QualityScore = populated * qualityWeight

	rec.Details = renderDetails(source, raw, rec)
	return rec
}

// renderDetails merges the raw payload with the canonical fields into one JSON
// blob. Map marshalling sorts keys, which keeps the blob deterministic.
func renderDetails(source string, raw map[string]any, rec Record) string {
	merged := make(map[string]any, len(raw)+10)
	for k, v := range raw {
		merged[k] = v
	}
	merged["source"] = source
	merged["name"] = rec.Name
	merged["data_quality_score"] = rec.QualityScore
	if rec.SetNumber != nil {
		merged["set_number"] = *rec.SetNumber
	}
	if rec.Year != nil {
		merged["year"] = *rec.Year
	}
	if rec.Theme != nil {
		merged["theme"] = *rec.Theme
	}
	if rec.PieceCount != nil {
		merged["pieces"] = *rec.PieceCount
	}
	if rec.MinifigCount != nil {
		merged["minifigures"] = *rec.MinifigCount
	}
	if rec.Price != nil {
		merged["price"] = *rec.Price
	}
	if rec.Rating != nil {
		merged["rating"] = *rec.Rating
	}
	b, err := json.Marshal(merged)
	if err != nil {
		b, _ = json.Marshal(map[string]any{"source": source, "name": rec.Name})
	}
	return string(b)
}

// firstString resolves the first alias that holds a non-empty string-like
// value. Numeric values are stringified so numeric native ids survive.
func firstString(raw map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := stringify(v); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

func firstStringPtr(raw map[string]any, keys ...string) *string {
	if s, ok := firstString(raw, keys...); ok {
		return &s
	}
	return nil
}

func firstInt(raw map[string]any, keys ...string) *int {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if n, ok := toInt(v); ok {
			return &n
		}
	}
	return nil
}

func firstFloat(raw map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return &f
		}
	}
	return nil
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, true
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
