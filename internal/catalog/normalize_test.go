package catalog

import (
	"encoding/json"
	"testing"
)

func TestNormalizeAliasResolution(t *testing.T) {
	cases := []struct {
		name  string
		raw   map[string]any
		check func(t *testing.T, rec Record)
	}{
		{
			name: "rebrickable shape",
			raw: map[string]any{
				"set_num": "75192-1", "name": "Millennium Falcon", "year": float64(2017),
				"theme": "Star Wars", "num_parts": float64(7541),
			},
			check: func(t *testing.T, rec Record) {
				if rec.NativeID() != "75192-1" {
					t.Fatalf("native id: %q", rec.NativeID())
				}
				if rec.Year == nil || *rec.Year != 2017 {
					t.Fatalf("year: %v", rec.Year)
				}
				if rec.PieceCount == nil || *rec.PieceCount != 7541 {
					t.Fatalf("pieces: %v", rec.PieceCount)
				}
			},
		},
		{
			name: "brickset shape",
			raw: map[string]any{
				"number": "10294", "name": "Titanic", "release_year": "2021",
				"theme_name": "Icons", "pieces": float64(9090), "minifigures": float64(0),
			},
			check: func(t *testing.T, rec Record) {
				if rec.NativeID() != "10294" {
					t.Fatalf("native id: %q", rec.NativeID())
				}
				if rec.Year == nil || *rec.Year != 2021 {
					t.Fatalf("year from string alias: %v", rec.Year)
				}
				if rec.Theme == nil || *rec.Theme != "Icons" {
					t.Fatalf("theme alias: %v", rec.Theme)
				}
				if rec.PieceCount == nil || *rec.PieceCount != 9090 {
					t.Fatalf("pieces alias: %v", rec.PieceCount)
				}
			},
		},
		{
			name: "brickowl shape",
			raw: map[string]any{
				"boid": "918470-84", "name": "Castle", "retail_price": "99.99",
				"user_rating": float64(4.5),
			},
			check: func(t *testing.T, rec Record) {
				if rec.NativeID() != "918470-84" {
					t.Fatalf("native id: %q", rec.NativeID())
				}
				if rec.Price == nil || *rec.Price != 99.99 {
					t.Fatalf("price alias: %v", rec.Price)
				}
				if rec.Rating == nil || *rec.Rating != 4.5 {
					t.Fatalf("rating alias: %v", rec.Rating)
				}
			},
		},
		{
			name: "numeric id is stringified",
			raw:  map[string]any{"id": float64(40123), "name": "Ideas Thing", "num_minifig": float64(3)},
			check: func(t *testing.T, rec Record) {
				if rec.NativeID() != "40123" {
					t.Fatalf("native id: %q", rec.NativeID())
				}
				if rec.MinifigCount == nil || *rec.MinifigCount != 3 {
					t.Fatalf("minifigs: %v", rec.MinifigCount)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Normalize("test_source", tc.raw)
			if rec.Source != "test_source" {
				t.Fatalf("source: %q", rec.Source)
			}
			if rec.ID != RecordID("test_source", rec.NativeID()) {
				t.Fatalf("id not derived from native id")
			}
			tc.check(t, rec)
		})
	}
}

func TestNormalizeDefaultsNameAndNulls(t *testing.T) {
	rec := Normalize("lego_shop", map[string]any{"price": "not a number"})
	if rec.Name != DefaultName {
		t.Fatalf("expected default name, got %q", rec.Name)
	}
	if rec.SetNumber != nil || rec.Year != nil || rec.Theme != nil || rec.PieceCount != nil {
		t.Fatalf("absent fields should stay null: %+v", rec)
	}
	if rec.Price != nil {
		t.Fatalf("unparseable price should normalize to null, got %v", *rec.Price)
	}
	if rec.ID != RecordID("lego_shop", "") {
		t.Fatalf("missing native id should use the placeholder id")
	}
	if rec.HasNativeID() {
		t.Fatalf("HasNativeID should be false")
	}
}

func TestQualityScoreBounds(t *testing.T) {
	full := Normalize("s", map[string]any{
		"name": "Complete", "set_num": "1-1", "year": float64(2024),
		"theme": "City", "num_parts": float64(100),
	})
	if full.QualityScore != 100 {
		t.Fatalf("all checklist fields populated should score 100, got %d", full.QualityScore)
	}

	empty := Normalize("s", map[string]any{})
	if empty.QualityScore != 0 {
		t.Fatalf("no checklist fields should score 0, got %d", empty.QualityScore)
	}

	// Name, native id, year present; theme and pieces absent.
	partial := Normalize("s", map[string]any{"name": "Partial", "set_num": "2-1", "year": float64(2020)})
	if partial.QualityScore != 60 {
		t.Fatalf("three of five fields should score 60, got %d", partial.QualityScore)
	}

	// The defaulted name earns no credit.
	nameless := Normalize("s", map[string]any{"set_num": "3-1"})
	if nameless.QualityScore != 20 {
		t.Fatalf("only native id populated should score 20, got %d", nameless.QualityScore)
	}

	// Price, rating, minifigures are not on the checklist.
	offList := Normalize("s", map[string]any{"price": float64(10), "rating": float64(5), "num_minifig": float64(2)})
	if offList.QualityScore != 0 {
		t.Fatalf("non-checklist fields should not score, got %d", offList.QualityScore)
	}
}

func TestNormalizeDeterministicDetails(t *testing.T) {
	raw := map[string]any{
		"set_num": "75192-1", "name": "Millennium Falcon", "year": float64(2017),
		"theme": "Star Wars", "num_parts": float64(7541), "extra": "kept",
	}
	a := Normalize("rebrickable", raw)
	b := Normalize("rebrickable", raw)
	if a.Details != b.Details {
		t.Fatalf("details must be byte-identical for identical input")
	}

	var blob map[string]any
	if err := json.Unmarshal([]byte(a.Details), &blob); err != nil {
		t.Fatalf("details not valid JSON: %v", err)
	}
	if blob["source"] != "rebrickable" {
		t.Fatalf("details missing source: %v", blob["source"])
	}
	if blob["set_number"] != "75192-1" {
		t.Fatalf("details missing canonical set_number: %v", blob["set_number"])
	}
	if blob["extra"] != "kept" {
		t.Fatalf("raw fields must survive the merge")
	}
	if blob["data_quality_score"] != float64(100) {
		t.Fatalf("details missing quality score: %v", blob["data_quality_score"])
	}
}
