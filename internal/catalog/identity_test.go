package catalog

import "testing"

func TestRecordIDStable(t *testing.T) {
	a := RecordID("rebrickable", "75192-1")
	b := RecordID("rebrickable", "75192-1")
	if a == "" {
		t.Fatalf("empty id")
	}
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a, b)
	}
}

func TestRecordIDDistinguishesSourceAndNativeID(t *testing.T) {
	base := RecordID("rebrickable", "75192-1")
	if RecordID("brickset", "75192-1") == base {
		t.Fatalf("different sources must yield different ids")
	}
	if RecordID("rebrickable", "10294-1") == base {
		t.Fatalf("different native ids must yield different ids")
	}
}

func TestRecordIDPlaceholderCollision(t *testing.T) {
	// Payloads without a native id intentionally collapse onto one id per
	// source; ingestion surfaces that instead of this function hiding it.
	a := RecordID("lego_ideas", "")
	b := RecordID("lego_ideas", "")
	if a != b {
		t.Fatalf("id-less records from one source should collide: %s vs %s", a, b)
	}
	if a != RecordID("lego_ideas", PlaceholderNativeID) {
		t.Fatalf("empty native id should map onto the placeholder")
	}
	if a == RecordID("lego_shop", "") {
		t.Fatalf("placeholder ids must still differ across sources")
	}
}
