package catalog

import (
	"crypto/sha256"
	"encoding/hex"
)

// PlaceholderNativeID stands in for payloads that carry no native identifier.
// Every id-less record from the same source therefore maps to one record id;
// ingestion counts and logs these collisions instead of hiding them.
const PlaceholderNativeID = "unknown"

// RecordID derives the content-addressed identifier for a record. The same
// (source, nativeID) pair always produces the same id, which is what makes
// re-ingestion idempotent.
func RecordID(source, nativeID string) string {
	if nativeID == "" {
		nativeID = PlaceholderNativeID
	}
	sum := sha256.Sum256([]byte(source + "_" + nativeID))
	return hex.EncodeToString(sum[:])
}
