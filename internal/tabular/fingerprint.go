package tabular

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint returns a deterministic content hash of the record set, used
// to decide whether derived artifacts (insight analyses) are stale. Records
// are serialized as canonical JSON; encoding/json emits map keys in sorted
// order, so equal record sets always hash identically.
func Fingerprint(rs RecordSet) string {
	data, err := json.Marshal(rs)
	if err != nil {
		// A RecordSet of strings cannot fail to marshal.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
