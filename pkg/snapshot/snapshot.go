package snapshot

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Marshal renders the mutable columns of an entity as canonical JSON: object
// keys are emitted in sorted order so the same column values always produce
// the same bytes. Audit rows store this form so fingerprints stay comparable
// across writes.
func Marshal(columns map[string]any) (string, error) {
	if columns == nil {
		columns = map[string]any{}
	}

	keys := make([]string, 0, len(columns))
	for k := range columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return "", fmt.Errorf("snapshot: marshal key %q: %w", k, err)
		}
		value, err := json.Marshal(columns[k])
		if err != nil {
			return "", fmt.Errorf("snapshot: marshal value for %q: %w", k, err)
		}
		buf = append(buf, name...)
		buf = append(buf, ':')
		buf = append(buf, value...)
	}
	buf = append(buf, '}')

	return string(buf), nil
}

// Fingerprint returns a deterministic BLAKE2b-256 digest of a snapshot,
// base64url-encoded (43 chars). Stored alongside the snapshot so tampering
// with an audit row is detectable.
func Fingerprint(snapshot string) string {
	sum := blake2b.Sum256([]byte(snapshot))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Verify reports whether fingerprint matches snapshot.
func Verify(snapshot, fingerprint string) bool {
	return Fingerprint(snapshot) == fingerprint
}
