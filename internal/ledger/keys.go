package ledger

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// AttemptKey derives the storage key for an identifier. The identifier is
// trimmed before hashing, so " a@x.com " and "a@x.com" share one record; case
// is kept. Hashing keeps raw emails out of cookie names and table keys.
func AttemptKey(prefix, identifier string) string {
	h, err := blake2b.New(16, nil)
	if err != nil {
		// only fails for invalid sizes or oversized keys
		panic(err)
	}
	h.Write([]byte(strings.TrimSpace(identifier)))
	return prefix + "attempt_" + hex.EncodeToString(h.Sum(nil))
}
