// internal/daily/daily.go
//
// Daily Challenge selection.
// Responsibilities:
//   - DateKey: the UTC calendar day a challenge belongs to.
//   - MessageIndex: a deterministic, salted pick from the message list so
//     every player gets the same encoded message on a given day.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MessageIndex returns a deterministic index for a date using
// HMAC(salt, YYYY-MM-DD) % n.
func MessageIndex(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}
