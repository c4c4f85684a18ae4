package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed derives a deterministic PCG seed from HMAC(salt, YYYY-MM-DD), so every
// player gets the same layout on a given day.
func Seed(date time.Time, salt string) (uint64, uint64) {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}

// Rand returns the day's shuffle source.
func Rand(date time.Time, salt string) *rand.Rand {
	hi, lo := Seed(date, salt)
	return rand.New(rand.NewPCG(hi, lo))
}
