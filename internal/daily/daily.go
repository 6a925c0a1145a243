package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/robalobadob/vocab-jumble/internal/jumble"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed derives two PCG seeds from HMAC(salt, YYYY-MM-DD).
func Seed(date time.Time, salt string) (uint64, uint64) {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}

// Generator returns a jumble generator that yields the same jumble for every
// caller on the same date. Each call gets its own source.
func Generator(date time.Time, salt string, compact bool) jumble.Generator {
	s1, s2 := Seed(date, salt)
	return jumble.Generator{Rand: rand.New(rand.NewPCG(s1, s2)), Compact: compact}
}
