package random

import (
	"crypto/rand"
	"encoding/binary"
)

// Random is the source of lobby codes, bot IDs and bot word picks
type Random interface {
	// Intn returns a value in [0, n), or 0 when n <= 0
	Intn(n int) int

	// String returns length characters drawn from alphabet
	String(length int, alphabet string) string
}

// CryptoRandom draws from crypto/rand
type CryptoRandom struct{}

func New() *CryptoRandom {
	return &CryptoRandom{}
}

func (CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	bound := uint64(n)
	// Reject the tail of the uint64 range so every result is equally likely
	limit := ^uint64(0) - ^uint64(0)%bound
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % bound)
		}
	}
}

func (r CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(out)
}
