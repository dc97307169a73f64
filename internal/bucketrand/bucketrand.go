// Package bucketrand draws uniform random indices by rejection sampling,
// used to shuffle a secure index's bucket keys into a cryptographically
// uniform enumeration order before it leaves the client.
package bucketrand

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/bits"
)

// Index draws a uniform random value in [0, n) by rejection sampling:
// read ceil(log2(n)/8) random bytes, zero-pad to 4 bytes little-endian,
// and reject any draw >= n. n must be > 0.
func Index(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("bucketrand: n must be positive")
	}
	if n == 1 {
		return 0, nil
	}
	numBytes := int(math.Ceil(float64(bits.Len(uint(n-1))) / 8.0))
	if numBytes < 1 {
		numBytes = 1
	}
	for {
		raw := make([]byte, numBytes)
		if _, err := rand.Read(raw); err != nil {
			return 0, fmt.Errorf("bucketrand: read random bytes: %w", err)
		}
		var padded [4]byte
		copy(padded[:], raw)
		v := uint32(padded[0]) | uint32(padded[1])<<8 | uint32(padded[2])<<16 | uint32(padded[3])<<24
		if int(v) < n {
			return int(v), nil
		}
	}
}

// ShuffleKeys returns a fresh slice containing keys in a cryptographically
// uniform random permutation (Fisher-Yates driven by Index).
func ShuffleKeys(keys []string) ([]string, error) {
	out := append([]string(nil), keys...)
	for i := len(out) - 1; i > 0; i-- {
		j, err := Index(i + 1)
		if err != nil {
			return nil, err
		}
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
