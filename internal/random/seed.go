// Package random provides seed generation and derivation for the per-match
// pseudo-random generators. A match replays identically from its seed.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"golang.org/x/crypto/blake2b"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Derive mixes a base seed with a scope label (a match id, a game index)
// so that sibling generators are independent but reproducible.
func Derive(base uint64, scope string) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], base)
	h, _ := blake2b.New256(nil)
	h.Write(buf[:])
	h.Write([]byte(scope))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// New returns a PCG generator seeded from seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, Derive(seed, "stream")))
}
