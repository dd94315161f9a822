package project

import (
	"crypto/sha256"
	"io"
)

// Digest is a sha256 hash, the same as source.File.Hash.
type Digest [32]byte

// Combine hashes content followed by deps. Callers pass deps in a
// deterministic order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashString hashes s, used to mix versions and flags into a key.
func HashString(s string) Digest {
	h := sha256.New()
	_, _ = io.WriteString(h, s)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
