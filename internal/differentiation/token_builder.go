// Package differentiation turns a subset of a request's classifiers into a
// fixed-width routing token. Two shapes of differentiation exist on top of
// the same hashing facility: channel-level (three selectors) and
// object-level (two selectors).
package differentiation

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// Seed is the single fixed seed applied to every hashing scheme, matching
// the original MurmurHash3 class's m_seed.
const Seed uint32 = 42

// Scheme selects which MurmurHash3 variant a TokenBuilder uses. The 32-bit
// variant is the default and the one used for routing; the 128-bit variants
// exist for future use (e.g. globally-unique request identifiers) and are
// truncated to 32 bits here since routing tokens are always uint32.
type Scheme int

const (
	// SchemeMurmur3x86_32 targets low-latency hash-table style lookups and
	// is the default routing scheme.
	SchemeMurmur3x86_32 Scheme = iota
	// SchemeMurmur3x86_128 is reserved for future large-block identifiers
	// on x86 platforms. It does not run the x86 128-bit algorithm: like
	// SchemeMurmur3x64_128 it hashes with murmur3.Sum128WithSeed (the x64
	// 128-bit algorithm), keeping the low 32 bits of the first 64-bit half.
	SchemeMurmur3x86_128
	// SchemeMurmur3x64_128 is reserved for future large-block identifiers
	// on x64 platforms.
	SchemeMurmur3x64_128
)

// TokenBuilder hashes an arbitrary byte key into a 32-bit routing token
// using a fixed hashing scheme and seed. For any fixed scheme and seed, the
// token for a given key is stable across runs and processes (the
// determinism contract of spec.md §4.3).
type TokenBuilder struct {
	scheme Scheme
}

// NewTokenBuilder constructs a TokenBuilder for the given scheme.
func NewTokenBuilder(scheme Scheme) *TokenBuilder {
	return &TokenBuilder{scheme: scheme}
}

// BuildToken hashes key into a deterministic uint32 token. An empty key
// (zero active selectors) still yields a deterministic token: the hash of
// the empty byte string under the fixed seed.
func (b *TokenBuilder) BuildToken(key []byte) uint32 {
	switch b.scheme {
	case SchemeMurmur3x86_128:
		hi, _ := murmur3.Sum128WithSeed(key, Seed)
		return uint32(hi)
	case SchemeMurmur3x64_128:
		_, lo := murmur3.Sum128WithSeed(key, Seed)
		return uint32(lo)
	default:
		return murmur3.Sum32WithSeed(key, Seed)
	}
}

// appendInt64 appends the big-endian bytes of v to buf.
func appendInt64(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

// appendInt appends the big-endian bytes of v (as int64) to buf.
func appendInt(buf []byte, v int) []byte {
	return appendInt64(buf, int64(v))
}
