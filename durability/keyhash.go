package durability

import "github.com/cespare/xxhash/v2"

// KeyHash returns a cheap 64-bit hash of key. CompleteSyncWrite uses it as a
// pre-check before the exact byte-equality comparison mandated by the
// in-order-commit invariant (§4.1): a hash mismatch proves inequality, and
// a match still falls through to the authoritative byte comparison.
// Computing the hash reads every byte of key.
func KeyHash(key []byte) uint64 {
	return xxhash.Sum64(key)
}
