// Package zeroize provides a scoped acquisition helper for secret byte
// slices, overwriting the buffer before it is released on every exit
// path including panics. frost's nonce generation uses it for its
// random and serialized-share scratch buffers; SigningShares,
// SigningNonces and DKG secret polynomials are wiped through
// ciphersuite.Scalar.Zeroize instead, and Noise static keys are not
// wiped by this package. No teacher package
// zeroizes secrets; this follows the general Go idiom (explicit
// Zeroize plus runtime.KeepAlive to defeat dead-store elimination)
// since the spec treats this as a correctness requirement, not hygiene.
package zeroize

import "runtime"

// Bytes is a secret byte slice that must be wiped after use.
type Bytes []byte

// Zeroize overwrites every byte of b with zero. Safe to call more than
// once or on a nil/empty slice.
func (b Bytes) Zeroize() {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// WithSecret runs fn with a fresh secret buffer of the given size,
// guaranteeing the buffer is zeroized when fn returns, panics, or
// returns an error.
func WithSecret(size int, fn func(secret Bytes) error) (err error) {
	buf := make(Bytes, size)
	defer buf.Zeroize()
	return fn(buf)
}
