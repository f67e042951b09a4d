// Package dealer implements the Trusted Dealer scheme (spec.md §4.2): a
// single party samples the joint secret polynomial directly and emits
// each participant's KeyPackage plus the shared PublicKeyPackage,
// rather than running the multi-round DKG. Grounded on the
// GenPoly/CalculatePoly shape of threshold-network-roast-go's
// top-level poly.go, generalized off *big.Int onto ciphersuite.Suite.
package dealer

import (
	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/keys"
)

// GenerateKeyShares samples a uniform degree-(t-1) polynomial with
// f(0) = s, evaluates it at the n participant identifiers, and returns
// each participant's KeyPackage plus the group PublicKeyPackage. Fails
// with frosterr.InvalidThreshold if t < 2 or t > n. The polynomial,
// including its constant term s, is zeroized in place before
// returning via Polynomial.Zeroize; the dealer itself, by
// construction, momentarily holds s in full — that is the trust model
// this scheme accepts (spec.md §4.2). The per-participant shares
// returned in each KeyPackage are the legitimate output and are left
// intact; zeroizing those is the owning participant's responsibility
// once their KeyPackage's lifetime ends.
func GenerateKeyShares(suite ciphersuite.Suite, rnd ciphersuite.RandReader, t, n int, ids []keys.Identifier) ([]*keys.KeyPackage, *keys.PublicKeyPackage, error) {
	if t < 2 || t > n {
		return nil, nil, frosterr.New(frosterr.InvalidThreshold, "threshold must satisfy 2 <= t <= n, got t=%d n=%d", t, n)
	}
	if len(ids) != n {
		return nil, nil, frosterr.New(frosterr.InvalidArgument, "expected %d identifiers, got %d", n, len(ids))
	}

	secret, err := suite.RandomScalar(rnd)
	if err != nil {
		return nil, nil, err
	}

	poly, err := keys.GeneratePolynomial(suite, rnd, t, secret)
	if err != nil {
		return nil, nil, err
	}
	defer poly.Zeroize()

	groupVerifyingKey := keys.NewVerifyingKey(suite, suite.ScalarBaseMul(secret))

	packages := make([]*keys.KeyPackage, n)
	pubShares := make(map[string]keys.VerifyingShare, n)

	for i, id := range ids {
		shareScalar := poly.Evaluate(id.Scalar())
		signingShare := keys.NewSigningShare(suite, shareScalar)
		verifyingShare := keys.FromSigningShare(suite, signingShare)

		packages[i] = &keys.KeyPackage{
			Suite:          suite,
			Identifier:     id,
			SigningShare:   signingShare,
			VerifyingShare: verifyingShare,
			VerifyingKey:   groupVerifyingKey,
			Threshold:      t,
			MaxSigners:     n,
		}
		pubShares[id.Hex()] = verifyingShare
	}

	pub := &keys.PublicKeyPackage{
		Suite:           suite,
		VerifyingKey:    groupVerifyingKey,
		VerifyingShares: pubShares,
		Threshold:       t,
	}

	return packages, pub, nil
}
