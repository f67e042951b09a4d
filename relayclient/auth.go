package relayclient

import (
	"encoding/hex"

	"github.com/threshold-network/frost-relay/ciphersuite"
)

// SignChallenge produces the hex-encoded "R || z" Schnorr signature
// relayserver's /login expects over a /challenge nonce, the same
// construction relayserver.Broker.Login verifies (R = k*B,
// c = Challenge(R, pub, message), z = k + c*x).
func SignChallenge(suite ciphersuite.Suite, priv ciphersuite.Scalar, pub ciphersuite.Element, challenge []byte, rnd ciphersuite.RandReader) (string, error) {
	k, err := suite.RandomScalar(rnd)
	if err != nil {
		return "", err
	}
	r := suite.ScalarBaseMul(k)
	c := suite.Challenge(r, pub, challenge)
	z := k.Add(c.Mul(priv))
	blob := append(suite.SerializeElement(r), suite.SerializeScalar(z)...)
	return hex.EncodeToString(blob), nil
}
