package keys

import "github.com/threshold-network/frost-relay/ciphersuite"

// Polynomial is a degree t-1 polynomial over the scalar field,
// coefficients[0] is the constant term (the secret). Generalizes
// top-level poly.go's GenPoly/CalculatePoly (coefficient slice +
// Horner evaluation) off *big.Int onto ciphersuite.Suite.
type Polynomial struct {
	suite        ciphersuite.Suite
	Coefficients []ciphersuite.Scalar
}

// GeneratePolynomial draws a uniform random polynomial of degree t-1
// with the given constant term (the joint secret, or a participant's
// individual DKG secret).
func GeneratePolynomial(suite ciphersuite.Suite, rnd ciphersuite.RandReader, t int, constant ciphersuite.Scalar) (*Polynomial, error) {
	coeffs := make([]ciphersuite.Scalar, t)
	coeffs[0] = constant
	for i := 1; i < t; i++ {
		c, err := suite.RandomScalar(rnd)
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}
	return &Polynomial{suite: suite, Coefficients: coeffs}, nil
}

// Evaluate computes f(x) using Horner's method.
func (p *Polynomial) Evaluate(x ciphersuite.Scalar) ciphersuite.Scalar {
	return EvaluatePolynomial(p.suite, p.Coefficients, x)
}

// Zeroize overwrites every coefficient's own backing storage in place
// via ciphersuite.Scalar.Zeroize, including the constant term (the
// joint or per-participant secret), before dropping the references.
func (p *Polynomial) Zeroize() {
	for i, c := range p.Coefficients {
		if c != nil {
			c.Zeroize()
		}
		p.Coefficients[i] = nil
	}
}

// EvaluatePolynomial computes f(x) = sum(coefficients[i] * x^i) via
// Horner's method, generalizing CalculatePoly (top-level poly.go).
func EvaluatePolynomial(suite ciphersuite.Suite, coefficients []ciphersuite.Scalar, x ciphersuite.Scalar) ciphersuite.Scalar {
	result := coefficients[len(coefficients)-1]
	for i := len(coefficients) - 2; i >= 0; i-- {
		result = result.Mul(x).Add(coefficients[i])
	}
	return result
}

// LagrangeCoefficient computes lambda_i(S) = product_{j in S, j != i}
// x_j / (x_j - x_i), generalizing teacher's deriveInterpolatingValue
// (frost/signer.go, frost/participant.go) off *big.Int onto
// ciphersuite.Suite.
func LagrangeCoefficient(suite ciphersuite.Suite, self Identifier, set []Identifier) ciphersuite.Scalar {
	one := suite.ScalarFromUint16(1)
	num := one
	den := one
	for _, j := range set {
		if j.Equal(self) {
			continue
		}
		num = num.Mul(j.Scalar())
		den = den.Mul(j.Scalar().Sub(self.Scalar()))
	}
	return num.Mul(den.Invert())
}
