package mandel

// EscapeRadius is the orbit modulus beyond which a point is known to diverge.
const EscapeRadius = 2.0

// escapeRadiusSq is compared against re²+im² so no square root is taken.
const escapeRadiusSq = EscapeRadius * EscapeRadius

// Escape iterates z ← z² + c from z = 0 and returns the number of iterations
// performed before |z| exceeds [EscapeRadius], or maxIter if it never does.
//
// The result is always in [0, maxIter]; a negative budget is treated as 0.
func Escape(c complex128, maxIter int) int {
	cr, ci := real(c), imag(c)
	var zr, zi float64

	n := 0
	for n < maxIter && zr*zr+zi*zi <= escapeRadiusSq {
		zr, zi = zr*zr-zi*zi+cr, 2*zr*zi+ci
		n++
	}
	return n
}

// Inside reports whether c survives maxIter iterations.
func Inside(c complex128, maxIter int) bool {
	return Escape(c, maxIter) >= maxIter
}
