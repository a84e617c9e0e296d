package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// DegToRad converts degrees to radians.
func DegToRad(degrees float32) float32 {
	return degrees * (Pi / 180.0)
}

// Sin32 is float32 sine.
func Sin32(x float32) float32 {
	return ksin(x)
}

// Cos32 is float32 cosine.
func Cos32(x float32) float32 {
	return kcos(x)
}

// Pi as float32.
const Pi float32 = 3.14159265358979323846
