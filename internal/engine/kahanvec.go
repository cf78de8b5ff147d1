package engine

import (
	"github.com/sandeepkv93/gravity/internal/kahan"
	"github.com/sandeepkv93/gravity/internal/vector"
)

// kahanVec3 returns a fresh compensated accumulator over Vector3
// values, used for the mass-weighted sums in AlignFrame, Statistics,
// and collision merging.
func kahanVec3() kahan.Accumulator[vector.Vector3] {
	return kahan.New(
		vector.Vector3{},
		func(a, b vector.Vector3) vector.Vector3 { return a.Add(b) },
		func(a vector.Vector3) vector.Vector3 { return a.Negate() },
	)
}
