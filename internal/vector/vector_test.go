package vector

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArithmetic(t *testing.T) {
	a := Vector3{1, 2, 3}
	b := Vector3{4, 5, 6}

	assert.Equal(t, Vector3{5, 7, 9}, a.Add(b))
	assert.Equal(t, Vector3{-3, -3, -3}, a.Sub(b))
	assert.Equal(t, Vector3{-1, -2, -3}, a.Negate())
	assert.Equal(t, Vector3{2, 4, 6}, a.Scale(2))
	assert.Equal(t, Vector3{0.5, 1, 1.5}, a.Div(2))
}

func TestDotAndCross(t *testing.T) {
	a := Vector3{1, 0, 0}
	b := Vector3{0, 1, 0}

	assert.Equal(t, 0.0, a.Dot(b))
	assert.Equal(t, Vector3{0, 0, 1}, a.Cross(b))
}

func TestNorm(t *testing.T) {
	v := Vector3{3, 4, 0}
	assert.Equal(t, 5.0, v.Norm())
	assert.Equal(t, 25.0, v.NormSq())
}

func TestDistance(t *testing.T) {
	a := Vector3{0, 0, 0}
	b := Vector3{3, 4, 0}
	assert.Equal(t, 5.0, a.Distance(b))
}

func TestZero(t *testing.T) {
	assert.True(t, Vector3{}.Zero())
	assert.False(t, Vector3{X: 1}.Zero())
}

func TestBinaryRoundTrip(t *testing.T) {
	v := Vector3{X: 1.5, Y: -2.25, Z: math.Pi}

	var buf bytes.Buffer
	n, err := v.WriteTo(&buf)
	assert.NoError(t, err)
	assert.EqualValues(t, 24, n)

	var got Vector3
	n, err = got.ReadFrom(&buf)
	assert.NoError(t, err)
	assert.EqualValues(t, 24, n)
	assert.Equal(t, v, got)
}
