// Package vector implements the three-component double-precision vector
// primitive used throughout the gravity engine: positions, velocities,
// and accelerations are all Vector3 values.
package vector

import (
	"encoding/binary"
	"io"
	"math"
)

// Vector3 is a three-component double-precision Cartesian vector.
type Vector3 struct {
	X, Y, Z float64
}

// Add returns v + other.
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Negate returns -v.
func (v Vector3) Negate() Vector3 {
	return Vector3{-v.X, -v.Y, -v.Z}
}

// Scale returns v * f.
func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{v.X * f, v.Y * f, v.Z * f}
}

// Div returns v / f.
func (v Vector3) Div(f float64) Vector3 {
	return Vector3{v.X / f, v.Y / f, v.Z / f}
}

// Dot returns the dot product of v and other.
func (v Vector3) Dot(other Vector3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product of v and other.
func (v Vector3) Cross(other Vector3) Vector3 {
	return Vector3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Norm returns the Euclidean norm (modulo) of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// NormSq returns the squared Euclidean norm of v, avoiding the sqrt when
// only comparisons are needed.
func (v Vector3) NormSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Distance returns the Euclidean distance between v and other.
func (v Vector3) Distance(other Vector3) float64 {
	return v.Sub(other).Norm()
}

// Zero reports whether v is exactly the zero vector.
func (v Vector3) Zero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// WriteTo serializes v as three consecutive little-endian float64 values.
func (v Vector3) WriteTo(w io.Writer) (int64, error) {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(v.X))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(v.Y))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(v.Z))
	n, err := w.Write(buf[:])
	return int64(n), err
}

// ReadFrom deserializes v from three consecutive little-endian float64
// values, in the layout produced by WriteTo.
func (v *Vector3) ReadFrom(r io.Reader) (int64, error) {
	var buf [24]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return int64(n), err
	}
	v.X = math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8]))
	v.Y = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16]))
	v.Z = math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24]))
	return int64(n), nil
}
