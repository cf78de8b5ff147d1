// Package kahan implements a generic Kahan-style compensated summation
// accumulator. It is deliberately generic over the additive value being
// summed, per the operations supplied to New. The gravity engine
// instantiates it for vector sums (position, velocity, gravitational
// acceleration); its scalar mass and volume sums are plain float64
// additions.
package kahan

// Accumulator holds a running compensated sum of values of type T.
// Update with input a computes:
//
//	y = a - compensation
//	t = value + y
//	compensation = (t - value) - y
//	value = t
//
// The compensation field carries the low-order bits lost in prior
// additions, bounding the error of Value() independently of how many
// updates have been applied (Kahan summation). Subtraction is
// implemented as addition of the negation, so only Add and Negate need
// be supplied for T.
type Accumulator[T any] struct {
	value        T
	compensation T
	add          func(a, b T) T
	negate       func(a T) T
}

// New creates an Accumulator seeded at zero (the additive identity for
// T), using add and negate to perform the compensated summation.
func New[T any](zero T, add func(a, b T) T, negate func(a T) T) Accumulator[T] {
	return Accumulator[T]{value: zero, compensation: zero, add: add, negate: negate}
}

func (a *Accumulator[T]) sub(x, y T) T {
	return a.add(x, a.negate(y))
}

// Add updates the accumulator with input, using compensated summation.
func (a *Accumulator[T]) Add(input T) {
	y := a.sub(input, a.compensation)
	t := a.add(a.value, y)
	a.compensation = a.sub(a.sub(t, a.value), y)
	a.value = t
}

// Sub updates the accumulator with the negation of input.
func (a *Accumulator[T]) Sub(input T) {
	a.Add(a.negate(input))
}

// Value returns the current compensated sum.
func (a *Accumulator[T]) Value() T {
	return a.value
}

// Compensation returns the current low-order-bit compensation term.
func (a *Accumulator[T]) Compensation() T {
	return a.compensation
}

// SetRaw overwrites value directly, bypassing compensated summation.
// Used by the non-Kahan integrator variants, which per spec must write
// through to the raw value without updating the compensation term.
func (a *Accumulator[T]) SetRaw(value T) {
	a.value = value
}

// SetState restores both the value and compensation fields, as used
// when deserializing a persisted accumulator.
func (a *Accumulator[T]) SetState(value, compensation T) {
	a.value = value
	a.compensation = compensation
}
