package engine

import "github.com/sandeepkv93/gravity/internal/vector"

// integrateAll advances every body's velocity and then position, using
// the configured Method's acceleration/velocity history coefficients.
// It runs after force evaluation (and, on step 0, after bootstrap) has
// populated next_gen's acceleration and left curr_gen/gen(-1)/gen(-2)
// with usable history.
func (e *Engine) integrateAll() {
	dt := e.timeDelta
	next := e.gen(1)
	curr := e.gen(0)
	p0 := e.gen(-1)
	p1 := e.gen(-2)
	kahan := e.integrator.Kahan()

	for i, n := range next {
		n.LatchAcceleration()
		c, o0, o1 := curr[i], p0[i], p1[i]

		dv := e.velocityDelta(n.Acceleration, c.Acceleration, o0.Acceleration, o1.Acceleration, dt)
		n.Velocity = c.Velocity
		if kahan {
			n.Velocity.Add(dv)
		} else {
			n.Velocity.SetRaw(c.Velocity.Value().Add(dv))
		}

		dx := e.velocityDelta(n.Velocity.Value(), c.Velocity.Value(), o0.Velocity.Value(), o1.Velocity.Value(), dt)
		n.Location = c.Location
		if kahan {
			n.Location.Add(dx)
		} else {
			n.Location.SetRaw(c.Location.Value().Add(dx))
		}
	}
}

// velocityDelta computes one step's increment (either a velocity
// increment from accelerations, or a position increment from
// velocities — the formulas are identical in shape) using the
// configured method's history coefficients.
func (e *Engine) velocityDelta(n, c, p0, p1 vector.Vector3, dt float64) vector.Vector3 {
	switch e.integrator {
	case Linear, LinearKahan:
		return n.Scale(dt)
	case Quadratic, QuadraticKahan:
		return n.Scale(25).Sub(c.Scale(2)).Add(p0).Scale(e.twentyFourthDt)
	case Cubic, CubicKahan:
		return n.Scale(26).Sub(c.Scale(5)).Add(p0.Scale(4)).Sub(p1).Scale(e.twentyFourthDt)
	default:
		return n.Scale(dt)
	}
}
