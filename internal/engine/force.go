package engine

import "math"

// heatingThreshold is the temperature floor applied when two bodies
// pass within 10 radii of each other without colliding outright.
const heatingThreshold = 1000

// forceEvalSerial evaluates all pairwise forces once per pair,
// exploiting Newton's third law: the contribution computed for (i, j)
// is applied to both next[i] and next[j]. Pairs closer than the sum of
// their radii are registered as collisions instead of being force-
// evaluated.
//
// The heating condition is checked against curr_i's own radius on both
// sides of the pair (d < 10*radius_i for body i, d < 10*radius_j for
// body j), which is the serial path's condition and, per the resolved
// method-parity question, the one the parallel path also follows.
func (e *Engine) forceEvalSerial() {
	curr := e.gen(0)
	next := e.gen(1)
	n := len(curr)

	for i := 0; i < n; i++ {
		bi := curr[i]
		locI := bi.Location.Value()
		for j := i + 1; j < n; j++ {
			bj := curr[j]
			rba := bj.Location.Value().Sub(locI)
			d := rba.Norm()
			if d > bi.Radius+bj.Radius {
				r3 := d * d * d
				next[i].GravityAccel.Add(rba.Scale(bj.MassG / r3))
				next[j].GravityAccel.Add(rba.Negate().Scale(bi.MassG / r3))

				if d < 10*bi.Radius {
					next[i].Temperature = math.Max(bi.Temperature, heatingThreshold)
				}
				if d < 10*bj.Radius {
					next[j].Temperature = math.Max(bj.Temperature, heatingThreshold)
				}
			} else {
				e.pending.register(i, j)
			}
		}
	}
}

// forceEvalParallel evaluates, for every body i independently, the sum
// of contributions from every other body j. Unlike the serial path it
// does not exploit Newton's third law, since doing so would require
// synchronizing writes to next[j] from a task that owns index i. Each
// worker task owns a disjoint range of i, so accelerations never race;
// collision registration goes through the mutex-guarded pending
// registry since both sides of a pair may discover it independently.
func (e *Engine) forceEvalParallel() {
	curr := e.gen(0)
	next := e.gen(1)
	n := len(curr)

	e.pool.run(n, func(i int) {
		bi := curr[i]
		locI := bi.Location.Value()
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			bj := curr[j]
			rba := bj.Location.Value().Sub(locI)
			d := rba.Norm()
			if d > bi.Radius+bj.Radius {
				r3 := d * d * d
				next[i].GravityAccel.Add(rba.Scale(bj.MassG / r3))
				if d < 10*bi.Radius {
					next[i].Temperature = math.Max(bi.Temperature, heatingThreshold)
				}
			} else {
				e.pending.register(i, j)
			}
		}
	})
}
