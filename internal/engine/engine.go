// Package engine implements the gravity simulation core: the
// four-generation body ring, pairwise force evaluation (serial and
// work-stealing parallel), the explicit multi-step integrators,
// collision merging, escape pruning, frame alignment, and CSV/binary
// I/O of simulation state.
package engine

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/sandeepkv93/gravity/internal/body"
	"github.com/sandeepkv93/gravity/internal/vector"
)

// ForcePath identifies which force-evaluation strategy a step used.
type ForcePath int

const (
	Serial ForcePath = iota
	Parallel
)

func (p ForcePath) String() string {
	if p == Parallel {
		return "parallel"
	}
	return "serial"
}

const (
	// astronomicalUnit in meters.
	astronomicalUnit = 1.495978707e11
	// escapeDistance is the radius, from the origin, beyond which a body
	// is pruned from the simulation.
	escapeDistance = 10000 * astronomicalUnit
	// escapePruneInterval is how often, in iterations, escape pruning runs.
	escapePruneInterval = 16384
	// parallelEligible is the minimum body count at which the parallel
	// force path is ever considered; below it the serial path always wins.
	parallelEligible = 50
	// profileWindow is the number of iterations between path re-evaluations.
	profileWindow = 8192
	// profileServeSamples is how many iterations, at the start of each
	// profileWindow, are spent measuring the serial path.
	profileServeSamples = 8
	// profileTotalSamples is profileServeSamples plus the following
	// iterations spent measuring the parallel path.
	profileTotalSamples = 2 * profileServeSamples
)

// Engine holds the full simulation state: the four-generation body
// ring, the pending-collision registry, and the timekeeping and
// reporting configuration needed to advance and observe it.
type Engine struct {
	generations [4][]*body.Body

	currentIteration           uint64
	simulationStartEpochMillis uint64

	timeDelta      float64
	halfDt         float64
	twelfthDt      float64
	twentyFourthDt float64

	integrator Method

	reportEvery   uint64
	maxIterations uint64
	reportCentre  string

	pending *collisionRegistry
	pool    *forcePool

	preferredPath ForcePath
	stTicks       time.Duration
	mtTicks       time.Duration

	output *reportWriter
}

// New constructs an empty Engine (no bodies registered) with the given
// integration step and multi-step method. reportEvery == 0 disables
// periodic reporting (only the final row, at maxIterations, is
// emitted); maxIterations == 0 means run without an iteration cap.
func New(timeDelta float64, integrator Method, reportEvery, maxIterations uint64) *Engine {
	e := &Engine{
		integrator:    integrator,
		reportEvery:   reportEvery,
		maxIterations: maxIterations,
		pending:       newCollisionRegistry(),
	}
	e.SetTimeDelta(timeDelta)
	e.SetWorkers(1)
	return e
}

// SetTimeDelta updates the integration step and its cached fractions.
func (e *Engine) SetTimeDelta(dt float64) {
	e.timeDelta = dt
	e.halfDt = dt / 2
	e.twelfthDt = dt / 12
	e.twentyFourthDt = dt / 24
}

// TimeDelta returns the configured integration step, in seconds.
func (e *Engine) TimeDelta() float64 { return e.timeDelta }

// SetWorkers sizes the work-stealing pool used by the parallel force
// path. It is safe to call before any Iterate call; changing it
// mid-run takes effect on the next parallel step.
func (e *Engine) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	e.pool = newForcePool(n)
}

// SetReportCentre names the body label whose position and velocity
// are subtracted from every body's reported state, re-centering
// reports on that body's frame. An empty string (the default) reports
// in the simulation's inertial frame.
func (e *Engine) SetReportCentre(label string) { e.reportCentre = label }

// SetOutput directs periodic CSV reports at w. Passing nil disables
// reporting. The CSV header is written once, before the first row.
func (e *Engine) SetOutput(w io.Writer) {
	if w == nil {
		e.output = nil
		return
	}
	e.output = newReportWriter(w)
}

// CurrentIteration returns the number of completed steps.
func (e *Engine) CurrentIteration() uint64 { return e.currentIteration }

// CurrentEpochMillis returns the simulated wall-clock time of the
// current generation, derived from the seed epoch plus elapsed
// simulated time.
func (e *Engine) CurrentEpochMillis() uint64 {
	return epochMillisAt(e.simulationStartEpochMillis, e.currentIteration, e.timeDelta)
}

// epochMillisAt rounds current_iteration * time_delta * 1000 to the
// nearest millisecond rather than truncating, so CurrentEpochMillis and
// emitReport's csv epoch_millis column agree for the same iteration.
func epochMillisAt(startEpochMillis, iteration uint64, timeDelta float64) uint64 {
	return startEpochMillis + uint64(math.Round(float64(iteration)*timeDelta*1000))
}

// MaxIterations returns the configured iteration cap (0 means uncapped).
func (e *Engine) MaxIterations() uint64 { return e.maxIterations }

// BodyCount returns the number of tracked bodies.
func (e *Engine) BodyCount() int { return len(e.generations[0]) }

// Bodies returns independent copies of the current generation's
// bodies, safe for a caller (a renderer, a telemetry publisher) to
// read without racing the next Iterate call.
func (e *Engine) Bodies() []*body.Body {
	curr := e.gen(0)
	out := make([]*body.Body, len(curr))
	for i, b := range curr {
		out[i] = b.Copy()
	}
	return out
}

// genIndex maps a logical offset (-2, -1, 0, or +1, relative to the
// generation currently being produced) to a physical ring slot.
func (e *Engine) genIndex(offset int) int {
	return int((e.currentIteration + uint64(offset+4)) % 4)
}

// gen returns the generation at the given logical offset. The
// returned slice shares the backing array with e.generations, so
// element assignment through it mutates engine state.
func (e *Engine) gen(offset int) []*body.Body {
	return e.generations[e.genIndex(offset)]
}

// RegisterBody appends b to every generation, giving each an
// independent copy so later per-generation mutation (integration,
// merging, heating) cannot alias across generations.
func (e *Engine) RegisterBody(b *body.Body) {
	for k := 0; k < 4; k++ {
		e.generations[k] = append(e.generations[k], b.Copy())
	}
}

// GenerationsSizeMismatch is panicked by checkInvariant if the four
// generation rings ever diverge in length, which would indicate a bug
// in registration, merging, or pruning rather than a recoverable
// runtime condition.
type GenerationsSizeMismatch struct {
	Lengths [4]int
}

func (e *GenerationsSizeMismatch) Error() string {
	return fmt.Sprintf("gravity: generations size mismatch: %v", e.Lengths)
}

func (e *Engine) checkInvariant() {
	var lengths [4]int
	for k := range e.generations {
		lengths[k] = len(e.generations[k])
	}
	for k := 1; k < 4; k++ {
		if lengths[k] != lengths[0] {
			panic(&GenerationsSizeMismatch{Lengths: lengths})
		}
	}
}

// removeIndices deletes the given body indices (in any order) from
// all four generations, keeping them aligned. dst indices already
// holding merged results are never included by callers.
func (e *Engine) removeIndices(indices []int) {
	if len(indices) == 0 {
		return
	}
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for k := 0; k < 4; k++ {
		g := e.generations[k]
		for _, idx := range sorted {
			g = append(g[:idx], g[idx+1:]...)
		}
		e.generations[k] = g
	}
}

// Iterate advances the simulation by one step and reports whether the
// run should continue (false once maxIterations, if nonzero, has been
// reached).
func (e *Engine) Iterate() (bool, error) {
	e.checkInvariant()

	for _, b := range e.gen(1) {
		b.ZeroGravityAccel()
	}

	path := e.selectForcePath()
	start := time.Now()
	switch path {
	case Parallel:
		e.forceEvalParallel()
	default:
		e.forceEvalSerial()
	}
	e.recordProfileSample(path, time.Since(start))

	if e.currentIteration == 0 {
		e.bootstrap()
	}

	e.integrateAll()

	e.mergeCollisions()

	if e.currentIteration%escapePruneInterval == 0 {
		e.pruneEscapes()
	}

	e.checkInvariant()
	e.currentIteration++

	shouldReport := e.currentIteration == e.maxIterations
	if e.reportEvery != 0 && e.currentIteration%e.reportEvery == 0 {
		shouldReport = true
	}
	if shouldReport {
		if err := e.emitReport(); err != nil {
			return false, err
		}
	}

	if e.maxIterations == 0 {
		return true, nil
	}
	return e.currentIteration < e.maxIterations, nil
}

// bootstrap copies next_gen's pre-integration state (freshly computed
// acceleration, latched into Acceleration first; unchanged position and
// velocity) into the three prior
// generation slots, so the multi-step formulas see consistent history
// on the very first step instead of garbage. It runs only at
// current_iteration == 0, after force evaluation and before
// integration.
func (e *Engine) bootstrap() {
	next := e.gen(1)
	curr := e.gen(0)
	p0 := e.gen(-1)
	p1 := e.gen(-2)
	for i, nb := range next {
		nb.LatchAcceleration()
		snap := nb.Copy()
		curr[i] = snap.Copy()
		p0[i] = snap.Copy()
		p1[i] = snap.Copy()
	}
}

// selectForcePath decides whether this step's force evaluation runs
// serially or on the parallel pool. Step 0 always runs serial
// (bootstrap invariant); below parallelEligible bodies the serial path
// always wins; otherwise the choice comes from the running profile.
func (e *Engine) selectForcePath() ForcePath {
	if e.currentIteration == 0 {
		return Serial
	}
	n := len(e.gen(0))
	if n < parallelEligible {
		return Serial
	}
	phase := e.currentIteration % profileWindow
	switch {
	case phase < profileServeSamples:
		return Serial
	case phase < profileTotalSamples:
		return Parallel
	default:
		return e.preferredPath
	}
}

// recordProfileSample accumulates the elapsed force-evaluation cost
// into the appropriate profiling bucket, and decides the preferred
// path once a full serial+parallel sample window has been collected.
func (e *Engine) recordProfileSample(path ForcePath, elapsed time.Duration) {
	if e.currentIteration == 0 || len(e.gen(0)) < parallelEligible {
		return
	}
	phase := e.currentIteration % profileWindow
	switch {
	case phase < profileServeSamples:
		e.stTicks += elapsed
	case phase < profileTotalSamples:
		e.mtTicks += elapsed
	default:
		return
	}
	if phase == profileTotalSamples-1 {
		if e.stTicks <= e.mtTicks {
			e.preferredPath = Serial
		} else {
			e.preferredPath = Parallel
		}
		e.stTicks = 0
		e.mtTicks = 0
	}
}

// AlignFrame recenters the simulation on its own barycenter and zeroes
// its net momentum: it subtracts the center-of-mass position from
// every body's location and the mass-weighted mean velocity from every
// body's velocity, across all four generations. It is idempotent up to
// floating-point rounding: a second call in a row finds only the
// rounding residue left by the first and shifts every body by that
// residue (or returns early if the residue is exactly zero).
func (e *Engine) AlignFrame() {
	bodies := e.gen(0)
	if len(bodies) == 0 {
		return
	}

	var mass float64
	locAcc := kahanVec3()
	velAcc := kahanVec3()
	for _, b := range bodies {
		mass += b.Mass
		locAcc.Add(b.Location.Value().Scale(b.Mass))
		velAcc.Add(b.Velocity.Value().Scale(b.Mass))
	}
	if mass == 0 {
		return
	}
	centreLoc := locAcc.Value().Div(mass)
	centreVel := velAcc.Value().Div(mass)
	if centreLoc.Zero() && centreVel.Zero() {
		return
	}

	for k := 0; k < 4; k++ {
		for _, b := range e.generations[k] {
			b.Location.SetRaw(b.Location.Value().Sub(centreLoc))
			b.Velocity.SetRaw(b.Velocity.Value().Sub(centreVel))
		}
	}
}

// Statistics summarizes the current generation: total mass, center of
// mass, net momentum, kinetic and potential energy, and the min/max/
// average inter-body distance. It mirrors
// parallelnbody.NBodySystem.CalculateStatistics and is intended for
// logging, telemetry, and tests, not for the physics itself.
type Statistics struct {
	BodyCount       int
	TotalMass       float64
	CenterOfMass    vector.Vector3
	NetMomentum     vector.Vector3
	KineticEnergy   float64
	PotentialEnergy float64
	TotalEnergy     float64
	MinDistance     float64
	MaxDistance     float64
	AverageDistance float64
}

func (e *Engine) Statistics() Statistics {
	bodies := e.gen(0)
	var stats Statistics
	stats.BodyCount = len(bodies)

	locAcc := kahanVec3()
	momAcc := kahanVec3()
	for _, b := range bodies {
		stats.TotalMass += b.Mass
		locAcc.Add(b.Location.Value().Scale(b.Mass))
		v := b.Velocity.Value()
		momAcc.Add(v.Scale(b.Mass))
		stats.KineticEnergy += 0.5 * b.Mass * v.NormSq()
	}
	if stats.TotalMass != 0 {
		stats.CenterOfMass = locAcc.Value().Div(stats.TotalMass)
	}
	stats.NetMomentum = momAcc.Value()

	minDist := math.Inf(1)
	maxDist := 0.0
	totalDist := 0.0
	pairs := 0
	for i := 0; i < len(bodies); i++ {
		locI := bodies[i].Location.Value()
		for j := i + 1; j < len(bodies); j++ {
			d := bodies[j].Location.Value().Sub(locI).Norm()
			if d < minDist {
				minDist = d
			}
			if d > maxDist {
				maxDist = d
			}
			totalDist += d
			pairs++
			stats.PotentialEnergy -= bodies[i].MassG * bodies[j].Mass / d
		}
	}
	if pairs > 0 {
		stats.MinDistance = minDist
		stats.MaxDistance = maxDist
		stats.AverageDistance = totalDist / float64(pairs)
	}
	stats.TotalEnergy = stats.KineticEnergy + stats.PotentialEnergy
	return stats
}
