// Package catalogue provides seed generators for engine.Engine: a
// literal solar-system snapshot at a fixed epoch, and a synthetic ring
// generator for stress-testing and demos, both grounded on the
// original C++ simulator's World::init_planets and
// World::populate_orbit.
package catalogue

import (
	"math"
	"math/rand"

	"github.com/sandeepkv93/gravity/internal/body"
	"github.com/sandeepkv93/gravity/internal/engine"
)

// SolarSystemEpochMillis is the Unix epoch, in milliseconds, that the
// solar-system catalogue's state vectors are valid for: 2021-12-01
// 00:00:00 UTC.
const SolarSystemEpochMillis = 1638316800 * 1000

type seedBody struct {
	label                        string
	massKg, radiusKm, temperature float64
	x, y, z                      float64
	vx, vy, vz                   float64
}

// solarSystemBodies are the Sun and its major planets and moons, with
// position (km) and velocity (km/s) state vectors relative to the
// solar system barycenter at SolarSystemEpochMillis, sourced from JPL
// Horizons.
var solarSystemBodies = []seedBody{
	{"The Sun", 1988500e24, 696000, 1000000, 0, 0, 0, 0, 0, 0},
	{"Mercury", 3.302e23, 2440, 400,
		-2.167664834454452e+07, -6.619159190648106e+07, -3.420692631296203e+06,
		3.650927987393379e+01, -1.273914346337067e+01, -4.389920191190015e+00},
	{"Venus", 48.685e23, 6051.84, 400,
		7.576313873684648e+07, 7.711607191532642e+07, -3.313487956947327e+06,
		-2.508851408159857e+01, 2.439292937054329e+01, 1.782524647980090e+00},
	{"Earth", 5.97219e24, 6371.01, 30,
		5.358615709453598e+07, 1.374511007334921e+08, -7.098000273063779e+03,
		-2.824425323200066e+01, 1.071888568481009e+01, 5.551504930916273e-04},
	{"Moon", 7.349e22, 1737.53, 30,
		5.324727782955997e+07, 1.373107538738163e+08, 1.427581423602998e+04,
		-2.778205246706115e+01, 9.758075795843698e+00, -7.964689569136452e-02},
	{"Mars", 6.4171e23, 3389.92, 30,
		-1.800625404850776e+08, -1.519509644922584e+08, 1.232371251878612e+06,
		1.653193518248757e+01, -1.644419258786372e+01, -7.501597892699268e-01},
	{"Phobos", 1.08e20, 12, 30,
		-1.800633484449605e+08, -1.519415763992660e+08, 1.233504578332104e+06,
		1.463815474957840e+01, -1.669734314209153e+01, 1.490280944102649e-01},
	{"Deimos", 1.80e20, 7, 30,
		-1.800725291760565e+08, -1.519306722879699e+08, 1.238569708517231e+06,
		1.544205807892980e+01, -1.711382987552074e+01, -3.136605973651667e-01},
	{"Jupiter", 189818.722e22, 71492, 30,
		6.838721286912214e+08, -3.024806468423285e+08, -1.404409810935293e+07,
		5.133912400306891e+00, 1.257833242624969e+01, -1.670642775002857e-01},
	{"Saturn", 5.6834e26, 58232, 30,
		1.024053765137041e+09, -1.075128773787984e+09, -2.206167213916075e+07,
		6.463717901383691e+00, 6.654665277163426e+00, -3.733248248209207e-01},
	{"Uranus", 86.813e24, 25362, 30,
		2.166402843059769e+09, 2.003850686154429e+09, -2.063057646324039e+07,
		-4.670082502937194e+00, 4.694611299968432e+00, 7.781814338959481e-02},
	{"Neptune", 102.409e24, 24624, 30,
		4.431140574776667e+09, -6.264926905311370e+08, -8.922589280170983e+07,
		7.301938467449688e-01, 5.427938915323065e+00, -1.284171598559747e-01},
	{"Pluto", 1.307e22, 1188.3, 30,
		2.249475791696351e+09, -4.628093902163340e+09, -1.551654004126823e+08,
		5.022668067623437e+00, 1.200137128287457e+00, -1.599130583011552e+00},
	{"Charon", 1.53e21, 606, 30,
		2.249461717304943e+09, -4.628102738753292e+09, -1.551550140308864e+08,
		5.057298851302190e+00, 1.342620937103221e+00, -1.430982763083136e+00},
}

// SolarSystem seeds e with the Sun and its major planets and moons at
// SolarSystemEpochMillis, then aligns the frame to zero net momentum
// (the original simulator's align_observers_frame_of_reference).
func SolarSystem(e *engine.Engine) {
	for _, sb := range solarSystemBodies {
		e.RegisterBody(body.New(sb.label, sb.massKg, sb.radiusKm, sb.temperature, sb.x, sb.y, sb.z, sb.vx, sb.vy, sb.vz))
	}
	e.AlignFrame()
}

// OrbitalVelocity returns the circular orbital speed, in meters per
// second, for a body of mass M (kg) orbiting at radius R (m).
func OrbitalVelocity(m, r float64) float64 {
	return math.Sqrt(body.GravitationalConstant * m / r)
}

// RingOptions configures Ring's synthetic orbit generator.
type RingOptions struct {
	// CentralMass is the mass, in kg, of an implicit central body used
	// only to compute circular orbital velocity; Ring does not itself
	// register a central body.
	CentralMass float64
	// NumBodies is how many bodies to place evenly around the ring.
	NumBodies int
	// BodyMass and BodyRadiusKm describe each ring body.
	BodyMass, BodyRadiusKm float64
	// OrbitRadiusKm is the ring's radius, in kilometers.
	OrbitRadiusKm float64
	// OrbitDirection is +1 for prograde, -1 for retrograde.
	OrbitDirection float64
	// MassVariation randomizes each body's mass by +/- MassVariation/2.
	MassVariation float64
	// LocationVariationRad randomizes each body's angular placement by
	// +/- LocationVariationRad/2.
	LocationVariationRad float64
	// Rand supplies randomness; if nil, a package-local source is used.
	Rand *rand.Rand
}

// Ring seeds e with NumBodies evenly spaced around a circular orbit at
// OrbitRadiusKm, each moving at the circular orbital velocity implied
// by CentralMass, with optional mass and placement jitter. It returns
// the total mass registered. Grounded on the original simulator's
// populate_orbit ring generator.
func Ring(e *engine.Engine, opts RingOptions) float64 {
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	orbitRadiusM := opts.OrbitRadiusKm * 1000
	v := OrbitalVelocity(opts.CentralMass, orbitRadiusM)

	jitter := func(spread float64) float64 {
		if spread == 0 {
			return 0
		}
		return r.Float64()*spread - spread/2
	}

	var totalMass float64
	for i := 0; i < opts.NumBodies; i++ {
		mass := opts.BodyMass + jitter(opts.MassVariation)
		totalMass += mass

		locAngle := 2*math.Pi/float64(opts.NumBodies)*float64(i) + jitter(opts.LocationVariationRad)
		velAngle := locAngle + math.Pi/2

		xKm := opts.OrbitRadiusKm * math.Cos(locAngle)
		yKm := opts.OrbitRadiusKm * math.Sin(locAngle)
		vxKms := opts.OrbitDirection * (v / 1000) * math.Cos(velAngle)
		vyKms := opts.OrbitDirection * (v / 1000) * math.Sin(velAngle)

		e.RegisterBody(body.New("", mass, opts.BodyRadiusKm, 300, xKm, yKm, 0, vxKms, vyKms, 0))
	}
	return totalMass
}
