package catalogue

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/gravity/internal/engine"
)

func TestSolarSystemRegistersAllBodies(t *testing.T) {
	e := engine.New(60, engine.CubicKahan, 0, 0)
	SolarSystem(e)
	assert.Equal(t, len(solarSystemBodies), e.BodyCount())

	stats := e.Statistics()
	// Absolute momentum terms here run ~1e31 kg*m/s; floating-point
	// rounding across that many additions leaves residual noise many
	// orders below the unaligned total, but far above literal zero.
	assert.InDelta(t, 0, stats.NetMomentum.Norm(), 1e18, "AlignFrame should zero net momentum")
}

func TestRingPlacesBodiesOnCircle(t *testing.T) {
	e := engine.New(1, engine.Linear, 0, 0)
	opts := RingOptions{
		CentralMass:    1.989e30,
		NumBodies:      8,
		BodyMass:       1e10,
		BodyRadiusKm:   1,
		OrbitRadiusKm:  1.5e8,
		OrbitDirection: 1,
		Rand:           rand.New(rand.NewSource(42)),
	}
	total := Ring(e, opts)

	require.Equal(t, opts.NumBodies, e.BodyCount())
	assert.InDelta(t, float64(opts.NumBodies)*opts.BodyMass, total, 1e-6)

	for _, b := range e.Bodies() {
		loc := b.Location.Value()
		dist := loc.Norm()
		assert.InEpsilon(t, opts.OrbitRadiusKm*1000, dist, 1e-9)
	}
}

func TestOrbitalVelocityMatchesKeplerFormula(t *testing.T) {
	v := OrbitalVelocity(1.989e30, 1.496e11)
	assert.InDelta(t, 29785, v, 50) // Earth's approximate orbital speed, m/s
}
