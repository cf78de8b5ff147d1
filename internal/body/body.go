// Package body implements the per-object state carried by the gravity
// engine: mass, radius, temperature, and the compensated position/
// velocity/acceleration accumulators, along with CSV and binary
// (de)serialization. The gravity engine keeps four generations (a
// ring) of Body values per tracked object; every field here, including
// mass and temperature, is per-generation, since collision merges and
// the temperature heating rule both write generation-local values.
package body

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/sandeepkv93/gravity/internal/kahan"
	"github.com/sandeepkv93/gravity/internal/vector"
)

// GravitationalConstant is Newton's constant G, in m^3 kg^-1 s^-2.
const GravitationalConstant = 6.6743e-11

// csvPrecision is the number of significant decimal digits used when
// emitting floating point CSV fields, satisfying the "at least 17
// significant decimal digits" full-precision requirement.
const csvPrecision = 17

// CSVHeader is the exact header line that the engine's CSV loader
// requires and that callers write at the top of a fresh report file.
// ParseCSVRecord reads data rows in this column order; it does not
// itself see or check the header.
const CSVHeader = "iteration,epoch_millis,body_idx,label,mass,radius_km,temperature,location_x_km,location_y_km,location_z_km,velocity_x_kms,velocity_y_kms,velocity_z_kms"

// Body is one massive point body's state at one generation (logical
// time step) of the simulation.
type Body struct {
	Label       string
	Mass        float64 // kilograms
	MassG       float64 // cached Mass * GravitationalConstant
	Radius      float64 // meters
	Temperature float64 // kelvin

	Location     kahan.Accumulator[vector.Vector3] // meters, inertial frame
	Velocity     kahan.Accumulator[vector.Vector3] // meters/second
	GravityAccel kahan.Accumulator[vector.Vector3] // compensated sum of pairwise gravitational contributions this step
	Acceleration vector.Vector3                    // GravityAccel.Value(), latched by the integrator at the top of the step
}

// vec3Accumulator returns a fresh compensated accumulator over Vector3
// values, using vector.Vector3's own Add/Negate as the additive ops.
func vec3Accumulator() kahan.Accumulator[vector.Vector3] {
	return kahan.New(
		vector.Vector3{},
		func(a, b vector.Vector3) vector.Vector3 { return a.Add(b) },
		func(a vector.Vector3) vector.Vector3 { return a.Negate() },
	)
}

// Empty returns a Body with its accumulators constructed and zeroed,
// ready to be populated by ReadFrom or by direct field assignment.
func Empty() *Body {
	return &Body{
		Location:     vec3Accumulator(),
		Velocity:     vec3Accumulator(),
		GravityAccel: vec3Accumulator(),
	}
}

// New constructs a Body from catalogue/CSV-style units: mass in
// kilograms, radius in kilometers, temperature in kelvin, and
// position/velocity in kilometers and kilometers per second. Position,
// velocity, and radius are converted to SI (meters, meters per second)
// by multiplying by 1000; internal engine state is always SI.
func New(label string, massKg, radiusKm, temperatureK float64, xKm, yKm, zKm, vxKms, vyKms, vzKms float64) *Body {
	b := Empty()
	b.Label = label
	b.Mass = massKg
	b.Radius = radiusKm * 1000
	b.Temperature = temperatureK
	b.recomputeMassG()

	b.Location.SetRaw(vector.Vector3{X: xKm * 1000, Y: yKm * 1000, Z: zKm * 1000})
	b.Velocity.SetRaw(vector.Vector3{X: vxKms * 1000, Y: vyKms * 1000, Z: vzKms * 1000})
	return b
}

func (b *Body) recomputeMassG() {
	b.MassG = b.Mass * GravitationalConstant
}

// SetMass updates Mass and recomputes the cached MassG.
func (b *Body) SetMass(mass float64) {
	b.Mass = mass
	b.recomputeMassG()
}

// Copy returns an independent copy of b. Because Accumulator's fields
// are all value types (including its function fields, which are only
// ever read, never mutated, after construction), a shallow struct copy
// is a correct deep copy.
func (b *Body) Copy() *Body {
	cp := *b
	return &cp
}

// ZeroGravityAccel resets the gravity-acceleration accumulator to zero
// (value and compensation), as required before each step's force
// evaluation begins.
func (b *Body) ZeroGravityAccel() {
	b.GravityAccel = vec3Accumulator()
}

// LatchAcceleration copies the gravity-acceleration accumulator's
// current compensated value into Acceleration, per spec: "every
// integrator first sets n.acceleration = n.gravity_acceleration".
func (b *Body) LatchAcceleration() {
	b.Acceleration = b.GravityAccel.Value()
}

// MalformedRowError reports a CSV row that is missing a field or has an
// unparseable value.
type MalformedRowError struct {
	Field string
	Err   error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row: field %q: %v", e.Field, e.Err)
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

// ParseCSVRecord parses one CSV data row (in the column order of
// CSVHeader) into a Body, plus the row's epoch_millis value.
func ParseCSVRecord(record []string) (*Body, uint64, error) {
	const wantFields = 13
	if len(record) != wantFields {
		return nil, 0, &MalformedRowError{
			Field: "row",
			Err:   fmt.Errorf("expected %d fields, got %d", wantFields, len(record)),
		}
	}

	parseFloat := func(field, s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &MalformedRowError{Field: field, Err: err}
		}
		return v, nil
	}

	epochMillis, err := strconv.ParseUint(record[1], 10, 64)
	if err != nil {
		return nil, 0, &MalformedRowError{Field: "epoch_millis", Err: err}
	}

	label := record[3]

	mass, err := parseFloat("mass", record[4])
	if err != nil {
		return nil, 0, err
	}
	radiusKm, err := parseFloat("radius_km", record[5])
	if err != nil {
		return nil, 0, err
	}
	temperature, err := parseFloat("temperature", record[6])
	if err != nil {
		return nil, 0, err
	}
	xKm, err := parseFloat("location_x_km", record[7])
	if err != nil {
		return nil, 0, err
	}
	yKm, err := parseFloat("location_y_km", record[8])
	if err != nil {
		return nil, 0, err
	}
	zKm, err := parseFloat("location_z_km", record[9])
	if err != nil {
		return nil, 0, err
	}
	vxKms, err := parseFloat("velocity_x_kms", record[10])
	if err != nil {
		return nil, 0, err
	}
	vyKms, err := parseFloat("velocity_y_kms", record[11])
	if err != nil {
		return nil, 0, err
	}
	vzKms, err := parseFloat("velocity_z_kms", record[12])
	if err != nil {
		return nil, 0, err
	}

	b := New(label, mass, radiusKm, temperature, xKm, yKm, zKm, vxKms, vyKms, vzKms)
	return b, epochMillis, nil
}

// CSVRecord renders one CSV data row for b, with location and velocity
// given explicitly in SI meters / meters-per-second (callers subtract
// a report-centre body's state before calling, when configured). idx
// is the body's index in the current generation, emitted as
// body_idx.
func (b *Body) CSVRecord(iteration, epochMillis uint64, idx int, location, velocity vector.Vector3) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', csvPrecision, 64) }
	return []string{
		strconv.FormatUint(iteration, 10),
		strconv.FormatUint(epochMillis, 10),
		strconv.Itoa(idx),
		b.Label,
		f(b.Mass),
		f(b.Radius / 1000),
		f(b.Temperature),
		f(location.X / 1000),
		f(location.Y / 1000),
		f(location.Z / 1000),
		f(velocity.X / 1000),
		f(velocity.Y / 1000),
		f(velocity.Z / 1000),
	}
}

// WriteTo serializes b in the binary layout: position accumulator,
// velocity accumulator, gravity-acceleration accumulator, latched
// acceleration vector, radius, mass, temperature. Label is
// intentionally not serialized: per spec, loaded bodies come back with
// empty labels.
func (b *Body) WriteTo(w io.Writer) (int64, error) {
	var total int64

	writePair := func(acc kahan.Accumulator[vector.Vector3]) error {
		for _, v := range [2]vector.Vector3{acc.Value(), acc.Compensation()} {
			n, err := v.WriteTo(w)
			total += n
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := writePair(b.Location); err != nil {
		return total, err
	}
	if err := writePair(b.Velocity); err != nil {
		return total, err
	}
	if err := writePair(b.GravityAccel); err != nil {
		return total, err
	}

	n, err := b.Acceleration.WriteTo(w)
	total += n
	if err != nil {
		return total, err
	}

	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(b.Radius))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(b.Mass))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(b.Temperature))
	n2, err := w.Write(buf[:])
	total += int64(n2)
	return total, err
}

// ReadFrom deserializes a Body written by WriteTo. b must already have
// its accumulators constructed (via Empty or New); ReadFrom overwrites
// their value/compensation pairs in place, then recomputes MassG from
// the loaded mass.
func (b *Body) ReadFrom(r io.Reader) (int64, error) {
	var total int64

	readPair := func(acc *kahan.Accumulator[vector.Vector3]) error {
		var value, comp vector.Vector3
		n, err := value.ReadFrom(r)
		total += n
		if err != nil {
			return err
		}
		n, err = comp.ReadFrom(r)
		total += n
		if err != nil {
			return err
		}
		acc.SetState(value, comp)
		return nil
	}

	if err := readPair(&b.Location); err != nil {
		return total, err
	}
	if err := readPair(&b.Velocity); err != nil {
		return total, err
	}
	if err := readPair(&b.GravityAccel); err != nil {
		return total, err
	}

	n, err := b.Acceleration.ReadFrom(r)
	total += n
	if err != nil {
		return total, err
	}

	var buf [24]byte
	n3, err := io.ReadFull(r, buf[:])
	total += int64(n3)
	if err != nil {
		return total, err
	}
	b.Radius = math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8]))
	b.Mass = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16]))
	b.Temperature = math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24]))
	b.recomputeMassG()

	return total, nil
}
