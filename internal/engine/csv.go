package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/sandeepkv93/gravity/internal/body"
	"github.com/sandeepkv93/gravity/internal/vector"
)

// EpochInconsistencyError is returned by LoadFromCSV when the seed
// file's rows disagree on epoch_millis. It is non-fatal: every row was
// still parsed and registered, using the last row's epoch_millis as
// the simulation's start time. Callers should log it and continue,
// rather than aborting the load.
type EpochInconsistencyError struct {
	EpochMillis uint64
}

func (e *EpochInconsistencyError) Error() string {
	return fmt.Sprintf("gravity: csv rows disagree on epoch_millis; using last value %d", e.EpochMillis)
}

// LoadFromCSV registers one body per data row of r, which must begin
// with the exact header body.CSVHeader. It sets the engine's
// simulation start epoch to the last row's epoch_millis. If rows
// disagree on epoch_millis, the load still completes and the returned
// error is an *EpochInconsistencyError rather than an abort signal.
// Every row is parsed into a scratch slice before anything is
// registered, so a malformed row or a csv syntax error anywhere in the
// file leaves e in its pre-load state rather than partially seeded.
func (e *Engine) LoadFromCSV(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("gravity: reading csv header: %w", err)
	}
	if strings.Join(header, ",") != body.CSVHeader {
		return fmt.Errorf("gravity: unexpected csv header: %q", strings.Join(header, ","))
	}

	var bodies []*body.Body
	var lastEpoch uint64
	var epochSet, epochMismatch bool

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("gravity: reading csv row: %w", err)
		}
		b, epochMillis, err := body.ParseCSVRecord(record)
		if err != nil {
			return err
		}
		if epochSet && epochMillis != lastEpoch {
			epochMismatch = true
		}
		lastEpoch = epochMillis
		epochSet = true
		bodies = append(bodies, b)
	}

	for _, b := range bodies {
		e.RegisterBody(b)
	}
	if epochSet {
		e.simulationStartEpochMillis = lastEpoch
	}
	if epochMismatch {
		return &EpochInconsistencyError{EpochMillis: lastEpoch}
	}
	return nil
}

// reportWriter wraps a csv.Writer and tracks whether the header has
// been written yet, so it happens exactly once per engine lifetime
// regardless of how many report rows follow.
type reportWriter struct {
	csv           *csv.Writer
	headerWritten bool
}

func newReportWriter(w io.Writer) *reportWriter {
	return &reportWriter{csv: csv.NewWriter(w)}
}

// emitReport appends one CSV row per body in the current generation
// (gen(0), which after the increment in Iterate represents the
// simulation's new current state) to the configured output, applying
// the report-centre subtraction if one is configured.
func (e *Engine) emitReport() error {
	if e.output == nil {
		return nil
	}
	if !e.output.headerWritten {
		if err := e.output.csv.Write(strings.Split(body.CSVHeader, ",")); err != nil {
			return err
		}
		e.output.headerWritten = true
	}

	bodies := e.gen(0)
	epochMillis := epochMillisAt(e.simulationStartEpochMillis, e.currentIteration, e.timeDelta)

	var centreLoc, centreVel vector.Vector3
	if e.reportCentre != "" {
		for _, b := range bodies {
			if b.Label == e.reportCentre {
				centreLoc = b.Location.Value()
				centreVel = b.Velocity.Value()
				break
			}
		}
	}

	for idx, b := range bodies {
		loc := b.Location.Value().Sub(centreLoc)
		vel := b.Velocity.Value().Sub(centreVel)
		record := b.CSVRecord(e.currentIteration, epochMillis, idx, loc, vel)
		if err := e.output.csv.Write(record); err != nil {
			return err
		}
	}
	e.output.csv.Flush()
	return e.output.csv.Error()
}
