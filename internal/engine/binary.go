package engine

import (
	"encoding/binary"
	"io"

	"github.com/sandeepkv93/gravity/internal/body"
)

// generationOffsets is the order generations are written in and read
// back in: oldest history first, freshest last. It is independent of
// how current_iteration happens to map onto physical ring slots at
// save time, so a save/load round trip is correct regardless of when
// it happens.
var generationOffsets = [4]int{-2, -1, 0, 1}

// Save writes the engine's full state: current_iteration,
// simulation_start_epoch_millis, time_delta, body_count, then each of
// the four generations, oldest to newest, one body at a time via
// body.Body.WriteTo.
func (e *Engine) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, e.currentIteration); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.simulationStartEpochMillis); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.timeDelta); err != nil {
		return err
	}
	count := uint32(len(e.generations[0]))
	if err := binary.Write(w, binary.LittleEndian, count); err != nil {
		return err
	}

	for _, offset := range generationOffsets {
		for _, b := range e.gen(offset) {
			if _, err := b.WriteTo(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load replaces the engine's entire state with what was written by
// Save. It is the only operation that clears prior state: on success,
// every previously registered body and any pending (unreconciled)
// collisions are gone.
func (e *Engine) Load(r io.Reader) error {
	var iteration, epochMillis uint64
	var dt float64
	var count uint32

	if err := binary.Read(r, binary.LittleEndian, &iteration); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &epochMillis); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &dt); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return err
	}

	e.currentIteration = iteration
	e.simulationStartEpochMillis = epochMillis
	e.SetTimeDelta(dt)

	var loaded [4][]*body.Body
	for _, offset := range generationOffsets {
		list := make([]*body.Body, count)
		for i := range list {
			b := body.Empty()
			if _, err := b.ReadFrom(r); err != nil {
				return err
			}
			list[i] = b
		}
		loaded[e.genIndex(offset)] = list
	}
	e.generations = loaded
	e.pending.clear()
	return nil
}
