package engine

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sandeepkv93/gravity/internal/body"
)

// mergedTemperatureFloor is the minimum temperature assigned to a
// merged body, regardless of its constituents' temperatures.
const mergedTemperatureFloor = 3000

// collisionRegistry tracks pending collisions as a list of disjoint
// index sets, guarded by a mutex since both the parallel force path
// and, harmlessly, the serial one may register into it. register
// grows or creates a single set per call, which on its own can leave
// two sets that both touch a third body (a "triangle") unmerged;
// reconcile closes that gap with a fixed-point union pass run once per
// step, before collisions are processed.
type collisionRegistry struct {
	mu   sync.Mutex
	sets [][]int
}

func newCollisionRegistry() *collisionRegistry {
	return &collisionRegistry{}
}

func (r *collisionRegistry) register(i, j int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for idx, s := range r.sets {
		if containsInt(s, i) || containsInt(s, j) {
			r.sets[idx] = addUnique(addUnique(s, i), j)
			return
		}
	}
	r.sets = append(r.sets, []int{i, j})
}

// reconcile repeatedly merges any two sets that share a common index,
// until no more merges are possible.
func (r *collisionRegistry) reconcile() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		merged := false
		for a := 0; a < len(r.sets); a++ {
			for b := a + 1; b < len(r.sets); b++ {
				if intersects(r.sets[a], r.sets[b]) {
					r.sets[a] = unionInts(r.sets[a], r.sets[b])
					r.sets = append(r.sets[:b], r.sets[b+1:]...)
					merged = true
					break
				}
			}
			if merged {
				break
			}
		}
		if !merged {
			return
		}
	}
}

func (r *collisionRegistry) clusters() [][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]int, len(r.sets))
	copy(out, r.sets)
	return out
}

func (r *collisionRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = nil
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func addUnique(s []int, v int) []int {
	if containsInt(s, v) {
		return s
	}
	return append(s, v)
}

func intersects(a, b []int) bool {
	for _, x := range a {
		if containsInt(b, x) {
			return true
		}
	}
	return false
}

func unionInts(a, b []int) []int {
	out := append([]int(nil), a...)
	for _, v := range b {
		out = addUnique(out, v)
	}
	return out
}

// mergeCollisions reconciles the pending-collision registry, then
// merges every resulting cluster of two or more bodies into one, using
// the freshest (just-integrated) generation as the source of the
// merge. Mass-weighted position, velocity, and acceleration sums use
// Kahan compensation; the merged body is written into the dst slot
// (the cluster's smallest index) of all four generations, and every
// other member is removed from all four generations.
func (e *Engine) mergeCollisions() {
	e.pending.reconcile()
	clusters := e.pending.clusters()
	e.pending.clear()
	if len(clusters) == 0 {
		return
	}

	next := e.gen(1)
	var toRemove []int

	for _, cluster := range clusters {
		if len(cluster) < 2 {
			continue
		}
		sorted := append([]int(nil), cluster...)
		sort.Ints(sorted)
		dst := sorted[0]

		merged := e.mergeCluster(next, sorted)
		for k := 0; k < 4; k++ {
			e.generations[k][dst] = merged.Copy()
		}
		toRemove = append(toRemove, sorted[1:]...)
	}

	e.removeIndices(toRemove)
}

// mergeCluster computes the merged body for a set of colliding indices
// (read from source, the just-integrated next generation): mass sums
// linearly, position/velocity/acceleration are mass-weighted Kahan
// sums divided by total mass, radius conserves volume (cube root of
// the summed cubes), temperature takes the hottest member (floored at
// mergedTemperatureFloor), and the label concatenates each member's
// label (or its index, if unlabeled) with "+".
func (e *Engine) mergeCluster(source []*body.Body, indices []int) *body.Body {
	var mass float64
	var radiusCubed float64
	temperature := float64(mergedTemperatureFloor)
	locAcc := kahanVec3()
	velAcc := kahanVec3()
	accAcc := kahanVec3()
	labels := make([]string, 0, len(indices))

	for _, idx := range indices {
		b := source[idx]
		mass += b.Mass
		radiusCubed += b.Radius * b.Radius * b.Radius
		temperature = math.Max(temperature, b.Temperature)

		locAcc.Add(b.Location.Value().Scale(b.Mass))
		velAcc.Add(b.Velocity.Value().Scale(b.Mass))
		accAcc.Add(b.Acceleration.Scale(b.Mass))

		label := b.Label
		if label == "" {
			label = strconv.Itoa(idx)
		}
		labels = append(labels, label)
	}

	merged := body.Empty()
	merged.SetMass(mass)
	merged.Radius = math.Cbrt(radiusCubed)
	merged.Temperature = temperature
	merged.Label = strings.Join(labels, "+")
	if mass != 0 {
		merged.Location.SetRaw(locAcc.Value().Div(mass))
		merged.Velocity.SetRaw(velAcc.Value().Div(mass))
		merged.Acceleration = accAcc.Value().Div(mass)
	}
	return merged
}
