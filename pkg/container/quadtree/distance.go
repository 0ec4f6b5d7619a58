package quadtree

import "math"

// Distance is the best squared distance found so far by one nearest
// neighbour query. Every level of the recursion shares the same cell, so a
// candidate found in one subtree tightens pruning in all the others.
// A Distance must not be shared between queries.
//
// The initial limit is inclusive: a leaf exactly at the search radius
// matches. Once a candidate is held only strictly closer leaves replace it,
// so ties go to the first leaf found.
type Distance struct {
	value float64
	found bool
}

// NewDistance returns a cell bounded by maxDistanceSqr. Pass math.Inf(1)
// for an unbounded search.
func NewDistance(maxDistanceSqr float64) *Distance {
	return &Distance{value: maxDistanceSqr}
}

func unboundedDistance() *Distance {
	return NewDistance(math.Inf(1))
}

func (d *Distance) Value() float64 {
	return d.value
}

// Improve stores candidate if it beats the current value.
func (d *Distance) Improve(candidate float64) bool {
	if candidate < d.value || (!d.found && candidate == d.value) {
		d.value = candidate
		d.found = true
		return true
	}
	return false
}

// Prunes reports whether a subtree whose closest possible leaf is at bound
// can be skipped.
func (d *Distance) Prunes(bound float64) bool {
	if d.found {
		return bound >= d.value
	}
	return bound > d.value
}
