/*
 * Copyright 2020 Dennis Kuhnert
 * Copyright 2020 Ivanov Nikita
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

// Package quadtree implements a point-region quadtree.
//
// A Node starts as a bucket of leaves. When the bucket grows past maxItems it
// splits its rectangle into four quadrants and becomes a branch. A branch
// never turns back into a bucket unless Compact is called.
//
// A Node is not safe for concurrent use.
package quadtree

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-sod/geoindex/pkg/container/pqueue"
)

// MaxBucketItems is the sanity ceiling for a bucket of coincident points.
// Reaching it means the coincident guard is broken.
const MaxBucketItems = 1 << 24

var (
	ErrInvalidBounds   = errors.New("invalid bounds")
	ErrInvalidCapacity = errors.New("max items must be positive")
)

type Option func(*policy)

// WithMinSize stops subdivision of cells whose height and width are both at
// or below size. Zero means no floor. Buckets of floored cells grow without
// a ceiling.
func WithMinSize(size float64) Option {
	return func(p *policy) {
		p.minSize = size
	}
}

type policy struct {
	maxItems int
	minSize  float64
}

// state is either *bucket[T] or *branch[T].
type state[T comparable] interface {
	isState()
}

type bucket[T comparable] struct {
	leaves []Leaf[T]
	// samePoint is true while every leaf sits on refLat/refLon.
	samePoint      bool
	refLat, refLon float64
}

func (*bucket[T]) isState() {}

func (b *bucket[T]) add(leaf Leaf[T]) {
	if len(b.leaves) == 0 {
		b.samePoint = true
		b.refLat, b.refLon = leaf.Lat, leaf.Lon
	} else if leaf.Lat != b.refLat || leaf.Lon != b.refLon {
		b.samePoint = false
	}
	b.leaves = append(b.leaves, leaf)
}

type branch[T comparable] struct {
	children [4]*Node[T]
}

func (*branch[T]) isState() {}

// childFor returns the first quadrant, in NW, NE, SE, SW order, containing
// the point.
func (b *branch[T]) childFor(lat, lon float64) *Node[T] {
	for _, child := range b.children {
		if child.bounds.PointWithinBounds(lat, lon) {
			return child
		}
	}
	return nil
}

type Node[T comparable] struct {
	bounds Rect
	policy policy
	state  state[T]
}

// NewNode creates an empty root covering north, west, south, east.
func NewNode[T comparable](north, west, south, east float64, maxItems int, opts ...Option) (*Node[T], error) {
	bounds := NewRect(north, west, south, east)
	if !bounds.Valid() {
		return nil, fmt.Errorf("new node %v: %w", bounds, ErrInvalidBounds)
	}
	if maxItems < 1 {
		return nil, fmt.Errorf("new node with max items %d: %w", maxItems, ErrInvalidCapacity)
	}
	p := policy{maxItems: maxItems}
	for _, f := range opts {
		f(&p)
	}
	if p.minSize < 0 || math.IsNaN(p.minSize) {
		return nil, fmt.Errorf("new node with min size %f: %w", p.minSize, ErrInvalidBounds)
	}
	return newNode[T](bounds, p), nil
}

func newNode[T comparable](bounds Rect, p policy) *Node[T] {
	return &Node[T]{bounds: bounds, policy: p, state: &bucket[T]{}}
}

func (n *Node[T]) Bounds() Rect {
	return n.bounds
}

// HasChildren reports whether the node is a branch.
func (n *Node[T]) HasChildren() bool {
	_, ok := n.state.(*branch[T])
	return ok
}

// Put stores payload at lat, lon. It returns false when the point is outside
// the area covered by the node.
func (n *Node[T]) Put(lat, lon float64, payload T) bool {
	if !n.bounds.PointWithinBounds(lat, lon) {
		return false
	}
	return n.put(Leaf[T]{Lat: lat, Lon: lon, Payload: payload})
}

func (n *Node[T]) put(leaf Leaf[T]) bool {
	switch s := n.state.(type) {
	case *bucket[T]:
		s.add(leaf)
		if s.samePoint && len(s.leaves) > MaxBucketItems {
			panic(fmt.Sprintf("quadtree: bucket %v holds %d leaves", n.bounds, len(s.leaves)))
		}
		if len(s.leaves) > n.policy.maxItems && !s.samePoint {
			n.subdivide(s)
		}
		return true
	case *branch[T]:
		child := s.childFor(leaf.Lat, leaf.Lon)
		if child == nil {
			return false
		}
		return child.put(leaf)
	}
	return false
}

func (n *Node[T]) subdivide(s *bucket[T]) {
	if n.policy.minSize > 0 && n.bounds.Height() <= n.policy.minSize && n.bounds.Width() <= n.policy.minSize {
		return
	}
	quadrants := n.bounds.Quadrants()
	for _, quadrant := range quadrants {
		// midpoint rounded onto a bound, the cell cannot be split
		if quadrant == n.bounds {
			return
		}
	}
	br := &branch[T]{}
	for i, quadrant := range quadrants {
		br.children[i] = newNode[T](quadrant, n.policy)
	}
	for _, leaf := range s.leaves {
		if child := br.childFor(leaf.Lat, leaf.Lon); child != nil {
			child.put(leaf)
		}
	}
	n.state = br
}

// Remove deletes the leaf at lat, lon whose payload equals payload.
// Coordinates only select the quadrant, the match is on the payload.
func (n *Node[T]) Remove(lat, lon float64, payload T) (T, bool) {
	var zero T
	switch s := n.state.(type) {
	case *bucket[T]:
		for i := range s.leaves {
			if s.leaves[i].Payload == payload {
				copy(s.leaves[i:], s.leaves[i+1:])
				s.leaves[len(s.leaves)-1] = Leaf[T]{}
				s.leaves = s.leaves[:len(s.leaves)-1]
				return payload, true
			}
		}
	case *branch[T]:
		if child := s.childFor(lat, lon); child != nil {
			return child.Remove(lat, lon, payload)
		}
	}
	return zero, false
}

// Clear drops every leaf and turns the node back into an empty bucket.
func (n *Node[T]) Clear() {
	if br, ok := n.state.(*branch[T]); ok {
		for _, child := range br.children {
			child.Clear()
		}
	}
	n.state = &bucket[T]{}
}

// Compact collapses every branch holding at most maxItems leaves back into a
// bucket. It reports whether anything changed.
func (n *Node[T]) Compact() bool {
	br, ok := n.state.(*branch[T])
	if !ok {
		return false
	}
	changed := false
	for _, child := range br.children {
		if child.Compact() {
			changed = true
		}
	}
	if n.Len() > n.policy.maxItems {
		return changed
	}
	b := &bucket[T]{}
	n.Walk(func(leaf Leaf[T]) bool {
		b.add(leaf)
		return true
	})
	n.state = b
	return true
}

// Len returns the number of leaves in the subtree.
func (n *Node[T]) Len() int {
	switch s := n.state.(type) {
	case *bucket[T]:
		return len(s.leaves)
	case *branch[T]:
		total := 0
		for _, child := range s.children {
			total += child.Len()
		}
		return total
	}
	return 0
}

// Depth returns the number of levels in the subtree, 1 for a bucket.
func (n *Node[T]) Depth() int {
	br, ok := n.state.(*branch[T])
	if !ok {
		return 1
	}
	deepest := 0
	for _, child := range br.children {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Walk calls fn for every leaf until fn returns false.
func (n *Node[T]) Walk(fn func(Leaf[T]) bool) bool {
	switch s := n.state.(type) {
	case *bucket[T]:
		for _, leaf := range s.leaves {
			if !fn(leaf) {
				return false
			}
		}
	case *branch[T]:
		for _, child := range s.children {
			if !child.Walk(fn) {
				return false
			}
		}
	}
	return true
}

// Get returns the payload nearest to lat, lon.
func (n *Node[T]) Get(lat, lon float64) (T, bool) {
	return n.nearest(lat, lon, unboundedDistance())
}

// GetWithin returns the payload nearest to lat, lon no farther than
// maxDistance.
func (n *Node[T]) GetWithin(lat, lon, maxDistance float64) (T, bool) {
	return n.nearest(lat, lon, NewDistance(maxDistance*maxDistance))
}

func (n *Node[T]) nearest(lat, lon float64, best *Distance) (result T, found bool) {
	switch s := n.state.(type) {
	case *bucket[T]:
		for _, leaf := range s.leaves {
			if best.Improve(leaf.distanceSqr(lat, lon)) {
				result, found = leaf.Payload, true
			}
		}
	case *branch[T]:
		for _, c := range s.byBorderDistance(lat, lon) {
			// sorted, so every remaining child is pruned too
			if best.Prunes(c.bound) {
				break
			}
			if payload, ok := c.node.nearest(lat, lon, best); ok {
				result, found = payload, true
			}
		}
	}
	return result, found
}

type candidate[T comparable] struct {
	node  *Node[T]
	bound float64
}

func (b *branch[T]) byBorderDistance(lat, lon float64) [4]candidate[T] {
	var out [4]candidate[T]
	for i, child := range b.children {
		out[i] = candidate[T]{node: child, bound: child.bounds.BorderDistanceSqr(lat, lon)}
	}
	sort.SliceStable(out[:], func(i, j int) bool {
		return out[i].bound < out[j].bound
	})
	return out
}

// Neighbor is a KNearest result.
type Neighbor[T comparable] struct {
	Leaf        Leaf[T]
	DistanceSqr float64
}

// KNearest returns up to k leaves no farther than maxDistance, nearest first.
// A maxDistance of +Inf makes the search unbounded.
func (n *Node[T]) KNearest(lat, lon float64, k int, maxDistance float64) []Neighbor[T] {
	if k < 1 {
		return nil
	}
	queue := pqueue.New[Leaf[T]](pqueue.WithCap[Leaf[T]](uint(k)))
	n.kNearest(lat, lon, maxDistance*maxDistance, queue)
	out := make([]Neighbor[T], queue.Len())
	for i := range out {
		leaf, d := queue.Seek(i)
		out[i] = Neighbor[T]{Leaf: leaf, DistanceSqr: d}
	}
	return out
}

// kthBound returns the distance a leaf has to beat to enter the queue and
// whether it may also equal it.
func kthBound[T comparable](queue *pqueue.Queue[Leaf[T]], limit float64) (float64, bool) {
	if !queue.Full() {
		return limit, true
	}
	_, d := queue.Seek(queue.Len() - 1)
	return d, false
}

func (n *Node[T]) kNearest(lat, lon, limit float64, queue *pqueue.Queue[Leaf[T]]) {
	switch s := n.state.(type) {
	case *bucket[T]:
		for _, leaf := range s.leaves {
			d := leaf.distanceSqr(lat, lon)
			if bound, inclusive := kthBound(queue, limit); d < bound || (inclusive && d == bound) {
				queue.Push(leaf, d)
			}
		}
	case *branch[T]:
		for _, c := range s.byBorderDistance(lat, lon) {
			if bound, inclusive := kthBound(queue, limit); c.bound > bound || (!inclusive && c.bound == bound) {
				break
			}
			c.node.kNearest(lat, lon, limit, queue)
		}
	}
}

// GetExact returns every payload stored exactly at lat, lon.
func (n *Node[T]) GetExact(lat, lon float64) []T {
	switch s := n.state.(type) {
	case *bucket[T]:
		var out []T
		for _, leaf := range s.leaves {
			if leaf.Lat == lat && leaf.Lon == lon {
				out = append(out, leaf.Payload)
			}
		}
		return out
	case *branch[T]:
		if child := s.childFor(lat, lon); child != nil {
			return child.GetExact(lat, lon)
		}
	}
	return nil
}

// GetRect returns the payloads inside rect.
//
// Below the root a quadrant is only visited when it lies entirely inside
// rect. Leaves in quadrants that merely overlap rect are not returned. Use
// GetRectOverlap for the complete answer.
func (n *Node[T]) GetRect(rect Rect) []T {
	var out []T
	n.collect(rect, Rect.Within, &out)
	return out
}

// GetRectOverlap returns every payload inside rect, visiting all quadrants
// that intersect it.
func (n *Node[T]) GetRectOverlap(rect Rect) []T {
	var out []T
	n.collect(rect, Rect.Intersects, &out)
	return out
}

func (n *Node[T]) collect(rect Rect, descend func(child, query Rect) bool, out *[]T) {
	switch s := n.state.(type) {
	case *bucket[T]:
		for _, leaf := range s.leaves {
			if rect.PointWithinBounds(leaf.Lat, leaf.Lon) {
				*out = append(*out, leaf.Payload)
			}
		}
	case *branch[T]:
		for _, child := range s.children {
			if descend(child.bounds, rect) {
				child.collect(rect, descend, out)
			}
		}
	}
}
