package match

import (
	"math"
	"slices"

	"github.com/soniakeys/coord"

	"github.com/hpungsan/carbonmatch/internal/sky"
)

// Index answers nearest-neighbour queries over a fixed set of unit vectors.
// Distances are squared chord lengths. When several points are equally
// close, the one with the lowest index is returned, whatever the index type.
type Index interface {
	Nearest(q coord.Cart) (idx int, chord2 float64, ok bool)
	Len() int
}

// closer orders candidates by distance, then by index.
func closer(d float64, i int, bestD float64, best int) bool {
	return d < bestD || (d == bestD && i < best)
}

// BruteForce scans every point. O(M) per query.
type BruteForce struct {
	pts []coord.Cart
}

// NewBruteForce creates a BruteForce index over pts.
func NewBruteForce(pts []coord.Cart) *BruteForce {
	return &BruteForce{pts: pts}
}

// Len returns the number of indexed points.
func (b *BruteForce) Len() int { return len(b.pts) }

// Nearest implements Index.
func (b *BruteForce) Nearest(q coord.Cart) (int, float64, bool) {
	best, bestD := -1, math.Inf(1)
	for i, p := range b.pts {
		if d := sky.ChordSquared(q, p); d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD, best >= 0
}

// KDTree is a 3-d tree over unit vectors, stored implicitly: the median of
// every sub-range of order is that subtree's root.
type KDTree struct {
	pts   []coord.Cart
	order []int
}

// NewKDTree builds a KDTree over pts. pts must not be modified afterwards.
func NewKDTree(pts []coord.Cart) *KDTree {
	t := &KDTree{pts: pts, order: make([]int, len(pts))}
	for i := range t.order {
		t.order[i] = i
	}
	t.build(0, len(pts), 0)
	return t
}

// Len returns the number of indexed points.
func (t *KDTree) Len() int { return len(t.pts) }

func axis(c coord.Cart, a int) float64 {
	switch a {
	case 0:
		return c.X
	case 1:
		return c.Y
	}
	return c.Z
}

func (t *KDTree) build(lo, hi, depth int) {
	if hi-lo <= 1 {
		return
	}
	a := depth % 3
	slices.SortFunc(t.order[lo:hi], func(i, j int) int {
		vi, vj := axis(t.pts[i], a), axis(t.pts[j], a)
		switch {
		case vi < vj:
			return -1
		case vi > vj:
			return 1
		}
		return i - j
	})
	mid := (lo + hi) / 2
	t.build(lo, mid, depth+1)
	t.build(mid+1, hi, depth+1)
}

// Nearest implements Index.
func (t *KDTree) Nearest(q coord.Cart) (int, float64, bool) {
	best, bestD := -1, math.Inf(1)
	t.search(0, len(t.order), 0, q, &best, &bestD)
	return best, bestD, best >= 0
}

func (t *KDTree) search(lo, hi, depth int, q coord.Cart, best *int, bestD *float64) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	i := t.order[mid]
	if d := sky.ChordSquared(q, t.pts[i]); closer(d, i, *bestD, *best) {
		*best, *bestD = i, d
	}

	a := depth % 3
	diff := axis(q, a) - axis(t.pts[i], a)
	nearLo, nearHi, farLo, farHi := lo, mid, mid+1, hi
	if diff >= 0 {
		nearLo, nearHi, farLo, farHi = mid+1, hi, lo, mid
	}
	t.search(nearLo, nearHi, depth+1, q, best, bestD)
	// <= so that equally distant points with a lower index are still visited
	if diff*diff <= *bestD {
		t.search(farLo, farHi, depth+1, q, best, bestD)
	}
}
