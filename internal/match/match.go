// Package match pairs every catalog position with its nearest candidate on
// the sky and filters the pairs by an angular threshold.
package match

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/soniakeys/coord"

	"github.com/hpungsan/carbonmatch/internal/errors"
	"github.com/hpungsan/carbonmatch/internal/sky"
)

// Strategy selects the Index implementation.
type Strategy string

const (
	StrategyAuto   Strategy = "auto"
	StrategyBrute  Strategy = "brute"
	StrategyKDTree Strategy = "kdtree"
)

// DefaultKDTreeMinPairs is the catalog×candidate size above which auto
// switches from brute force to the k-d tree.
const DefaultKDTreeMinPairs = 250_000

// ctxCheckEvery is how many catalog rows a worker handles between
// cancellation checks.
const ctxCheckEvery = 256

// ParseStrategy validates a strategy name. Empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyBrute, StrategyKDTree:
		return Strategy(s), nil
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("unknown match index %q; use auto, brute or kdtree", s))
}

// Options controls Nearest.
type Options struct {
	Strategy       Strategy
	KDTreeMinPairs int
	// Workers caps the goroutines used; 0 means runtime.NumCPU().
	Workers int
}

// Pair is the nearest candidate for one catalog position.
type Pair struct {
	Catalog          int     `json:"catalog"`
	Candidate        int     `json:"candidate"` // -1 when there were no candidates
	SeparationArcsec float64 `json:"separation_arcsec"`
	WithinThreshold  bool    `json:"within_threshold"`
}

// HasCandidate reports whether any candidate existed for this position.
func (p Pair) HasCandidate() bool { return p.Candidate >= 0 }

// ValidateThreshold checks θ in arcseconds.
func ValidateThreshold(theta float64) error {
	if math.IsNaN(theta) || math.IsInf(theta, 0) || theta <= 0 {
		return errors.NewInvalidRequest(fmt.Sprintf("threshold must be a positive number of arcseconds, got %v", theta))
	}
	return nil
}

// ChooseStrategy resolves StrategyAuto for n catalog rows and m candidates.
func ChooseStrategy(opts Options, n, m int) Strategy {
	if opts.Strategy != "" && opts.Strategy != StrategyAuto {
		return opts.Strategy
	}
	minPairs := opts.KDTreeMinPairs
	if minPairs <= 0 {
		minPairs = DefaultKDTreeMinPairs
	}
	if int64(n)*int64(m) >= int64(minPairs) {
		return StrategyKDTree
	}
	return StrategyBrute
}

// NewIndex builds the index for strategy s. Auto is treated as brute.
func NewIndex(s Strategy, pts []coord.Cart) Index {
	if s == StrategyKDTree {
		return NewKDTree(pts)
	}
	return NewBruteForce(pts)
}

// Nearest returns one Pair per catalog record, in catalog order, and the
// strategy that was used. The result does not depend on any threshold.
func Nearest(ctx context.Context, catalog, candidates []sky.Record, opts Options) ([]Pair, Strategy, error) {
	pairs := make([]Pair, len(catalog))
	strategy := ChooseStrategy(opts, len(catalog), len(candidates))

	if len(candidates) == 0 {
		for i := range pairs {
			pairs[i] = Pair{Catalog: i, Candidate: -1}
		}
		return pairs, strategy, nil
	}

	vecs := make([]coord.Cart, len(candidates))
	for i, c := range candidates {
		vecs[i] = sky.UnitVector(c)
	}
	index := NewIndex(strategy, vecs)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	total := len(catalog)
	if workers > total {
		workers = total
	}
	if workers < 1 {
		return pairs, strategy, nil
	}
	chunkSize := (total + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				if (i-s)%ctxCheckEvery == 0 && ctx.Err() != nil {
					return
				}
				j, _, _ := index.Nearest(sky.UnitVector(catalog[i]))
				pairs[i] = Pair{
					Catalog:          i,
					Candidate:        j,
					SeparationArcsec: sky.Separation(catalog[i], candidates[j]),
				}
			}
		}(start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, strategy, err
	}
	return pairs, strategy, nil
}

// SeparationDecimals is the precision separations are reported and compared at.
const SeparationDecimals = 4

// Reported rounds a separation in arcseconds to SeparationDecimals places.
func Reported(sep float64) float64 {
	const scale = 1e4
	return math.Round(sep*scale) / scale
}

// Filter marks each pair whose reported separation is at most theta
// arcseconds, so a row shown as 1.0000 is kept at theta=1.
// Only those pairs are returned unless keepUnmatched is set, in which case
// every pair is returned with WithinThreshold filled in.
func Filter(pairs []Pair, theta float64, keepUnmatched bool) []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		p.WithinThreshold = p.HasCandidate() && Reported(p.SeparationArcsec) <= theta
		if p.WithinThreshold || keepUnmatched {
			out = append(out, p)
		}
	}
	return out
}
