package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-sod/geoindex/internal/logging"
	"github.com/go-sod/geoindex/pkg/container/quadtree"
	"github.com/valyala/fastrand"
)

type benchOptions struct {
	points   int
	queries  int
	maxItems int
	k        int
}

type benchResult struct {
	points, queries, found, depth int
	build, nearest, knn           time.Duration
}

func (r benchResult) String() string {
	per := func(d time.Duration) time.Duration {
		if r.queries == 0 {
			return 0
		}
		return d / time.Duration(r.queries)
	}
	return fmt.Sprintf(
		"points: %d depth: %d build: %v\nnearest: %d queries, %d found, %v/op\nknn: %v/op",
		r.points, r.depth, r.build, r.queries, r.found, per(r.nearest), per(r.knn),
	)
}

// randCoord returns a value in [min, max) with micro degree resolution.
func randCoord(rng *fastrand.RNG, min, max float64) float64 {
	span := uint32((max - min) * 1e6)
	return min + float64(rng.Uint32n(span))/1e6
}

func bench(ctx context.Context, opts benchOptions) (benchResult, error) {
	logger := logging.FromContext(ctx)
	tree, err := quadtree.NewNode[int](90, -180, -90, 180, opts.maxItems)
	if err != nil {
		return benchResult{}, fmt.Errorf("bench: %w", err)
	}
	var rng fastrand.RNG
	res := benchResult{points: opts.points, queries: opts.queries}

	start := time.Now()
	for i := 0; i < opts.points; i++ {
		tree.Put(randCoord(&rng, -90, 90), randCoord(&rng, -180, 180), i)
	}
	res.build = time.Since(start)
	res.depth = tree.Depth()
	logger.Debugf("bench: built tree of %d points in %v", opts.points, res.build)

	start = time.Now()
	for i := 0; i < opts.queries; i++ {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if _, ok := tree.GetWithin(randCoord(&rng, -90, 90), randCoord(&rng, -180, 180), 1); ok {
			res.found++
		}
	}
	res.nearest = time.Since(start)

	start = time.Now()
	for i := 0; i < opts.queries; i++ {
		tree.KNearest(randCoord(&rng, -90, 90), randCoord(&rng, -180, 180), opts.k, math.Inf(1))
	}
	res.knn = time.Since(start)
	return res, nil
}
