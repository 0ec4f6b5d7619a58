package index

import (
	"context"
	"fmt"
	"sort"
	"time"

	featureDb "github.com/go-sod/geoindex/internal/feature/database"
	"github.com/go-sod/geoindex/internal/feature/model"
	"github.com/go-sod/geoindex/internal/logging"
)

type schedulerOptions struct {
	interval       time.Duration
	maxPerLayer    int
	maxStorageTime time.Duration
}

type (
	fetchLayersFn    func(context.Context) ([]string, error)
	countByLayerFn   func(context.Context, string) (int, error)
	fetchByLayerFn   func(context.Context, string, featureDb.FilterFn) ([]model.Feature, error)
	removeFeaturesFn func(context.Context, []model.Feature) error
)

func newScheduler(idx *Index, opts schedulerOptions) *scheduler {
	return &scheduler{
		opts:     opts,
		layersFn: idx.store.Layers,
		countFn:  idx.store.CountByLayer,
		fetchFn:  idx.store.FindByLayer,
		removeFn: idx.removeMany,
		flushFn:  idx.Flush,
		compact:  idx.Compact,
		now:      time.Now,
	}
}

// scheduler enforces the per layer retention limits and compacts the tree
// after removals.
type scheduler struct {
	opts schedulerOptions

	layersFn fetchLayersFn
	countFn  countByLayerFn
	fetchFn  fetchByLayerFn
	removeFn removeFeaturesFn
	flushFn  func(context.Context) error
	compact  func() bool
	now      func() time.Time
}

// processOutdated removes the features of layer older than maxStorageTime.
func (s *scheduler) processOutdated(ctx context.Context, layer string) (int, error) {
	deadline := s.now().Add(-s.opts.maxStorageTime)
	features, err := s.fetchFn(ctx, layer, func(f model.Feature) bool {
		return f.CreatedAt.Before(deadline)
	})
	if err != nil {
		return 0, fmt.Errorf("unable find features of layer %s: %w", layer, err)
	}
	if err := s.removeFn(ctx, features); err != nil {
		return 0, fmt.Errorf("unable remove outdated features of layer %s: %w", layer, err)
	}
	return len(features), nil
}

// processOverSize removes the oldest features of layer beyond maxPerLayer.
func (s *scheduler) processOverSize(ctx context.Context, layer string) (int, error) {
	count, err := s.countFn(ctx, layer)
	if err != nil {
		return 0, fmt.Errorf("unable count layer %s: %w", layer, err)
	}
	if count <= s.opts.maxPerLayer {
		return 0, nil
	}
	features, err := s.fetchFn(ctx, layer, nil)
	if err != nil {
		return 0, fmt.Errorf("unable find features of layer %s: %w", layer, err)
	}
	if len(features) <= s.opts.maxPerLayer {
		return 0, nil
	}
	sort.SliceStable(features, func(i, j int) bool {
		return features[i].CreatedAt.Before(features[j].CreatedAt)
	})
	victims := features[:len(features)-s.opts.maxPerLayer]
	if err := s.removeFn(ctx, victims); err != nil {
		return 0, fmt.Errorf("unable remove oversize features of layer %s: %w", layer, err)
	}
	return len(victims), nil
}

func (s *scheduler) run(ctx context.Context) (int, error) {
	if s.opts.maxStorageTime <= 0 && s.opts.maxPerLayer <= 0 {
		return 0, nil
	}
	// limits are checked against the store, so pending writes go first
	if err := s.flushFn(ctx); err != nil {
		return 0, fmt.Errorf("unable flush pending writes: %w", err)
	}
	layers, err := s.layersFn(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable fetch layers: %w", err)
	}
	removed := 0
	for _, layer := range layers {
		if s.opts.maxStorageTime > 0 {
			n, err := s.processOutdated(ctx, layer)
			if err != nil {
				return removed, err
			}
			removed += n
			if err := s.flushFn(ctx); err != nil {
				return removed, fmt.Errorf("unable flush pending writes: %w", err)
			}
		}
		if s.opts.maxPerLayer > 0 {
			n, err := s.processOverSize(ctx, layer)
			if err != nil {
				return removed, err
			}
			removed += n
		}
	}
	return removed, nil
}

func (s *scheduler) schedule(ctx context.Context) {
	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(s.opts.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			removed, err := s.run(ctx)
			if err != nil {
				logger.Errorf("index maintenance: %v", err)
			}
			if removed > 0 {
				logger.Infof("index maintenance removed %d features", removed)
			}
			if s.compact() {
				logger.Debugf("index maintenance compacted the tree")
			}
		case <-ctx.Done():
			return
		}
	}
}
