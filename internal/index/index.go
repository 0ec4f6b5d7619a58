package index

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	featureDb "github.com/go-sod/geoindex/internal/feature/database"
	"github.com/go-sod/geoindex/internal/feature/model"
	"github.com/go-sod/geoindex/internal/logging"
	"github.com/go-sod/geoindex/internal/metric"
	"github.com/go-sod/geoindex/pkg/container/quadtree"
	"github.com/google/uuid"
)

// Contract for returning the Index instance
type ProvideFn func(chan<- error) (*Index, error)

type Options struct {
	bounds    quadtree.Rect
	maxItems  int
	minSize   float64
	rangeMode RangeMode
	flushSize int
	flushTime time.Duration

	maintenanceTime     time.Duration
	maxFeaturesPerLayer int
	maxStorageTime      time.Duration
}

type Option func(*Index)

func WithBounds(north, west, south, east float64) Option {
	return func(i *Index) {
		i.opts.bounds = quadtree.NewRect(north, west, south, east)
	}
}

func WithMaxItems(n int) Option {
	return func(i *Index) {
		i.opts.maxItems = n
	}
}

func WithMinSize(size float64) Option {
	return func(i *Index) {
		i.opts.minSize = size
	}
}

func WithRangeMode(m RangeMode) Option {
	return func(i *Index) {
		i.opts.rangeMode = m
	}
}

func WithFlushSize(n int) Option {
	return func(i *Index) {
		i.opts.flushSize = n
	}
}

func WithFlushTime(t time.Duration) Option {
	return func(i *Index) {
		i.opts.flushTime = t
	}
}

func WithMaintenanceTime(t time.Duration) Option {
	return func(i *Index) {
		i.opts.maintenanceTime = t
	}
}

func WithMaxFeaturesPerLayer(n int) Option {
	return func(i *Index) {
		i.opts.maxFeaturesPerLayer = n
	}
}

func WithMaxStorageTime(t time.Duration) Option {
	return func(i *Index) {
		i.opts.maxStorageTime = t
	}
}

var defaultOptions = Options{
	bounds:    quadtree.NewRect(90, -180, -90, 180),
	maxItems:  32,
	rangeMode: RangeModeContained,
	flushSize: 100,
	flushTime: 5 * time.Second,

	maintenanceTime: time.Minute,
}

// Index is the in-memory quadtree of features backed by a feature store.
// The tree is guarded by one lock: mutations take it exclusively, queries
// share it.
type Index struct {
	mtx sync.RWMutex

	opts  Options
	tree  *quadtree.Node[*model.Feature]
	byID  map[uuid.UUID]*model.Feature
	store featureDb.Store

	writer *writer
	cancel func()
}

// New returns an empty index. Run loads the stored features.
func New(store featureDb.Store, shutdownCh chan<- error, opts ...Option) (*Index, error) {
	if store == nil {
		return nil, fmt.Errorf("feature store is not created")
	}
	idx := &Index{
		opts:  defaultOptions,
		byID:  map[uuid.UUID]*model.Feature{},
		store: store,
	}
	for _, f := range opts {
		f(idx)
	}
	switch idx.opts.rangeMode {
	case RangeModeContained, RangeModeOverlap:
	default:
		return nil, fmt.Errorf("unknown range mode: %s", idx.opts.rangeMode)
	}

	b := idx.opts.bounds
	tree, err := quadtree.NewNode[*model.Feature](
		b.North(), b.West(), b.South(), b.East(),
		idx.opts.maxItems,
		quadtree.WithMinSize(idx.opts.minSize),
	)
	if err != nil {
		return nil, fmt.Errorf("unable create quadtree: %w", err)
	}
	idx.tree = tree

	idx.writer = newWriter(writerOptions{
		flushSize: idx.opts.flushSize,
		flushTime: idx.opts.flushTime,
		appendFn:  store.AppendMany,
		deleteFn:  store.DeleteMany,
	}, shutdownCh)

	return idx, nil
}

// Run loads every stored feature into the tree and starts the store writer.
func (i *Index) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel

	if err := i.bulkLoad(ctx); err != nil {
		cancel()
		return fmt.Errorf("can not start index: %w", err)
	}
	go i.writer.flusher(ctx)
	if i.opts.maintenanceTime > 0 {
		go newScheduler(i, schedulerOptions{
			interval:       i.opts.maintenanceTime,
			maxPerLayer:    i.opts.maxFeaturesPerLayer,
			maxStorageTime: i.opts.maxStorageTime,
		}).schedule(ctx)
	}

	logger.Infof("index loaded %d features, depth %d", i.Len(), i.Depth())
	return nil
}

func (i *Index) Stop() {
	if i.cancel != nil {
		i.cancel()
	}
}

func (i *Index) bulkLoad(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	features, err := i.store.FindAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("error fetching all features: %w", err)
	}

	i.mtx.Lock()
	defer i.mtx.Unlock()
	skipped := 0
	for k := range features {
		f := features[k]
		if old, ok := i.byID[f.ID]; ok {
			logger.Warnf("feature %s stored in layers %s and %s", f.ID, old.Layer, f.Layer)
			i.tree.Remove(old.Lat, old.Lon, old)
			delete(i.byID, f.ID)
		}
		if !i.tree.Put(f.Lat, f.Lon, &f) {
			skipped++
			continue
		}
		i.byID[f.ID] = &f
	}
	if skipped > 0 {
		logger.Warnf("skipped %d stored features outside %v", skipped, i.tree.Bounds())
	}
	metric.RecordFeatures(ctx, len(i.byID))
	return nil
}

// Put indexes the features and queues them for the store. A feature whose
// id is already indexed replaces the old one. Features outside the covered
// area are returned as rejected.
func (i *Index) Put(ctx context.Context, features ...model.Feature) (accepted, rejected []model.Feature) {
	defer metric.RecordOp(ctx, metric.OpPut, time.Now())

	var moved []model.Feature
	i.mtx.Lock()
	for k := range features {
		f := features[k]
		if !i.tree.Bounds().PointWithinBounds(f.Lat, f.Lon) {
			rejected = append(rejected, f)
			continue
		}
		if old, ok := i.byID[f.ID]; ok {
			i.tree.Remove(old.Lat, old.Lon, old)
			if old.Layer != f.Layer {
				moved = append(moved, *old)
			}
		}
		i.tree.Put(f.Lat, f.Lon, &f)
		i.byID[f.ID] = &f
		accepted = append(accepted, f)
	}
	// queued under mtx so store writes keep the order of tree updates
	i.writer.delete(ctx, moved...)
	i.writer.upsert(ctx, accepted...)
	size := len(i.byID)
	i.mtx.Unlock()

	metric.RecordFeatures(ctx, size)
	return accepted, rejected
}

// Remove drops the feature with the given id.
func (i *Index) Remove(ctx context.Context, id uuid.UUID) (model.Feature, bool) {
	defer metric.RecordOp(ctx, metric.OpRemove, time.Now())

	i.mtx.Lock()
	f, ok := i.byID[id]
	if !ok {
		i.mtx.Unlock()
		return model.Feature{}, false
	}
	removed, ok := i.tree.Remove(f.Lat, f.Lon, f)
	if !ok {
		i.mtx.Unlock()
		logging.FromContext(ctx).Errorf("feature %s indexed by id but missing from the tree", id)
		return model.Feature{}, false
	}
	delete(i.byID, id)
	i.writer.delete(ctx, *removed)
	size := len(i.byID)
	i.mtx.Unlock()

	metric.RecordFeatures(ctx, size)
	return *removed, true
}

// removeMany drops the features from the index. Features the index does not
// hold are deleted from the store directly.
func (i *Index) removeMany(ctx context.Context, features []model.Feature) error {
	var orphans []model.Feature
	for _, f := range features {
		if _, ok := i.Remove(ctx, f.ID); !ok {
			orphans = append(orphans, f)
		}
	}
	if len(orphans) == 0 {
		return nil
	}
	return i.store.DeleteMany(ctx, orphans)
}

// Get returns the feature with the given id.
func (i *Index) Get(id uuid.UUID) (model.Feature, bool) {
	i.mtx.RLock()
	defer i.mtx.RUnlock()
	f, ok := i.byID[id]
	if !ok {
		return model.Feature{}, false
	}
	return *f, true
}

// Nearest returns the feature closest to lat, lon within maxDistance.
// A maxDistance of +Inf or less than zero searches without a bound.
func (i *Index) Nearest(ctx context.Context, lat, lon, maxDistance float64) (model.Feature, bool) {
	defer metric.RecordOp(ctx, metric.OpNearest, time.Now())

	i.mtx.RLock()
	defer i.mtx.RUnlock()
	var (
		f  *model.Feature
		ok bool
	)
	if maxDistance < 0 || math.IsInf(maxDistance, 1) {
		f, ok = i.tree.Get(lat, lon)
	} else {
		f, ok = i.tree.GetWithin(lat, lon, maxDistance)
	}
	if !ok {
		return model.Feature{}, false
	}
	return *f, true
}

type Neighbor struct {
	Feature  model.Feature `json:"feature"`
	Distance float64       `json:"distance"`
}

// KNearest returns up to k features closest to lat, lon, nearest first.
func (i *Index) KNearest(ctx context.Context, lat, lon float64, k int, maxDistance float64) []Neighbor {
	defer metric.RecordOp(ctx, metric.OpKNN, time.Now())
	if maxDistance < 0 {
		maxDistance = math.Inf(1)
	}

	i.mtx.RLock()
	defer i.mtx.RUnlock()
	found := i.tree.KNearest(lat, lon, k, maxDistance)
	out := make([]Neighbor, len(found))
	for n := range found {
		out[n] = Neighbor{Feature: *found[n].Leaf.Payload, Distance: math.Sqrt(found[n].DistanceSqr)}
	}
	return out
}

// Range returns the features inside the rectangle. An empty mode uses the
// configured one.
func (i *Index) Range(ctx context.Context, rect quadtree.Rect, mode RangeMode) ([]model.Feature, error) {
	defer metric.RecordOp(ctx, metric.OpRange, time.Now())
	if !rect.Valid() {
		return nil, fmt.Errorf("range %v: %w", rect, quadtree.ErrInvalidBounds)
	}
	if mode == "" {
		mode = i.opts.rangeMode
	}

	i.mtx.RLock()
	defer i.mtx.RUnlock()
	var found []*model.Feature
	switch mode {
	case RangeModeContained:
		found = i.tree.GetRect(rect)
	case RangeModeOverlap:
		found = i.tree.GetRectOverlap(rect)
	default:
		return nil, fmt.Errorf("unknown range mode: %s", mode)
	}
	out := make([]model.Feature, len(found))
	for n := range found {
		out[n] = *found[n]
	}
	return out, nil
}

// Compact collapses sparse branches left behind by removals.
func (i *Index) Compact() bool {
	i.mtx.Lock()
	defer i.mtx.Unlock()
	return i.tree.Compact()
}

func (i *Index) Len() int {
	i.mtx.RLock()
	defer i.mtx.RUnlock()
	return len(i.byID)
}

func (i *Index) Depth() int {
	i.mtx.RLock()
	defer i.mtx.RUnlock()
	return i.tree.Depth()
}

func (i *Index) Bounds() quadtree.Rect {
	return i.opts.bounds
}

// Flush writes buffered changes to the store.
func (i *Index) Flush(ctx context.Context) error {
	return i.writer.flush(ctx)
}
