package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-sod/geoindex/internal/feature/model"
	"github.com/go-sod/geoindex/internal/logging"
	"github.com/google/uuid"
)

type (
	appendFeaturesFn func(context.Context, []model.Feature) error
	deleteFeaturesFn func(context.Context, []model.Feature) error
)

type writerOptions struct {
	flushSize int
	flushTime time.Duration
	appendFn  appendFeaturesFn
	deleteFn  deleteFeaturesFn
}

type writeOp struct {
	feature model.Feature
	deleted bool
}

func newWriter(opts writerOptions, shutdownCh chan<- error) *writer {
	return &writer{opts: opts, shutdownCh: shutdownCh}
}

// writer buffers feature upserts and deletes and applies them to the store
// in bulk, on size or on a timer.
type writer struct {
	mtx sync.Mutex
	// serializes flushes so batches reach the store in order
	flushMtx sync.Mutex

	opts       writerOptions
	buf        []writeOp
	shutdownCh chan<- error
}

func (w *writer) upsert(ctx context.Context, features ...model.Feature) {
	ops := make([]writeOp, len(features))
	for i := range features {
		ops[i] = writeOp{feature: features[i]}
	}
	w.append(ctx, ops...)
}

func (w *writer) delete(ctx context.Context, features ...model.Feature) {
	ops := make([]writeOp, len(features))
	for i := range features {
		ops[i] = writeOp{feature: features[i], deleted: true}
	}
	w.append(ctx, ops...)
}

func (w *writer) append(ctx context.Context, ops ...writeOp) {
	w.mtx.Lock()
	w.buf = append(w.buf, ops...)
	bufLen := len(w.buf)
	w.mtx.Unlock()

	if w.opts.flushSize > 0 && bufLen >= w.opts.flushSize {
		// the caller context may be request scoped
		logger := logging.FromContext(ctx)
		go func() {
			if err := w.flush(logging.WithLogger(context.Background(), logger)); err != nil {
				logger.Errorf("writer: %v", err)
			}
		}()
	}
}

func (w *writer) pending() int {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return len(w.buf)
}

// flush applies the buffered ops. Only the last op of each feature and layer
// is kept, so an upsert followed by a delete never reaches the store.
func (w *writer) flush(ctx context.Context) error {
	w.flushMtx.Lock()
	defer w.flushMtx.Unlock()

	w.mtx.Lock()
	ops := w.buf
	w.buf = nil
	w.mtx.Unlock()
	if len(ops) == 0 {
		return nil
	}

	type key struct {
		id    uuid.UUID
		layer string
	}
	last := make(map[key]int, len(ops))
	for i, op := range ops {
		last[key{op.feature.ID, op.feature.Layer}] = i
	}
	var upserts, deletes []model.Feature
	for i, op := range ops {
		if last[key{op.feature.ID, op.feature.Layer}] != i {
			continue
		}
		if op.deleted {
			deletes = append(deletes, op.feature)
		} else {
			upserts = append(upserts, op.feature)
		}
	}

	if err := w.opts.appendFn(ctx, upserts); err != nil {
		w.requeue(ops)
		return fmt.Errorf("append many operation failed: %w", err)
	}
	if err := w.opts.deleteFn(ctx, deletes); err != nil {
		w.requeue(ops)
		return fmt.Errorf("delete many operation failed: %w", err)
	}
	return nil
}

// requeue puts ops back in front of anything buffered since they were taken.
func (w *writer) requeue(ops []writeOp) {
	w.mtx.Lock()
	w.buf = append(ops, w.buf...)
	w.mtx.Unlock()
}

// flusher flushes every flushTime until ctx is done, then flushes what is
// left and reports the result on shutdownCh.
func (w *writer) flusher(ctx context.Context) {
	logger := logging.FromContext(ctx)
	defer func() {
		w.shutdownCh <- w.flush(context.Background())
	}()
	if w.opts.flushTime <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(w.opts.flushTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := w.flush(ctx); err != nil {
				logger.Errorf("writer: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
