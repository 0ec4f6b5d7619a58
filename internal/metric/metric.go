// Package metric records index operations with OpenCensus and exposes them
// to Prometheus.
package metric

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const (
	OpPut     = "put"
	OpRemove  = "remove"
	OpNearest = "nearest"
	OpKNN     = "knn"
	OpRange   = "range"
)

var (
	opCount   = stats.Int64("geoindex/ops", "index operations", stats.UnitDimensionless)
	opLatency = stats.Float64("geoindex/latency", "index operation latency", stats.UnitMilliseconds)
	features  = stats.Int64("geoindex/features", "features held by the index", stats.UnitDimensionless)

	keyOp tag.Key

	registerOnce sync.Once
	registerErr  error
)

func init() {
	k, err := tag.NewKey("op")
	if err != nil {
		panic(fmt.Sprintf("metric: %v", err))
	}
	keyOp = k
}

// Register registers the index views. Safe to call more than once.
func Register() error {
	registerOnce.Do(func() {
		registerErr = view.Register(
			&view.View{
				Name:        "geoindex/ops_total",
				Description: "index operations by type",
				Measure:     opCount,
				TagKeys:     []tag.Key{keyOp},
				Aggregation: view.Count(),
			},
			&view.View{
				Name:        "geoindex/latency_ms",
				Description: "index operation latency by type",
				Measure:     opLatency,
				TagKeys:     []tag.Key{keyOp},
				Aggregation: view.Distribution(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100),
			},
			&view.View{
				Name:        "geoindex/features",
				Description: "features held by the index",
				Measure:     features,
				Aggregation: view.LastValue(),
			},
		)
	})
	return registerErr
}

// Handler returns the Prometheus scrape handler for the registered views.
func Handler(namespace string) (http.Handler, error) {
	if err := Register(); err != nil {
		return nil, fmt.Errorf("register views: %w", err)
	}
	exporter, err := prometheus.NewExporter(prometheus.Options{Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	view.RegisterExporter(exporter)
	return exporter, nil
}

// RecordOp records one operation of type op that started at start.
func RecordOp(ctx context.Context, op string, start time.Time) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(keyOp, op)},
		opCount.M(1),
		opLatency.M(float64(time.Since(start))/float64(time.Millisecond)),
	)
}

func RecordFeatures(ctx context.Context, n int) {
	stats.Record(ctx, features.M(int64(n)))
}
