package database

import (
	"context"
	"fmt"

	"github.com/go-sod/geoindex/internal/database"
	"github.com/go-sod/geoindex/internal/feature/model"
)

const (
	layerKeys = "layer:keys:"
	prefix    = "feature:"
)

type FilterFn func(feature model.Feature) bool

// Store keeps features grouped by layer. It is the source the in-memory
// index is rebuilt from on start.
type Store interface {
	Layers(ctx context.Context) ([]string, error)
	AppendMany(ctx context.Context, features []model.Feature) error
	DeleteMany(ctx context.Context, features []model.Feature) error
	FindAll(ctx context.Context, filter FilterFn) ([]model.Feature, error)
	FindByLayer(ctx context.Context, layer string, filter FilterFn) ([]model.Feature, error)
	CountByLayer(ctx context.Context, layer string) (int, error)
}

// New returns the store backed by whichever connection db holds.
func New(db *database.DB) (Store, error) {
	switch {
	case db == nil:
		return nil, fmt.Errorf("feature store: db is not created")
	case db.Bolt != nil:
		return NewBolt(db), nil
	case db.Redis != nil:
		return NewRedis(db), nil
	default:
		return nil, fmt.Errorf("feature store: db has no connection")
	}
}

func bucketName(layer string) []byte {
	return []byte(prefix + layer)
}

func filter(features []model.Feature, fn FilterFn) []model.Feature {
	if fn == nil {
		return features
	}
	filtered := features[:0]
	for _, f := range features {
		if fn(f) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
