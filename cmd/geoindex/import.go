package main

import (
	"context"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-sod/geoindex/internal/database"
	featureDb "github.com/go-sod/geoindex/internal/feature/database"
	"github.com/go-sod/geoindex/internal/feature/model"
	"github.com/go-sod/geoindex/pkg/rworker"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

// featureFile is the TOML layout accepted by import:
//
//	[[feature]]
//	layer = "cities"
//	name = "kyiv"
//	lat = 50.45
//	lon = 30.52
//	[feature.props]
//	country = "ua"
type featureFile struct {
	Feature []struct {
		ID    string            `toml:"id"`
		Layer string            `toml:"layer"`
		Name  string            `toml:"name"`
		Lat   float64           `toml:"lat"`
		Lon   float64           `toml:"lon"`
		Props map[string]string `toml:"props"`
	} `toml:"feature"`
}

func loadFeatureFile(path string, now time.Time) ([]model.Feature, error) {
	var file featureFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return file.features(now)
}

func (f featureFile) features(now time.Time) ([]model.Feature, error) {
	out := make([]model.Feature, 0, len(f.Feature))
	for i, rec := range f.Feature {
		feature := model.NewFeature(rec.Layer, rec.Name, rec.Lat, rec.Lon, rec.Props, now)
		if rec.ID != "" {
			id, err := uuid.Parse(rec.ID)
			if err != nil {
				return nil, fmt.Errorf("feature %d: invalid id %q: %w", i, rec.ID, err)
			}
			feature.ID = id
		}
		out = append(out, feature)
	}
	return out, nil
}

func importFeatures(ctx context.Context, features []model.Feature, batch, workers int) (int, error) {
	var cfg database.Config
	if err := envconfig.Process("", &cfg); err != nil {
		return 0, fmt.Errorf("error loading environment variables: %w", err)
	}
	db, err := database.NewFromEnv(ctx, &cfg)
	if err != nil {
		return 0, fmt.Errorf("unable to connect to database: %w", err)
	}
	defer db.Close(ctx)

	store, err := featureDb.New(db)
	if err != nil {
		return 0, err
	}
	return writeBatches(ctx, store, features, batch, workers)
}

func writeBatches(ctx context.Context, store featureDb.Store, features []model.Feature, batch, workers int) (int, error) {
	if batch < 1 {
		batch = len(features)
	}
	pool := rworker.New(workers)
	for start := 0; start < len(features); start += batch {
		end := start + batch
		if end > len(features) {
			end = len(features)
		}
		chunk := features[start:end]
		pool.Go(func() error {
			return store.AppendMany(ctx, chunk)
		})
	}
	if err := pool.Wait(); err != nil {
		return 0, fmt.Errorf("append features: %w", err)
	}
	return len(features), nil
}
