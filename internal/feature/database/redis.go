package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/go-sod/geoindex/internal/database"
	"github.com/go-sod/geoindex/internal/feature/model"
)

var _ Store = (*RedisDB)(nil)

func NewRedis(db *database.DB) *RedisDB {
	return &RedisDB{client: db.Redis}
}

// RedisDB keeps one hash per layer, field is the feature id, plus a set of
// layer names.
type RedisDB struct {
	client *redis.Client
}

func (db *RedisDB) Layers(ctx context.Context) ([]string, error) {
	layers, err := db.client.SMembers(ctx, layerKeys).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", layerKeys, err)
	}
	return layers, nil
}

func (db *RedisDB) AppendMany(ctx context.Context, features []model.Feature) error {
	if len(features) == 0 {
		return nil
	}
	if _, err := db.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, feature := range features {
			bytes, err := model.Marshal(feature)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, string(bucketName(feature.Layer)), feature.ID.String(), bytes)
			pipe.SAdd(ctx, layerKeys, feature.Layer)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("append pipeline error: %w", err)
	}
	return nil
}

func (db *RedisDB) DeleteMany(ctx context.Context, features []model.Feature) error {
	if len(features) == 0 {
		return nil
	}
	if _, err := db.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, feature := range features {
			pipe.HDel(ctx, string(bucketName(feature.Layer)), feature.ID.String())
		}
		return nil
	}); err != nil {
		return fmt.Errorf("delete pipeline error: %w", err)
	}
	return nil
}

func (db *RedisDB) FindAll(ctx context.Context, fn FilterFn) ([]model.Feature, error) {
	var features []model.Feature
	layers, err := db.Layers(ctx)
	if err != nil {
		return nil, err
	}
	for _, layer := range layers {
		list, err := db.FindByLayer(ctx, layer, fn)
		if err != nil {
			return nil, err
		}
		features = append(features, list...)
	}
	return features, nil
}

func (db *RedisDB) FindByLayer(ctx context.Context, layer string, fn FilterFn) ([]model.Feature, error) {
	values, err := db.client.HVals(ctx, string(bucketName(layer))).Result()
	if err != nil {
		return nil, fmt.Errorf("hvals %s: %w", layer, err)
	}
	list := make([]model.Feature, 0, len(values))
	for _, v := range values {
		feature, err := model.Unmarshal([]byte(v))
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", layer, err)
		}
		list = append(list, feature)
	}
	return filter(list, fn), nil
}

func (db *RedisDB) CountByLayer(ctx context.Context, layer string) (int, error) {
	n, err := db.client.HLen(ctx, string(bucketName(layer))).Result()
	if err != nil {
		return 0, fmt.Errorf("hlen %s: %w", layer, err)
	}
	return int(n), nil
}
