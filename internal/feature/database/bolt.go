package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sod/geoindex/internal/database"
	"github.com/go-sod/geoindex/internal/feature/model"
	bolt "go.etcd.io/bbolt"
)

var _ Store = (*BoltDB)(nil)

func NewBolt(db *database.DB) *BoltDB {
	return &BoltDB{sDB: db}
}

// BoltDB keeps one bucket per layer keyed by feature id, plus a bucket
// listing the layers.
type BoltDB struct {
	sDB *database.DB
}

func (db *BoltDB) extractKey(key string) string {
	prefixPos := strings.Index(key, prefix)

	return key[prefixPos+len(prefix):]
}

func (db *BoltDB) Layers(_ context.Context) ([]string, error) {
	var layers []string
	err := db.sDB.Bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(layerKeys))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			layers = append(layers, db.extractKey(string(k)))
		}
		return nil
	})

	return layers, err
}

func (db *BoltDB) AppendMany(_ context.Context, features []model.Feature) error {
	if len(features) == 0 {
		return nil
	}
	if err := db.sDB.Bolt.Batch(func(tx *bolt.Tx) error {
		keys, err := tx.CreateBucketIfNotExists([]byte(layerKeys))
		if err != nil {
			return fmt.Errorf("unable create layers bucket: %w", err)
		}
		for _, feature := range features {
			b, err := tx.CreateBucketIfNotExists(bucketName(feature.Layer))
			if err != nil {
				return fmt.Errorf("create bucket: %w", err)
			}
			bytes, err := model.Marshal(feature)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(feature.ID.String()), bytes); err != nil {
				return fmt.Errorf("put to bucket error: %w", err)
			}
			if err := keys.Put(bucketName(feature.Layer), []byte{0x0}); err != nil {
				return fmt.Errorf("unable put to layers bucket: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *BoltDB) DeleteMany(_ context.Context, features []model.Feature) error {
	if len(features) == 0 {
		return nil
	}
	if err := db.sDB.Bolt.Batch(func(tx *bolt.Tx) error {
		for _, feature := range features {
			b := tx.Bucket(bucketName(feature.Layer))
			if b == nil {
				continue
			}
			if err := b.Delete([]byte(feature.ID.String())); err != nil {
				return fmt.Errorf("unable delete: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *BoltDB) FindAll(ctx context.Context, fn FilterFn) ([]model.Feature, error) {
	var features []model.Feature
	layers, err := db.Layers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching layers: %w", err)
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

func (db *BoltDB) FindByLayer(_ context.Context, layer string, fn FilterFn) ([]model.Feature, error) {
	var list []model.Feature
	if err := db.sDB.Bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(layer))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			feature, err := model.Unmarshal(v)
			if err != nil {
				return fmt.Errorf("feature %s: %w", k, err)
			}
			list = append(list, feature)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return filter(list, fn), nil
}

func (db *BoltDB) CountByLayer(_ context.Context, layer string) (int, error) {
	var length int
	if err := db.sDB.Bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(layer))
		if b == nil {
			return nil
		}
		length = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %w", err)
	}

	return length, nil
}
