package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-sod/geoindex/internal/logging"
	bolt "go.etcd.io/bbolt"
)

// DB holds the connection of the configured store type. Exactly one of
// Bolt and Redis is set.
type DB struct {
	Bolt  *bolt.DB
	Redis *redis.Client
}

func NewFromEnv(ctx context.Context, config *Config) (*DB, error) {
	logger := logging.FromContext(ctx)

	switch config.StoreType {
	case StoreTypeBolt:
		logger.Infof("opening bolt db %s", config.FileName)
		db, err := bolt.Open(config.FileName, 0600, &bolt.Options{Timeout: 5 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("creating connection Db: %w", err)
		}
		return &DB{Bolt: db}, nil
	case StoreTypeRedis:
		logger.Infof("connecting to redis %s", config.RedisAddr)
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", config.RedisAddr, err)
		}
		return &DB{Redis: client}, nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", config.StoreType)
	}
}

func (db *DB) Close(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	logger.Infof("closing DB connection")

	if db.Bolt != nil {
		if err := db.Bolt.Close(); err != nil {
			return fmt.Errorf("error close Db connection: %w", err)
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			return fmt.Errorf("error close redis connection: %w", err)
		}
	}

	return nil
}
