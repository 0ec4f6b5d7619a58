package database

type StoreType string

const (
	StoreTypeBolt  StoreType = "BOLT"
	StoreTypeRedis StoreType = "REDIS"
)

type Config struct {
	StoreType StoreType `envconfig:"GEOINDEX_STORE_TYPE" default:"BOLT"`
	// bbolt file holding the features
	FileName string `envconfig:"GEOINDEX_DB_FILE" default:"geoindex.db"`
	// redis connection, used with the REDIS store type
	RedisAddr     string `envconfig:"GEOINDEX_REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"GEOINDEX_REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"GEOINDEX_REDIS_DB" default:"0"`
}
