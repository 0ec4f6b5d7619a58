package query

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"GEOINDEX_QUERY_REQUEST_TIMEOUT" default:"10s"`
	// Upper bound for k in k nearest queries
	MaxBatchLen int `envconfig:"GEOINDEX_QUERY_MAX_BATCH_LEN" default:"1000"`
}
