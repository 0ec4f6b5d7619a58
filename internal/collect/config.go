package collect

import (
	"time"
)

type Config struct {
	RequestTimeout time.Duration `envconfig:"GEOINDEX_COLLECT_REQUEST_TIMEOUT" default:"60s"`
	MaxFeatures    int           `envconfig:"GEOINDEX_COLLECT_MAX_FEATURES" default:"10000"`
}
