package index

import (
	"fmt"
	"time"
)

type RangeMode string

const (
	// RangeModeContained only descends into quadrants lying entirely inside
	// the query rectangle.
	RangeModeContained RangeMode = "CONTAINED"
	// RangeModeOverlap descends into every quadrant touching the query.
	RangeModeOverlap RangeMode = "OVERLAP"
)

func (m *RangeMode) Decode(value string) error {
	switch RangeMode(value) {
	case RangeModeContained, RangeModeOverlap:
		*m = RangeMode(value)
		return nil
	default:
		return fmt.Errorf("unknown range mode: %s", value)
	}
}

type Config struct {
	// Area covered by the root node
	North float64 `envconfig:"GEOINDEX_NORTH" default:"90"`
	West  float64 `envconfig:"GEOINDEX_WEST" default:"-180"`
	South float64 `envconfig:"GEOINDEX_SOUTH" default:"-90"`
	East  float64 `envconfig:"GEOINDEX_EAST" default:"180"`
	// Leaves a bucket holds before it splits
	MaxItems int `envconfig:"GEOINDEX_MAX_ITEMS" default:"32"`
	// Cells at or below this size in both dimensions never split, 0 disables
	MinSize   float64   `envconfig:"GEOINDEX_MIN_SIZE" default:"0"`
	RangeMode RangeMode `envconfig:"GEOINDEX_RANGE_MODE" default:"CONTAINED"`
	// Buffered store writes are flushed when either limit is reached
	FlushSize int           `envconfig:"GEOINDEX_FLUSH_SIZE" default:"100"`
	FlushTime time.Duration `envconfig:"GEOINDEX_FLUSH_TIME" default:"5s"`
	// Maintenance: retention per layer and compaction, 0 disables a limit
	MaintenanceTime     time.Duration `envconfig:"GEOINDEX_MAINTENANCE_TIME" default:"1m"`
	MaxFeaturesPerLayer int           `envconfig:"GEOINDEX_MAX_FEATURES_PER_LAYER" default:"0"`
	MaxStorageTime      time.Duration `envconfig:"GEOINDEX_MAX_STORAGE_TIME" default:"0"`
}
