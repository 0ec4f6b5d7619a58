package model

import (
	"time"

	"github.com/google/uuid"
)

const DefaultLayer = "default"

func NewFeature(layer, name string, lat, lon float64, props map[string]string, createdAt time.Time) Feature {
	if layer == "" {
		layer = DefaultLayer
	}
	return Feature{
		ID:        uuid.New(),
		Layer:     layer,
		Name:      name,
		Lat:       lat,
		Lon:       lon,
		Props:     props,
		CreatedAt: createdAt,
	}
}

// Feature is a named map point. Features are treated as immutable once
// indexed: an update replaces the stored value.
type Feature struct {
	ID        uuid.UUID         `json:"id"`
	Layer     string            `json:"layer"`
	Name      string            `json:"name"`
	Lat       float64           `json:"lat"`
	Lon       float64           `json:"lon"`
	Props     map[string]string `json:"props,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (f Feature) Point() (lat, lon float64) {
	return f.Lat, f.Lon
}
