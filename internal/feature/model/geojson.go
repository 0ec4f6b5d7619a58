package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	propName      = "name"
	propLayer     = "layer"
	propCreatedAt = "createdAt"
)

var ErrNotPoint = errors.New("geometry is not a point")

// FromGeoJSON converts a GeoJSON point feature. A string id that parses as a
// UUID is kept so the feature replaces the indexed one; otherwise a new id
// is assigned. The "name" property becomes the feature name, the remaining
// properties are stored as strings.
func FromGeoJSON(layer string, gf *geojson.Feature, createdAt time.Time) (Feature, error) {
	if gf == nil || gf.Geometry == nil {
		return Feature{}, fmt.Errorf("feature without geometry: %w", ErrNotPoint)
	}
	point, ok := gf.Geometry.(orb.Point)
	if !ok {
		return Feature{}, fmt.Errorf("%s: %w", gf.Geometry.GeoJSONType(), ErrNotPoint)
	}

	var (
		name  string
		props map[string]string
	)
	for k, v := range gf.Properties {
		switch k {
		case propName:
			name = fmt.Sprint(v)
		case propLayer, propCreatedAt:
		default:
			if props == nil {
				props = make(map[string]string, len(gf.Properties))
			}
			props[k] = fmt.Sprint(v)
		}
	}

	f := NewFeature(layer, name, point.Lat(), point.Lon(), props, createdAt)
	if s, ok := gf.ID.(string); ok {
		if id, err := uuid.Parse(s); err == nil {
			f.ID = id
		}
	}
	return f, nil
}

// GeoJSON returns the feature as a GeoJSON point.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(orb.Point{f.Lon, f.Lat})
	gf.ID = f.ID.String()
	for k, v := range f.Props {
		gf.Properties[k] = v
	}
	gf.Properties[propName] = f.Name
	gf.Properties[propLayer] = f.Layer
	gf.Properties[propCreatedAt] = f.CreatedAt.Format(time.RFC3339Nano)
	return gf
}

func NewFeatureCollection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range features {
		fc.Append(features[i].GeoJSON())
	}
	return fc
}
