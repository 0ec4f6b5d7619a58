package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestFromGeoJSON(t *testing.T) {
	now := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.New()

	point := geojson.NewFeature(orb.Point{30.5, 50.25})
	point.ID = id.String()
	point.Properties["name"] = "kyiv"
	point.Properties["population"] = 2884000

	line := geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}})

	tests := []struct {
		name  string
		layer string
		input *geojson.Feature
		err   error
	}{
		{name: "point", layer: "cities", input: point},
		{name: "line", input: line, err: ErrNotPoint},
		{name: "nil", input: nil, err: ErrNotPoint},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f, err := FromGeoJSON(test.layer, test.input, now)
			if !errors.Is(err, test.err) {
				t.Fatalf("error got: %v, expected: %v", err, test.err)
			}
			if err != nil {
				return
			}
			if f.ID != id || f.Layer != "cities" || f.Name != "kyiv" {
				t.Errorf("feature got: %+v, expected id %s layer cities name kyiv", f, id)
			}
			if f.Lat != 50.25 || f.Lon != 30.5 {
				t.Errorf("coordinates got: %f, %f, expected: 50.25, 30.5", f.Lat, f.Lon)
			}
			if f.Props["population"] != "2884000" {
				t.Errorf("props got: %v, expected population 2884000", f.Props)
			}
		})
	}
}

func TestFromGeoJSON_NewID(t *testing.T) {
	gf := geojson.NewFeature(orb.Point{1, 2})
	gf.ID = 42
	f, err := FromGeoJSON("", gf, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID == uuid.Nil {
		t.Errorf("id got nil uuid, expected a generated one")
	}
	if f.Layer != DefaultLayer {
		t.Errorf("layer got: %s, expected: %s", f.Layer, DefaultLayer)
	}
}

func TestFeature_GeoJSON(t *testing.T) {
	f := NewFeature("poi", "cafe", 10, 20, map[string]string{"open": "yes"}, time.Unix(0, 0).UTC())
	gf := f.GeoJSON()
	p, ok := gf.Geometry.(orb.Point)
	if !ok || p.Lat() != 10 || p.Lon() != 20 {
		t.Fatalf("geometry got: %v, expected point lat 10 lon 20", gf.Geometry)
	}
	back, err := FromGeoJSON("poi", gf, f.CreatedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.ID != f.ID || back.Name != f.Name || back.Props["open"] != "yes" || len(back.Props) != 1 {
		t.Errorf("round trip got: %+v, expected: %+v", back, f)
	}
}
