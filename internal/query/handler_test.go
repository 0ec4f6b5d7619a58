package query

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	featureDb "github.com/go-sod/geoindex/internal/feature/database"
	"github.com/go-sod/geoindex/internal/feature/model"
	"github.com/go-sod/geoindex/internal/index"
	"github.com/paulmach/orb/geojson"
)

type nopStore struct{}

func (nopStore) Layers(context.Context) ([]string, error) {
	return nil, nil
}

func (nopStore) AppendMany(context.Context, []model.Feature) error {
	return nil
}

func (nopStore) DeleteMany(context.Context, []model.Feature) error {
	return nil
}

func (nopStore) CountByLayer(context.Context, string) (int, error) {
	return 0, nil
}

func (nopStore) FindAll(context.Context, featureDb.FilterFn) ([]model.Feature, error) {
	return nil, nil
}

func (nopStore) FindByLayer(context.Context, string, featureDb.FilterFn) ([]model.Feature, error) {
	return nil, nil
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	idx, err := index.New(nopStore{}, make(chan error, 1),
		index.WithBounds(10, -10, -10, 10),
		index.WithMaxItems(2),
		index.WithFlushSize(0),
	)
	if err != nil {
		t.Fatalf("unable create index: %v", err)
	}
	now := time.Now()
	idx.Put(context.Background(),
		model.NewFeature("", "A", 5, 5, nil, now),
		model.NewFeature("", "B", 5, -5, nil, now),
		model.NewFeature("", "C", -5, 5, nil, now),
	)
	h, err := NewHandler(&Config{RequestTimeout: time.Second, MaxBatchLen: 10}, idx)
	if err != nil {
		t.Fatalf("unable create handler: %v", err)
	}
	return h
}

func names(t *testing.T, fc *geojson.FeatureCollection) []string {
	t.Helper()
	out := make([]string, len(fc.Features))
	for i, f := range fc.Features {
		out[i], _ = f.Properties["name"].(string)
	}
	return out
}

func TestHandler_Nearest(t *testing.T) {
	h := newTestHandler(t)
	tests := []struct {
		name     string
		query    string
		status   int
		expected string
	}{
		{name: "worked_example", query: "lat=6&lon=6", status: http.StatusOK, expected: "A"},
		{name: "exact_match", query: "lat=5&lon=5&max=0", status: http.StatusOK, expected: "A"},
		{name: "out_of_reach", query: "lat=6&lon=6&max=1", status: http.StatusNotFound},
		{name: "missing_lon", query: "lat=6", status: http.StatusBadRequest},
		{name: "malformed", query: "lat=6&lon=x", status: http.StatusBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nearest?"+test.query, nil))
			if rec.Code != test.status {
				t.Fatalf("status got: %d, expected: %d, body: %s", rec.Code, test.status, rec.Body.String())
			}
			if test.status != http.StatusOK {
				return
			}
			f, err := geojson.UnmarshalFeature(rec.Body.Bytes())
			if err != nil {
				t.Fatalf("unable decode feature: %v", err)
			}
			if got := f.Properties["name"]; got != test.expected {
				t.Errorf("nearest got: %v, expected: %s", got, test.expected)
			}
		})
	}
}

func TestHandler_KNN(t *testing.T) {
	h := newTestHandler(t)
	tests := []struct {
		name     string
		query    string
		status   int
		expected []string
	}{
		{name: "two", query: "lat=5&lon=4&k=2", status: http.StatusOK, expected: []string{"A", "B"}},
		{name: "bounded", query: "lat=5&lon=4&k=3&max=2", status: http.StatusOK, expected: []string{"A"}},
		{name: "zero_k", query: "lat=5&lon=4&k=0", status: http.StatusBadRequest},
		{name: "too_large_k", query: "lat=5&lon=4&k=11", status: http.StatusBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/knn?"+test.query, nil))
			if rec.Code != test.status {
				t.Fatalf("status got: %d, expected: %d, body: %s", rec.Code, test.status, rec.Body.String())
			}
			if test.status != http.StatusOK {
				return
			}
			fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
			if err != nil {
				t.Fatalf("unable decode collection: %v", err)
			}
			got := names(t, fc)
			if len(got) != len(test.expected) {
				t.Fatalf("knn got: %v, expected: %v", got, test.expected)
			}
			for i := range got {
				if got[i] != test.expected[i] {
					t.Errorf("knn got: %v, expected: %v", got, test.expected)
				}
			}
			if d, _ := fc.Features[0].Properties["distance"].(float64); d != 1 {
				t.Errorf("distance got: %v, expected: 1", fc.Features[0].Properties["distance"])
			}
		})
	}
}

func TestHandler_Range(t *testing.T) {
	h := newTestHandler(t)
	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{name: "contained_misses_partial_quadrant", query: "north=6&west=4&south=4&east=6", status: http.StatusOK, count: 0},
		{name: "overlap_finds_point", query: "north=6&west=4&south=4&east=6&mode=overlap", status: http.StatusOK, count: 1},
		{name: "north_half", query: "north=10&west=-10&south=0&east=10", status: http.StatusOK, count: 2},
		{name: "inverted", query: "north=0&west=-10&south=10&east=10", status: http.StatusBadRequest},
		{name: "unknown_mode", query: "north=6&west=4&south=4&east=6&mode=near", status: http.StatusBadRequest},
		{name: "missing_east", query: "north=6&west=4&south=4", status: http.StatusBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/range?"+test.query, nil))
			if rec.Code != test.status {
				t.Fatalf("status got: %d, expected: %d, body: %s", rec.Code, test.status, rec.Body.String())
			}
			if test.status != http.StatusOK {
				return
			}
			fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
			if err != nil {
				t.Fatalf("unable decode collection: %v", err)
			}
			if len(fc.Features) != test.count {
				t.Errorf("range got: %v, expected %d features", names(t, fc), test.count)
			}
		})
	}
}

func TestHandler_Method(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nearest?lat=1&lon=1", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status got: %d, expected: %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
