package collect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-sod/geoindex/internal/feature/model"
	"github.com/google/uuid"
)

type fakeIndex struct {
	mtx      sync.Mutex
	features map[uuid.UUID]model.Feature
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{features: map[uuid.UUID]model.Feature{}}
}

func (f *fakeIndex) Put(_ context.Context, features ...model.Feature) (accepted, rejected []model.Feature) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	for _, ft := range features {
		if ft.Lat > 90 || ft.Lat < -90 {
			rejected = append(rejected, ft)
			continue
		}
		f.features[ft.ID] = ft
		accepted = append(accepted, ft)
	}
	return accepted, rejected
}

func (f *fakeIndex) Remove(_ context.Context, id uuid.UUID) (model.Feature, bool) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	ft, ok := f.features[id]
	delete(f.features, id)
	return ft, ok
}

func newTestHandler(t *testing.T, index Indexer) http.Handler {
	t.Helper()
	h, err := NewHandler(&Config{RequestTimeout: time.Second, MaxFeatures: 3}, index)
	if err != nil {
		t.Fatalf("unable create handler: %v", err)
	}
	return h
}

const collection = `{"type":"FeatureCollection","features":[
	{"type":"Feature","geometry":{"type":"Point","coordinates":[30.5,50.4]},"properties":{"name":"kyiv"}},
	{"type":"Feature","geometry":{"type":"Point","coordinates":[0,120]},"properties":{"name":"nowhere"}}
]}`

func TestHandler_Post(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		status      int
		ids         int
		rejected    int
	}{
		{name: "positive", method: http.MethodPost, contentType: "application/geo+json", body: collection, status: http.StatusOK, ids: 1, rejected: 1},
		{name: "method", method: http.MethodGet, contentType: "application/json", status: http.StatusMethodNotAllowed},
		{name: "content_type", method: http.MethodPost, contentType: "text/plain", body: collection, status: http.StatusUnsupportedMediaType},
		{name: "empty", method: http.MethodPost, contentType: "application/json", status: http.StatusBadRequest},
		{name: "malformed", method: http.MethodPost, contentType: "application/json", body: `{"type":`, status: http.StatusBadRequest},
		{
			name:        "not_point",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}]}`,
			status:      http.StatusBadRequest,
		},
		{
			name:        "too_many",
			method:      http.MethodPost,
			contentType: "application/json",
			body: `{"type":"FeatureCollection","features":[` +
				strings.Repeat(`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{}},`, 3) +
				`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{}}]}`,
			status: http.StatusBadRequest,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			index := newFakeIndex()
			h := newTestHandler(t, index)
			req := httptest.NewRequest(test.method, "/features?layer=cities", strings.NewReader(test.body))
			req.Header.Set("Content-Type", test.contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != test.status {
				t.Fatalf("status got: %d, expected: %d, body: %s", rec.Code, test.status, rec.Body.String())
			}
			if test.status != http.StatusOK {
				return
			}
			var resp response
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unable decode response: %v", err)
			}
			if len(resp.IDs) != test.ids || len(resp.Rejected) != test.rejected {
				t.Errorf("response got: %+v, expected %d ids and %d rejected", resp, test.ids, test.rejected)
			}
			for _, f := range index.features {
				if f.Layer != "cities" || f.Name != "kyiv" {
					t.Errorf("stored feature got: %+v, expected layer cities name kyiv", f)
				}
			}
		})
	}
}

func TestHandler_Delete(t *testing.T) {
	index := newFakeIndex()
	f := model.NewFeature("", "a", 1, 2, nil, time.Now())
	index.Put(context.Background(), f)
	h := newTestHandler(t, index)

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{name: "positive", id: f.ID.String(), status: http.StatusOK},
		{name: "already_removed", id: f.ID.String(), status: http.StatusNotFound},
		{name: "malformed", id: "abc", status: http.StatusBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/features?id="+test.id, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != test.status {
				t.Errorf("status got: %d, expected: %d", rec.Code, test.status)
			}
		})
	}
}

func TestNewHandler_NilIndex(t *testing.T) {
	if _, err := NewHandler(&Config{}, nil); err == nil {
		t.Errorf("new handler got nil error, expected error")
	}
}
