package query

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-sod/geoindex/internal/feature/model"
	"github.com/go-sod/geoindex/internal/httputil"
	"github.com/go-sod/geoindex/internal/index"
	"github.com/go-sod/geoindex/pkg/container/quadtree"
)

const propDistance = "distance"

// Searcher answers spatial queries over indexed features.
type Searcher interface {
	Nearest(ctx context.Context, lat, lon, maxDistance float64) (model.Feature, bool)
	KNearest(ctx context.Context, lat, lon float64, k int, maxDistance float64) []index.Neighbor
	Range(ctx context.Context, rect quadtree.Rect, mode index.RangeMode) ([]model.Feature, error)
}

// NewHandler returns the query routes: /nearest, /knn and /range.
func NewHandler(cfg *Config, searcher Searcher) (http.Handler, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is not created")
	}
	h := &handler{cfg: cfg, searcher: searcher}
	mux := http.NewServeMux()
	mux.HandleFunc("/nearest", h.wrap(h.nearest))
	mux.HandleFunc("/knn", h.wrap(h.knn))
	mux.HandleFunc("/range", h.wrap(h.rng))
	return mux, nil
}

type handler struct {
	cfg      *Config
	searcher Searcher
}

func (h *handler) wrap(fn func(context.Context, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
		defer cancel()
		if r.Method != http.MethodGet {
			httputil.RespMethodNotAllowed(ctx, w, r.Method)
			return
		}
		fn(ctx, w, r)
	}
}

func (h *handler) nearest(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	lat, lon, maxDistance, err := pointParams(r)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	}
	f, ok := h.searcher.Nearest(ctx, lat, lon, maxDistance)
	if !ok {
		httputil.RespNotFound(ctx, w, `{"error": "no feature near %v, %v"}`, lat, lon)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, f.GeoJSON())
}

func (h *handler) knn(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	lat, lon, maxDistance, err := pointParams(r)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	}
	k, err := strconv.Atoi(r.URL.Query().Get("k"))
	if err != nil || k < 1 {
		httputil.RespBadRequest(ctx, w, `{"error": "parameter k must be a positive integer"}`)
		return
	}
	if h.cfg.MaxBatchLen > 0 && k > h.cfg.MaxBatchLen {
		httputil.RespBadRequest(ctx, w, `{"error": "k is too large, max allowed is %d"}`, h.cfg.MaxBatchLen)
		return
	}

	found := h.searcher.KNearest(ctx, lat, lon, k, maxDistance)
	features := make([]model.Feature, len(found))
	for i := range found {
		features[i] = found[i].Feature
	}
	fc := model.NewFeatureCollection(features)
	for i := range found {
		fc.Features[i].Properties[propDistance] = found[i].Distance
	}
	httputil.RespJSON(ctx, w, http.StatusOK, fc)
}

func (h *handler) rng(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	var bounds [4]float64
	for i, name := range []string{"north", "west", "south", "east"} {
		v, err := httputil.FloatParam(r, name, nil)
		if err != nil {
			httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
			return
		}
		bounds[i] = v
	}
	var mode index.RangeMode
	if raw := r.URL.Query().Get("mode"); raw != "" {
		if err := mode.Decode(strings.ToUpper(raw)); err != nil {
			httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
			return
		}
	}

	rect := quadtree.NewRect(bounds[0], bounds[1], bounds[2], bounds[3])
	found, err := h.searcher.Range(ctx, rect, mode)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, model.NewFeatureCollection(found))
}

// pointParams reads lat, lon and the optional max distance. A missing max
// searches without a bound.
func pointParams(r *http.Request) (lat, lon, maxDistance float64, err error) {
	if lat, err = httputil.FloatParam(r, "lat", nil); err != nil {
		return 0, 0, 0, err
	}
	if lon, err = httputil.FloatParam(r, "lon", nil); err != nil {
		return 0, 0, 0, err
	}
	unbounded := -1.0
	if maxDistance, err = httputil.FloatParam(r, "max", &unbounded); err != nil {
		return 0, 0, 0, err
	}
	return lat, lon, maxDistance, nil
}
