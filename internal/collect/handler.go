package collect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-sod/geoindex/internal/feature/model"
	"github.com/go-sod/geoindex/internal/httputil"
	"github.com/go-sod/geoindex/internal/logging"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

const maxBodyBytes = 64 * 1024 * 1024

// Indexer stores and removes features.
type Indexer interface {
	Put(ctx context.Context, features ...model.Feature) (accepted, rejected []model.Feature)
	Remove(ctx context.Context, id uuid.UUID) (model.Feature, bool)
}

type response struct {
	IDs      []string `json:"ids"`
	Rejected []string `json:"rejected,omitempty"`
}

func NewHandler(cfg *Config, index Indexer) (http.Handler, error) {
	if index == nil {
		return nil, fmt.Errorf("index is not created")
	}
	return &handler{
		cfg:   cfg,
		index: index,
		now:   time.Now,
	}, nil
}

type handler struct {
	cfg   *Config
	index Indexer
	now   func() time.Time
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	switch r.Method {
	case http.MethodPost:
		h.put(ctx, w, r)
	case http.MethodDelete:
		h.remove(ctx, w, r)
	default:
		httputil.RespMethodNotAllowed(ctx, w, r.Method)
	}
}

func (h *handler) put(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(ctx)
	if t := r.Header.Get("content-type"); !isJSON(t) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		logger.Debug(`{"error": "content-type is not application/json"}`)
		_, _ = fmt.Fprint(w, `{"error": "content-type is not application/json"}`)
		return
	}

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.DecodeErr(ctx, w, err)
		return
	}
	if len(body) == 0 {
		httputil.RespBadRequest(ctx, w, `{"error": "body must not be empty"}`)
		return
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "malformed feature collection: %v"}`, err)
		return
	}
	if h.cfg.MaxFeatures > 0 && len(fc.Features) > h.cfg.MaxFeatures {
		httputil.RespBadRequest(ctx, w, `{"error": "too many features, max allowed len is %d"}`, h.cfg.MaxFeatures)
		return
	}

	layer := r.URL.Query().Get("layer")
	now := h.now().UTC()
	features := make([]model.Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		f, err := model.FromGeoJSON(layer, gf, now)
		if err != nil {
			httputil.RespBadRequest(ctx, w, `{"error": "feature %d: %v"}`, i, err)
			return
		}
		features = append(features, f)
	}

	accepted, rejected := h.index.Put(ctx, features...)
	resp := response{IDs: make([]string, len(accepted))}
	for i := range accepted {
		resp.IDs[i] = accepted[i].ID.String()
	}
	for i := range rejected {
		resp.Rejected = append(resp.Rejected, rejected[i].ID.String())
	}
	logger.Infof("collected %d features into layer %q, rejected %d", len(accepted), layer, len(rejected))
	httputil.RespJSON(ctx, w, http.StatusOK, resp)
}

func (h *handler) remove(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "invalid id %q"}`, raw)
		return
	}
	f, ok := h.index.Remove(ctx, id)
	if !ok {
		httputil.RespNotFound(ctx, w, `{"error": "feature %s not found"}`, id)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, f.GeoJSON())
}

func isJSON(contentType string) bool {
	for _, prefix := range []string{"application/json", "application/geo+json"} {
		if len(contentType) >= len(prefix) && contentType[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
