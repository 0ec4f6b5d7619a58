package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sod/geoindex/internal/collect"
	"github.com/go-sod/geoindex/internal/database"
	featureDb "github.com/go-sod/geoindex/internal/feature/database"
	"github.com/go-sod/geoindex/internal/index"
	"github.com/go-sod/geoindex/internal/query"
	"github.com/go-sod/geoindex/internal/server"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"
)

// newTestService wires the handlers over a bolt backed index the way the
// server binary does.
func newTestService(t *testing.T) (*Client, *index.Index) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	db, err := database.NewFromEnv(ctx, &database.Config{
		StoreType: database.StoreTypeBolt,
		FileName:  filepath.Join(t.TempDir(), "integration.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	t.Cleanup(cancel)

	store, err := featureDb.New(db)
	require.NoError(t, err)
	idx, err := index.New(store, make(chan error, 1),
		index.WithBounds(10, -10, -10, 10),
		index.WithMaxItems(2),
		index.WithFlushSize(1),
	)
	require.NoError(t, err)
	require.NoError(t, idx.Run(ctx))

	collectHandler, err := collect.NewHandler(&collect.Config{RequestTimeout: time.Second, MaxFeatures: 100}, idx)
	require.NoError(t, err)
	queryHandler, err := query.NewHandler(&query.Config{RequestTimeout: time.Second, MaxBatchLen: 100}, idx)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle("/features", collectHandler)
	mux.Handle("/nearest", queryHandler)
	mux.Handle("/knn", queryHandler)
	mux.Handle("/range", queryHandler)
	mux.Handle("/health", server.HandleHealth(ctx))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(strings.TrimPrefix(srv.URL, "http://")), idx
}

func point(name string, lat, lon float64) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{lon, lat})
	f.Properties["name"] = name
	return f
}

func TestClient_PutQueryDelete(t *testing.T) {
	ctx := context.Background()
	client, idx := newTestService(t)

	resp, err := client.Health(ctx)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fc := geojson.NewFeatureCollection()
	fc.Append(point("A", 5, 5))
	fc.Append(point("B", 5, -5))
	fc.Append(point("C", -5, 5))
	fc.Append(point("far", 50, 50))
	put, err := client.Put(ctx, "poi", fc)
	require.NoError(t, err)
	require.Len(t, put.IDs, 3)
	require.Len(t, put.Rejected, 1)
	require.Equal(t, 3, idx.Len())
	require.Equal(t, 2, idx.Depth())

	nearest, err := client.Nearest(ctx, 6, 6, -1)
	require.NoError(t, err)
	require.NotNil(t, nearest)
	require.Equal(t, "A", nearest.Properties["name"])
	require.Equal(t, "poi", nearest.Properties["layer"])

	exact, err := client.Nearest(ctx, 5, 5, 0)
	require.NoError(t, err)
	require.NotNil(t, exact)
	require.Equal(t, "A", exact.Properties["name"])

	none, err := client.Nearest(ctx, 6, 6, 1)
	require.NoError(t, err)
	require.Nil(t, none)

	knn, err := client.KNearest(ctx, 0, 0, 3, -1)
	require.NoError(t, err)
	require.Len(t, knn.Features, 3)

	contained, err := client.Range(ctx, 6, 4, 4, 6, "")
	require.NoError(t, err)
	require.Empty(t, contained.Features)

	overlap, err := client.Range(ctx, 6, 4, 4, 6, "overlap")
	require.NoError(t, err)
	require.Len(t, overlap.Features, 1)

	deleted, err := client.Delete(ctx, put.IDs[0])
	require.NoError(t, err)
	require.Equal(t, put.IDs[0], deleted.ID)
	require.Equal(t, 2, idx.Len())

	_, err = client.Delete(ctx, put.IDs[0])
	se, ok := err.(*StatusError)
	require.True(t, ok, "expected status error, got %v", err)
	require.Equal(t, http.StatusNotFound, se.Code)
}
