package database

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-sod/geoindex/internal/database"
	"github.com/go-sod/geoindex/internal/feature/model"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, storeType database.StoreType) Store {
	t.Helper()
	ctx := context.Background()
	cfg := &database.Config{StoreType: storeType}
	switch storeType {
	case database.StoreTypeBolt:
		cfg.FileName = filepath.Join(t.TempDir(), "features.db")
	case database.StoreTypeRedis:
		srv, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(srv.Close)
		cfg.RedisAddr = srv.Addr()
	}
	db, err := database.NewFromEnv(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close(ctx))
	})
	store, err := New(db)
	require.NoError(t, err)
	return store
}

// eachStore runs fn against a bolt and a redis backed store.
func eachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	for _, storeType := range []database.StoreType{database.StoreTypeBolt, database.StoreTypeRedis} {
		storeType := storeType
		t.Run(string(storeType), func(t *testing.T) {
			fn(t, newTestStore(t, storeType))
		})
	}
}

func TestStore_AppendFind(t *testing.T) {
	ctx := context.Background()
	eachStore(t, func(t *testing.T, store Store) {
		now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		features := []model.Feature{
			model.NewFeature("poi", "a", 1, 1, map[string]string{"k": "v"}, now),
			model.NewFeature("poi", "b", 2, 2, nil, now),
			model.NewFeature("roads", "c", 3, 3, nil, now),
		}
		require.NoError(t, store.AppendMany(ctx, features))

		layers, err := store.Layers(ctx)
		require.NoError(t, err)
		sort.Strings(layers)
		require.Equal(t, []string{"poi", "roads"}, layers)

		poi, err := store.FindByLayer(ctx, "poi", nil)
		require.NoError(t, err)
		require.Len(t, poi, 2)

		count, err := store.CountByLayer(ctx, "roads")
		require.NoError(t, err)
		require.Equal(t, 1, count)

		all, err := store.FindAll(ctx, func(f model.Feature) bool { return f.Lat > 1 })
		require.NoError(t, err)
		require.Len(t, all, 2)

		missing, err := store.FindByLayer(ctx, "missing", nil)
		require.NoError(t, err)
		require.Empty(t, missing)
	})
}

func TestStore_AppendOverwrites(t *testing.T) {
	ctx := context.Background()
	eachStore(t, func(t *testing.T, store Store) {
		f := model.NewFeature("poi", "old", 1, 1, nil, time.Now().UTC())
		require.NoError(t, store.AppendMany(ctx, []model.Feature{f}))
		f.Name = "new"
		require.NoError(t, store.AppendMany(ctx, []model.Feature{f}))

		list, err := store.FindByLayer(ctx, "poi", nil)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "new", list[0].Name)
	})
}

func TestStore_DeleteMany(t *testing.T) {
	ctx := context.Background()
	eachStore(t, func(t *testing.T, store Store) {
		now := time.Now().UTC()
		a := model.NewFeature("poi", "a", 1, 1, nil, now)
		b := model.NewFeature("poi", "b", 2, 2, nil, now)
		require.NoError(t, store.AppendMany(ctx, []model.Feature{a, b}))
		require.NoError(t, store.DeleteMany(ctx, []model.Feature{a, model.NewFeature("nolayer", "x", 0, 0, nil, now)}))

		list, err := store.FindAll(ctx, nil)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, b.ID, list[0].ID)
	})
}

func TestNew_NoConnection(t *testing.T) {
	_, err := New(&database.DB{})
	require.Error(t, err)
	_, err = New(nil)
	require.Error(t, err)
}
