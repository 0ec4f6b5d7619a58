package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sod/geoindex/internal/database"
	"github.com/go-sod/geoindex/internal/index"
)

type testConfig struct {
	Index    index.Config
	Database database.Config
}

func (c *testConfig) IndexConfig() *index.Config {
	return &c.Index
}

func (c *testConfig) DatabaseConfig() *database.Config {
	return &c.Database
}

func TestSetup(t *testing.T) {
	file := filepath.Join(t.TempDir(), "setup.db")
	if err := os.Setenv("GEOINDEX_DB_FILE", file); err != nil {
		t.Fatalf("set env: %v", err)
	}
	defer os.Unsetenv("GEOINDEX_DB_FILE")

	ctx := context.Background()
	var cfg testConfig
	env, err := Setup(ctx, &cfg)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer env.Close(ctx)

	if env.Database() == nil || env.Database().Bolt == nil {
		t.Fatalf("database got: %+v, expected bolt connection", env.Database())
	}
	if env.Store() == nil {
		t.Fatalf("store got nil")
	}
	idx, err := env.ProvideIndex()(make(chan error, 1))
	if err != nil {
		t.Fatalf("provide index: %v", err)
	}
	if b := idx.Bounds(); b.North() != 90 || b.East() != 180 {
		t.Errorf("index bounds got: %v, expected the whole globe", b)
	}
}

func TestSetup_NoProviders(t *testing.T) {
	var cfg struct {
		Index index.Config
	}
	env, err := Setup(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("setup without providers: %v", err)
	}
	if env.Store() != nil || env.ProvideIndex() != nil {
		t.Errorf("env got store or index without providers")
	}
}
