package config

import (
	"github.com/go-sod/geoindex/internal/collect"
	"github.com/go-sod/geoindex/internal/database"
	"github.com/go-sod/geoindex/internal/index"
	"github.com/go-sod/geoindex/internal/query"
	"github.com/go-sod/geoindex/internal/setup"
)

var (
	_ setup.DatabaseConfigProvider = (*Config)(nil)
	_ setup.IndexConfigProvider    = (*Config)(nil)
)

type Config struct {
	SrvAddr  string `envconfig:"GEOINDEX_ADDR" default:":8787"`
	GRPCAddr string `envconfig:"GEOINDEX_GRPC_ADDR" default:":8788"`
	Debug    bool   `envconfig:"GEOINDEX_LOG_DEBUG" default:"false"`

	// Simultaneous HTTP connections, 0 is unlimited
	MaxConns int `envconfig:"GEOINDEX_MAX_CONNS" default:"1024"`

	Index    index.Config
	Database database.Config
	Collect  collect.Config
	Query    query.Config
}

func (c *Config) IndexConfig() *index.Config {
	return &c.Index
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}
