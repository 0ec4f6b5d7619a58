package srvenv

import (
	"context"

	"github.com/go-sod/geoindex/internal/database"
	featureDb "github.com/go-sod/geoindex/internal/feature/database"
	"github.com/go-sod/geoindex/internal/index"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database *database.DB
	store    featureDb.Store
	index    index.ProvideFn
}

func (s *SrvEnv) ProvideIndex() index.ProvideFn {
	return s.index
}

func (s *SrvEnv) Store() featureDb.Store {
	return s.store
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func WithIndex(fn index.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.index = fn
		return s
	}
}

func WithStore(store featureDb.Store) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.store = store
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
