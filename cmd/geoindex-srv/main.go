package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-sod/geoindex/internal/buildinfo"
	"github.com/go-sod/geoindex/internal/collect"
	"github.com/go-sod/geoindex/internal/config"
	"github.com/go-sod/geoindex/internal/logging"
	"github.com/go-sod/geoindex/internal/metric"
	"github.com/go-sod/geoindex/internal/query"
	"github.com/go-sod/geoindex/internal/server"
	"github.com/go-sod/geoindex/internal/setup"
	"github.com/go-sod/geoindex/internal/shutdown"
	"golang.org/x/sync/errgroup"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintln(os.Stdout, buildinfo.Info.String())

	ctx, done := shutdown.New()
	defer done()

	logger := logging.FromContext(ctx)
	if err := run(ctx); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg := config.Config{}
	env, err := setup.Setup(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	logger := logging.NewLogger(cfg.Debug)
	ctx = logging.WithLogger(ctx, logger)

	shutdownCh := make(chan error, 1)
	idx, err := env.ProvideIndex()(shutdownCh)
	if err != nil {
		return fmt.Errorf("index provider function error: %w", err)
	}
	if err := idx.Run(ctx); err != nil {
		return fmt.Errorf("index.Run: %w", err)
	}

	metricsHandler, err := metric.Handler("geoindex")
	if err != nil {
		return fmt.Errorf("metric.Handler: %w", err)
	}
	collectHandler, err := collect.NewHandler(&cfg.Collect, idx)
	if err != nil {
		return fmt.Errorf("collect.NewHandler: %w", err)
	}
	queryHandler, err := query.NewHandler(&cfg.Query, idx)
	if err != nil {
		return fmt.Errorf("query.NewHandler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/features", collectHandler)
	mux.Handle("/nearest", queryHandler)
	mux.Handle("/knn", queryHandler)
	mux.Handle("/range", queryHandler)
	mux.Handle("/health", server.HandleHealth(ctx))
	mux.Handle("/metrics", metricsHandler)
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	srv, err := server.New(cfg.SrvAddr, cfg.MaxConns)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	grpcSrv, err := server.New(cfg.GRPCAddr, 0)
	if err != nil {
		return fmt.Errorf("server.New grpc: %w", err)
	}

	logger.Infof("serving http on %s, grpc health on %s", cfg.SrvAddr, cfg.GRPCAddr)
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return srv.ServeHTTPHandler(grpCtx, mux)
	})
	grp.Go(func() error {
		return grpcSrv.ServeGRPC(grpCtx, server.NewHealthGRPC(grpCtx, buildinfo.Name))
	})
	serveErr := grp.Wait()

	idx.Stop()
	if err := <-shutdownCh; err != nil {
		logger.Errorf("final flush of the feature store failed: %v", err)
	}
	return serveErr
}
