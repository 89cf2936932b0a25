// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/cloudfrequency/docs" // swagger spec
	"github.com/tomtom215/cloudfrequency/internal/analysis"
	"github.com/tomtom215/cloudfrequency/internal/api"
	"github.com/tomtom215/cloudfrequency/internal/cache"
	"github.com/tomtom215/cloudfrequency/internal/config"
	"github.com/tomtom215/cloudfrequency/internal/details"
	"github.com/tomtom215/cloudfrequency/internal/earthengine"
	"github.com/tomtom215/cloudfrequency/internal/logging"
	"github.com/tomtom215/cloudfrequency/internal/polygons"
	"github.com/tomtom215/cloudfrequency/internal/supervisor"
	"github.com/tomtom215/cloudfrequency/internal/supervisor/services"
)

// layerTimeout bounds the startup map request.
const layerTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("project", cfg.EarthEngine.Project).
		Str("cache_backend", cfg.Cache.Backend).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Cloud Frequency")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The OAuth token source is bound to ctx and must outlive every request.
	ee, err := earthengine.NewClient(ctx, &cfg.EarthEngine)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create Earth Engine client")
	}

	analyzer := analysis.New(ee, cfg.Layer, cfg.Polygons)

	layerCtx, layerCancel := context.WithTimeout(ctx, layerTimeout)
	layer, err := analyzer.CloudLayer(layerCtx)
	layerCancel()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to compute cloud frequency layer")
	}

	registry, err := polygons.Load(cfg.Polygons.Dir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load polygons")
	}

	store, err := cache.Open(ctx, &cfg.Cache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open details cache")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close details cache")
		}
	}()

	detailsSvc := details.NewService(registry, analyzer, store, cfg.Cache.TTL, cfg.Polygons.WikiURL,
		details.WithComputeTimeout(cfg.Server.Timeout))

	tmpl, err := api.LoadTemplate(cfg.Server.TemplatePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load main page template")
	}

	handler, err := api.NewHandler(api.HandlerDeps{
		Analyzer: analyzer,
		Layer:    layer,
		Details:  detailsSvc,
		Polygons: registry,
		Breaker:  ee,
		Template: tmpl,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create handlers")
	}

	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)), cfg.Server.StaticDir)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if gc, ok := store.(cache.GarbageCollector); ok {
		tree.AddDataService(services.NewCacheGCService(gc, cfg.Cache.CleanupInterval))
		logging.Info().Msg("Cache garbage collection added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Stopped")
}
