/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/sdngauge/pkg/bridge"
	"github.com/carverauto/sdngauge/pkg/config"
	"github.com/carverauto/sdngauge/pkg/gauge"
	"github.com/carverauto/sdngauge/pkg/lifecycle"
	"github.com/carverauto/sdngauge/pkg/logger"
	"github.com/carverauto/sdngauge/pkg/metrics"
	"github.com/carverauto/sdngauge/pkg/metricstore"
	"github.com/carverauto/sdngauge/pkg/natsutil"
	"github.com/carverauto/sdngauge/pkg/poller"
	"github.com/carverauto/sdngauge/pkg/registry"
)

const (
	eventBuffer       = 256
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func runGauge(ctx context.Context, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := lifecycle.CreateComponentLogger("gauge", logger.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() { _ = log.Close() }()

	path := config.ResolvePath(opts.ConfigPath)
	loader := gauge.NewLoader(poller.DefaultFactory(), log)

	plan, err := loader.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	if plan.Discarded != nil {
		log.Warn().Err(plan.Discarded).Str("file", path).Msg("Some datapaths were discarded")
	}

	if plan.Skipped != nil {
		log.Warn().Err(plan.Skipped).Str("file", path).Msg("Some pollers were not configured")
	}

	opts.NATS.Name = "sdngauge"

	nc, err := natsutil.Connect(ctx, opts.NATS, log)
	if err != nil {
		return err
	}

	defer nc.Close()

	sinks := metricstore.NewSinks(nc, log)

	defer func() {
		if err := sinks.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close writers")
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector, err := metrics.NewCollector(promRegistry)
	if err != nil {
		return err
	}

	deps := poller.Deps{Logger: log, Clock: poller.RealClock(), Sinks: sinks}

	// only the registry loop calls the loader, so path needs no lock
	reg := registry.New(registry.LoaderFunc(func(context.Context) (*gauge.Plan, error) {
		path = config.ReloadPath(path, opts.ConfigPath)
		return loader.Load(path)
	}), deps, collector)

	if err := reg.Populate(plan); err != nil {
		log.Warn().Err(err).Msg("Some pollers could not be created")
	}

	log.Info().Str("file", path).Int("pollers", len(plan.Bindings)).Int("datapaths", len(plan.Devices)).
		Msg("Configuration loaded")

	events := make(chan registry.Event, eventBuffer)
	br := bridge.New(nc, opts.NATSPrefix, events, log)

	server := &http.Server{
		Addr:              opts.MetricsAddr,
		Handler:           newMux(collector, reg, events),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return reg.Run(ctx, events)
	})

	g.Go(func() error {
		return br.Run(ctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("Serving metrics")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := lifecycle.WatchSignals(ctx, func() {
			id := requestReload(ctx, events, "signal", nil)
			log.Info().Str("reload_id", id).Msg("SIGHUP received")
		})
		log.Info().Err(err).Msg("Shutting down")

		return err
	})

	return g.Wait()
}

// requestReload queues a reload on the registry loop and returns its id.
func requestReload(ctx context.Context, events chan<- registry.Event, source string, result chan<- error) string {
	id := uuid.NewString()

	select {
	case events <- registry.ReloadEvent{ID: id, Source: source, Result: result}:
	case <-ctx.Done():
	}

	return id
}
