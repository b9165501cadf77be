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

// Package metrics exposes the gauge service state as Prometheus collectors.
package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Slot states.
const (
	StateRunning = "running"
	StateStopped = "stopped"
)

// Reload results.
const (
	ReloadApplied = "applied"
	ReloadFailed  = "failed"
)

// Collector holds the registry metrics. A nil *Collector discards everything.
type Collector struct {
	gatherer prometheus.Gatherer

	Slots           *prometheus.GaugeVec
	Reloads         *prometheus.CounterVec
	LifecycleEvents *prometheus.CounterVec
	UpdatesDropped  prometheus.Counter
}

// NewCollector registers the gauge metrics against reg, the default registerer
// when nil. Registering twice returns the collectors already in place.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	slots, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gauge_registry_slots",
		Help: "Number of poller slots in the registry by state.",
	}, []string{"state"}), "gauge_registry_slots")
	if err != nil {
		return nil, err
	}

	reloads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gauge_reloads_total",
		Help: "Configuration reloads by result.",
	}, []string{"result"}), "gauge_reloads_total")
	if err != nil {
		return nil, err
	}

	lifecycle, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gauge_lifecycle_events_total",
		Help: "Datapath lifecycle events handled by kind.",
	}, []string{"kind"}), "gauge_lifecycle_events_total")
	if err != nil {
		return nil, err
	}

	dropped, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gauge_updates_dropped_total",
		Help: "Telemetry updates that matched no poller slot.",
	}), "gauge_updates_dropped_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Slots:           slots,
		Reloads:         reloads,
		LifecycleEvents: lifecycle,
		UpdatesDropped:  dropped,
	}, nil
}

// Handler serves the gatherer the collector was registered with.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}

	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// SetSlots records the current slot counts.
func (c *Collector) SetSlots(running, stopped int) {
	if c == nil {
		return
	}

	c.Slots.WithLabelValues(StateRunning).Set(float64(running))
	c.Slots.WithLabelValues(StateStopped).Set(float64(stopped))
}

func (c *Collector) ObserveReload(err error) {
	if c == nil {
		return
	}

	result := ReloadApplied
	if err != nil {
		result = ReloadFailed
	}

	c.Reloads.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveLifecycle(kind string) {
	if c == nil {
		return
	}

	c.LifecycleEvents.WithLabelValues(kind).Inc()
}

func (c *Collector) IncDropped() {
	if c == nil {
		return
	}

	c.UpdatesDropped.Inc()
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}

			var zero C

			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}

		var zero C

		return zero, err
	}

	return c, nil
}
