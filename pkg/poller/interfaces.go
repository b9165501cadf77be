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

// Package poller implements the per-datapath telemetry pollers and the factory
// that builds them from poller declarations.
package poller

//go:generate mockgen -destination=mock_poller.go -package=poller github.com/carverauto/sdngauge/pkg/poller Clock,Ticker,Session,Poller

import (
	"context"
	"time"

	"github.com/carverauto/sdngauge/pkg/datapath"
	"github.com/carverauto/sdngauge/pkg/logger"
	"github.com/carverauto/sdngauge/pkg/metricstore"
	"github.com/carverauto/sdngauge/pkg/models"
	"github.com/carverauto/sdngauge/pkg/telemetry"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Session is the live connection to one datapath.
type Session interface {
	DatapathID() uint64
	Send(ctx context.Context, req models.Request) error
}

// Poller collects one category of telemetry from one datapath.
type Poller interface {
	// Start begins polling through s. Starting a running poller restarts it with s.
	Start(s Session)
	// Stop cancels polling. Stopping a stopped poller is a no-op.
	Stop()
	// Update records a message received from the datapath.
	Update(ts time.Time, msg any)
	Running() bool
}

// Sinks opens the writers a declaration reports to.
type Sinks interface {
	Open(conf *telemetry.Config, influx bool) ([]metricstore.Writer, error)
}

// Deps are the collaborators handed to every constructor.
type Deps struct {
	Logger logger.Logger
	Clock  Clock
	Sinks  Sinks
}

// Constructor builds a stopped poller for dp.
type Constructor func(dp *datapath.Device, conf *telemetry.Config, deps Deps) (Poller, error)
