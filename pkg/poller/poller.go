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

package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carverauto/sdngauge/pkg/datapath"
	"github.com/carverauto/sdngauge/pkg/metricstore"
	"github.com/carverauto/sdngauge/pkg/models"
	"github.com/carverauto/sdngauge/pkg/telemetry"
)

const (
	sendTimeout  = 5 * time.Second
	writeTimeout = 15 * time.Second
)

// base carries the lifecycle shared by every poller. Pollers with a request
// function send it once on start and then on every tick; the others are passive
// and only record what the datapath pushes.
type base struct {
	dp      *datapath.Device
	conf    *telemetry.Config
	kind    string
	logger  zerolog.Logger
	clock   Clock
	writers []metricstore.Writer

	request func() models.Request
	points  func(ts time.Time, msg any) ([]metricstore.Point, error)

	mu      sync.Mutex
	running bool
	session Session
	cancel  context.CancelFunc
	done    chan struct{}

	writes sync.WaitGroup
}

func newBase(kind string, dp *datapath.Device, conf *telemetry.Config, deps Deps, influx bool) (*base, error) {
	p := &base{
		dp:     dp,
		conf:   conf,
		kind:   kind,
		clock:  deps.Clock,
		logger: zerolog.Nop(),
	}

	if p.clock == nil {
		p.clock = realClock{}
	}

	if deps.Logger != nil {
		p.logger = deps.Logger.With().
			Str("component", "poller").
			Uint64("dp_id", dp.ID).
			Str("dp_name", dp.Name).
			Str("poller_type", kind).
			Logger()
	}

	if deps.Sinks != nil {
		writers, err := deps.Sinks.Open(conf, influx)
		if err != nil {
			return nil, fmt.Errorf("%s poller for dp %d: %w", kind, dp.ID, err)
		}

		p.writers = writers
	}

	return p, nil
}

func (p *base) Start(s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	p.running = true
	p.session = s

	if p.request == nil {
		p.logger.Debug().Msg("Poller started")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := p.clock.Ticker(p.conf.Interval)

	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, s, ticker, p.done)

	p.logger.Debug().Dur("interval", p.conf.Interval).Msg("Poller started")
}

func (p *base) loop(ctx context.Context, s Session, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	p.send(ctx, s)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.send(ctx, s)
		}
	}
}

func (p *base) send(ctx context.Context, s Session) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req := p.request()

	if err := s.Send(sendCtx, req); err != nil && ctx.Err() == nil {
		p.logger.Warn().Err(err).Str("request", req.RequestType()).Msg("Failed to send poll request")
	}
}

func (p *base) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
}

// stopLocked cancels the ticker goroutine and waits for it to exit. The loop never
// takes p.mu, so waiting here cannot deadlock.
func (p *base) stopLocked() {
	if !p.running {
		return
	}

	p.running = false
	p.session = nil

	if p.cancel != nil {
		p.cancel()
		<-p.done

		p.cancel = nil
		p.done = nil
	}

	p.logger.Debug().Msg("Poller stopped")
}

func (p *base) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.running
}

// Update converts msg and hands the points to the writers in the background so a
// slow backend does not hold up the caller.
func (p *base) Update(ts time.Time, msg any) {
	points, err := p.points(ts, msg)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Dropping update")
		return
	}

	if len(points) == 0 || len(p.writers) == 0 {
		return
	}

	p.writes.Add(1)

	go func() {
		defer p.writes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		for _, w := range p.writers {
			if err := w.Write(ctx, points); err != nil {
				p.logger.Error().Err(err).Int("points", len(points)).Msg("Failed to write samples")
			}
		}
	}()
}

// flush waits for pending writes.
func (p *base) flush() {
	p.writes.Wait()
}

func (p *base) tags(extra map[string]string) map[string]string {
	tags := map[string]string{"dp_name": p.dp.Name}
	for k, v := range extra {
		tags[k] = v
	}

	return tags
}

func unexpected(kind string, msg any) error {
	return fmt.Errorf("%w: %s poller got %T", errUnexpectedMessage, kind, msg)
}
