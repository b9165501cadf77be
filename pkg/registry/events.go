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

package registry

import (
	"context"
	"time"

	"github.com/carverauto/sdngauge/pkg/poller"
)

// Event is something the registry loop reacts to.
type Event interface {
	handle(ctx context.Context, r *Registry)
}

// ConnectEvent reports a datapath that came up.
type ConnectEvent struct {
	Session poller.Session
}

// DisconnectEvent reports a datapath that went down.
type DisconnectEvent struct {
	DPID uint64
}

// ReconnectEvent reports a datapath that re-established its session.
type ReconnectEvent struct {
	Session poller.Session
}

// UpdateEvent carries a telemetry message for the slot (DPID, Type).
type UpdateEvent struct {
	DPID uint64
	Type string
	Time time.Time
	Msg  any
}

// ReloadEvent asks for a configuration reload. ID tags the request in the logs.
// The outcome is sent on Result when it is set.
type ReloadEvent struct {
	ID     string
	Source string
	Result chan<- error
}

func (e ConnectEvent) handle(_ context.Context, r *Registry) { r.Connect(e.Session) }

func (e DisconnectEvent) handle(_ context.Context, r *Registry) { r.Disconnect(e.DPID) }

func (e ReconnectEvent) handle(_ context.Context, r *Registry) { r.Reconnect(e.Session) }

func (e UpdateEvent) handle(_ context.Context, r *Registry) { r.Update(e.DPID, e.Type, e.Time, e.Msg) }

func (e ReloadEvent) handle(ctx context.Context, r *Registry) {
	r.logger.Info().Str("reload_id", e.ID).Str("source", e.Source).Msg("Reload requested")

	err := r.Reload(ctx)

	if e.Result == nil {
		return
	}

	select {
	case e.Result <- err:
	case <-ctx.Done():
	}
}

// Run handles events one at a time until ctx is done or events is closed. It
// stops every slot before returning.
func (r *Registry) Run(ctx context.Context, events <-chan Event) error {
	defer r.Close()

	r.logger.Info().Msg("Registry loop started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Registry loop stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			ev.handle(ctx, r)
		}
	}
}
