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
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/carverauto/sdngauge/pkg/gauge"
	"github.com/carverauto/sdngauge/pkg/metrics"
	"github.com/carverauto/sdngauge/pkg/models"
	"github.com/carverauto/sdngauge/pkg/poller"
)

// ErrInvalidCandidate rejects a reload whose configuration has datapaths that
// fail validation.
var ErrInvalidCandidate = errors.New("reload candidate has invalid datapaths")

// SlotStatus describes one slot.
type SlotStatus struct {
	DPID    uint64 `json:"dp_id"`
	Type    string `json:"type"`
	Running bool   `json:"running"`
}

// Registry maps datapath id and poller type to a poller. Every method takes the
// registry lock for its whole transition, so a start, stop or swap is never
// interleaved with another event.
type Registry struct {
	mu sync.Mutex

	logger  zerolog.Logger
	loader  Loader
	deps    poller.Deps
	metrics *metrics.Collector

	plan     *gauge.Plan
	slots    map[uint64]map[string]poller.Poller
	sessions map[uint64]poller.Session
}

// New returns an empty registry. deps is handed to every poller it builds.
func New(loader Loader, deps poller.Deps, m *metrics.Collector) *Registry {
	log := zerolog.Nop()
	if deps.Logger != nil {
		log = deps.Logger.WithComponent("registry")
	}

	return &Registry{
		logger:   log,
		loader:   loader,
		deps:     deps,
		metrics:  m,
		slots:    make(map[uint64]map[string]poller.Poller),
		sessions: make(map[uint64]poller.Session),
	}
}

// Populate replaces the registry content with plan. Every slot starts stopped.
// Bindings whose poller cannot be built are left out and reported.
func (r *Registry) Populate(plan *gauge.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, slots := range r.slots {
		for _, p := range slots {
			p.Stop()
		}
	}

	r.plan = plan
	r.slots = make(map[uint64]map[string]poller.Poller)

	var errs *multierror.Error

	for _, b := range plan.Bindings {
		p, err := b.Instantiate(r.deps)
		if err != nil {
			r.logger.Error().Err(err).Uint64("dp_id", b.Device.ID).Str("poller_type", b.Config.Type).
				Msg("Failed to create poller")

			errs = multierror.Append(errs, err)

			continue
		}

		r.insertLocked(b.Key(), p)
	}

	r.updateMetricsLocked()

	return errs.ErrorOrNil()
}

// Connect starts every slot of the session's datapath. Slots purged by an
// earlier disconnect are rebuilt from the current plan first.
func (r *Registry) Connect(s poller.Session) {
	id := s.DatapathID()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.ObserveLifecycle(models.EventConnect)
	r.sessions[id] = s

	if len(r.slots[id]) == 0 {
		r.rebuildLocked(id)
	}

	if len(r.slots[id]) == 0 {
		r.logger.Info().Uint64("dp_id", id).Msg("No poller configured")
		return
	}

	r.logger.Info().Uint64("dp_id", id).Msg("Datapath up")
	r.startLocked(id, s)
}

// Disconnect stops and deletes every slot of the datapath. A later connect
// rebuilds them from the plan.
func (r *Registry) Disconnect(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.ObserveLifecycle(models.EventDisconnect)
	delete(r.sessions, id)

	r.setRunningLocked(id, false)

	slots, ok := r.slots[id]
	if !ok {
		r.logger.Info().Uint64("dp_id", id).Msg("No poller configured")
		return
	}

	for _, p := range slots {
		p.Stop()
	}

	delete(r.slots, id)

	r.logger.Info().Uint64("dp_id", id).Msg("Datapath down")
	r.updateMetricsLocked()
}

// Reconnect restarts every slot of the datapath with the new session.
func (r *Registry) Reconnect(s poller.Session) {
	id := s.DatapathID()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.ObserveLifecycle(models.EventReconnect)
	r.sessions[id] = s

	if len(r.slots[id]) == 0 {
		r.rebuildLocked(id)
	}

	if len(r.slots[id]) == 0 {
		r.logger.Info().Uint64("dp_id", id).Msg("No poller configured")
		return
	}

	r.logger.Info().Uint64("dp_id", id).Msg("Datapath reconnected")
	r.startLocked(id, s)
}

// Update hands msg to the slot (id, typ). It reports whether a slot took it.
func (r *Registry) Update(id uint64, typ string, ts time.Time, msg any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.slots[id][typ]
	if !ok {
		r.metrics.IncDropped()
		r.logger.Debug().Uint64("dp_id", id).Str("poller_type", typ).Msg("No poller for update")

		return false
	}

	p.Update(ts, msg)

	return true
}

// Reload builds a candidate plan and reconciles the slots against it. The
// candidate and its pollers are built before the lock is taken; if anything
// fails the registry is left as it was.
func (r *Registry) Reload(ctx context.Context) error {
	err := r.reload(ctx)
	r.metrics.ObserveReload(err)

	if err != nil {
		r.logger.Error().Err(err).Msg("Reload failed, keeping the running configuration")
		return err
	}

	return nil
}

func (r *Registry) reload(ctx context.Context) error {
	plan, err := r.loader.Load(ctx)
	if err != nil {
		return err
	}

	// a datapath left out of the candidate would otherwise read as withdrawn
	if plan.Discarded != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, plan.Discarded)
	}

	if plan.Skipped != nil {
		r.logger.Warn().Err(plan.Skipped).Msg("Reload skipped declarations")
	}

	candidate := make(map[gauge.Key]poller.Poller, len(plan.Bindings))

	for _, b := range plan.Bindings {
		p, err := b.Instantiate(r.deps)
		if err != nil {
			return fmt.Errorf("dp %d %s: %w", b.Device.ID, b.Config.Type, err)
		}

		candidate[b.Key()] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var kept, removed, added int

	for _, key := range r.keysLocked() {
		old := r.slots[key.DPID][key.Type]

		incoming, ok := candidate[key]
		if !ok {
			old.Stop()
			r.removeLocked(key)

			removed++

			r.logger.Info().Uint64("dp_id", key.DPID).Str("poller_type", key.Type).Msg("Poller withdrawn")

			continue
		}

		delete(candidate, key)

		if old.Running() {
			old.Stop()

			if s, connected := r.sessions[key.DPID]; connected {
				incoming.Start(s)
			}
		}

		r.slots[key.DPID][key.Type] = incoming
		kept++
	}

	for key, p := range candidate {
		r.insertLocked(key, p)
		added++
	}

	r.plan = plan

	for id := range r.sessions {
		r.setRunningLocked(id, true)
	}

	r.updateMetricsLocked()

	r.logger.Info().Int("kept", kept).Int("removed", removed).Int("added", added).Str("file", plan.Path).
		Msg("Configuration reloaded")

	return nil
}

// Status lists every slot ordered by datapath id and type.
func (r *Registry) Status() []SlotStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.keysLocked()
	out := make([]SlotStatus, 0, len(keys))

	for _, key := range keys {
		out = append(out, SlotStatus{
			DPID:    key.DPID,
			Type:    key.Type,
			Running: r.slots[key.DPID][key.Type].Running(),
		})
	}

	return out
}

// Close stops every slot.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, slots := range r.slots {
		for _, p := range slots {
			p.Stop()
		}
	}

	r.updateMetricsLocked()
}

func (r *Registry) rebuildLocked(id uint64) {
	for _, b := range r.plan.ForDevice(id) {
		p, err := b.Instantiate(r.deps)
		if err != nil {
			r.logger.Error().Err(err).Uint64("dp_id", id).Str("poller_type", b.Config.Type).
				Msg("Failed to create poller")

			continue
		}

		r.insertLocked(b.Key(), p)
	}
}

func (r *Registry) startLocked(id uint64, s poller.Session) {
	r.setRunningLocked(id, true)

	for _, p := range r.slots[id] {
		p.Start(s)
	}

	r.updateMetricsLocked()
}

func (r *Registry) setRunningLocked(id uint64, running bool) {
	if r.plan == nil {
		return
	}

	if dp, ok := r.plan.Devices[id]; ok {
		dp.SetRunning(running)
	}
}

func (r *Registry) insertLocked(key gauge.Key, p poller.Poller) {
	slots, ok := r.slots[key.DPID]
	if !ok {
		slots = make(map[string]poller.Poller)
		r.slots[key.DPID] = slots
	}

	slots[key.Type] = p
}

func (r *Registry) removeLocked(key gauge.Key) {
	delete(r.slots[key.DPID], key.Type)

	if len(r.slots[key.DPID]) == 0 {
		delete(r.slots, key.DPID)
	}
}

// keysLocked snapshots the slot keys in order.
func (r *Registry) keysLocked() []gauge.Key {
	var keys []gauge.Key

	for id, slots := range r.slots {
		for typ := range slots {
			keys = append(keys, gauge.Key{DPID: id, Type: typ})
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].DPID != keys[j].DPID {
			return keys[i].DPID < keys[j].DPID
		}

		return keys[i].Type < keys[j].Type
	})

	return keys
}

func (r *Registry) updateMetricsLocked() {
	if r.metrics == nil {
		return
	}

	var running, stopped int

	for _, slots := range r.slots {
		for _, p := range slots {
			if p.Running() {
				running++
			} else {
				stopped++
			}
		}
	}

	r.metrics.SetSlots(running, stopped)
}
