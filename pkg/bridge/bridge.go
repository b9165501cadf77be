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

// Package bridge connects the registry to datapath sessions carried over NATS.
// The controller publishes lifecycle events and telemetry replies; poll requests
// go back to it on a per-datapath subject.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/carverauto/sdngauge/pkg/logger"
	"github.com/carverauto/sdngauge/pkg/models"
	"github.com/carverauto/sdngauge/pkg/poller"
	"github.com/carverauto/sdngauge/pkg/registry"
)

// DefaultPrefix is the first token of every subject the bridge uses.
const DefaultPrefix = "gauge"

var (
	errUnknownEventKind = errors.New("unknown lifecycle event kind")
	errUnknownReplyType = errors.New("unknown reply type")
	errBadReplySubject  = errors.New("reply subject carries no dp_id")
)

// Bridge subscribes to the controller subjects and turns what arrives into
// registry events.
type Bridge struct {
	nc     *nats.Conn
	prefix string
	logger zerolog.Logger
	events chan<- registry.Event
	subs   []*nats.Subscription
}

// New returns a bridge that delivers events on events. An empty prefix means
// DefaultPrefix.
func New(nc *nats.Conn, prefix string, events chan<- registry.Event, log logger.Logger) *Bridge {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Bridge{
		nc:     nc,
		prefix: prefix,
		logger: log.WithComponent("bridge"),
		events: events,
	}
}

func (b *Bridge) EventsSubject() string {
	return b.prefix + ".events"
}

func (b *Bridge) RequestSubject(id uint64) string {
	return fmt.Sprintf("%s.dp.%d.request", b.prefix, id)
}

func (b *Bridge) ReplySubject(id uint64) string {
	return fmt.Sprintf("%s.dp.%d.reply", b.prefix, id)
}

// Run subscribes and blocks until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Subscribe(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return b.Close()
}

// Subscribe starts listening. Events are dropped once ctx is done.
func (b *Bridge) Subscribe(ctx context.Context) error {
	lifecycle, err := b.nc.Subscribe(b.EventsSubject(), func(msg *nats.Msg) {
		b.handleLifecycle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.EventsSubject(), err)
	}

	b.subs = append(b.subs, lifecycle)

	replies := b.prefix + ".dp.*.reply"

	reply, err := b.nc.Subscribe(replies, func(msg *nats.Msg) {
		b.handleReply(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", replies, err)
	}

	b.subs = append(b.subs, reply)

	if err := b.nc.Flush(); err != nil {
		return fmt.Errorf("failed to flush subscriptions: %w", err)
	}

	b.logger.Info().Str("events", b.EventsSubject()).Str("replies", replies).Msg("Bridge subscribed")

	return nil
}

// Close drops the subscriptions. The connection belongs to the caller.
func (b *Bridge) Close() error {
	var errs *multierror.Error

	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = multierror.Append(errs, err)
		}
	}

	b.subs = nil

	return errs.ErrorOrNil()
}

// Session returns the session used to poll datapath id.
func (b *Bridge) Session(id uint64) poller.Session {
	return &session{nc: b.nc, id: id, subject: b.RequestSubject(id)}
}

func (b *Bridge) handleLifecycle(ctx context.Context, msg *nats.Msg) {
	var ev models.LifecycleEvent

	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		b.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping malformed lifecycle event")
		return
	}

	var out registry.Event

	switch ev.Kind {
	case models.EventConnect:
		out = registry.ConnectEvent{Session: b.Session(ev.DPID)}
	case models.EventDisconnect:
		out = registry.DisconnectEvent{DPID: ev.DPID}
	case models.EventReconnect:
		out = registry.ReconnectEvent{Session: b.Session(ev.DPID)}
	default:
		b.logger.Warn().Err(errUnknownEventKind).Str("kind", ev.Kind).Uint64("dp_id", ev.DPID).
			Msg("Dropping lifecycle event")

		return
	}

	b.emit(ctx, out)
}

func (b *Bridge) handleReply(ctx context.Context, msg *nats.Msg) {
	id, err := dpIDFromSubject(msg.Subject)
	if err != nil {
		b.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping reply")
		return
	}

	var env models.Envelope

	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.logger.Warn().Err(err).Uint64("dp_id", id).Msg("Dropping malformed reply")
		return
	}

	body, err := decodeReply(env)
	if err != nil {
		b.logger.Warn().Err(err).Uint64("dp_id", id).Str("type", env.Type).Msg("Dropping reply")
		return
	}

	ts := env.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	b.emit(ctx, registry.UpdateEvent{DPID: id, Type: env.Type, Time: ts, Msg: body})
}

func (b *Bridge) emit(ctx context.Context, ev registry.Event) {
	select {
	case b.events <- ev:
	case <-ctx.Done():
	}
}

func decodeReply(env models.Envelope) (any, error) {
	var body any

	switch env.Type {
	case models.TypePortState:
		body = &models.PortStatus{}
	case models.TypePortStats:
		body = &models.PortStatsReply{}
	case models.TypeFlowTable:
		body = &models.FlowStatsReply{}
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownReplyType, env.Type)
	}

	if err := json.Unmarshal(env.Data, body); err != nil {
		return nil, fmt.Errorf("failed to decode %s reply: %w", env.Type, err)
	}

	return body, nil
}

// dpIDFromSubject reads the id out of <prefix>.dp.<id>.reply.
func dpIDFromSubject(subject string) (uint64, error) {
	tokens := strings.Split(subject, ".")
	if len(tokens) < 3 {
		return 0, fmt.Errorf("%w: %s", errBadReplySubject, subject)
	}

	id, err := strconv.ParseUint(tokens[len(tokens)-2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errBadReplySubject, subject)
	}

	return id, nil
}

type session struct {
	nc      *nats.Conn
	id      uint64
	subject string
}

func (s *session) DatapathID() uint64 {
	return s.id
}

// Send publishes req wrapped in an envelope.
func (s *session) Send(ctx context.Context, req models.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", req.RequestType(), err)
	}

	env, err := json.Marshal(models.Envelope{
		Type:      req.RequestType(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := s.nc.Publish(s.subject, env); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.subject, err)
	}

	return nil
}
