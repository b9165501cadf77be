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

package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sdngauge/pkg/logger"
	"github.com/carverauto/sdngauge/pkg/models"
	"github.com/carverauto/sdngauge/pkg/registry"
)

const waitTimeout = 5 * time.Second

type fixture struct {
	bridge     *Bridge
	events     chan registry.Event
	controller *nats.Conn
}

func setup(t *testing.T) *fixture {
	t.Helper()

	srv, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(waitTimeout) {
		t.Fatal("nats server not ready")
	}

	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	controller, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(controller.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	events := make(chan registry.Event, 8)
	b := New(nc, "", events, logger.NewTestLogger())

	require.NoError(t, b.Subscribe(ctx))
	t.Cleanup(func() { _ = b.Close() })

	return &fixture{bridge: b, events: events, controller: controller}
}

func (f *fixture) publish(t *testing.T, subject string, v any) {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, f.controller.Publish(subject, data))
	require.NoError(t, f.controller.Flush())
}

func (f *fixture) next(t *testing.T) registry.Event {
	t.Helper()

	select {
	case ev := <-f.events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("no event delivered")
		return nil
	}
}

func TestLifecycleEvents(t *testing.T) {
	f := setup(t)

	f.publish(t, "gauge.events", models.LifecycleEvent{Kind: models.EventConnect, DPID: 5})

	connect, ok := f.next(t).(registry.ConnectEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(5), connect.Session.DatapathID())

	f.publish(t, "gauge.events", models.LifecycleEvent{Kind: "rebooted", DPID: 5})
	f.publish(t, "gauge.events", models.LifecycleEvent{Kind: models.EventReconnect, DPID: 5})

	reconnect, ok := f.next(t).(registry.ReconnectEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(5), reconnect.Session.DatapathID())

	f.publish(t, "gauge.events", models.LifecycleEvent{Kind: models.EventDisconnect, DPID: 5})
	assert.Equal(t, registry.DisconnectEvent{DPID: 5}, f.next(t))
}

func TestRepliesBecomeUpdates(t *testing.T) {
	f := setup(t)

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	stats, err := json.Marshal(models.PortStatsReply{DPID: 5, Stats: []models.PortStat{{Port: 1, RxBytes: 42}}})
	require.NoError(t, err)

	f.publish(t, "gauge.dp.5.reply", models.Envelope{Type: "meter_stats", Data: json.RawMessage(`{}`)})
	f.publish(t, "gauge.dp.5.reply", models.Envelope{Type: models.TypePortStats, Timestamp: ts, Data: stats})

	update, ok := f.next(t).(registry.UpdateEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(5), update.DPID)
	assert.Equal(t, models.TypePortStats, update.Type)
	assert.True(t, ts.Equal(update.Time))
	assert.Equal(t, &models.PortStatsReply{DPID: 5, Stats: []models.PortStat{{Port: 1, RxBytes: 42}}}, update.Msg)

	f.publish(t, "gauge.dp.5.reply", models.Envelope{
		Type: models.TypePortState,
		Data: json.RawMessage(`{"dp_id":5,"port":2,"reason":"delete"}`),
	})

	update, ok = f.next(t).(registry.UpdateEvent)
	require.True(t, ok)
	assert.Equal(t, &models.PortStatus{DPID: 5, Port: 2, Reason: models.PortDelete}, update.Msg)
	assert.False(t, update.Time.IsZero())
}

func TestSessionPublishesRequests(t *testing.T) {
	f := setup(t)

	sub, err := f.controller.SubscribeSync("gauge.dp.5.request")
	require.NoError(t, err)
	require.NoError(t, f.controller.Flush())

	s := f.bridge.Session(5)
	require.NoError(t, s.Send(context.Background(), models.FlowStatsRequest{DPID: 5, TableID: models.AllTables}))

	msg, err := sub.NextMsg(waitTimeout)
	require.NoError(t, err)

	var env models.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, "flow_stats_request", env.Type)
	assert.JSONEq(t, `{"dp_id":5,"table_id":255}`, string(env.Data))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, models.PortStatsRequest{DPID: 5}), context.Canceled)
}

func TestDPIDFromSubject(t *testing.T) {
	id, err := dpIDFromSubject("site.a.dp.12.reply")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	_, err = dpIDFromSubject("gauge.dp.x.reply")
	require.ErrorIs(t, err, errBadReplySubject)
}
