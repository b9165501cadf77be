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
	"strconv"
	"time"

	"github.com/carverauto/sdngauge/pkg/datapath"
	"github.com/carverauto/sdngauge/pkg/metricstore"
	"github.com/carverauto/sdngauge/pkg/models"
	"github.com/carverauto/sdngauge/pkg/telemetry"
)

// Port status reasons as numbered by OpenFlow.
var portReasonCodes = map[string]float64{
	models.PortAdd:    0,
	models.PortDelete: 1,
	models.PortModify: 2,
}

// NewPortState returns a constructor for the passive port state poller.
func NewPortState(influx bool) Constructor {
	return func(dp *datapath.Device, conf *telemetry.Config, deps Deps) (Poller, error) {
		p, err := newBase(models.TypePortState, dp, conf, deps, influx)
		if err != nil {
			return nil, err
		}

		p.points = p.portStatePoints

		return p, nil
	}
}

// NewPortStats returns a constructor for the port counter poller.
func NewPortStats(influx bool) Constructor {
	return func(dp *datapath.Device, conf *telemetry.Config, deps Deps) (Poller, error) {
		p, err := newBase(models.TypePortStats, dp, conf, deps, influx)
		if err != nil {
			return nil, err
		}

		p.request = func() models.Request { return models.PortStatsRequest{DPID: dp.ID} }
		p.points = p.portStatsPoints

		return p, nil
	}
}

// NewFlowTable returns a constructor for the flow table poller.
func NewFlowTable(influx bool) Constructor {
	return func(dp *datapath.Device, conf *telemetry.Config, deps Deps) (Poller, error) {
		p, err := newBase(models.TypeFlowTable, dp, conf, deps, influx)
		if err != nil {
			return nil, err
		}

		p.request = func() models.Request {
			return models.FlowStatsRequest{DPID: dp.ID, TableID: models.AllTables}
		}
		p.points = p.flowTablePoints

		return p, nil
	}
}

func (p *base) portStatePoints(ts time.Time, msg any) ([]metricstore.Point, error) {
	status, ok := msg.(*models.PortStatus)
	if !ok {
		return nil, unexpected(p.kind, msg)
	}

	reason, known := portReasonCodes[status.Reason]
	if !known {
		p.logger.Warn().Str("reason", status.Reason).Int("port", status.Port).Msg("Unhandled port status reason")
		return nil, nil
	}

	tags := p.tags(map[string]string{"port_name": p.dp.PortName(status.Port)})

	linkUp := 0.0
	if status.LinkUp {
		linkUp = 1
	}

	return []metricstore.Point{
		{Measurement: "port_state_reason", Tags: tags, Value: reason, Time: ts},
		{Measurement: "port_state_link_up", Tags: tags, Value: linkUp, Time: ts},
	}, nil
}

func (p *base) portStatsPoints(ts time.Time, msg any) ([]metricstore.Point, error) {
	reply, ok := msg.(*models.PortStatsReply)
	if !ok {
		return nil, unexpected(p.kind, msg)
	}

	out := make([]metricstore.Point, 0, len(reply.Stats)*7)

	for _, stat := range reply.Stats {
		tags := p.tags(map[string]string{"port_name": p.dp.PortName(stat.Port)})

		for _, c := range []struct {
			name  string
			value uint64
		}{
			{"packets_in", stat.RxPackets},
			{"packets_out", stat.TxPackets},
			{"bytes_in", stat.RxBytes},
			{"bytes_out", stat.TxBytes},
			{"dropped_in", stat.RxDropped},
			{"dropped_out", stat.TxDropped},
			{"errors_in", stat.RxErrors},
		} {
			out = append(out, metricstore.Point{Measurement: c.name, Tags: tags, Value: float64(c.value), Time: ts})
		}
	}

	return out, nil
}

func (p *base) flowTablePoints(ts time.Time, msg any) ([]metricstore.Point, error) {
	reply, ok := msg.(*models.FlowStatsReply)
	if !ok {
		return nil, unexpected(p.kind, msg)
	}

	out := make([]metricstore.Point, 0, len(reply.Flows)*2)

	for _, flow := range reply.Flows {
		tags := p.tags(map[string]string{
			"table_id": strconv.Itoa(flow.TableID),
			"priority": strconv.Itoa(flow.Priority),
			"cookie":   "0x" + strconv.FormatUint(flow.Cookie, 16),
		})

		out = append(out,
			metricstore.Point{Measurement: "flow_packet_count", Tags: tags, Value: float64(flow.PacketCount), Time: ts},
			metricstore.Point{Measurement: "flow_byte_count", Tags: tags, Value: float64(flow.ByteCount), Time: ts},
		)
	}

	return out, nil
}
