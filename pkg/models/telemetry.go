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

// Package models holds the messages exchanged with datapaths and pollers.
package models

import (
	"encoding/json"
	"time"
)

// Telemetry categories. They double as poller type tags.
const (
	TypePortState = "port_state"
	TypePortStats = "port_stats"
	TypeFlowTable = "flow_table"
)

// PortStatus reasons.
const (
	PortAdd    = "add"
	PortDelete = "delete"
	PortModify = "modify"
)

// AllTables selects every flow table in a FlowStatsRequest.
const AllTables = 0xff

// PortStatus is an asynchronous port state change.
type PortStatus struct {
	DPID   uint64 `json:"dp_id"`
	Port   int    `json:"port"`
	Reason string `json:"reason"`
	LinkUp bool   `json:"link_up"`
}

// PortStat holds the counters of one port.
type PortStat struct {
	Port      int    `json:"port"`
	RxPackets uint64 `json:"rx_packets"`
	TxPackets uint64 `json:"tx_packets"`
	RxBytes   uint64 `json:"rx_bytes"`
	TxBytes   uint64 `json:"tx_bytes"`
	RxDropped uint64 `json:"rx_dropped"`
	TxDropped uint64 `json:"tx_dropped"`
	RxErrors  uint64 `json:"rx_errors"`
}

// PortStatsReply answers a PortStatsRequest.
type PortStatsReply struct {
	DPID  uint64     `json:"dp_id"`
	Stats []PortStat `json:"stats"`
}

// FlowStat describes one flow entry.
type FlowStat struct {
	TableID     int            `json:"table_id"`
	Priority    int            `json:"priority"`
	Cookie      uint64         `json:"cookie"`
	PacketCount uint64         `json:"packet_count"`
	ByteCount   uint64         `json:"byte_count"`
	Match       map[string]any `json:"match,omitempty"`
}

// FlowStatsReply answers a FlowStatsRequest.
type FlowStatsReply struct {
	DPID  uint64     `json:"dp_id"`
	Flows []FlowStat `json:"flows"`
}

// Request is an outbound poll request.
type Request interface {
	RequestType() string
}

// PortStatsRequest asks for the counters of every port.
type PortStatsRequest struct {
	DPID uint64 `json:"dp_id"`
}

func (PortStatsRequest) RequestType() string { return "port_stats_request" }

// FlowStatsRequest asks for the flow entries of a table, AllTables for every table.
type FlowStatsRequest struct {
	DPID    uint64 `json:"dp_id"`
	TableID int    `json:"table_id"`
}

func (FlowStatsRequest) RequestType() string { return "flow_stats_request" }

// Lifecycle event kinds.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventReconnect  = "reconnect"
)

// LifecycleEvent is a datapath connection change as published by the controller.
type LifecycleEvent struct {
	Kind string `json:"kind"`
	DPID uint64 `json:"dp_id"`
}

// Envelope wraps a telemetry reply or a poll request on the wire.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data"`
}
