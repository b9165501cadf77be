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

package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	c, err := Build("", map[string]any{"type": "port_stats", "dps": []any{1, 2}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "port_stats", c.Type)
	assert.Equal(t, []any{1, 2}, c.Devices)
	assert.Equal(t, DefaultInterval, c.Interval)
	assert.False(t, c.InfluxStats)
	assert.Equal(t, "faucet", c.InfluxDB)
	assert.Equal(t, "localhost", c.InfluxHost)
	assert.Equal(t, 8086, c.InfluxPort)
	assert.Empty(t, c.InfluxUser)
	assert.Empty(t, c.InfluxPassword)
	assert.Equal(t, 10*time.Second, c.InfluxTimeout)
	assert.Nil(t, c.Backend)
	assert.Empty(t, c.OutputFile)
	assert.Equal(t, "http://localhost:8086", c.InfluxURL())
}

func TestBuildOverridesAndKeepsUnknownKeys(t *testing.T) {
	c, err := Build("stats", map[string]any{
		"gauge_type":   "flow_table",
		"dps":          "edge-*",
		"output_file":  "/tmp/flows.txt",
		"interval":     "1m",
		"influx_stats": true,
		"influx_port":  "9086",
		"compress":     true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "stats", c.Name)
	assert.Equal(t, "flow_table", c.Type)
	assert.Equal(t, []any{"edge-*"}, c.Devices)
	assert.Equal(t, "/tmp/flows.txt", c.OutputFile)
	assert.Equal(t, time.Minute, c.Interval)
	assert.True(t, c.InfluxStats)
	assert.Equal(t, 9086, c.InfluxPort)
	assert.Equal(t, true, c.Extra["compress"])
}

func TestBuildRejectsBadValues(t *testing.T) {
	_, err := Build("", map[string]any{"interval": "often"}, nil)
	require.Error(t, err)

	_, err = Build("", map[string]any{"interval": 0}, nil)
	require.ErrorIs(t, err, errBadInterval)

	_, err = Build("", map[string]any{"influx_stats": "maybe"}, nil)
	require.Error(t, err)
}

func TestBuildResolvesDBs(t *testing.T) {
	dbs, err := ParseDBs(map[string]any{
		"ts": map[string]any{
			"type":        "influx",
			"influx_host": "influx.local",
			"influx_db":   "telemetry",
			"influx_user": "gauge",
		},
		"pg": map[string]any{
			"type": "postgres",
			"dsn":  "postgres://gauge@db/gauge",
		},
		"bus":   map[string]any{"type": "nats"},
		"files": map[string]any{"type": "text", "file": "/var/log/gauge.txt"},
	})
	require.NoError(t, err)
	require.Len(t, dbs, 4)

	c, err := Build("w", map[string]any{"type": "port_stats", "db": "ts"}, dbs)
	require.NoError(t, err)
	assert.True(t, c.InfluxStats)
	assert.Equal(t, "influx.local", c.InfluxHost)
	assert.Equal(t, "telemetry", c.InfluxDB)
	assert.Equal(t, "gauge", c.InfluxUser)
	assert.Nil(t, c.Backend)

	c, err = Build("w", map[string]any{"type": "port_stats", "db": "pg"}, dbs)
	require.NoError(t, err)
	assert.False(t, c.InfluxStats)
	require.NotNil(t, c.Backend)
	assert.Equal(t, DBPostgres, c.Backend.Type)
	assert.Equal(t, DefaultPostgresTable, c.Backend.Table)

	assert.Equal(t, DefaultNATSSubject, dbs["bus"].Subject)
	assert.Equal(t, "/var/log/gauge.txt", dbs["files"].File)

	_, err = Build("w", map[string]any{"type": "port_stats", "db": "missing"}, dbs)
	require.ErrorIs(t, err, ErrUnknownDB)
}

func TestParseDBsSkipsBadEntries(t *testing.T) {
	dbs, err := ParseDBs(map[string]any{
		"ok":      map[string]any{"type": "text"},
		"odd":     map[string]any{"type": "mongo"},
		"notamap": []any{1},
	})
	require.ErrorIs(t, err, ErrUnknownDBType)
	assert.Len(t, dbs, 1)
	assert.Contains(t, dbs, "ok")
}
