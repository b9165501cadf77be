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

package gauge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sdngauge/pkg/config"
	"github.com/carverauto/sdngauge/pkg/datapath"
	"github.com/carverauto/sdngauge/pkg/dpconfig"
	"github.com/carverauto/sdngauge/pkg/lifecycle"
	"github.com/carverauto/sdngauge/pkg/logger"
	"github.com/carverauto/sdngauge/pkg/poller"
	"github.com/carverauto/sdngauge/pkg/telemetry"
)

const (
	edgeDoc = `
dp_id: 1
name: sw1
interfaces:
  1:
    native_vlan: 100
vlans:
  100: {}
`
	coreDoc = `
version: 2
dps:
  2:
    name: core-a
  3:
    name: core-b
`
)

// writeTree writes files into a fresh directory and returns the path of the
// first one.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, text := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o600))
	}

	return filepath.Join(dir, "gauge.yaml")
}

func load(t *testing.T, gaugeDoc string) (*Plan, error) {
	t.Helper()

	path := writeTree(t, map[string]string{
		"gauge.yaml": gaugeDoc,
		"edge.yaml":  edgeDoc,
		"core.yaml":  coreDoc,
	})

	return NewLoader(poller.DefaultFactory(), logger.NewTestLogger()).Load(path)
}

func TestLoadBindsDeclarations(t *testing.T) {
	plan, err := load(t, `
faucet_configs:
  - edge.yaml
  - core.yaml
gauges:
  - type: port_stats
    dps: [1]
    interval: 15
  - type: flow_table
    influx_stats: true
    dps: ["core-*"]
watchers:
  state:
    type: port_state
    dps: [sw1, 3]
`)
	require.NoError(t, err)
	require.NoError(t, plan.Skipped)

	assert.Len(t, plan.Devices, 3)
	assert.Equal(t, []Key{
		{DPID: 1, Type: "port_state"},
		{DPID: 1, Type: "port_stats"},
		{DPID: 2, Type: "flow_table"},
		{DPID: 3, Type: "flow_table"},
		{DPID: 3, Type: "port_state"},
	}, plan.Keys())

	flows := plan.ForDevice(2)
	require.Len(t, flows, 1)
	assert.True(t, flows[0].Config.InfluxStats)
	assert.Equal(t, "flow_table", flows[0].Config.Type)
	assert.Equal(t, "core-a", flows[0].Device.Name)

	state := plan.ForDevice(3)
	require.Len(t, state, 2)
	assert.Equal(t, "state", state[1].Config.Name)
}

func TestLoadDropsUnconfiguredDevice(t *testing.T) {
	plan, err := load(t, `
valve_configs: [edge.yaml]
gauges:
  - type: port_stats
    dps: [1, 99]
`)
	require.NoError(t, err)

	assert.Equal(t, []Key{{DPID: 1, Type: "port_stats"}}, plan.Keys())
	require.ErrorIs(t, plan.Skipped, ErrBinding)
	assert.Empty(t, plan.ForDevice(99))
}

func TestLoadSkipsUnknownTypes(t *testing.T) {
	plan, err := load(t, `
valve_configs: [edge.yaml]
gauges:
  - type: meter_stats
    dps: [1]
  - type: port_state
    dps: [1]
`)
	require.NoError(t, err)

	assert.Equal(t, []Key{{DPID: 1, Type: "port_state"}}, plan.Keys())
	require.ErrorIs(t, plan.Skipped, poller.ErrUnknownPollerType)
}

func TestLoadReportsDiscardedDatapaths(t *testing.T) {
	path := writeTree(t, map[string]string{
		"gauge.yaml": "valve_configs: [edge.yaml, core.yaml]\ngauges:\n  - type: port_stats\n    dps: [1, 2]\n",
		"edge.yaml":  edgeDoc,
		"core.yaml":  "version: 2\ndps:\n  2:\n    table_offset: oops\n",
	})

	plan, err := NewLoader(poller.DefaultFactory(), logger.NewTestLogger()).Load(path)
	require.NoError(t, err)

	require.ErrorIs(t, plan.Discarded, datapath.ErrValidation)
	require.ErrorIs(t, plan.Skipped, ErrBinding)
	assert.NotErrorIs(t, plan.Skipped, datapath.ErrValidation)
	assert.Equal(t, []Key{{DPID: 1, Type: "port_stats"}}, plan.Keys())
}

func TestLoadLogsUnregisteredHardware(t *testing.T) {
	path := writeTree(t, map[string]string{
		"gauge.yaml": "valve_configs: [edge.yaml]\ngauges:\n  - type: port_stats\n    dps: [1]\n",
		"edge.yaml":  "dp_id: 1\nhardware: Brocade\n",
	})

	logPath := filepath.Join(t.TempDir(), "gauge.log")
	log, err := lifecycle.CreateComponentLogger("loader", &logger.Config{Level: "warn", Output: logPath})
	require.NoError(t, err)

	plan, err := NewLoader(poller.DefaultFactory(), log).Load(path)
	require.NoError(t, err)
	require.NoError(t, log.Close())

	assert.Equal(t, []Key{{DPID: 1, Type: "port_stats"}}, plan.Keys())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "unknown hardware dialect")
}

func TestLoadKeepsLastDuplicateDeclaration(t *testing.T) {
	plan, err := load(t, `
valve_configs: [edge.yaml]
gauges:
  - type: port_stats
    dps: [1]
    interval: 10
  - type: port_stats
    dps: [sw1]
    interval: 20
`)
	require.NoError(t, err)

	require.Len(t, plan.Bindings, 1)
	assert.Equal(t, "20s", plan.Bindings[0].Config.Interval.String())
}

func TestLoadResolvesBackends(t *testing.T) {
	plan, err := load(t, `
valve_configs: [edge.yaml]
dbs:
  tsdb:
    type: postgres
    dsn: postgres://gauge@localhost/gauge
  broken:
    type: cassandra
gauges:
  - type: port_stats
    dps: [1]
    db: tsdb
  - type: flow_table
    dps: [1]
    db: broken
`)
	require.NoError(t, err)

	require.Len(t, plan.Bindings, 1)
	backend := plan.Bindings[0].Config.Backend
	require.NotNil(t, backend)
	assert.Equal(t, telemetry.DBPostgres, backend.Type)

	require.ErrorIs(t, plan.Skipped, telemetry.ErrUnknownDBType)
	require.ErrorIs(t, plan.Skipped, telemetry.ErrUnknownDB)
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		check func(t *testing.T, err error)
	}{
		{
			name:  "no datapath documents",
			files: map[string]string{"gauge.yaml": "gauges: []\n"},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, dpconfig.ErrSchema) },
		},
		{
			name: "malformed datapath document",
			files: map[string]string{
				"gauge.yaml": "valve_configs: [edge.yaml]\n",
				"edge.yaml":  "dp_id: [1\n",
			},
			check: func(t *testing.T, err error) {
				var docErr *config.DocumentError
				require.True(t, errors.As(err, &docErr))
				assert.Equal(t, "edge.yaml", filepath.Base(docErr.File))
			},
		},
		{
			name: "datapath document without dp_id",
			files: map[string]string{
				"gauge.yaml": "valve_configs: [edge.yaml]\n",
				"edge.yaml":  "name: sw1\n",
			},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, dpconfig.ErrSchema) },
		},
		{
			name: "gauges is not a list",
			files: map[string]string{
				"gauge.yaml": "valve_configs: [edge.yaml]\ngauges: port_stats\n",
				"edge.yaml":  edgeDoc,
			},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, dpconfig.ErrSchema) },
		},
		{
			name:  "missing poller document",
			files: map[string]string{},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, os.ErrNotExist) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTree(t, tt.files)

			plan, err := NewLoader(poller.DefaultFactory(), logger.NewTestLogger()).Load(path)
			require.Error(t, err)
			assert.Nil(t, plan)
			tt.check(t, err)
		})
	}
}

func TestBindingInstantiate(t *testing.T) {
	plan, err := load(t, `
valve_configs: [edge.yaml]
gauges:
  - type: port_state
    dps: [1]
`)
	require.NoError(t, err)
	require.Len(t, plan.Bindings, 1)

	p, err := plan.Bindings[0].Instantiate(poller.Deps{Logger: logger.NewTestLogger()})
	require.NoError(t, err)
	assert.False(t, p.Running())
}
