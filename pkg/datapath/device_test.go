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

package datapath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	d, err := New(7, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), d.ID)
	assert.Equal(t, "7", d.Name)
	assert.Equal(t, "7", d.Description)
	assert.Equal(t, DefaultHardware, d.Hardware)
	assert.Equal(t, uint64(DefaultCookie), d.Cookie)
	assert.Equal(t, DefaultTimeout, d.Timeout)
	assert.Equal(t, DefaultARPNeighborTimeout, d.ARPNeighborTimeout)
	assert.False(t, d.Running())
}

func TestNewDerivesTables(t *testing.T) {
	for _, offset := range []int{0, 1, 10, 100} {
		d, err := New(1, map[string]any{"table_offset": offset})
		require.NoError(t, err)

		assert.Equal(t, offset, d.VLANTable)
		assert.Less(t, d.VLANTable, d.ACLTable)
		assert.Less(t, d.ACLTable, d.EthSrcTable)
		assert.Less(t, d.EthSrcTable, d.IPv4FIBTable)
		assert.Less(t, d.IPv4FIBTable, d.IPv6FIBTable)

		// eth_dst is numbered from eth_src, so it shares an index with the FIB tables.
		assert.Equal(t, d.EthSrcTable+1, d.EthDstTable)
		assert.Equal(t, d.IPv4FIBTable, d.EthDstTable)
		assert.Equal(t, d.IPv6FIBTable, d.FloodTable)
		assert.Equal(t, d.EthDstTable+1, d.FloodTable)
	}
}

func TestEthDstSharesFIBIndex(t *testing.T) {
	d, err := New(1, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, d.VLANTable)
	assert.Equal(t, 1, d.ACLTable)
	assert.Equal(t, 2, d.EthSrcTable)
	assert.Equal(t, 3, d.IPv4FIBTable)
	assert.Equal(t, 4, d.IPv6FIBTable)
	assert.Equal(t, 3, d.EthDstTable)
	assert.Equal(t, 4, d.FloodTable)
}

func TestNewDerivesPriorities(t *testing.T) {
	for _, offset := range []int{0, 5, 1000} {
		d, err := New(1, map[string]any{"priority_offset": offset})
		require.NoError(t, err)

		assert.Equal(t, offset, d.LowestPriority)
		assert.Equal(t, offset+9000, d.LowPriority)
		assert.Equal(t, d.LowPriority+1, d.HighPriority)
		assert.Equal(t, d.HighPriority+98, d.HighestPriority)

		assert.LessOrEqual(t, d.LowestPriority, d.LowPriority)
		assert.Less(t, d.LowPriority, d.HighPriority)
		assert.Less(t, d.HighPriority, d.HighestPriority)
	}
}

func TestNewKeepsExplicitDerivedKeys(t *testing.T) {
	d, err := New(1, map[string]any{
		"table_offset": 2,
		"acl_table":    10,
		"low_priority": 500,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, d.VLANTable)
	assert.Equal(t, 10, d.ACLTable)
	assert.Equal(t, 11, d.EthSrcTable)
	assert.Equal(t, 500, d.LowPriority)
	assert.Equal(t, 501, d.HighPriority)
}

func TestNewTolerantMerge(t *testing.T) {
	d, err := New(1, map[string]any{
		"dp_id":         1,
		"name":          "edge-1",
		"hardware":      "NoviFlow",
		"cookie":        "0x10",
		"stack":         map[string]any{"priority": 1},
		"learn_jitter":  10,
		"ofchannel_log": "/var/log/of.log",
	})
	require.NoError(t, err)

	assert.Equal(t, "edge-1", d.Name)
	assert.Equal(t, "edge-1", d.Description)
	assert.Equal(t, "NoviFlow", d.Hardware)
	assert.Equal(t, uint64(16), d.Cookie)
	assert.Equal(t, "/var/log/of.log", d.OFChannelLog)
	assert.Equal(t, 10, d.Extra["learn_jitter"])
	assert.Contains(t, d.Extra, "stack")
	assert.NotContains(t, d.Extra, "dp_id")
}

func TestNewRejectsBadValues(t *testing.T) {
	_, err := New(1, map[string]any{"table_offset": -1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = New(1, map[string]any{"timeout": "forever"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestAttachPortIsIdempotent(t *testing.T) {
	d, err := New(1, nil)
	require.NoError(t, err)

	first, err := d.AttachPort(1, map[string]any{"native_vlan": 100})
	require.NoError(t, err)

	second, err := d.AttachPort(1, map[string]any{"native_vlan": 200, "tagged_vlans": []any{300}})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, d.Ports, 1)
	assert.Len(t, d.VLANs, 1)
	assert.Len(t, d.VLANs[100].Untagged, 1)
}

func TestAttachPortVLANMembership(t *testing.T) {
	d, err := New(1, nil)
	require.NoError(t, err)

	_, err = d.AttachVLAN(100, map[string]any{"name": "office", "description": "x"})
	require.NoError(t, err)

	p1, err := d.AttachPort(1, map[string]any{"native_vlan": 100, "acl_in": 5})
	require.NoError(t, err)

	p2, err := d.AttachPort(2, map[string]any{"tagged_vlans": []any{100, 200}, "name": "uplink"})
	require.NoError(t, err)

	assert.Equal(t, "office", d.VLANs[100].Name)
	assert.Equal(t, "x", d.VLANs[100].Extra["description"])
	assert.Equal(t, []*Port{p1}, d.VLANs[100].Untagged)
	assert.Equal(t, []*Port{p2}, d.VLANs[100].Tagged)
	assert.Equal(t, []*Port{p2}, d.VLANs[200].Tagged)
	assert.Equal(t, "200", d.VLANs[200].Name)
	assert.Equal(t, map[int]int{1: 5}, d.ACLIn)
	assert.Same(t, d.VLANs[100], d.NativeVLAN(1))
	assert.Nil(t, d.NativeVLAN(2))
	assert.Equal(t, "uplink", d.PortName(2))
	assert.Equal(t, "9", d.PortName(9))

	require.NoError(t, d.SanityCheck())
}

func TestAttachPortMirrorSkipsSwitching(t *testing.T) {
	d, err := New(1, nil)
	require.NoError(t, err)

	_, err = d.AttachPort(3, map[string]any{"mirror": 1, "native_vlan": 100, "acl_in": 2})
	require.NoError(t, err)

	assert.Equal(t, map[int]int{3: 1}, d.MirrorFromPort)
	assert.Empty(t, d.VLANs)
	assert.Empty(t, d.ACLIn)
	assert.Contains(t, d.Ports, 3)
}

func TestAttachVLANNeverDuplicates(t *testing.T) {
	d, err := New(1, nil)
	require.NoError(t, err)

	first, err := d.AttachVLAN(100, map[string]any{"name": "a"})
	require.NoError(t, err)

	second, err := d.AttachVLAN(100, map[string]any{"name": "b"})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "a", second.Name)
}

func TestAttachACL(t *testing.T) {
	d, err := New(1, nil)
	require.NoError(t, err)

	require.NoError(t, d.AttachACL(1, nil))
	assert.Empty(t, d.ACLs)

	err = d.AttachACL(1, []any{
		map[string]any{"rule": map[string]any{"dl_type": 0x800, "actions": map[string]any{"allow": 1}}},
		map[string]any{"rule": map[string]any{"actions": map[string]any{"allow": 0}}},
	})
	require.NoError(t, err)
	require.Len(t, d.ACLs[1], 2)
	assert.Equal(t, 0x800, d.ACLs[1][0]["dl_type"])

	err = d.AttachACL(2, []any{map[string]any{"dl_type": 0x800}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSanityCheckCatchesBrokenReferences(t *testing.T) {
	d, err := New(1, nil)
	require.NoError(t, err)

	_, err = d.AttachPort(1, map[string]any{"native_vlan": 100})
	require.NoError(t, err)

	d.VLANs[100].Tagged = append(d.VLANs[100].Tagged, &Port{Number: 9})
	require.ErrorIs(t, d.SanityCheck(), ErrValidation)

	d.VLANs[100].Tagged = nil
	d.Ports[2] = d.Ports[1]
	require.ErrorIs(t, d.SanityCheck(), ErrValidation)
}

func TestRunningFlag(t *testing.T) {
	d, err := New(1, nil)
	require.NoError(t, err)

	d.SetRunning(true)
	assert.True(t, d.Running())
	assert.Equal(t, "1", d.String())
}
