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
	"fmt"
	"strconv"

	"github.com/carverauto/sdngauge/pkg/config"
)

const (
	keyDPID               = "dp_id"
	keyName               = "name"
	keyHardware           = "hardware"
	keyDescription        = "description"
	keyTableOffset        = "table_offset"
	keyVLANTable          = "vlan_table"
	keyACLTable           = "acl_table"
	keyEthSrcTable        = "eth_src_table"
	keyIPv4FIBTable       = "ipv4_fib_table"
	keyIPv6FIBTable       = "ipv6_fib_table"
	keyEthDstTable        = "eth_dst_table"
	keyFloodTable         = "flood_table"
	keyPriorityOffset     = "priority_offset"
	keyLowestPriority     = "lowest_priority"
	keyLowPriority        = "low_priority"
	keyHighPriority       = "high_priority"
	keyHighestPriority    = "highest_priority"
	keyCookie             = "cookie"
	keyTimeout            = "timeout"
	keyARPNeighborTimeout = "arp_neighbor_timeout"
	keyOFChannelLog       = "ofchannel_log"
)

// New builds a device from its direct fields. Defaults are applied first, then the
// document's scalars overwrite them, then the table and priority numbering is
// derived. A derived key present in fields is kept as written.
func New(id uint64, fields map[string]any) (*Device, error) {
	d := &Device{
		ID:                 id,
		Hardware:           DefaultHardware,
		Cookie:             DefaultCookie,
		Timeout:            DefaultTimeout,
		ARPNeighborTimeout: DefaultARPNeighborTimeout,
		Extra:              make(map[string]any),
		Ports:              make(map[int]*Port),
		VLANs:              make(map[int]*VLAN),
		ACLs:               make(map[int][]Rule),
		MirrorFromPort:     make(map[int]int),
		ACLIn:              make(map[int]int),
	}

	set, err := d.merge(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: dp %d: %w", ErrValidation, id, err)
	}

	d.derive(set)

	return d, nil
}

// merge copies fields onto d and returns the set of keys that were present.
func (d *Device) merge(fields map[string]any) (map[string]bool, error) {
	set := make(map[string]bool, len(fields))

	ints := map[string]*int{
		keyTableOffset:        &d.TableOffset,
		keyVLANTable:          &d.VLANTable,
		keyACLTable:           &d.ACLTable,
		keyEthSrcTable:        &d.EthSrcTable,
		keyIPv4FIBTable:       &d.IPv4FIBTable,
		keyIPv6FIBTable:       &d.IPv6FIBTable,
		keyEthDstTable:        &d.EthDstTable,
		keyFloodTable:         &d.FloodTable,
		keyPriorityOffset:     &d.PriorityOffset,
		keyLowestPriority:     &d.LowestPriority,
		keyLowPriority:        &d.LowPriority,
		keyHighPriority:       &d.HighPriority,
		keyHighestPriority:    &d.HighestPriority,
		keyTimeout:            &d.Timeout,
		keyARPNeighborTimeout: &d.ARPNeighborTimeout,
	}

	strs := map[string]*string{
		keyName:         &d.Name,
		keyHardware:     &d.Hardware,
		keyDescription:  &d.Description,
		keyOFChannelLog: &d.OFChannelLog,
	}

	for key, raw := range fields {
		if key == keyDPID {
			continue
		}

		if raw == nil {
			// an explicit null leaves the default in place
			continue
		}

		switch {
		case ints[key] != nil:
			n, err := config.Int(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}

			if n < 0 {
				return nil, fmt.Errorf("%s: must not be negative, got %d", key, n)
			}

			*ints[key] = int(n)
		case strs[key] != nil:
			s, err := config.String(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}

			*strs[key] = s
		case key == keyCookie:
			c, err := config.Uint(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}

			d.Cookie = c
		default:
			d.Extra[key] = raw

			continue
		}

		set[key] = true
	}

	return set, nil
}

// derive fills the table and priority numbering. The eth_dst table is derived from
// eth_src, which places it on the IPv4 FIB index and the flood table on the IPv6 one.
func (d *Device) derive(set map[string]bool) {
	deriveInt := func(key string, field *int, value int) {
		if !set[key] {
			*field = value
		}
	}

	if !set[keyName] {
		d.Name = strconv.FormatUint(d.ID, 10)
	}

	deriveInt(keyVLANTable, &d.VLANTable, d.TableOffset)
	deriveInt(keyACLTable, &d.ACLTable, d.VLANTable+1)
	deriveInt(keyEthSrcTable, &d.EthSrcTable, d.ACLTable+1)
	deriveInt(keyIPv4FIBTable, &d.IPv4FIBTable, d.EthSrcTable+1)
	deriveInt(keyIPv6FIBTable, &d.IPv6FIBTable, d.IPv4FIBTable+1)
	deriveInt(keyEthDstTable, &d.EthDstTable, d.EthSrcTable+1)
	deriveInt(keyFloodTable, &d.FloodTable, d.EthDstTable+1)

	deriveInt(keyLowestPriority, &d.LowestPriority, d.PriorityOffset)
	deriveInt(keyLowPriority, &d.LowPriority, d.PriorityOffset+lowPriorityStep)
	deriveInt(keyHighPriority, &d.HighPriority, d.LowPriority+highPriorityStep)
	deriveInt(keyHighestPriority, &d.HighestPriority, d.HighPriority+highestPriorityStep)

	if !set[keyDescription] {
		d.Description = d.Name
	}
}
