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

// Package datapath models a switch controlled by the SDN control plane: its derived
// table and priority numbering and the ports, VLANs and ACLs attached to it.
package datapath

import (
	"errors"
	"strconv"
	"sync/atomic"
)

// ErrValidation marks a device that failed to build or failed its sanity check.
var ErrValidation = errors.New("datapath validation failed")

const (
	DefaultHardware           = "Open_vSwitch"
	DefaultCookie             = 1524372928
	DefaultTimeout            = 300
	DefaultARPNeighborTimeout = 500

	lowPriorityStep     = 9000
	highPriorityStep    = 1
	highestPriorityStep = 98
)

// Rule is one ACL rule as written in the document.
type Rule map[string]any

// Device is one datapath. Known keys are typed fields; anything else from the
// document is kept in Extra.
type Device struct {
	ID          uint64
	Name        string
	Hardware    string
	Description string

	TableOffset  int
	VLANTable    int
	ACLTable     int
	EthSrcTable  int
	IPv4FIBTable int
	IPv6FIBTable int
	EthDstTable  int
	FloodTable   int

	PriorityOffset  int
	LowestPriority  int
	LowPriority     int
	HighPriority    int
	HighestPriority int

	Cookie             uint64
	Timeout            int
	ARPNeighborTimeout int
	OFChannelLog       string

	Extra map[string]any

	Ports          map[int]*Port
	VLANs          map[int]*VLAN
	ACLs           map[int][]Rule
	MirrorFromPort map[int]int
	ACLIn          map[int]int

	running atomic.Bool
}

// VLAN groups the ports that carry a VLAN id untagged or tagged.
type VLAN struct {
	VID      int
	Name     string
	Untagged []*Port
	Tagged   []*Port
	Extra    map[string]any
}

// Port is one switch port and its raw attributes.
type Port struct {
	Number      int
	Name        string
	Description string
	NativeVLAN  *int
	TaggedVLANs []int
	Mirror      *int
	ACLIn       *int
	Extra       map[string]any
}

// Running reports the externally maintained connection status.
func (d *Device) Running() bool {
	return d.running.Load()
}

// SetRunning records whether the datapath is connected.
func (d *Device) SetRunning(running bool) {
	d.running.Store(running)
}

func (d *Device) String() string {
	return d.Name
}

// PortName returns the configured name of port num, or its number.
func (d *Device) PortName(num int) string {
	if p, ok := d.Ports[num]; ok && p.Name != "" {
		return p.Name
	}

	return strconv.Itoa(num)
}

// NativeVLAN returns the VLAN that carries port num untagged, or nil.
func (d *Device) NativeVLAN(num int) *VLAN {
	port, ok := d.Ports[num]
	if !ok {
		return nil
	}

	for _, vlan := range d.VLANs {
		for _, p := range vlan.Untagged {
			if p == port {
				return vlan
			}
		}
	}

	return nil
}

// Ports returns every port that is a member of the VLAN.
func (v *VLAN) Ports() []*Port {
	out := make([]*Port, 0, len(v.Untagged)+len(v.Tagged))
	out = append(out, v.Untagged...)

	return append(out, v.Tagged...)
}
