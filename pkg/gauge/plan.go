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

// Package gauge loads the poller document: which datapath documents to read,
// which pollers to run against which datapaths and where they report.
package gauge

import (
	"sort"

	"github.com/carverauto/sdngauge/pkg/datapath"
	"github.com/carverauto/sdngauge/pkg/poller"
	"github.com/carverauto/sdngauge/pkg/telemetry"
)

// Key identifies a registry slot. Type is the undecorated poller type.
type Key struct {
	DPID uint64
	Type string
}

// Binding is one poller declaration resolved against one datapath.
type Binding struct {
	Device      *datapath.Device
	Config      *telemetry.Config
	Constructor poller.Constructor
}

func (b Binding) Key() Key {
	return Key{DPID: b.Device.ID, Type: b.Config.Type}
}

// Instantiate builds the stopped poller for the binding.
func (b Binding) Instantiate(deps poller.Deps) (poller.Poller, error) {
	return b.Constructor(b.Device, b.Config, deps)
}

// Plan is the outcome of a load: the datapaths read and the bindings to run,
// ordered by datapath id then poller type.
type Plan struct {
	Path     string
	Devices  map[uint64]*datapath.Device
	Bindings []Binding
	// Discarded aggregates the datapaths that failed validation, nil if none.
	// Their bindings are missing from the plan.
	Discarded error
	// Skipped aggregates the declarations that could not be bound, nil if none.
	Skipped error
}

// ForDevice returns the bindings of one datapath.
func (p *Plan) ForDevice(id uint64) []Binding {
	if p == nil {
		return nil
	}

	var out []Binding

	for _, b := range p.Bindings {
		if b.Device.ID == id {
			out = append(out, b)
		}
	}

	return out
}

// Keys lists the slot keys of the plan in order.
func (p *Plan) Keys() []Key {
	if p == nil {
		return nil
	}

	keys := make([]Key, 0, len(p.Bindings))
	for _, b := range p.Bindings {
		keys = append(keys, b.Key())
	}

	return keys
}

func sortBindings(bindings []Binding) {
	sort.SliceStable(bindings, func(i, j int) bool {
		a, b := bindings[i].Key(), bindings[j].Key()
		if a.DPID != b.DPID {
			return a.DPID < b.DPID
		}

		return a.Type < b.Type
	})
}
