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
	"fmt"
	"sort"

	"github.com/carverauto/sdngauge/pkg/models"
	"github.com/carverauto/sdngauge/pkg/telemetry"
)

// InfluxSuffix is appended to the declared type when Influx output is enabled.
const InfluxSuffix = "_influx"

// Factory maps type tags to constructors. It is filled at start-up and only read
// afterwards.
type Factory struct {
	constructors map[string]Constructor
}

func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]Constructor)}
}

// DefaultFactory registers the port_state, port_stats and flow_table pollers and
// their Influx variants.
func DefaultFactory() *Factory {
	f := NewFactory()

	for tag, c := range map[string]func(bool) Constructor{
		models.TypePortState: NewPortState,
		models.TypePortStats: NewPortStats,
		models.TypeFlowTable: NewFlowTable,
	} {
		f.Register(tag, c(false))
		f.Register(tag+InfluxSuffix, c(true))
	}

	return f
}

func (f *Factory) Register(tag string, c Constructor) {
	f.constructors[tag] = c
}

// Resolve returns the constructor registered for tag.
func (f *Factory) Resolve(tag string) (Constructor, error) {
	c, ok := f.constructors[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPollerType, tag)
	}

	return c, nil
}

// Tags lists the registered tags in order.
func (f *Factory) Tags() []string {
	tags := make([]string, 0, len(f.constructors))
	for tag := range f.constructors {
		tags = append(tags, tag)
	}

	sort.Strings(tags)

	return tags
}

// EffectiveTag is the tag conf resolves under. The registry still keys the
// poller by conf.Type.
func EffectiveTag(conf *telemetry.Config) string {
	if conf.InfluxStats {
		return conf.Type + InfluxSuffix
	}

	return conf.Type
}
