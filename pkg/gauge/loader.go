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
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"

	"github.com/carverauto/sdngauge/pkg/config"
	"github.com/carverauto/sdngauge/pkg/datapath"
	"github.com/carverauto/sdngauge/pkg/dialect"
	"github.com/carverauto/sdngauge/pkg/dpconfig"
	"github.com/carverauto/sdngauge/pkg/logger"
	"github.com/carverauto/sdngauge/pkg/poller"
	"github.com/carverauto/sdngauge/pkg/telemetry"
)

// ErrBinding marks a declaration target that matches no configured datapath.
var ErrBinding = errors.New("datapath metered but not configured")

var (
	deviceFileKeys  = []string{"valve_configs", "faucet_configs"}
	globMetaChars   = "*?[{"
	errNoDeviceList = fmt.Errorf("%w: valve_configs or faucet_configs required", dpconfig.ErrSchema)
)

// Loader turns a poller document into a Plan.
type Loader struct {
	factory  *poller.Factory
	dialects *dialect.Table
	logger   logger.Logger
}

func NewLoader(factory *poller.Factory, log logger.Logger) *Loader {
	return &Loader{factory: factory, dialects: dialect.Default(), logger: log}
}

// Load reads the poller document at path and every datapath document it lists.
// A failure to read or parse any of those documents is returned and no plan is
// produced. Datapaths that fail validation are reported through Plan.Discarded;
// declarations that cannot be bound are logged, left out, and reported through
// Plan.Skipped.
func (l *Loader) Load(path string) (*Plan, error) {
	doc, err := config.ReadDocument(path)
	if err != nil {
		return nil, err
	}

	devices, discarded, err := l.loadDevices(path, doc)
	if err != nil {
		return nil, err
	}

	var skipped *multierror.Error

	dbs, err := l.loadDBs(doc)
	if err != nil {
		skipped = multierror.Append(skipped, err)
	}

	decls, err := declarations(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	bindings := make(map[Key]int)
	plan := &Plan{Path: path, Devices: devices}

	for _, d := range decls {
		conf, err := telemetry.Build(d.name, d.conf, dbs)
		if err != nil {
			l.logger.Error().Err(err).Str("file", path).Str("poller", d.name).Msg("Invalid poller declaration")
			skipped = multierror.Append(skipped, err)

			continue
		}

		constructor, err := l.factory.Resolve(poller.EffectiveTag(conf))
		if err != nil {
			l.logger.Error().Err(err).Str("file", path).Str("poller", d.name).Msg("Invalid poller declaration")
			skipped = multierror.Append(skipped, err)

			continue
		}

		targets, err := resolveTargets(conf.Devices, devices)
		if err != nil {
			l.logger.Error().Err(err).Str("file", path).Str("poller", d.name).Msg("Poller target not configured")
			skipped = multierror.Append(skipped, fmt.Errorf("poller %s: %w", d.name, err))
		}

		for _, dp := range targets {
			b := Binding{Device: dp, Config: conf, Constructor: constructor}

			if i, ok := bindings[b.Key()]; ok {
				l.logger.Warn().
					Uint64("dp_id", dp.ID).
					Str("poller_type", conf.Type).
					Str("poller", d.name).
					Msg("Poller type declared twice for datapath, keeping the last")

				plan.Bindings[i] = b

				continue
			}

			bindings[b.Key()] = len(plan.Bindings)
			plan.Bindings = append(plan.Bindings, b)
		}
	}

	sortBindings(plan.Bindings)

	plan.Discarded = discarded.ErrorOrNil()
	plan.Skipped = skipped.ErrorOrNil()

	return plan, nil
}

func (l *Loader) loadDevices(path string, doc map[string]any) (map[uint64]*datapath.Device, *multierror.Error, error) {
	var (
		files     []any
		found     bool
		discarded *multierror.Error
	)

	for _, key := range deviceFileKeys {
		raw, ok := doc[key]
		if !ok {
			continue
		}

		list, err := config.List(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w: %s: %w", path, dpconfig.ErrSchema, key, err)
		}

		files = append(files, list...)
		found = true
	}

	if !found {
		return nil, nil, fmt.Errorf("%s: %w", path, errNoDeviceList)
	}

	devices := make(map[uint64]*datapath.Device)

	for _, raw := range files {
		name, err := config.String(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w: datapath document: %w", path, dpconfig.ErrSchema, err)
		}

		parsed, err := dpconfig.ParseFile(config.Relative(path, name))
		if err != nil {
			return nil, nil, err
		}

		if parsed.Discarded != nil {
			l.logger.Error().Err(parsed.Discarded).Str("file", parsed.Path).Msg("Error in config file")
			discarded = multierror.Append(discarded, parsed.Discarded)
		}

		for _, dp := range parsed.Devices {
			if _, dup := devices[dp.ID]; dup {
				err := fmt.Errorf("%w: dp_id %d configured twice (%s)", datapath.ErrValidation, dp.ID, parsed.Path)
				l.logger.Error().Err(err).Msg("Ignoring datapath")
				discarded = multierror.Append(discarded, err)

				continue
			}

			// pollers only read counters, so an unregistered dialect is not fatal here
			if _, err := l.dialects.Lookup(dp.Hardware); err != nil {
				l.logger.Warn().Err(err).Uint64("dp_id", dp.ID).Str("file", parsed.Path).
					Msg("Polling datapath with unregistered hardware")
			}

			devices[dp.ID] = dp
		}
	}

	return devices, discarded, nil
}

func (l *Loader) loadDBs(doc map[string]any) (map[string]*telemetry.DB, error) {
	raw, err := config.Mapping(doc["dbs"])
	if err != nil {
		return nil, fmt.Errorf("%w: dbs: %w", dpconfig.ErrSchema, err)
	}

	dbs, err := telemetry.ParseDBs(raw)
	if err != nil {
		l.logger.Error().Err(err).Msg("Invalid dbs entries")
	}

	return dbs, err
}

type declaration struct {
	name string
	conf map[string]any
}

// declarations collects the gauges list and the watchers mapping.
func declarations(doc map[string]any) ([]declaration, error) {
	var out []declaration

	gauges, err := config.List(doc["gauges"])
	if err != nil {
		return nil, fmt.Errorf("%w: gauges: %w", dpconfig.ErrSchema, err)
	}

	for i, raw := range gauges {
		conf, err := config.Mapping(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: gauges[%d]: %w", dpconfig.ErrSchema, i, err)
		}

		name := fmt.Sprintf("gauges[%d]", i)
		if s, ok := conf["name"].(string); ok && s != "" {
			name = s
		}

		out = append(out, declaration{name: name, conf: conf})
	}

	watchers, err := config.Mapping(doc["watchers"])
	if err != nil {
		return nil, fmt.Errorf("%w: watchers: %w", dpconfig.ErrSchema, err)
	}

	for _, name := range config.SortedKeys(watchers) {
		conf, err := config.Mapping(watchers[name])
		if err != nil {
			return nil, fmt.Errorf("%w: watchers.%s: %w", dpconfig.ErrSchema, name, err)
		}

		out = append(out, declaration{name: name, conf: conf})
	}

	return out, nil
}

// resolveTargets maps the dps entries of a declaration to datapaths. An entry is
// a dp_id, a datapath name or a glob over names. Entries that match nothing are
// reported; the rest are still returned.
func resolveTargets(targets []any, devices map[uint64]*datapath.Device) ([]*datapath.Device, error) {
	byName := make(map[string]*datapath.Device, len(devices))
	ordered := make([]*datapath.Device, 0, len(devices))

	for _, dp := range devices {
		byName[dp.Name] = dp
		ordered = append(ordered, dp)
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var (
		errs *multierror.Error
		out  []*datapath.Device
		seen = make(map[uint64]bool)
	)

	add := func(dp *datapath.Device) {
		if !seen[dp.ID] {
			seen[dp.ID] = true
			out = append(out, dp)
		}
	}

	for _, target := range targets {
		matched, err := match(target, devices, byName, ordered)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		for _, dp := range matched {
			add(dp)
		}
	}

	return out, errs.ErrorOrNil()
}

func match(
	target any, devices map[uint64]*datapath.Device, byName map[string]*datapath.Device, ordered []*datapath.Device,
) ([]*datapath.Device, error) {
	if id, err := config.Uint(target); err == nil {
		if dp, ok := devices[id]; ok {
			return []*datapath.Device{dp}, nil
		}

		return nil, fmt.Errorf("%w: dp_id %d", ErrBinding, id)
	}

	name, err := config.String(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBinding, target)
	}

	if dp, ok := byName[name]; ok {
		return []*datapath.Device{dp}, nil
	}

	if !strings.ContainsAny(name, globMetaChars) {
		return nil, fmt.Errorf("%w: %q", ErrBinding, name)
	}

	g, err := glob.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %w", ErrBinding, name, err)
	}

	var out []*datapath.Device

	for _, dp := range ordered {
		if g.Match(dp.Name) {
			out = append(out, dp)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: pattern %q matches no datapath", ErrBinding, name)
	}

	return out, nil
}
