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

package dpconfig

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/carverauto/sdngauge/pkg/config"
	"github.com/carverauto/sdngauge/pkg/datapath"
	"github.com/carverauto/sdngauge/pkg/dialect"
	"github.com/carverauto/sdngauge/pkg/logger"
)

// Parsed is the outcome of reading one datapath document.
type Parsed struct {
	Path    string
	Version int
	Devices []*datapath.Device
	// Discarded aggregates the devices that failed to build, nil if none did.
	Discarded error
}

// ParseFile reads path and builds every device it declares. A document or schema
// failure returns an error and no devices; devices that fail validation are
// reported through Parsed.Discarded.
func ParseFile(path string) (*Parsed, error) {
	doc, err := config.ReadDocument(path)
	if err != nil {
		return nil, err
	}

	n, err := Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	devices, buildErr := Build(n)

	return &Parsed{
		Path:      path,
		Version:   n.Version,
		Devices:   devices,
		Discarded: buildErr,
	}, nil
}

// ParsePrimary reads path for a consumer that drives a single device. Devices
// whose hardware has no registered dialect are logged and skipped. When several
// remain, the one with the lowest identifier is returned and the others are
// logged as ignored.
func ParsePrimary(path string, log logger.Logger) (*datapath.Device, error) {
	parsed, err := ParseFile(path)
	if err != nil {
		return nil, err
	}

	if parsed.Discarded != nil {
		log.Error().Err(parsed.Discarded).Str("file", path).Msg("Error in config file")
	}

	dialects := dialect.Default()

	var (
		devices  = make([]*datapath.Device, 0, len(parsed.Devices))
		unusable *multierror.Error
	)

	for _, dp := range parsed.Devices {
		if _, err := dialects.Lookup(dp.Hardware); err != nil {
			log.Error().Err(err).Str("file", path).Uint64("dp_id", dp.ID).Msg("Skipping datapath")
			unusable = multierror.Append(unusable, err)

			continue
		}

		devices = append(devices, dp)
	}

	if len(devices) == 0 {
		return nil, multierror.Append(fmt.Errorf("%w: %s: no valid devices", ErrSchema, path), unusable.WrappedErrors()...)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	if len(devices) > 1 {
		ignored := make([]string, 0, len(devices)-1)
		for _, dp := range devices[1:] {
			ignored = append(ignored, dp.Name)
		}

		log.Warn().
			Str("file", path).
			Uint64("dp_id", devices[0].ID).
			Strs("ignored", ignored).
			Msg("Document declares several datapaths, using the lowest dp_id")
	}

	return devices[0], nil
}
