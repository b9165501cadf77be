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

	"github.com/hashicorp/go-multierror"

	"github.com/carverauto/sdngauge/pkg/config"
	"github.com/carverauto/sdngauge/pkg/datapath"
)

// Build builds every device of n independently. A device that fails is left out
// and its error is added to the returned multierror; the other devices are still
// returned.
func Build(n *Normalized) ([]*datapath.Device, error) {
	var (
		devices = make([]*datapath.Device, 0, len(n.Devices))
		seen    = make(map[uint64]string, len(n.Devices))
		errs    *multierror.Error
	)

	for _, raw := range n.Devices {
		dp, err := buildDevice(raw, n.Pools)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		if other, dup := seen[dp.ID]; dup {
			errs = multierror.Append(errs, fmt.Errorf("%w: dp %d declared by both %q and %q",
				datapath.ErrValidation, dp.ID, other, describe(raw)))

			continue
		}

		seen[dp.ID] = describe(raw)
		devices = append(devices, dp)
	}

	return devices, errs.ErrorOrNil()
}

func buildDevice(raw RawDevice, pools Pools) (*datapath.Device, error) {
	id, err := config.Uint(raw.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: dp_id: %w", datapath.ErrValidation, describe(raw), err)
	}

	dp, err := datapath.New(id, raw.Fields)
	if err != nil {
		return nil, err
	}

	for _, key := range config.SortedKeys(pools.VLANs) {
		vid, conf, err := entry(key, pools.VLANs[key])
		if err != nil {
			return nil, fmt.Errorf("%w: dp %d vlan %s: %w", datapath.ErrValidation, id, key, err)
		}

		if _, err := dp.AttachVLAN(vid, conf); err != nil {
			return nil, err
		}
	}

	for _, key := range config.SortedKeys(raw.Interfaces) {
		num, conf, err := entry(key, raw.Interfaces[key])
		if err != nil {
			return nil, fmt.Errorf("%w: dp %d port %s: %w", datapath.ErrValidation, id, key, err)
		}

		if _, err := dp.AttachPort(num, conf); err != nil {
			return nil, err
		}
	}

	for _, key := range config.SortedKeys(pools.ACLs) {
		aclID, err := config.Int(key)
		if err != nil {
			return nil, fmt.Errorf("%w: dp %d acl %s: %w", datapath.ErrValidation, id, key, err)
		}

		entries, err := config.List(pools.ACLs[key])
		if err != nil {
			return nil, fmt.Errorf("%w: dp %d acl %s: %w", datapath.ErrValidation, id, key, err)
		}

		if err := dp.AttachACL(int(aclID), entries); err != nil {
			return nil, err
		}
	}

	if err := dp.SanityCheck(); err != nil {
		return nil, err
	}

	return dp, nil
}

func entry(key string, raw any) (int, map[string]any, error) {
	n, err := config.Int(key)
	if err != nil {
		return 0, nil, err
	}

	conf, err := config.Mapping(raw)
	if err != nil {
		return 0, nil, err
	}

	return int(n), conf, nil
}

func describe(raw RawDevice) string {
	if raw.Key != "" {
		return "dps." + raw.Key
	}

	return fmt.Sprintf("dp_id %v", raw.ID)
}
