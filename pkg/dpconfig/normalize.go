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

// Package dpconfig turns datapath documents of either format version into built
// devices.
package dpconfig

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/carverauto/sdngauge/pkg/config"
)

// ErrSchema marks a document whose shape is wrong: an unsupported version, a
// missing required key or no devices at all.
var ErrSchema = errors.New("config schema error")

const (
	keyVersion    = "version"
	keyDPID       = "dp_id"
	keyDPs        = "dps"
	keyName       = "name"
	keyInterfaces = "interfaces"
	keyVLANs      = "vlans"
	keyACLs       = "acls"

	Version1 = 1
	Version2 = 2
)

// Pools holds the VLAN, ACL and interface declarations shared by the devices of
// one document.
type Pools struct {
	VLANs      map[string]any
	ACLs       map[string]any
	Interfaces map[string]any
}

// RawDevice is one device as declared, before it is built.
type RawDevice struct {
	// Key is the dps key in a version 2 document and empty in version 1.
	Key        string
	ID         any
	Fields     map[string]any
	Interfaces map[string]any
}

// Normalized is a document reduced to per-device mappings plus the shared pools.
type Normalized struct {
	Version int
	Devices []RawDevice
	Pools   Pools
}

// Normalize detects the document version and splits doc into devices and pools.
// doc is not modified.
func Normalize(doc map[string]any) (*Normalized, error) {
	version := Version1

	if raw, ok := doc[keyVersion]; ok && raw != nil {
		v, err := config.Int(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: version: %w", ErrSchema, err)
		}

		version = int(v)
	}

	switch version {
	case Version1:
		return normalizeV1(doc)
	case Version2:
		return normalizeV2(doc)
	default:
		return nil, fmt.Errorf("%w: unsupported config version number: %d", ErrSchema, version)
	}
}

func normalizeV1(doc map[string]any) (*Normalized, error) {
	id, ok := doc[keyDPID]
	if !ok {
		return nil, fmt.Errorf("%w: %s not configured", ErrSchema, keyDPID)
	}

	pools, err := readPools(doc)
	if err != nil {
		return nil, err
	}

	fields := config.Clone(doc)
	for _, key := range []string{keyVersion, keyInterfaces, keyVLANs, keyACLs} {
		delete(fields, key)
	}

	// in version 1 the interfaces belong to the only device
	device := RawDevice{ID: id, Fields: fields, Interfaces: pools.Interfaces}
	pools.Interfaces = map[string]any{}

	return &Normalized{Version: Version1, Devices: []RawDevice{device}, Pools: pools}, nil
}

func normalizeV2(doc map[string]any) (*Normalized, error) {
	raw, ok := doc[keyDPs]
	if !ok {
		return nil, fmt.Errorf("%w: %s not configured", ErrSchema, keyDPs)
	}

	dps, err := config.Mapping(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSchema, keyDPs, err)
	}

	if len(dps) == 0 {
		return nil, fmt.Errorf("%w: %s configured with no elements", ErrSchema, keyDPs)
	}

	pools, err := readPools(doc)
	if err != nil {
		return nil, err
	}

	devices := make([]RawDevice, 0, len(dps))

	for _, key := range config.SortedKeys(dps) {
		dpConf, err := config.Mapping(dps[key])
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %w", ErrSchema, keyDPs, key, err)
		}

		own, err := config.Mapping(dpConf[keyInterfaces])
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s.%s: %w", ErrSchema, keyDPs, key, keyInterfaces, err)
		}

		fields := config.Clone(dpConf)
		delete(fields, keyInterfaces)

		var id any = key

		if explicit, ok := fields[keyDPID]; ok {
			id = explicit

			// a device keyed by name takes the key as its default name
			if _, parseErr := strconv.ParseInt(key, 0, 64); parseErr != nil {
				if _, named := fields[keyName]; !named {
					fields[keyName] = key
				}
			}
		}

		interfaces := config.Clone(pools.Interfaces)
		for port, conf := range own {
			interfaces[port] = conf
		}

		devices = append(devices, RawDevice{Key: key, ID: id, Fields: fields, Interfaces: interfaces})
	}

	return &Normalized{Version: Version2, Devices: devices, Pools: pools}, nil
}

func readPools(doc map[string]any) (Pools, error) {
	var (
		pools Pools
		err   error
	)

	if pools.VLANs, err = config.Mapping(doc[keyVLANs]); err != nil {
		return pools, fmt.Errorf("%w: %s: %w", ErrSchema, keyVLANs, err)
	}

	if pools.ACLs, err = config.Mapping(doc[keyACLs]); err != nil {
		return pools, fmt.Errorf("%w: %s: %w", ErrSchema, keyACLs, err)
	}

	if pools.Interfaces, err = config.Mapping(doc[keyInterfaces]); err != nil {
		return pools, fmt.Errorf("%w: %s: %w", ErrSchema, keyInterfaces, err)
	}

	return pools, nil
}
