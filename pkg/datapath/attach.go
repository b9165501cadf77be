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
	keyNativeVLAN  = "native_vlan"
	keyTaggedVLANs = "tagged_vlans"
	keyMirror      = "mirror"
	keyACLIn       = "acl_in"
	keyRule        = "rule"
)

// AttachVLAN registers VLAN vid. A VLAN that already exists is returned unchanged,
// so a shared pool can be attached to many devices without duplicating entries.
func (d *Device) AttachVLAN(vid int, conf map[string]any) (*VLAN, error) {
	if vlan, ok := d.VLANs[vid]; ok {
		return vlan, nil
	}

	vlan := &VLAN{
		VID:   vid,
		Name:  strconv.Itoa(vid),
		Extra: make(map[string]any),
	}

	for key, raw := range conf {
		if key != keyName {
			vlan.Extra[key] = raw
			continue
		}

		name, err := config.String(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: vlan %d: %s: %w", ErrValidation, vid, key, err)
		}

		if name != "" {
			vlan.Name = name
		}
	}

	d.VLANs[vid] = vlan

	return vlan, nil
}

// AttachPort registers port num. Attaching a number that is already registered is a
// no-op that returns the existing port. A port with a mirror target only records the
// mirror mapping.
func (d *Device) AttachPort(num int, conf map[string]any) (*Port, error) {
	if port, ok := d.Ports[num]; ok {
		return port, nil
	}

	port, err := newPort(num, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: dp %d port %d: %w", ErrValidation, d.ID, num, err)
	}

	d.Ports[num] = port

	if port.Mirror != nil {
		d.MirrorFromPort[num] = *port.Mirror
		return port, nil
	}

	if port.NativeVLAN != nil {
		vlan, err := d.AttachVLAN(*port.NativeVLAN, nil)
		if err != nil {
			return nil, err
		}

		vlan.Untagged = append(vlan.Untagged, port)
	}

	for _, vid := range port.TaggedVLANs {
		vlan, err := d.AttachVLAN(vid, nil)
		if err != nil {
			return nil, err
		}

		vlan.Tagged = append(vlan.Tagged, port)
	}

	if port.ACLIn != nil {
		d.ACLIn[num] = *port.ACLIn
	}

	return port, nil
}

// AttachACL stores the rules of ACL id, taken from the rule key of each entry.
func (d *Device) AttachACL(id int, entries []any) error {
	if len(entries) == 0 {
		return nil
	}

	rules := make([]Rule, 0, len(entries))

	for i, entry := range entries {
		m, err := config.Mapping(entry)
		if err != nil {
			return fmt.Errorf("%w: dp %d acl %d entry %d: %w", ErrValidation, d.ID, id, i, err)
		}

		raw, ok := m[keyRule]
		if !ok {
			return fmt.Errorf("%w: dp %d acl %d entry %d: missing %q", ErrValidation, d.ID, id, i, keyRule)
		}

		rule, err := config.Mapping(raw)
		if err != nil {
			return fmt.Errorf("%w: dp %d acl %d entry %d: %w", ErrValidation, d.ID, id, i, err)
		}

		rules = append(rules, Rule(rule))
	}

	d.ACLs[id] = rules

	return nil
}

func newPort(num int, conf map[string]any) (*Port, error) {
	port := &Port{
		Number: num,
		Name:   strconv.Itoa(num),
		Extra:  make(map[string]any),
	}

	for key, raw := range conf {
		if raw == nil {
			continue
		}

		switch key {
		case keyName, keyDescription:
			s, err := config.String(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}

			if key == keyName {
				port.Name = s
			} else {
				port.Description = s
			}
		case keyNativeVLAN, keyMirror, keyACLIn:
			n, err := config.Int(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}

			v := int(n)

			switch key {
			case keyNativeVLAN:
				port.NativeVLAN = &v
			case keyMirror:
				port.Mirror = &v
			default:
				port.ACLIn = &v
			}
		case keyTaggedVLANs:
			vids, err := intList(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}

			port.TaggedVLANs = vids
		default:
			port.Extra[key] = raw
		}
	}

	if port.Description == "" {
		port.Description = port.Name
	}

	return port, nil
}

// intList accepts a list of integers or a single integer.
func intList(raw any) ([]int, error) {
	items, err := config.List(raw)
	if err != nil {
		n, intErr := config.Int(raw)
		if intErr != nil {
			return nil, err
		}

		return []int{int(n)}, nil
	}

	out := make([]int, 0, len(items))

	for _, item := range items {
		n, err := config.Int(item)
		if err != nil {
			return nil, err
		}

		out = append(out, int(n))
	}

	return out, nil
}
