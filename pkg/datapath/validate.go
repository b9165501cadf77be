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

import "fmt"

// SanityCheck verifies the cross references between VLANs and ports. The
// identifier is integral by construction.
func (d *Device) SanityCheck() error {
	for vid, vlan := range d.VLANs {
		if vlan == nil {
			return fmt.Errorf("%w: dp %d: vlan %d is nil", ErrValidation, d.ID, vid)
		}

		if vlan.VID != vid {
			return fmt.Errorf("%w: dp %d: vlan key %d holds vid %d", ErrValidation, d.ID, vid, vlan.VID)
		}

		for _, port := range vlan.Ports() {
			if port == nil {
				return fmt.Errorf("%w: dp %d: vlan %d has a nil port", ErrValidation, d.ID, vid)
			}

			if d.Ports[port.Number] != port {
				return fmt.Errorf("%w: dp %d: vlan %d references unregistered port %d",
					ErrValidation, d.ID, vid, port.Number)
			}
		}
	}

	for num, port := range d.Ports {
		if port == nil {
			return fmt.Errorf("%w: dp %d: port %d is nil", ErrValidation, d.ID, num)
		}

		if port.Number != num {
			return fmt.Errorf("%w: dp %d: port key %d holds port %d", ErrValidation, d.ID, num, port.Number)
		}
	}

	return nil
}
