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

package config

import (
	"os"
	"path/filepath"
)

const (
	// PathEnv names the environment variable holding the poller configuration path.
	PathEnv = "GAUGE_CONFIG"
	// DefaultPath is used when neither a flag nor PathEnv is set.
	DefaultPath = "/etc/sdngauge/gauge.yaml"
)

// ResolvePath picks the start-up configuration path: explicit, then GAUGE_CONFIG,
// then DefaultPath.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if p := os.Getenv(PathEnv); p != "" {
		return p
	}

	return DefaultPath
}

// ReloadPath picks the configuration path for a reload. An explicit path given
// at start-up stays in force; otherwise GAUGE_CONFIG is re-read, keeping current
// when it is unset.
func ReloadPath(current, explicit string) string {
	if explicit != "" {
		return explicit
	}

	if p := os.Getenv(PathEnv); p != "" {
		return p
	}

	return current
}

// Relative resolves p against the directory of the document that referenced it.
func Relative(referrer, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(filepath.Dir(referrer), p)
}
