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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentKeepsKeysAsText(t *testing.T) {
	doc, err := ParseDocument("dp.yaml", []byte(`
dp_id: 1
interfaces:
  1:
    native_vlan: 100
  2:
    tagged_vlans: [100, 200]
vlans:
  100: {}
`))
	require.NoError(t, err)

	assert.Equal(t, 1, doc["dp_id"])

	interfaces, err := Mapping(doc["interfaces"])
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, keysOf(interfaces))

	port2, err := Mapping(interfaces["2"])
	require.NoError(t, err)
	assert.Equal(t, []any{100, 200}, port2["tagged_vlans"])

	vlans, err := Mapping(doc["vlans"])
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, vlans["100"])
}

func TestParseDocumentEmpty(t *testing.T) {
	doc, err := ParseDocument("empty.yaml", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestParseDocumentSyntaxErrorReportsLine(t *testing.T) {
	_, err := ParseDocument("broken.yaml", []byte("dp_id: 1\nname: a: b\n"))
	require.Error(t, err)

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Equal(t, "broken.yaml", docErr.File)
	assert.Positive(t, docErr.Line)
}

func TestParseDocumentRootMustBeMapping(t *testing.T) {
	_, err := ParseDocument("list.yaml", []byte("- 1\n- 2\n"))

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	require.ErrorIs(t, err, errRootNotMapping)
	assert.Equal(t, 1, docErr.Line)
	assert.Equal(t, 1, docErr.Column)
}

func TestParseDocumentDuplicateKey(t *testing.T) {
	_, err := ParseDocument("dup.yaml", []byte("dp_id: 1\nname: a\nname: b\n"))

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Positive(t, docErr.Line)
}

func TestParseDocumentMergeKeys(t *testing.T) {
	doc, err := ParseDocument("merge.yaml", []byte(`
base: &base
  hardware: Open_vSwitch
  timeout: 120
dps:
  1:
    <<: *base
    timeout: 60
`))
	require.NoError(t, err)

	dps, err := Mapping(doc["dps"])
	require.NoError(t, err)

	dp, err := Mapping(dps["1"])
	require.NoError(t, err)
	assert.Equal(t, "Open_vSwitch", dp["hardware"])
	assert.Equal(t, 60, dp["timeout"])
}

func TestReadDocumentMissingFile(t *testing.T) {
	_, err := ReadDocument(filepath.Join(t.TempDir(), "nope.yaml"))

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolvePaths(t *testing.T) {
	t.Setenv(PathEnv, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))
	assert.Equal(t, "/tmp/a.yaml", ResolvePath("/tmp/a.yaml"))
	assert.Equal(t, "/tmp/a.yaml", ReloadPath("/tmp/a.yaml", ""))

	t.Setenv(PathEnv, "/etc/other.yaml")
	assert.Equal(t, "/tmp/a.yaml", ResolvePath("/tmp/a.yaml"))
	assert.Equal(t, "/etc/other.yaml", ResolvePath(""))
	assert.Equal(t, "/etc/other.yaml", ReloadPath(DefaultPath, ""))

	// a path given on the command line survives reloads
	start := ResolvePath("/flag/gauge.yaml")
	assert.Equal(t, "/flag/gauge.yaml", start)
	assert.Equal(t, "/flag/gauge.yaml", ReloadPath(start, "/flag/gauge.yaml"))

	assert.Equal(t, "/etc/sdngauge/dp1.yaml", Relative("/etc/sdngauge/gauge.yaml", "dp1.yaml"))
	assert.Equal(t, "/abs/dp1.yaml", Relative("/etc/sdngauge/gauge.yaml", "/abs/dp1.yaml"))
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	return out
}
