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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{in: 7, want: 7},
		{in: int64(-3), want: -3},
		{in: uint64(9), want: 9},
		{in: 4.0, want: 4},
		{in: "12", want: 12},
		{in: "0x10", want: 16},
		{in: 4.5, wantErr: true},
		{in: "abc", wantErr: true},
		{in: true, wantErr: true},
	}

	for _, tt := range tests {
		got, err := Int(tt.in)
		if tt.wantErr {
			require.ErrorIs(t, err, ErrNotInteger, "%v", tt.in)
			continue
		}

		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestUintRejectsNegative(t *testing.T) {
	_, err := Uint(-1)
	require.ErrorIs(t, err, ErrNotInteger)

	got, err := Uint("0xffffffffffffffff")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xffffffffffffffff), got)
}

func TestSeconds(t *testing.T) {
	d, err := Seconds(30)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = Seconds("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = Seconds(0.5)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)

	_, err = Seconds("soon")
	require.ErrorIs(t, err, ErrNotDuration)
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]any{"10": nil, "2": nil, "b": nil, "a": nil, "0x3": nil})
	assert.Equal(t, []string{"2", "0x3", "10", "a", "b"}, keys)
}

func TestListAndMappingNil(t *testing.T) {
	l, err := List(nil)
	require.NoError(t, err)
	assert.Empty(t, l)

	m, err := Mapping(nil)
	require.NoError(t, err)
	assert.Empty(t, m)

	_, err = Mapping([]any{1})
	require.ErrorIs(t, err, ErrNotMapping)

	_, err = List("x")
	require.ErrorIs(t, err, ErrNotList)
}
