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
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotInteger  = errors.New("value is not an integer")
	ErrNotBool     = errors.New("value is not a boolean")
	ErrNotString   = errors.New("value is not a string")
	ErrNotList     = errors.New("value is not a list")
	ErrNotMapping  = errors.New("value is not a mapping")
	ErrNotDuration = errors.New("value is not a duration")
)

// Int converts a tree value to an int64. Strings are accepted so that mapping keys
// ("1", "0x1a") convert the same way as scalar values.
func Int(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows", ErrNotInteger, n)
		}

		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %v", ErrNotInteger, n)
		}

		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotInteger, n)
		}

		return i, nil
	default:
		return 0, fmt.Errorf("%w: %v (%T)", ErrNotInteger, v, v)
	}
}

// Uint converts a tree value to a non-negative integer.
func Uint(v any) (uint64, error) {
	if u, ok := v.(uint64); ok {
		return u, nil
	}

	if s, ok := v.(string); ok {
		u, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotInteger, s)
		}

		return u, nil
	}

	i, err := Int(v)
	if err != nil {
		return 0, err
	}

	if i < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrNotInteger, i)
	}

	return uint64(i), nil
}

// Bool converts a tree value to a bool.
func Bool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("%w: %q", ErrNotBool, b)
		}

		return parsed, nil
	default:
		return false, fmt.Errorf("%w: %v (%T)", ErrNotBool, v, v)
	}
}

// String converts a scalar tree value to its string form. nil becomes "".
func String(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(s), nil
	default:
		return "", fmt.Errorf("%w: %v (%T)", ErrNotString, v, v)
	}
}

// Seconds converts a number of seconds or a Go duration string ("1m30s").
func Seconds(v any) (time.Duration, error) {
	if s, ok := v.(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}

	switch n := v.(type) {
	case float64:
		return time.Duration(n * float64(time.Second)), nil
	default:
		i, err := Int(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNotDuration, v)
		}

		return time.Duration(i) * time.Second, nil
	}
}

// List returns v as a list. A nil value is an empty list.
func List(v any) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	default:
		return nil, fmt.Errorf("%w: %v (%T)", ErrNotList, v, v)
	}
}

// Mapping returns v as a mapping. A nil value is an empty mapping.
func Mapping(v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %v (%T)", ErrNotMapping, v, v)
	}
}

// SortedKeys returns the keys of m, numeric keys first in numeric order, then the
// rest lexically. Attachment order is deterministic regardless of map iteration.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 0, 64)
		b, errB := strconv.ParseInt(keys[j], 0, 64)

		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	return keys
}

// Clone returns a shallow copy of m.
func Clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
