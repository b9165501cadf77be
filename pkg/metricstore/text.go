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

package metricstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TextWriter appends one tab separated line per point to a file. The file is
// opened on the first write.
type TextWriter struct {
	path string

	mu   sync.Mutex
	file *os.File
}

func NewTextWriter(path string) *TextWriter {
	return &TextWriter{path: path}
}

func (w *TextWriter) Write(_ context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	var sb strings.Builder

	for _, p := range points {
		sb.WriteString(p.Time.UTC().Format(time.RFC3339Nano))
		sb.WriteByte('\t')
		sb.WriteString(p.Measurement)
		sb.WriteByte('\t')
		sb.WriteString(formatTags(p.Tags))
		sb.WriteByte('\t')
		sb.WriteString(strconv.FormatFloat(p.Value, 'f', -1, 64))
		sb.WriteByte('\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", w.path, err)
		}

		f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", w.path, err)
		}

		w.file = f
	}

	if _, err := w.file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.path, err)
	}

	return nil
}

func (w *TextWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil

	return err
}

func formatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+tags[k])
	}

	return strings.Join(parts, ",")
}
