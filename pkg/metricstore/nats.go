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
	"encoding/json"
	"fmt"
)

// Publisher publishes a message on a subject. *nats.Conn implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSWriter publishes each batch of points as one JSON array.
type NATSWriter struct {
	pub     Publisher
	subject string
}

func NewNATSWriter(pub Publisher, subject string) *NATSWriter {
	return &NATSWriter{pub: pub, subject: subject}
}

func (w *NATSWriter) Write(_ context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	data, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal points: %w", err)
	}

	if err := w.pub.Publish(w.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", w.subject, err)
	}

	return nil
}

// Close is a no-op; the connection belongs to the caller.
func (*NATSWriter) Close() error {
	return nil
}
