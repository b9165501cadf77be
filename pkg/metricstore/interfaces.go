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

// Package metricstore writes poller samples to time-series backends.
package metricstore

//go:generate mockgen -destination=mock_metricstore.go -package=metricstore github.com/carverauto/sdngauge/pkg/metricstore Writer

import (
	"context"
	"errors"
	"time"
)

var (
	errNoPublisher   = errors.New("nats db configured but no nats connection is available")
	errInfluxStatus  = errors.New("influx write rejected")
	errUnsupportedDB = errors.New("unsupported db type")
)

// Point is one sample. Value is always written as the field named "value".
type Point struct {
	Measurement string            `json:"measurement"`
	Tags        map[string]string `json:"tags,omitempty"`
	Value       float64           `json:"value"`
	Time        time.Time         `json:"time"`
}

// Writer stores points in one backend. Implementations are safe for concurrent use.
type Writer interface {
	Write(ctx context.Context, points []Point) error
	Close() error
}
