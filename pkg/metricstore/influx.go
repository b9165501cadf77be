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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	influxMaxTries   = 3
	influxMaxElapsed = 30 * time.Second
)

// InfluxOptions configures an InfluxWriter.
type InfluxOptions struct {
	URL      string
	Database string
	User     string
	Password string
	Timeout  time.Duration
}

// InfluxWriter posts points in line protocol to the /write endpoint of an
// InfluxDB 1.x server.
type InfluxWriter struct {
	opts   InfluxOptions
	client *http.Client
}

// NewInfluxWriter returns a writer for opts.
func NewInfluxWriter(opts InfluxOptions) *InfluxWriter {
	return &InfluxWriter{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Write sends points, retrying server errors with exponential backoff.
func (w *InfluxWriter) Write(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	body := encodeLineProtocol(points)

	endpoint := strings.TrimRight(w.opts.URL, "/") + "/write?" + url.Values{
		"db":        []string{w.opts.Database},
		"precision": []string{"ns"},
	}.Encode()

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		req.Header.Set("Content-Type", "text/plain; charset=utf-8")

		if w.opts.User != "" {
			req.SetBasicAuth(w.opts.User, w.opts.Password)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode/100 == 2 {
			return struct{}{}, nil
		}

		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("%w: %s: %s", errInfluxStatus, resp.Status, strings.TrimSpace(string(msg)))

		if resp.StatusCode >= http.StatusInternalServerError {
			return struct{}{}, statusErr
		}

		return struct{}{}, backoff.Permanent(statusErr)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(influxMaxTries),
		backoff.WithMaxElapsedTime(influxMaxElapsed))
	if err != nil {
		return fmt.Errorf("influx write to %s: %w", w.opts.URL, err)
	}

	return nil
}

func (w *InfluxWriter) Close() error {
	w.client.CloseIdleConnections()

	return nil
}

var (
	measurementEscaper = strings.NewReplacer(",", `\,`, " ", `\ `)
	tagEscaper         = strings.NewReplacer(",", `\,`, " ", `\ `, "=", `\=`)
)

func encodeLineProtocol(points []Point) []byte {
	var buf bytes.Buffer

	for _, p := range points {
		buf.WriteString(measurementEscaper.Replace(p.Measurement))

		keys := make([]string, 0, len(p.Tags))
		for k := range p.Tags {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			if p.Tags[k] == "" {
				continue
			}

			buf.WriteByte(',')
			buf.WriteString(tagEscaper.Replace(k))
			buf.WriteByte('=')
			buf.WriteString(tagEscaper.Replace(p.Tags[k]))
		}

		buf.WriteString(" value=")
		buf.WriteString(strconv.FormatFloat(p.Value, 'f', -1, 64))
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(p.Time.UnixNano(), 10))
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}
