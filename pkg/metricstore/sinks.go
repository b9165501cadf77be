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
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/carverauto/sdngauge/pkg/logger"
	"github.com/carverauto/sdngauge/pkg/telemetry"
)

// Sinks opens the writers a poller declaration reports to. Writers are shared
// by every poller that names the same destination and live until Close, so a
// reload does not reopen files or pools.
type Sinks struct {
	pub    Publisher
	logger logger.Logger

	mu      sync.Mutex
	writers map[string]Writer
}

// NewSinks returns an empty set. pub may be nil when no nats db is used.
func NewSinks(pub Publisher, log logger.Logger) *Sinks {
	return &Sinks{
		pub:     pub,
		logger:  log,
		writers: make(map[string]Writer),
	}
}

// Open returns the writers for conf: the output file, the Influx server when
// influx is set, and the backend db.
func (s *Sinks) Open(conf *telemetry.Config, influx bool) ([]Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Writer

	if conf.OutputFile != "" {
		out = append(out, s.shared("text:"+conf.OutputFile, func() Writer {
			return NewTextWriter(conf.OutputFile)
		}))
	}

	if influx {
		opts := InfluxOptions{
			URL:      conf.InfluxURL(),
			Database: conf.InfluxDB,
			User:     conf.InfluxUser,
			Password: conf.InfluxPassword,
			Timeout:  conf.InfluxTimeout,
		}

		out = append(out, s.shared(fmt.Sprintf("influx:%s/%s@%s", opts.URL, opts.Database, opts.User),
			func() Writer { return NewInfluxWriter(opts) }))
	}

	if conf.Backend == nil {
		return out, nil
	}

	w, err := s.backend(conf.Backend)
	if err != nil {
		return nil, err
	}

	return append(out, w), nil
}

func (s *Sinks) backend(db *telemetry.DB) (Writer, error) {
	var (
		key  string
		open func() (Writer, error)
	)

	switch db.Type {
	case telemetry.DBPostgres:
		key = "postgres:" + db.DSN + "/" + db.Table
		open = func() (Writer, error) { return OpenPostgres(context.Background(), db.DSN, db.Table) }
	case telemetry.DBNATS:
		if s.pub == nil {
			return nil, fmt.Errorf("db %s: %w", db.Name, errNoPublisher)
		}

		key = "nats:" + db.Subject
		open = func() (Writer, error) { return NewNATSWriter(s.pub, db.Subject), nil }
	case telemetry.DBText:
		key = "text:" + db.File
		open = func() (Writer, error) { return NewTextWriter(db.File), nil }
	default:
		return nil, fmt.Errorf("%w: db %s: %q", errUnsupportedDB, db.Name, db.Type)
	}

	if w, ok := s.writers[key]; ok {
		return w, nil
	}

	w, err := open()
	if err != nil {
		return nil, fmt.Errorf("db %s: %w", db.Name, err)
	}

	s.writers[key] = w
	s.logger.Info().Str("db", db.Name).Str("type", db.Type).Msg("Opened telemetry backend")

	return w, nil
}

func (s *Sinks) shared(key string, open func() Writer) Writer {
	if w, ok := s.writers[key]; ok {
		return w
	}

	w := open()
	s.writers[key] = w

	return w
}

// Close closes every writer opened so far.
func (s *Sinks) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs *multierror.Error

	for key, w := range s.writers {
		if err := w.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", key, err))
		}

		delete(s.writers, key)
	}

	return errs.ErrorOrNil()
}
