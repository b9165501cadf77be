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

package telemetry

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/carverauto/sdngauge/pkg/config"
)

const (
	DBInflux   = "influx"
	DBPostgres = "postgres"
	DBNATS     = "nats"
	DBText     = "text"

	DefaultPostgresTable = "gauge_samples"
	DefaultNATSSubject   = "gauge.telemetry"
)

// DB is one entry of the dbs pool.
type DB struct {
	Name string
	Type string

	InfluxDB       string
	InfluxHost     string
	InfluxPort     int
	InfluxUser     string
	InfluxPassword string
	InfluxTimeout  time.Duration

	// DSN and Table configure a postgres db.
	DSN   string
	Table string

	// URL and Subject configure a nats db.
	URL     string
	Subject string

	// File is the output path of a text db.
	File string

	Extra map[string]any
}

// ParseDBs builds the dbs pool. Entries that fail are left out and reported in the
// returned multierror.
func ParseDBs(raw map[string]any) (map[string]*DB, error) {
	var errs *multierror.Error

	out := make(map[string]*DB, len(raw))

	for _, name := range config.SortedKeys(raw) {
		conf, err := config.Mapping(raw[name])
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("db %s: %w", name, err))
			continue
		}

		db, err := parseDB(name, conf)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		out[name] = db
	}

	return out, errs.ErrorOrNil()
}

func parseDB(name string, conf map[string]any) (*DB, error) {
	db := &DB{
		Name:          name,
		InfluxDB:      DefaultInfluxDB,
		InfluxHost:    DefaultInfluxHost,
		InfluxPort:    DefaultInfluxPort,
		InfluxTimeout: DefaultInfluxTimeout,
		Table:         DefaultPostgresTable,
		Subject:       DefaultNATSSubject,
		Extra:         make(map[string]any),
	}

	strs := map[string]*string{
		"type":        &db.Type,
		"influx_db":   &db.InfluxDB,
		"influx_host": &db.InfluxHost,
		"influx_user": &db.InfluxUser,
		"influx_pwd":  &db.InfluxPassword,
		"dsn":         &db.DSN,
		"table":       &db.Table,
		"url":         &db.URL,
		"subject":     &db.Subject,
		"file":        &db.File,
	}

	for key, raw := range conf {
		var err error

		switch {
		case strs[key] != nil:
			*strs[key], err = config.String(raw)
		case key == "influx_port":
			var n int64
			n, err = config.Int(raw)
			db.InfluxPort = int(n)
		case key == "influx_timeout":
			db.InfluxTimeout, err = config.Seconds(raw)
		default:
			db.Extra[key] = raw
		}

		if err != nil {
			return nil, fmt.Errorf("db %s: %s: %w", name, key, err)
		}
	}

	switch db.Type {
	case DBInflux, DBPostgres, DBNATS, DBText:
		return db, nil
	default:
		return nil, fmt.Errorf("%w: db %s: %q", ErrUnknownDBType, name, db.Type)
	}
}

func (db *DB) applyInflux(c *Config) {
	c.InfluxStats = true
	c.InfluxDB = db.InfluxDB
	c.InfluxHost = db.InfluxHost
	c.InfluxPort = db.InfluxPort
	c.InfluxUser = db.InfluxUser
	c.InfluxPassword = db.InfluxPassword
	c.InfluxTimeout = db.InfluxTimeout
}
