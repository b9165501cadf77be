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

// Package telemetry holds poller declarations and the backend connections they
// write to.
package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/sdngauge/pkg/config"
)

const (
	DefaultInterval      = 30 * time.Second
	DefaultInfluxDB      = "faucet"
	DefaultInfluxHost    = "localhost"
	DefaultInfluxPort    = 8086
	DefaultInfluxTimeout = 10 * time.Second
)

var (
	ErrUnknownDB     = errors.New("db not configured")
	ErrUnknownDBType = errors.New("unsupported db type")
	errBadInterval   = errors.New("interval must be positive")
)

// Config is one poller declaration. It is not modified after Build returns.
type Config struct {
	Name       string
	Type       string
	Devices    []any
	OutputFile string
	Interval   time.Duration
	DB         string

	InfluxStats    bool
	InfluxDB       string
	InfluxHost     string
	InfluxPort     int
	InfluxUser     string
	InfluxPassword string
	InfluxTimeout  time.Duration

	// Backend is the non-influx db the declaration writes to, nil if none.
	Backend *DB

	Extra map[string]any
}

// InfluxURL returns the base URL of the configured Influx server.
func (c *Config) InfluxURL() string {
	return fmt.Sprintf("http://%s:%d", c.InfluxHost, c.InfluxPort)
}

type field struct {
	keys  []string
	apply func(c *Config, raw any) error
}

func stringField(dst func(*Config) *string) func(*Config, any) error {
	return func(c *Config, raw any) error {
		s, err := config.String(raw)
		if err != nil {
			return err
		}

		*dst(c) = s

		return nil
	}
}

func durationField(dst func(*Config) *time.Duration) func(*Config, any) error {
	return func(c *Config, raw any) error {
		d, err := config.Seconds(raw)
		if err != nil {
			return err
		}

		*dst(c) = d

		return nil
	}
}

var fields = []field{
	{keys: []string{"gauge_type", "type"}, apply: stringField(func(c *Config) *string { return &c.Type })},
	{keys: []string{"name"}, apply: stringField(func(c *Config) *string { return &c.Name })},
	{keys: []string{"output_file", "file"}, apply: stringField(func(c *Config) *string { return &c.OutputFile })},
	{keys: []string{"db"}, apply: stringField(func(c *Config) *string { return &c.DB })},
	{keys: []string{"influx_db"}, apply: stringField(func(c *Config) *string { return &c.InfluxDB })},
	{keys: []string{"influx_host"}, apply: stringField(func(c *Config) *string { return &c.InfluxHost })},
	{keys: []string{"influx_user"}, apply: stringField(func(c *Config) *string { return &c.InfluxUser })},
	{keys: []string{"influx_pwd"}, apply: stringField(func(c *Config) *string { return &c.InfluxPassword })},
	{keys: []string{"interval"}, apply: durationField(func(c *Config) *time.Duration { return &c.Interval })},
	{keys: []string{"influx_timeout"}, apply: durationField(func(c *Config) *time.Duration { return &c.InfluxTimeout })},
	{keys: []string{"influx_port"}, apply: func(c *Config, raw any) error {
		n, err := config.Int(raw)
		c.InfluxPort = int(n)

		return err
	}},
	{keys: []string{"influx_stats"}, apply: func(c *Config, raw any) error {
		b, err := config.Bool(raw)
		c.InfluxStats = b

		return err
	}},
	{keys: []string{"dps"}, apply: func(c *Config, raw any) error {
		list, err := config.List(raw)
		if err != nil {
			// a single target may be written without a list
			list = []any{raw}
		}

		c.Devices = list

		return nil
	}},
}

var fieldByKey = func() map[string]field {
	m := make(map[string]field)
	for _, f := range fields {
		for _, k := range f.keys {
			m[k] = f
		}
	}

	return m
}()

func defaults() *Config {
	return &Config{
		Interval:      DefaultInterval,
		InfluxDB:      DefaultInfluxDB,
		InfluxHost:    DefaultInfluxHost,
		InfluxPort:    DefaultInfluxPort,
		InfluxTimeout: DefaultInfluxTimeout,
		Extra:         make(map[string]any),
	}
}

// Build merges decl over the default table. Unknown keys are kept in Extra. A db
// reference is resolved against dbs: an influx db fills the Influx options and
// enables them, any other db becomes the Backend.
func Build(name string, decl map[string]any, dbs map[string]*DB) (*Config, error) {
	c := defaults()
	c.Name = name

	for _, key := range config.SortedKeys(decl) {
		raw := decl[key]

		f, ok := fieldByKey[key]
		if !ok {
			c.Extra[key] = raw
			continue
		}

		if raw == nil {
			continue
		}

		if err := f.apply(c, raw); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", describe(name, c), key, err)
		}
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("%s: %w", describe(name, c), errBadInterval)
	}

	if c.DB == "" {
		return c, nil
	}

	db, ok := dbs[c.DB]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %q", ErrUnknownDB, describe(name, c), c.DB)
	}

	if db.Type == DBInflux {
		db.applyInflux(c)
	} else {
		c.Backend = db
	}

	return c, nil
}

func describe(name string, c *Config) string {
	if name != "" {
		return name
	}

	if c.Type != "" {
		return c.Type
	}

	return "poller"
}
