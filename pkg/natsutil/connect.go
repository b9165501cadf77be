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

// Package natsutil opens NATS connections for the gauge service.
package natsutil

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/nats-io/nats.go"

	"github.com/carverauto/sdngauge/pkg/logger"
)

const (
	DefaultURL = nats.DefaultURL

	defaultConnectTries = 5
	connectMaxElapsed   = time.Minute
	connectInitialDelay = 500 * time.Millisecond
)

// Options describes how to reach the NATS server.
type Options struct {
	URL  string
	Name string

	// TLS is used when CertFile is set.
	CAFile     string
	CertFile   string
	KeyFile    string
	ServerName string

	// ConnectTries bounds the initial connection attempts. Zero means the default.
	ConnectTries uint
}

// Connect dials the server, retrying the initial connection with exponential
// backoff. Once connected the client reconnects on its own and the handlers log
// every transition.
func Connect(ctx context.Context, opts Options, log logger.Logger, extra ...nats.Option) (*nats.Conn, error) {
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}

	natsOpts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			ev := log.Error().Err(err)
			if sub != nil {
				ev = ev.Str("subject", sub.Subject)
			}

			ev.Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}

	tlsConf, err := TLSConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
	}

	if tlsConf != nil {
		natsOpts = append(natsOpts, nats.Secure(tlsConf))
	}

	natsOpts = append(natsOpts, extra...)

	tries := opts.ConnectTries
	if tries == 0 {
		tries = defaultConnectTries
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = connectInitialDelay

	nc, err := backoff.Retry(ctx, func() (*nats.Conn, error) {
		nc, err := nats.Connect(url, natsOpts...)
		if err != nil {
			log.Debug().Err(err).Str("url", url).Msg("NATS connect attempt failed")
			return nil, err
		}

		return nc, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(tries), backoff.WithMaxElapsedTime(connectMaxElapsed))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return nc, nil
}
