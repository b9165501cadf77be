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

package natsutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sdngauge/pkg/logger"
)

func runServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestConnect(t *testing.T) {
	srv := runServer(t)

	nc, err := Connect(context.Background(), Options{URL: srv.ClientURL(), Name: "gauge-test"}, logger.NewTestLogger())
	require.NoError(t, err)
	defer nc.Close()

	assert.True(t, nc.IsConnected())
	assert.Equal(t, "gauge-test", nc.Opts.Name)
}

func TestConnectGivesUp(t *testing.T) {
	srv := runServer(t)
	url := srv.ClientURL()
	srv.Shutdown()

	_, err := Connect(context.Background(), Options{URL: url, ConnectTries: 1}, logger.NewTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), url)
}

func TestTLSConfig(t *testing.T) {
	conf, err := TLSConfig(Options{})
	require.NoError(t, err)
	assert.Nil(t, conf)

	_, err = TLSConfig(Options{CertFile: "client.pem"})
	require.ErrorIs(t, err, ErrIncompleteTLS)

	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pem")

	_, err = TLSConfig(Options{CertFile: missing, KeyFile: missing})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
