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

package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sdngauge/pkg/logger"
)

func TestWatchReloadsOnHangup(t *testing.T) {
	ch := make(chan os.Signal, 3)
	ch <- syscall.SIGHUP
	ch <- syscall.SIGHUP
	ch <- syscall.SIGTERM

	reloads := 0

	err := watch(context.Background(), ch, func() { reloads++ })

	var interrupted Interrupted
	require.ErrorAs(t, err, &interrupted)
	assert.Equal(t, syscall.SIGTERM, interrupted.Signal)
	assert.Equal(t, 2, reloads)
}

func TestWatchStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := watch(ctx, make(chan os.Signal), nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCreateComponentLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gauge.log")

	log, err := CreateComponentLogger("registry", &logger.Config{Level: "debug", Output: path})
	require.NoError(t, err)

	log.Info().Uint64("dp_id", 1).Msg("datapath up")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := string(data)
	assert.True(t, strings.Contains(line, `"component":"registry"`), line)
	assert.True(t, strings.Contains(line, `"dp_id":1`), line)
}

func TestLoggerImplHonoursLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gauge.log")

	impl, err := NewLoggerImpl(&logger.Config{Level: "warn", Output: path})
	require.NoError(t, err)

	assert.Equal(t, zerolog.WarnLevel, impl.logger.GetLevel())

	child := impl.WithComponent("bridge")
	child.Info().Msg("dropped")
	child.Warn().Msg("kept")
	impl.Debug().Msg("dropped")
	require.NoError(t, impl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"component":"bridge"`)
}

func TestNewLoggerImplRejectsBadLevel(t *testing.T) {
	_, err := NewLoggerImpl(&logger.Config{Level: "chatty"})
	require.Error(t, err)
}
