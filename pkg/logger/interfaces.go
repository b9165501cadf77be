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

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the leveled, structured logger handed to every component. Components
// that log often derive a child with WithComponent or With and keep that.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
}

// NewTestLogger returns a Logger that discards everything.
func NewTestLogger() Logger {
	return testLogger{nop: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

type testLogger struct {
	nop zerolog.Logger
}

func (t testLogger) Debug() *zerolog.Event { return t.nop.Debug() }
func (t testLogger) Info() *zerolog.Event  { return t.nop.Info() }
func (t testLogger) Warn() *zerolog.Event  { return t.nop.Warn() }
func (t testLogger) Error() *zerolog.Event { return t.nop.Error() }
func (t testLogger) With() zerolog.Context { return t.nop.With() }

func (t testLogger) WithComponent(component string) zerolog.Logger {
	return t.nop.With().Str("component", component).Logger()
}
