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
	"os"
	"os/signal"
	"syscall"
)

// Interrupted is returned by WatchSignals when SIGINT or SIGTERM arrives.
type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// WatchSignals blocks until SIGINT or SIGTERM is received or ctx is canceled.
// Every SIGHUP received in the meantime invokes onReload.
func WatchSignals(ctx context.Context, onReload func()) error {
	ch := make(chan os.Signal, 1)

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(ch)

	return watch(ctx, ch, onReload)
}

func watch(ctx context.Context, ch <-chan os.Signal, onReload func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-ch:
			if sig == syscall.SIGHUP {
				if onReload != nil {
					onReload()
				}

				continue
			}

			return Interrupted{Signal: sig}
		}
	}
}
