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

// Package registry owns the live poller slots of every datapath and keeps them in
// step with datapath connections and configuration reloads.
package registry

//go:generate mockgen -destination=mock_registry.go -package=registry github.com/carverauto/sdngauge/pkg/registry Loader

import (
	"context"

	"github.com/carverauto/sdngauge/pkg/gauge"
)

// Loader produces the plan a reload reconciles against.
type Loader interface {
	Load(ctx context.Context) (*gauge.Plan, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*gauge.Plan, error)

func (f LoaderFunc) Load(ctx context.Context) (*gauge.Plan, error) {
	return f(ctx)
}
