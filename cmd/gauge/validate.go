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

package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/carverauto/sdngauge/pkg/config"
	"github.com/carverauto/sdngauge/pkg/datapath"
	"github.com/carverauto/sdngauge/pkg/dialect"
	"github.com/carverauto/sdngauge/pkg/dpconfig"
	"github.com/carverauto/sdngauge/pkg/gauge"
	"github.com/carverauto/sdngauge/pkg/lifecycle"
	"github.com/carverauto/sdngauge/pkg/logger"
	"github.com/carverauto/sdngauge/pkg/poller"
)

// validateConfig checks either the listed datapath documents or, when none are
// given, the poller configuration and everything it references.
func validateConfig(w io.Writer, configPath string, docs []string) error {
	log, err := lifecycle.CreateComponentLogger("validate", &logger.Config{Level: "warn", Output: "stderr"})
	if err != nil {
		return err
	}

	defer func() { _ = log.Close() }()

	dialects := dialect.Default()

	var errs *multierror.Error

	check := func(source string, dp *datapath.Device) {
		d, err := dialects.Check(dp)
		if err != nil {
			fmt.Fprintf(w, "%s: dp %s (%d): %v\n", source, dp, dp.ID, err)
			errs = multierror.Append(errs, err)

			return
		}

		fmt.Fprintf(w, "%s: dp %s (%d) ok, %s, flood table %d of %d\n",
			source, dp, dp.ID, d.Name, dp.FloodTable, d.Tables)
	}

	if len(docs) > 0 {
		for _, doc := range docs {
			dp, err := dpconfig.ParsePrimary(doc, log)
			if err != nil {
				fmt.Fprintf(w, "%s: %v\n", doc, err)
				errs = multierror.Append(errs, err)

				continue
			}

			check(doc, dp)
		}

		return errs.ErrorOrNil()
	}

	path := config.ResolvePath(configPath)

	plan, err := gauge.NewLoader(poller.DefaultFactory(), log).Load(path)
	if err != nil {
		return err
	}

	ids := make([]uint64, 0, len(plan.Devices))
	for id := range plan.Devices {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		check(path, plan.Devices[id])
	}

	for _, key := range plan.Keys() {
		fmt.Fprintf(w, "%s: poller %s on dp %d\n", path, key.Type, key.DPID)
	}

	for _, problem := range []error{plan.Discarded, plan.Skipped} {
		if problem != nil {
			fmt.Fprintf(w, "%s: %v\n", path, problem)
			errs = multierror.Append(errs, problem)
		}
	}

	return errs.ErrorOrNil()
}
