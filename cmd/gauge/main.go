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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carverauto/sdngauge/pkg/bridge"
	"github.com/carverauto/sdngauge/pkg/lifecycle"
	"github.com/carverauto/sdngauge/pkg/natsutil"
	"github.com/carverauto/sdngauge/pkg/version"
)

const defaultMetricsAddr = ":9303"

// options are the command line arguments.
type options struct {
	// ConfigPath overrides GAUGE_CONFIG.
	ConfigPath string

	NATS        natsutil.Options
	NATSPrefix  string
	MetricsAddr string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var interrupted lifecycle.Interrupted
		if errors.As(err, &interrupted) {
			return
		}

		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:           "sdngauge",
		Short:         "Telemetry pollers for SDN controlled datapaths",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "",
		"Path to the poller configuration (default $GAUGE_CONFIG or /etc/sdngauge/gauge.yaml)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the pollers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGauge(cmd.Context(), opts)
		},
	}

	run.Flags().StringVar(&opts.NATS.URL, "nats-url", natsutil.DefaultURL, "NATS server URL")
	run.Flags().StringVar(&opts.NATS.CertFile, "nats-cert", "", "Client certificate for NATS mTLS")
	run.Flags().StringVar(&opts.NATS.KeyFile, "nats-key", "", "Client key for NATS mTLS")
	run.Flags().StringVar(&opts.NATS.CAFile, "nats-ca", "", "CA bundle for NATS mTLS")
	run.Flags().StringVar(&opts.NATS.ServerName, "nats-server-name", "", "Expected NATS server name")
	run.Flags().StringVar(&opts.NATSPrefix, "subject-prefix", bridge.DefaultPrefix, "First token of the controller subjects")
	run.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", defaultMetricsAddr,
		"Listen address for /metrics, /status and /reload")

	validate := &cobra.Command{
		Use:   "validate [datapath.yaml...]",
		Short: "Check configuration documents without starting pollers",
		Long: "With no arguments the poller configuration and every datapath it references are loaded.\n" +
			"With arguments each datapath document is checked on its own.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), opts.ConfigPath, args)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
		},
	}

	root.AddCommand(run, validate, versionCmd)

	return root
}
