// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/google-marketing-solutions/margin-protection-sub003/pkg/logging"
)

// appVersion is the current application version in the date-based
// scheme. The migration runner advances the stored marker to it even
// when a release ships no migration.
const appVersion = "20251101.0"

var (
	configPath string
	reportPath string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "marginwatch",
		Short: "Monitors ad-campaign report data and alerts on threshold violations",
		Long: `marginwatch evaluates advertising-campaign metrics against configured
thresholds, persists the anomalous results between invocations, and sends
at most one alert per distinct unreported anomaly set.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Migrate the store, evaluate all monitors, and dispatch alerts",
		RunE:  runRun,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Run only the pending schema migrations",
		RunE:  runMigrate,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(appVersion)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path of the tool configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	runCmd.Flags().StringVarP(&reportPath, "report", "r", "report.yaml", "path of the report data file")

	rootCmd.AddCommand(runCmd, migrateCmd, versionCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the invocation logger. Piped stderr gets JSON for
// machine consumption; a terminal gets text.
func newLogger() *logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		Service: "marginwatch",
		JSON:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
}
