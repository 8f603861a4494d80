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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
store:
  path: /var/lib/marginwatch
platform: dv360
alerts:
  to: [ops@example.com]
  subject: Anomalies
  smtp:
    addr: localhost:25
    from: marginwatch@example.com
monitors:
  - metric: cost
    kind: absolute
    settings: cost.yaml
  - metric: impressions
    kind: series
    settings: impressions.yaml
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/marginwatch", cfg.Store.Path)
	assert.Equal(t, "dv360", cfg.Platform)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Alerts.To)
	require.Len(t, cfg.Monitors, 2)
	assert.Equal(t, "series", cfg.Monitors[1].Kind)
}

func TestLoadConfigRequiresStorePath(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
platform: dv360
`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "store.path")
}

func TestLoadConfigRejectsUnknownMonitorKind(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
store:
  path: /tmp/db
monitors:
  - metric: cost
    kind: relative
    settings: cost.yaml
`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "kind must be absolute or series")
}

func TestLoadConfigRejectsIncompleteMonitor(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
store:
  path: /tmp/db
monitors:
  - metric: cost
    kind: absolute
`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "metric and settings")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadReport(t *testing.T) {
	path := writeTempFile(t, "report.yaml", `
- id: placement-1
  metric: cost
  value: 250.5
  fields:
    name: Search A
- id: placement-1
  metric: impressions
  series: [1, 1, 0, 0]
`)

	readings, err := LoadReport(path)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 250.5, readings[0].Value)
	assert.Equal(t, "Search A", readings[0].Fields["name"])
	assert.Equal(t, []float64{1, 1, 0, 0}, readings[1].Series)
}
