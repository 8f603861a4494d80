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

	"gopkg.in/yaml.v3"
)

// Config is the tool configuration loaded from --config.
type Config struct {
	// Store configures the local persistence backend.
	Store StoreConfig `yaml:"store"`

	// Platform is the ad-platform name this deployment monitors
	// ("dv360", "sa360", "googleads"). Filters date-based migrations.
	Platform string `yaml:"platform"`

	// Alerts configures notification delivery.
	Alerts AlertsConfig `yaml:"alerts"`

	// Monitors lists the metric checks to evaluate.
	Monitors []MonitorConfig `yaml:"monitors"`
}

// StoreConfig locates the persistence backend.
type StoreConfig struct {
	// Path is the directory for the embedded database.
	Path string `yaml:"path"`
}

// AlertsConfig configures notification delivery.
type AlertsConfig struct {
	// To lists alert recipients.
	To []string `yaml:"to"`

	// Subject is the alert subject line.
	Subject string `yaml:"subject"`

	// SMTP configures the mail endpoint. When Addr is empty, alerts are
	// logged instead of mailed (dry run).
	SMTP SMTPConfig `yaml:"smtp"`

	// MaxRetries bounds delivery retries. Default 3.
	MaxRetries *uint64 `yaml:"max_retries"`
}

// SMTPConfig is the mail endpoint.
type SMTPConfig struct {
	Addr string `yaml:"addr"`
	From string `yaml:"from"`
}

// MonitorConfig is one metric check.
type MonitorConfig struct {
	// Metric names the monitored metric; it also derives the rule's
	// storage key ("rule_" + Metric).
	Metric string `yaml:"metric"`

	// Kind is "absolute" (scalar threshold) or "series" (0/1 history).
	Kind string `yaml:"kind"`

	// Settings is the path of the per-entity settings map (YAML, with a
	// required "default" entry).
	Settings string `yaml:"settings"`
}

// RuleSettings is the per-entity settings record for one monitor.
type RuleSettings struct {
	// Comparator names the threshold family for absolute monitors.
	Comparator string `yaml:"comparator"`

	// Threshold is the scalar comparator payload.
	Threshold float64 `yaml:"threshold"`

	// Min and Max bound the "between" comparator, inclusive.
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`

	// MaxFalseRun is the series-monitor run threshold.
	MaxFalseRun int `yaml:"maxFalseRun" validate:"gte=0"`
}

// LoadConfig reads and minimally validates the tool configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Store.Path == "" {
		return nil, fmt.Errorf("config %s: store.path is required", path)
	}
	for _, m := range cfg.Monitors {
		if m.Metric == "" || m.Settings == "" {
			return nil, fmt.Errorf("config %s: every monitor needs metric and settings", path)
		}
		if m.Kind != "absolute" && m.Kind != "series" {
			return nil, fmt.Errorf("config %s: monitor %q: kind must be absolute or series", path, m.Metric)
		}
	}
	return &cfg, nil
}

// Reading is one report data point supplied by the report source.
type Reading struct {
	// ID identifies the monitored entity (placement id, campaign id).
	ID string `yaml:"id"`

	// Metric names the metric this reading belongs to.
	Metric string `yaml:"metric"`

	// Value is the scalar reading for absolute monitors.
	Value float64 `yaml:"value"`

	// Series is the ordered 0/1 history for series monitors.
	Series []float64 `yaml:"series"`

	// Fields carries identifying metadata rendered in alerts.
	Fields map[string]string `yaml:"fields"`
}

// LoadReport reads the report data file.
func LoadReport(path string) ([]Reading, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	var readings []Reading
	if err := yaml.Unmarshal(data, &readings); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return readings, nil
}
