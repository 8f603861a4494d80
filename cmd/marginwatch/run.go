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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/google-marketing-solutions/margin-protection-sub003/pkg/logging"
	"github.com/google-marketing-solutions/margin-protection-sub003/services/alerts"
	"github.com/google-marketing-solutions/margin-protection-sub003/services/migrate"
	"github.com/google-marketing-solutions/margin-protection-sub003/services/rules"
	"github.com/google-marketing-solutions/margin-protection-sub003/services/settings"
	"github.com/google-marketing-solutions/margin-protection-sub003/services/store"
)

// ruleKeyPrefix namespaces rule state in the shared store.
const ruleKeyPrefix = "rule_"

// runMigrate brings the persisted store up to the current schema and
// stops.
func runMigrate(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Close()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	return runMigrations(cmd.Context(), cfg, st, logger)
}

// runRun is one full invocation: migrate, evaluate, dispatch.
func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Close()
	ctx := cmd.Context()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	readings, err := LoadReport(reportPath)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Migrations run before business logic so the store matches the
	// schema this build expects. A halted sequence surfaces here.
	if err := runMigrations(ctx, cfg, st, logger); err != nil {
		return err
	}

	readers, err := evaluateMonitors(ctx, cfg, st, readings, logger)
	if err != nil {
		return err
	}

	return dispatchAlerts(ctx, cfg, readers, logger)
}

// openStore opens the backend and wraps it with the caching store.
func openStore(cfg *Config, logger *logging.Logger) (*store.Store, func(), error) {
	backendCfg := store.DefaultBadgerConfig()
	backendCfg.Path = cfg.Store.Path
	backendCfg.Logger = logger.Slog()
	backend, err := store.OpenBadger(backendCfg)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return st, func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}, nil
}

// runMigrations executes the registered migration tables.
func runMigrations(ctx context.Context, cfg *Config, st *store.Store, logger *logging.Logger) error {
	runner, err := migrate.NewRunner(migrate.Config{
		Store:      st,
		Legacy:     legacyMigrations,
		DateBased:  dateMigrations,
		Platform:   cfg.Platform,
		AppVersion: appVersion,
		Logger:     logger.Slog(),
	})
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

// evaluateMonitors evaluates every configured monitor against the
// report readings and persists the results. It returns the persisting
// rules for the dispatcher.
func evaluateMonitors(ctx context.Context, cfg *Config, st *store.Store, readings []Reading, logger *logging.Logger) ([]rules.Reader, error) {
	byMetric := make(map[string][]Reading)
	for _, r := range readings {
		byMetric[r.Metric] = append(byMetric[r.Metric], r)
	}

	var readers []rules.Reader
	for _, monitor := range cfg.Monitors {
		settingsFile, err := os.Open(monitor.Settings)
		if err != nil {
			return nil, fmt.Errorf("open settings for %q: %w", monitor.Metric, err)
		}
		perEntity, err := settings.Load[RuleSettings](settingsFile)
		settingsFile.Close()
		if err != nil {
			return nil, fmt.Errorf("load settings for %q: %w", monitor.Metric, err)
		}

		reader, err := evaluateMonitor(ctx, st, monitor, perEntity, byMetric[monitor.Metric], logger)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
	}
	return readers, nil
}

// evaluateMonitor evaluates one monitor. Thresholds come from the
// per-entity settings map (with the "default" fallback); results merge
// into one ValueObject under the monitor's rule key.
func evaluateMonitor(ctx context.Context, st *store.Store, monitor MonitorConfig, perEntity *settings.Map[RuleSettings], readings []Reading, logger *logging.Logger) (rules.Reader, error) {
	uniqueKey := ruleKeyPrefix + monitor.Metric
	values := make(map[string]rules.Value)

	switch monitor.Kind {
	case "series":
		persisted, err := rules.NewSeriesRule(rules.SeriesConfig{
			MaxFalseRun: perEntity.Get(settings.DefaultKey).MaxFalseRun,
			UniqueKey:   uniqueKey,
			Store:       st,
			Logger:      logger.Slog(),
		})
		if err != nil {
			return nil, fmt.Errorf("monitor %q: %w", monitor.Metric, err)
		}
		for _, r := range readings {
			eval, err := rules.NewSeriesRule(rules.SeriesConfig{
				MaxFalseRun: perEntity.Get(r.ID).MaxFalseRun,
				Logger:      logger.Slog(),
			})
			if err != nil {
				return nil, fmt.Errorf("monitor %q entity %q: %w", monitor.Metric, r.ID, err)
			}
			values[r.ID] = eval.CreateValue(r.Series, r.Fields)
		}
		if err := persisted.SaveValues(ctx, values); err != nil {
			return nil, fmt.Errorf("monitor %q: %w", monitor.Metric, err)
		}
		return persisted, nil

	default: // "absolute", enforced by LoadConfig
		defaultCondition, err := conditionFor(perEntity.Get(settings.DefaultKey))
		if err != nil {
			return nil, fmt.Errorf("monitor %q: %w", monitor.Metric, err)
		}
		persisted, err := rules.NewAbsoluteRule(rules.AbsoluteConfig{
			Condition: defaultCondition,
			UniqueKey: uniqueKey,
			Store:     st,
			Logger:    logger.Slog(),
		})
		if err != nil {
			return nil, fmt.Errorf("monitor %q: %w", monitor.Metric, err)
		}
		for _, r := range readings {
			condition, err := conditionFor(perEntity.Get(r.ID))
			if err != nil {
				return nil, fmt.Errorf("monitor %q entity %q: %w", monitor.Metric, r.ID, err)
			}
			eval, err := rules.NewAbsoluteRule(rules.AbsoluteConfig{
				Condition: condition,
				Logger:    logger.Slog(),
			})
			if err != nil {
				return nil, fmt.Errorf("monitor %q entity %q: %w", monitor.Metric, r.ID, err)
			}
			values[r.ID] = eval.CreateValue(r.Value, r.Fields)
		}
		if err := persisted.SaveValues(ctx, values); err != nil {
			return nil, fmt.Errorf("monitor %q: %w", monitor.Metric, err)
		}
		return persisted, nil
	}
}

// conditionFor translates a settings record into a threshold condition.
func conditionFor(s RuleSettings) (rules.Condition, error) {
	comparator, err := rules.ParseComparator(s.Comparator)
	if err != nil {
		return rules.Condition{}, fmt.Errorf("comparator %q: %w", s.Comparator, err)
	}
	return rules.Condition{
		Comparator: comparator,
		Threshold:  s.Threshold,
		Min:        s.Min,
		Max:        s.Max,
	}, nil
}

// dispatchAlerts sends at most one notification for the collected
// anomalies.
func dispatchAlerts(ctx context.Context, cfg *Config, readers []rules.Reader, logger *logging.Logger) error {
	var mailer alerts.Mailer
	if cfg.Alerts.SMTP.Addr != "" {
		maxRetries := uint64(3)
		if cfg.Alerts.MaxRetries != nil {
			maxRetries = *cfg.Alerts.MaxRetries
		}
		mailer = alerts.NewRetryMailer(&alerts.SMTPMailer{
			Addr: cfg.Alerts.SMTP.Addr,
			From: cfg.Alerts.SMTP.From,
		}, maxRetries)
	} else {
		mailer = &alerts.LogMailer{Logger: logger.Slog()}
	}

	dispatcher, err := alerts.NewDispatcher(mailer, logger.Slog())
	if err != nil {
		return err
	}
	subject := cfg.Alerts.Subject
	if subject == "" {
		subject = "Campaign anomalies detected"
	}
	return dispatcher.SendAlert(ctx, readers, alerts.Options{
		To:      cfg.Alerts.To,
		Subject: subject,
	})
}
