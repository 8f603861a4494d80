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

// Package migrate evolves the externally persisted settings/state blob
// across schema versions.
//
// The runner executes once per invocation of the host tool, before
// business logic, and brings the persisted state to the version the
// current code expects. One marker key, "sheet_version", tracks the
// floor: every migration strictly newer than the marker runs in order,
// and the marker advances after each success.
//
// Two incompatible version schemes coexist (see Version). Migrations
// are statically tagged with their scheme; only the stored marker's
// scheme is inferred from shape.
//
// The store offers no transactions, so the runner guarantees
// at-least-once, not exactly-once: a crash mid-apply leaves the marker
// at the last fully applied migration and the next invocation resumes
// from there. Every migration must therefore tolerate being re-run,
// typically by checking for the condition it would create before
// creating it.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/google-marketing-solutions/margin-protection-sub003/services/store"
)

// MarkerKey is the store key holding the current schema version marker.
const MarkerKey = "sheet_version"

// initialMarker is the marker value assumed when none is stored.
const initialMarker = "0"

var migrationsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "marginwatch_migrations_applied_total",
	Help: "Total migrations applied by scheme",
}, []string{"scheme"})

// ApplyFunc is one migration's side effect against the external store.
//
// Apply functions are idempotent by construction requirement: the runner
// may re-run them after a crash.
type ApplyFunc func(ctx context.Context, st *store.Store) error

// LegacyMigration is a migration keyed by a legacy dotted-numeric
// version.
type LegacyMigration struct {
	Version string
	Apply   ApplyFunc
}

// Migration is a date-based-version migration.
type Migration struct {
	// Name orders the migration list; by convention it embeds the
	// version ("20251020_add_budget_region").
	Name string

	// Version is the date-based version string ("20251020.0").
	Version string

	// Description is a human-readable summary for logs.
	Description string

	// Platforms lists the platform names this migration applies to.
	// Empty means all platforms.
	Platforms []string

	// Apply performs the migration.
	Apply ApplyFunc
}

// Config configures a Runner.
type Config struct {
	// Store is the persistence layer the marker and migrations operate
	// on. Required.
	Store *store.Store

	// Legacy is the table of legacy migrations. Order is irrelevant;
	// the runner sorts by version.
	Legacy []LegacyMigration

	// DateBased is the list of date-based migrations. The runner sorts
	// by Name.
	DateBased []Migration

	// Platform is the running platform name, matched against each
	// date-based migration's Platforms list.
	Platform string

	// AppVersion is the current application version string. After all
	// migrations run, the marker advances to it if it is newer. This
	// covers releases that ship no migration.
	AppVersion string

	// Logger for per-step progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// Runner applies all migrations strictly newer than the stored marker.
type Runner struct {
	store      *store.Store
	legacy     []LegacyMigration
	dateBased  []Migration
	platform   string
	appVersion string
	logger     *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Store == nil {
		return nil, ErrNilStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:      cfg.Store,
		legacy:     slices.Clone(cfg.Legacy),
		dateBased:  slices.Clone(cfg.DateBased),
		platform:   cfg.Platform,
		appVersion: cfg.AppVersion,
		logger:     logger,
	}, nil
}

// Run brings the persisted state up to date.
//
// Description:
//
//	Reads the current marker (default "0"), then:
//
//	 1. If the marker is "0" or looks legacy (exactly three dotted
//	    numeric components), applies every legacy migration strictly
//	    newer than it, in version order.
//	 2. Applies every date-based migration, in name order, whose
//	    platform list matches and whose version is strictly newer than
//	    the marker.
//	 3. Advances the marker to AppVersion if that is newer than where
//	    the sequence ended.
//
//	The marker is persisted immediately after each successful step. An
//	Apply error is not caught: it propagates, halting the remaining
//	sequence with the marker at the last success, and must surface to
//	the operator rather than leave the tool silently part-migrated.
//
// Outputs:
//
//	error - The first Apply or store error encountered.
func (r *Runner) Run(ctx context.Context) error {
	marker, err := r.readMarker(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("starting migrations", slog.String("from", marker.String()))

	if marker.String() == initialMarker || looksLegacyMarker(marker) {
		marker, err = r.runLegacy(ctx, marker)
		if err != nil {
			return err
		}
	}

	marker, err = r.runDateBased(ctx, marker)
	if err != nil {
		return err
	}

	// A release without migrations still advances the marker.
	if r.appVersion != "" {
		target := ParseVersion(r.appVersion)
		if target.Compare(marker) > 0 {
			if err := r.writeMarker(ctx, target); err != nil {
				return err
			}
			marker = target
		}
	}

	r.logger.Info("migrations complete", slog.String("at", marker.String()))
	return nil
}

// runLegacy applies the legacy table in version order.
func (r *Runner) runLegacy(ctx context.Context, marker Version) (Version, error) {
	ordered := slices.Clone(r.legacy)
	sort.Slice(ordered, func(i, j int) bool {
		return LegacyVersion(ordered[i].Version).Compare(LegacyVersion(ordered[j].Version)) < 0
	})

	for _, m := range ordered {
		version := LegacyVersion(m.Version)
		if version.Compare(marker) <= 0 {
			continue
		}
		r.logger.Info("applying legacy migration", slog.String("version", m.Version))
		if err := m.Apply(ctx, r.store); err != nil {
			return marker, fmt.Errorf("legacy migration %s: %w", m.Version, err)
		}
		if err := r.writeMarker(ctx, version); err != nil {
			return marker, err
		}
		marker = version
		migrationsAppliedTotal.WithLabelValues("legacy").Inc()
	}
	return marker, nil
}

// runDateBased applies the date-based list in name order.
func (r *Runner) runDateBased(ctx context.Context, marker Version) (Version, error) {
	ordered := slices.Clone(r.dateBased)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Name < ordered[j].Name
	})

	for _, m := range ordered {
		if !appliesToPlatform(m.Platforms, r.platform) {
			continue
		}
		version := DateVersion(m.Version)
		if version.Compare(marker) <= 0 {
			continue
		}
		r.logger.Info("applying migration",
			slog.String("name", m.Name),
			slog.String("version", m.Version),
			slog.String("description", m.Description),
		)
		if err := m.Apply(ctx, r.store); err != nil {
			return marker, fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if err := r.writeMarker(ctx, version); err != nil {
			return marker, err
		}
		marker = version
		migrationsAppliedTotal.WithLabelValues("date").Inc()
	}
	return marker, nil
}

// readMarker loads the stored version marker, defaulting to "0".
func (r *Runner) readMarker(ctx context.Context) (Version, error) {
	raw, found, err := r.store.Get(ctx, MarkerKey)
	if err != nil {
		return Version{}, fmt.Errorf("read version marker: %w", err)
	}
	if !found || raw == "" {
		return LegacyVersion(initialMarker), nil
	}
	return ParseVersion(raw), nil
}

// writeMarker persists the marker immediately, so a crash between two
// migrations resumes from the last fully applied one.
func (r *Runner) writeMarker(ctx context.Context, v Version) error {
	if err := r.store.Set(ctx, MarkerKey, v.String()); err != nil {
		return fmt.Errorf("advance version marker to %s: %w", v.String(), err)
	}
	return nil
}

// looksLegacyMarker reports whether a stored marker belongs to the
// legacy migration sequence: dotted numeric with exactly three
// components ("2.1.4").
func looksLegacyMarker(v Version) bool {
	return v.Kind() == KindLegacy && v.components() == 3
}

// appliesToPlatform reports whether the platform filter admits the
// running platform. An empty filter admits everything.
func appliesToPlatform(platforms []string, platform string) bool {
	if len(platforms) == 0 {
		return true
	}
	return slices.Contains(platforms, platform)
}
