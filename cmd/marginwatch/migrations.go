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
	"strings"

	"github.com/google-marketing-solutions/margin-protection-sub003/services/migrate"
	"github.com/google-marketing-solutions/margin-protection-sub003/services/store"
)

// The migration history. Every entry must tolerate re-running: the
// runner guarantees at-least-once, not exactly-once, so each Apply
// either is naturally idempotent or checks for the condition it would
// create before creating it.

// legacyMigrations is the dotted-numeric migration table from before
// the date-based scheme was adopted.
var legacyMigrations = []migrate.LegacyMigration{
	{Version: "2.0.0", Apply: compressStoredValues},
	{Version: "3.0.0", Apply: normalizeRuleState},
}

// dateMigrations is the current migration list, sorted by name at run
// time.
var dateMigrations = []migrate.Migration{
	{
		Name:        "20250115_blank_obsolete_keys",
		Version:     "20250115.0",
		Description: "blank the last_run and email_sent keys left by pre-2025 releases",
		Apply:       blankObsoleteKeys,
	},
	{
		Name:        "20250610_dv360_rule_prefix",
		Version:     "20250610.0",
		Description: "move dv360_-prefixed rule state to the shared rule_ prefix",
		Platforms:   []string{"dv360"},
		Apply:       moveDV360RulePrefix,
	},
}

// compressStoredValues rewrites every stored value through the
// compressing store. Reads fall back to plain content, so values that
// predate compression decode fine; writing them back leaves everything
// in the compressed format. Naturally idempotent.
func compressStoredValues(ctx context.Context, st *store.Store) error {
	all, err := st.GetAll(ctx)
	if err != nil {
		return err
	}
	for key, value := range all {
		if key == migrate.MarkerKey {
			continue
		}
		if err := st.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// normalizeRuleState rewrites empty or null rule blobs as an empty
// ValueObject so later readers never see pre-3.0 sentinel content.
func normalizeRuleState(ctx context.Context, st *store.Store) error {
	all, err := st.GetAll(ctx)
	if err != nil {
		return err
	}
	for key, value := range all {
		if !strings.HasPrefix(key, ruleKeyPrefix) {
			continue
		}
		if value == "" || value == "null" {
			if err := st.Set(ctx, key, `{"values":{}}`); err != nil {
				return err
			}
		}
	}
	return nil
}

// blankObsoleteKeys empties the bookkeeping keys old releases wrote.
// The store has no delete, so blanking is the terminal state; a blank
// key is skipped on re-run.
func blankObsoleteKeys(ctx context.Context, st *store.Store) error {
	for _, key := range []string{"last_run", "email_sent"} {
		value, found, err := st.Get(ctx, key)
		if err != nil {
			return err
		}
		if !found || value == "" {
			continue
		}
		if err := st.Set(ctx, key, ""); err != nil {
			return err
		}
	}
	return nil
}

// moveDV360RulePrefix copies dv360_-prefixed rule state to the shared
// rule_ prefix. A populated target means the copy already happened, so
// re-running skips it.
func moveDV360RulePrefix(ctx context.Context, st *store.Store) error {
	all, err := st.GetAll(ctx)
	if err != nil {
		return err
	}
	for key, value := range all {
		const oldPrefix = "dv360_rule_"
		if !strings.HasPrefix(key, oldPrefix) || value == "" {
			continue
		}
		target := ruleKeyPrefix + strings.TrimPrefix(key, oldPrefix)
		if _, found, err := st.Get(ctx, target); err != nil {
			return err
		} else if found {
			continue
		}
		if err := st.Set(ctx, target, value); err != nil {
			return err
		}
	}
	return nil
}
