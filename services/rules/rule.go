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

package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google-marketing-solutions/margin-protection-sub003/services/store"
)

// Reader is the capability the alert dispatcher needs from a rule:
// read the persisted state and write it back after stamping dedup
// markers. Both rule variants implement it.
type Reader interface {
	// UniqueKey returns the rule's storage key.
	UniqueKey() string

	// GetValueObject reads the rule's persisted state through the store.
	GetValueObject(ctx context.Context) (*ValueObject, error)

	// GetValues returns the persisted values as a slice, ordered by
	// record key for deterministic rendering.
	GetValues(ctx context.Context) ([]Value, error)

	// SaveValues merges values into the persisted state, retaining only
	// anomalous entries.
	SaveValues(ctx context.Context, values map[string]Value) error
}

// Rule is the full contract shared by both variants. T is the raw input
// the rule evaluates: float64 for AbsoluteRule, []float64 for SeriesRule.
type Rule[T any] interface {
	Reader

	// CreateValue evaluates raw against the rule's predicate and returns
	// a Value. It does not persist.
	CreateValue(raw T, fields map[string]string) Value
}

// persistence carries the storage wiring shared by both rule variants.
//
// A rule may be built without persistence for pure evaluation; any save
// or read then fails with ErrNotPersistent.
type persistence struct {
	uniqueKey string
	store     *store.Store
	logger    *slog.Logger
	now       func() time.Time
}

// newPersistence validates the storage configuration fail-fast.
//
// A rule that will be saved or read must have both a unique key and a
// store; supplying one without the other is a programming error reported
// at construction, not deferred to first use.
func newPersistence(uniqueKey string, st *store.Store, logger *slog.Logger) (persistence, error) {
	if st != nil && uniqueKey == "" {
		return persistence{}, ErrMissingUniqueKey
	}
	if st == nil && uniqueKey != "" {
		return persistence{}, ErrNilStore
	}
	if logger == nil {
		logger = slog.Default()
	}
	return persistence{
		uniqueKey: uniqueKey,
		store:     st,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// UniqueKey returns the rule's storage key, or "" for evaluation-only rules.
func (p *persistence) UniqueKey() string {
	return p.uniqueKey
}

// GetValueObject reads the rule's persisted ValueObject.
//
// Malformed or missing stored content is recovered locally: the result
// is an empty object, never an error. Store errors do propagate.
func (p *persistence) GetValueObject(ctx context.Context) (*ValueObject, error) {
	if p.store == nil {
		return nil, ErrNotPersistent
	}

	raw, found, err := p.store.Get(ctx, p.uniqueKey)
	if err != nil {
		return nil, fmt.Errorf("read rule state %q: %w", p.uniqueKey, err)
	}
	obj := &ValueObject{Values: make(map[string]Value)}
	if !found {
		return obj, nil
	}
	if err := json.Unmarshal([]byte(raw), obj); err != nil {
		// Legacy or corrupt content falls back to an empty object.
		p.logger.Warn("discarding undecodable rule state",
			slog.String("rule", p.uniqueKey),
			slog.String("error", err.Error()),
		)
		return &ValueObject{Values: make(map[string]Value)}, nil
	}
	if obj.Values == nil {
		obj.Values = make(map[string]Value)
	}
	return obj, nil
}

// GetValues returns the persisted values ordered by record key.
func (p *persistence) GetValues(ctx context.Context) ([]Value, error) {
	obj, err := p.GetValueObject(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(obj.Values))
	for k := range obj.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]Value, 0, len(keys))
	for _, k := range keys {
		values = append(values, obj.Values[k])
	}
	return values, nil
}

// SaveValues merges values into the rule's persisted ValueObject.
//
// Description:
//
//	Reads the current state, overlays the incoming batch per record key,
//	prunes every non-anomalous entry, stamps Updated, and writes the
//	whole object back under the rule's unique key (full replace; the
//	store offers no partial mutation).
//
//	An incoming entry without an AlertedAt stamp inherits the stored
//	entry's stamp: the dedup marker is set once and never cleared while
//	the anomaly persists.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	values - Batch of evaluated values keyed by record key.
//
// Outputs:
//
//	error - ErrNotPersistent if the rule has no storage wiring, or a
//	  wrapped store error.
func (p *persistence) SaveValues(ctx context.Context, values map[string]Value) error {
	if p.store == nil {
		return ErrNotPersistent
	}

	obj, err := p.GetValueObject(ctx)
	if err != nil {
		return err
	}

	for key, incoming := range values {
		if existing, ok := obj.Values[key]; ok && incoming.AlertedAt == nil {
			incoming.AlertedAt = existing.AlertedAt
		}
		obj.Values[key] = incoming
	}

	// Only anomalous values are retained; the persisted blob stays small.
	for key, v := range obj.Values {
		if !v.Anomalous {
			delete(obj.Values, key)
		}
	}

	updated := p.now()
	obj.Updated = &updated

	encoded, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("encode rule state %q: %w", p.uniqueKey, err)
	}
	if err := p.store.Set(ctx, p.uniqueKey, string(encoded)); err != nil {
		return fmt.Errorf("write rule state %q: %w", p.uniqueKey, err)
	}
	return nil
}
