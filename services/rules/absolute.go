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
	"log/slog"

	"github.com/google-marketing-solutions/margin-protection-sub003/services/store"
)

// AbsoluteConfig configures an AbsoluteRule.
type AbsoluteConfig struct {
	// Condition is the threshold predicate. Required.
	Condition Condition

	// UniqueKey is the storage key for persisted results. Required when
	// Store is set.
	UniqueKey string

	// Store enables persistence. A rule without a store can still
	// evaluate values; SaveValues and GetValues fail.
	Store *store.Store

	// Logger for recovery events. Defaults to slog.Default().
	Logger *slog.Logger
}

// AbsoluteRule is a stateless threshold predicate over a single scalar.
//
// The predicate is built once at construction from the comparator and
// threshold; a value out of bounds is anomalous.
type AbsoluteRule struct {
	persistence
	condition Condition
}

// NewAbsoluteRule creates an AbsoluteRule.
//
// The storage configuration is validated fail-fast: a unique key without
// a store, or a store without a unique key, is a configuration error
// reported here rather than at first save.
func NewAbsoluteRule(cfg AbsoluteConfig) (*AbsoluteRule, error) {
	p, err := newPersistence(cfg.UniqueKey, cfg.Store, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return &AbsoluteRule{persistence: p, condition: cfg.Condition}, nil
}

// CreateValue evaluates raw against the threshold and returns a Value.
//
// The raw number is canonicalized to its minimal string form before it
// is stored or compared across round-trips. CreateValue does not persist.
func (r *AbsoluteRule) CreateValue(raw float64, fields map[string]string) Value {
	anomalous := !r.condition.InBounds(raw)
	valuesEvaluatedTotal.WithLabelValues("absolute").Inc()
	if anomalous {
		anomaliesDetectedTotal.WithLabelValues("absolute").Inc()
	}
	return Value{
		Value:     canonical(raw),
		Anomalous: anomalous,
		Fields:    fields,
	}
}

// Condition returns the rule's threshold predicate.
func (r *AbsoluteRule) Condition() Condition {
	return r.condition
}

var _ Rule[float64] = (*AbsoluteRule)(nil)
