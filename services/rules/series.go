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

// SeriesConfig configures a SeriesRule.
type SeriesConfig struct {
	// MaxFalseRun is the longest tolerated run of consecutive zeros
	// after a one has been seen. A longer run is anomalous.
	MaxFalseRun int

	// UniqueKey is the storage key for persisted results. Required when
	// Store is set.
	UniqueKey string

	// Store enables persistence. A rule without a store can still
	// evaluate values; SaveValues and GetValues fail.
	Store *store.Store

	// Logger for recovery events. Defaults to slog.Default().
	Logger *slog.Logger
}

// SeriesRule is a stateful predicate over an ordered 0/1 sequence, used
// when anomalies depend on history rather than a single reading.
//
// The canonical check is "never true after N false": the sequence is
// anomalous iff the longest run of consecutive zeros occurring strictly
// after any one exceeds MaxFalseRun. A sequence with no one at all, or
// consisting only of ones, is never anomalous; leading zeros before the
// first one do not count.
type SeriesRule struct {
	persistence
	maxFalseRun int
}

// NewSeriesRule creates a SeriesRule.
//
// Storage configuration is validated fail-fast, as for NewAbsoluteRule.
func NewSeriesRule(cfg SeriesConfig) (*SeriesRule, error) {
	p, err := newPersistence(cfg.UniqueKey, cfg.Store, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return &SeriesRule{persistence: p, maxFalseRun: cfg.MaxFalseRun}, nil
}

// CreateValue evaluates the sequence and returns a Value.
//
// The stored value string is the comma-joined canonical sequence.
// CreateValue does not persist.
func (r *SeriesRule) CreateValue(raw []float64, fields map[string]string) Value {
	anomalous := longestFalseRunAfterTrue(raw) > r.maxFalseRun
	valuesEvaluatedTotal.WithLabelValues("series").Inc()
	if anomalous {
		anomaliesDetectedTotal.WithLabelValues("series").Inc()
	}
	return Value{
		Value:     canonicalSeries(raw),
		Anomalous: anomalous,
		Fields:    fields,
	}
}

// MaxFalseRun returns the configured run threshold.
func (r *SeriesRule) MaxFalseRun() int {
	return r.maxFalseRun
}

// longestFalseRunAfterTrue scans the sequence left to right and returns
// the longest run of consecutive zeros occurring strictly after the
// first nonzero element.
//
// Two running values are kept: the current consecutive-zero run, and the
// best run sealed each time a one resets the counter. The trailing run
// after the last one has not been sealed yet and still counts, so the
// final answer is the max of both.
func longestFalseRunAfterTrue(seq []float64) int {
	seenTrue := false
	current := 0
	best := 0
	for _, v := range seq {
		if v != 0 {
			if current > best {
				best = current
			}
			current = 0
			seenTrue = true
			continue
		}
		if seenTrue {
			current++
		}
	}
	if current > best {
		best = current
	}
	return best
}

var _ Rule[[]float64] = (*SeriesRule)(nil)
