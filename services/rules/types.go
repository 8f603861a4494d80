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

// Package rules implements the threshold and pattern checks that decide
// whether a monitored metric is anomalous, and persists the anomalous
// results through the shared store.
//
// Two rule variants share one contract:
//
//   - AbsoluteRule: a stateless predicate over a single scalar, built
//     from a Condition (comparator + threshold).
//   - SeriesRule: a stateful predicate over an ordered 0/1 sequence,
//     flagging runs of consecutive zeros after a one has been seen.
//
// Only anomalous values are retained on save. A rule's persisted state
// never contains a non-anomalous entry; once an entity stops being
// anomalous its entry disappears on the next save.
package rules

import (
	"strconv"
	"strings"
	"time"
)

// Value represents one evaluated data point for one monitored entity.
type Value struct {
	// Value is the canonicalized string form of the evaluated input.
	// Numbers are stringified before comparison to avoid floating-point
	// surprises across storage round-trips.
	Value string `json:"value"`

	// Anomalous is the result of applying the rule's predicate.
	Anomalous bool `json:"anomalous"`

	// AlertedAt is set exactly once, by the alert dispatcher, and is
	// never cleared. It is the dedup marker that prevents the same
	// unresolved anomaly from being reported twice.
	AlertedAt *time.Time `json:"alertedAt,omitempty"`

	// Fields carries free-form identifying metadata (entity name,
	// campaign id) for rendering in alert messages.
	Fields map[string]string `json:"fields,omitempty"`

	// Internal carries rule-specific payload that round-trips through
	// storage without interpretation.
	Internal any `json:"internal,omitempty"`
}

// ValueObject is the persisted unit for one rule: a mapping from a
// caller-chosen per-record key (uniquely identifying the monitored
// entity, e.g. a placement ID) to its last-known Value.
type ValueObject struct {
	Values  map[string]Value `json:"values"`
	Updated *time.Time       `json:"updated,omitempty"`
}

// Comparator identifies the comparison family an AbsoluteRule applies.
//
// The comparator is a tagged variant carrying its threshold payload in
// Condition; evaluation is a single switch rather than a closure built
// at runtime.
type Comparator int

const (
	// Equal holds when value == threshold.
	Equal Comparator = iota

	// NotEqual holds when value != threshold.
	NotEqual

	// GreaterOrEqual holds when value >= threshold.
	GreaterOrEqual

	// Greater holds when value > threshold.
	Greater

	// LessOrEqual holds when value <= threshold.
	LessOrEqual

	// Less holds when value < threshold.
	Less

	// Between holds when min <= value <= max, inclusive on both ends.
	Between
)

// String returns the comparator name used in configuration files.
func (c Comparator) String() string {
	switch c {
	case Equal:
		return "equal"
	case NotEqual:
		return "notEqual"
	case GreaterOrEqual:
		return "greaterThanOrEqualTo"
	case Greater:
		return "greaterThan"
	case LessOrEqual:
		return "lessThanOrEqualTo"
	case Less:
		return "lessThan"
	case Between:
		return "between"
	default:
		return "unknown"
	}
}

// ParseComparator converts a configuration name to a Comparator.
func ParseComparator(name string) (Comparator, error) {
	switch name {
	case "equal":
		return Equal, nil
	case "notEqual":
		return NotEqual, nil
	case "greaterThanOrEqualTo":
		return GreaterOrEqual, nil
	case "greaterThan":
		return Greater, nil
	case "lessThanOrEqualTo":
		return LessOrEqual, nil
	case "lessThan":
		return Less, nil
	case "between":
		return Between, nil
	default:
		return 0, ErrUnknownComparator
	}
}

// Condition is a comparator with its threshold payload.
//
// Threshold is used by all scalar comparators; Min and Max are used by
// Between only.
type Condition struct {
	Comparator Comparator
	Threshold  float64
	Min        float64
	Max        float64
}

// InBounds reports whether value satisfies the condition.
//
// A value in bounds is not anomalous; a value out of bounds is.
func (c Condition) InBounds(value float64) bool {
	switch c.Comparator {
	case Equal:
		return value == c.Threshold
	case NotEqual:
		return value != c.Threshold
	case GreaterOrEqual:
		return value >= c.Threshold
	case Greater:
		return value > c.Threshold
	case LessOrEqual:
		return value <= c.Threshold
	case Less:
		return value < c.Threshold
	case Between:
		return value >= c.Min && value <= c.Max
	default:
		return false
	}
}

// canonical renders a number in minimal decimal form, so that "2" and
// "2.0" persist identically.
func canonical(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// canonicalSeries renders an ordered sequence as a comma-joined string.
func canonicalSeries(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = canonical(v)
	}
	return strings.Join(parts, ",")
}
