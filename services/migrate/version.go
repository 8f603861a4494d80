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

package migrate

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Kind distinguishes the two version schemes that coexist in persisted
// markers: the legacy dotted-numeric scheme ("2.1.4") and the newer
// date-based scheme ("20251020.0").
type Kind int

const (
	// KindLegacy is the dot-separated numeric scheme.
	KindLegacy Kind = iota

	// KindDateBased is the "YYYYMMDD.N" scheme, ordered as plain strings.
	KindDateBased
)

// Version is a statically tagged version string. Construct with
// LegacyVersion or DateVersion when the scheme is known, or with
// ParseVersion to infer it from shape (only appropriate for externally
// stored markers, whose scheme genuinely is unknown).
type Version struct {
	raw  string
	kind Kind
}

// LegacyVersion tags raw as a legacy dotted-numeric version.
func LegacyVersion(raw string) Version {
	return Version{raw: raw, kind: KindLegacy}
}

// DateVersion tags raw as a date-based version.
func DateVersion(raw string) Version {
	return Version{raw: raw, kind: KindDateBased}
}

// ParseVersion infers the scheme from the string's shape. Legacy
// versions are short dot-separated numeric components ("2.1.4");
// date-based versions lead with an eight-digit date ("20251020.0").
// Anything that is not purely dot-numeric is also date-based, since
// that scheme is ordered as plain strings. An empty string parses as
// legacy "0", the runner's initial marker.
func ParseVersion(raw string) Version {
	if raw == "" {
		return LegacyVersion("0")
	}
	parts := strings.Split(raw, ".")
	for _, part := range parts {
		if part == "" || !allDigits(part) {
			return DateVersion(raw)
		}
	}
	if len(parts[0]) >= 8 {
		return DateVersion(raw)
	}
	return LegacyVersion(raw)
}

// String returns the raw version string.
func (v Version) String() string {
	return v.raw
}

// Kind returns the version's scheme.
func (v Version) Kind() Kind {
	return v.kind
}

// components returns the number of dot-separated components.
func (v Version) components() int {
	return strings.Count(v.raw, ".") + 1
}

// Compare orders v against other: -1 if v < other, 0 if equal, 1 if
// v > other.
//
// Comparison is within-kind only. Legacy versions compare numerically
// component by component (standard semantic-version ordering, which
// stays correct for components >= 10). Date-based versions compare as
// plain strings, which equals chronological ordering for "YYYYMMDD.N".
// Across kinds, date-based sorts after legacy: the date scheme
// superseded the legacy scheme, so any date marker is newer than any
// legacy one.
func (v Version) Compare(other Version) int {
	if v.kind != other.kind {
		if v.kind == KindDateBased {
			return 1
		}
		return -1
	}
	if v.kind == KindDateBased {
		return strings.Compare(v.raw, other.raw)
	}
	return semver.Compare("v"+v.raw, "v"+other.raw)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
