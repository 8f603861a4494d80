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

// Package settings holds per-entity configuration records with a
// distinguished default.
//
// A Map is an ordered mapping from an entity identifier (campaign id,
// placement id) to a typed settings record. The "default" entry supplies
// values for any identifier not otherwise present, so lookups never
// fail; they fall back.
package settings

import "slices"

// DefaultKey is the distinguished fallback entry's identifier.
const DefaultKey = "default"

// Map is an ordered mapping from entity id to a typed settings record.
//
// Not safe for concurrent mutation; build it once during startup and
// read from it afterwards.
type Map[T any] struct {
	keys    []string
	entries map[string]T
}

// NewMap creates a Map whose "default" entry is defaultRecord.
func NewMap[T any](defaultRecord T) *Map[T] {
	m := &Map[T]{entries: make(map[string]T)}
	m.Set(DefaultKey, defaultRecord)
	return m
}

// Set stores the record for id, preserving first-insertion order.
func (m *Map[T]) Set(id string, record T) {
	if _, ok := m.entries[id]; !ok {
		m.keys = append(m.keys, id)
	}
	m.entries[id] = record
}

// Get returns the record for id, falling back to the "default" entry
// when id has no explicit record. Get never fails.
func (m *Map[T]) Get(id string) T {
	if record, ok := m.entries[id]; ok {
		return record
	}
	return m.entries[DefaultKey]
}

// Has reports whether id has an explicit record (the default entry does
// not count as explicit for other ids).
func (m *Map[T]) Has(id string) bool {
	_, ok := m.entries[id]
	return ok
}

// Keys returns the entity ids in insertion order, "default" included.
func (m *Map[T]) Keys() []string {
	return slices.Clone(m.keys)
}

// Len returns the number of entries, the default included.
func (m *Map[T]) Len() int {
	return len(m.keys)
}
