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

// Package store provides the persistence layer shared by the rule engine
// and the migration runner.
//
// The layer has two parts:
//
//   - Backend: a thin adapter over an external, slow, quota-limited
//     key-value service. Values are strings only.
//   - Store: the compressing, caching front that all consumers use.
//
// The Store offers no transactional guarantees. Consumers are designed
// around that: migrations are idempotent and rule state is written as a
// full-replace of a small blob under a stable key.
package store

import (
	"context"
	"sync"
)

// Backend is the adapter interface over the external key-value service.
//
// Implementations must treat a missing key as (value "", found false,
// error nil); errors are reserved for service failures.
type Backend interface {
	// Get returns the raw stored value for key.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores the raw value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// GetAll returns every key and raw value the service holds.
	GetAll(ctx context.Context) (map[string]string, error)
}

// MemoryBackend is a map-backed Backend for tests and dry runs.
//
// Thread Safety: safe for concurrent use.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get returns the value for key, if present.
func (b *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (b *MemoryBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

// GetAll returns a copy of all stored values.
func (b *MemoryBackend) GetAll(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out, nil
}

var _ Backend = (*MemoryBackend)(nil)
