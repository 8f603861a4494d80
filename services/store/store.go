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

package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	gocache "github.com/patrickmn/go-cache"
)

// Store is the compressing, caching front over a Backend.
//
// Every value written through Set is gzip-compressed and base64-encoded
// before it reaches the backend, and mirrored into a process-local cache
// so repeated reads within one invocation avoid the external round trip.
//
// Reads tolerate values that were never compressed: if a stored value
// does not decode as base64+gzip it is passed through unchanged. This is
// required because migrations may leave mixed compressed and plain values
// behind.
//
// The cache is scoped to one invocation's lifetime. It is never
// proactively invalidated except through ResetCache; staleness across
// separate invocations is expected, since each invocation constructs a
// fresh Store.
type Store struct {
	backend Backend
	cache   *gocache.Cache
	level   int
}

// Option configures a Store.
type Option func(*Store)

// WithCompressionLevel sets the gzip compression level (1-9).
// Default: gzip.DefaultCompression.
func WithCompressionLevel(level int) Option {
	return func(s *Store) {
		s.level = level
	}
}

// New creates a Store over the given backend.
//
// Description:
//
//	Wraps the backend with the compression codec and an empty
//	process-local cache. Construct once per invocation and pass by
//	reference to all consumers.
//
// Inputs:
//
//	backend - The external key-value adapter. Must not be nil.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Store - The ready store.
//	error - ErrNilBackend if backend is nil.
func New(backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	s := &Store{
		backend: backend,
		cache:   gocache.New(gocache.NoExpiration, 0),
		level:   gzip.DefaultCompression,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Set compresses value and stores it under key.
//
// The plain value is mirrored into the cache on success, so a Get in
// the same invocation never re-reads the backend.
func (s *Store) Set(ctx context.Context, key, value string) error {
	encoded, err := s.encode(value)
	if err != nil {
		return fmt.Errorf("encode value for %q: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, encoded); err != nil {
		return err
	}
	s.cache.Set(key, value, gocache.NoExpiration)
	return nil
}

// Get returns the decompressed value stored under key.
//
// The cache is consulted first; on a miss the backend value is decoded,
// cached, and returned. A missing key yields found=false and a nil error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), true, nil
	}

	raw, found, err := s.backend.Get(ctx, key)
	if err != nil || !found {
		return "", found, err
	}

	value := decode(raw)
	s.cache.Set(key, value, gocache.NoExpiration)
	return value, true, nil
}

// GetAll returns every stored key with its decompressed value.
//
// All returned entries are mirrored into the cache.
func (s *Store) GetAll(ctx context.Context) (map[string]string, error) {
	raw, err := s.backend.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for key, rawValue := range raw {
		value := decode(rawValue)
		out[key] = value
		s.cache.Set(key, value, gocache.NoExpiration)
	}
	return out, nil
}

// ResetCache drops every cached entry.
//
// Test hook; production code relies on the cache living exactly as long
// as the invocation.
func (s *Store) ResetCache() {
	s.cache.Flush()
}

// encode gzips and base64-encodes a plain value.
func (s *Store) encode(value string) (string, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, s.level)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write([]byte(value)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decode reverses encode, falling back to the raw string on any failure.
//
// The fallback is deliberate: stored content that predates compression,
// or that a migration rewrote in plain form, must read back unchanged.
func decode(raw string) string {
	compressed, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return raw
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return raw
	}
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return raw
	}
	return string(plain)
}
