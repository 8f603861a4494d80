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
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBadgerBackend(t *testing.T) *BadgerBackend {
	t.Helper()
	backend, err := OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(DefaultBadgerConfig())
	assert.Error(t, err)
}

func TestBadgerSetGet(t *testing.T) {
	backend := newBadgerBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "rule_cost", "payload"))

	got, found, err := backend.Get(ctx, "rule_cost")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "payload", got)
}

func TestBadgerGetMissing(t *testing.T) {
	backend := newBadgerBackend(t)

	got, found, err := backend.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestBadgerSetOverwrites(t *testing.T) {
	backend := newBadgerBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k", "first"))
	require.NoError(t, backend.Set(ctx, "k", "second"))

	got, found, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", got)
}

func TestBadgerGetAll(t *testing.T) {
	backend := newBadgerBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "a", "1"))
	require.NoError(t, backend.Set(ctx, "b", "2"))
	require.NoError(t, backend.Set(ctx, "c", "3"))

	all, err := backend.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, all)
}

func TestBadgerRespectsCancelledContext(t *testing.T) {
	backend := newBadgerBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, backend.Set(ctx, "k", "v"))
	_, _, err := backend.Get(ctx, "k")
	assert.Error(t, err)
	_, err = backend.GetAll(ctx)
	assert.Error(t, err)
}

// TestBadgerPersistsAcrossReopen verifies disk mode survives a close
// and reopen cycle.
func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	cfg := BadgerConfig{Path: dir, SyncWrites: true}
	ctx := context.Background()

	backend, err := OpenBadger(cfg)
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, "sheet_version", "2.0.0"))
	require.NoError(t, backend.Close())

	backend, err = OpenBadger(cfg)
	require.NoError(t, err)
	defer backend.Close()

	got, found, err := backend.Get(ctx, "sheet_version")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2.0.0", got)
}
