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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilBackend)
}

func TestSetGetRoundTrip(t *testing.T) {
	backend := NewMemoryBackend()
	st, err := New(backend)
	require.NoError(t, err)
	ctx := context.Background()

	value := strings.Repeat(`{"values":{"a":{"value":"1.5"}}}`, 50)
	require.NoError(t, st.Set(ctx, "rule_cost", value))

	got, found, err := st.Get(ctx, "rule_cost")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, value, got)

	// The backend holds the encoded form, not the plain value.
	raw, found, err := backend.Get(ctx, "rule_cost")
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEqual(t, value, raw)
	assert.Less(t, len(raw), len(value))
}

func TestGetMissingKey(t *testing.T) {
	st, err := New(NewMemoryBackend())
	require.NoError(t, err)

	got, found, err := st.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

// TestGetPlainFallback verifies values written without the codec read
// back unchanged.
func TestGetPlainFallback(t *testing.T) {
	backend := NewMemoryBackend()
	st, err := New(backend)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "sheet_version", "1.2.0"))

	got, found, err := st.Get(ctx, "sheet_version")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1.2.0", got)
}

// TestGetServesCachedValue verifies a read in the same invocation does
// not see a backend mutation made behind the store's back.
func TestGetServesCachedValue(t *testing.T) {
	backend := NewMemoryBackend()
	st, err := New(backend)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", "first"))
	require.NoError(t, backend.Set(ctx, "k", "second"))

	got, found, err := st.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", got)

	st.ResetCache()
	got, found, err = st.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", got)
}

func TestGetAllDecodesEverything(t *testing.T) {
	backend := NewMemoryBackend()
	st, err := New(backend)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "rule_cost", `{"values":{}}`))
	require.NoError(t, backend.Set(ctx, "sheet_version", "2.0.0"))

	all, err := st.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"rule_cost":     `{"values":{}}`,
		"sheet_version": "2.0.0",
	}, all)
}

func TestSetEmptyValue(t *testing.T) {
	st, err := New(NewMemoryBackend())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "blanked", ""))
	st.ResetCache()

	got, found, err := st.Get(ctx, "blanked")
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, got)
}

func TestWithCompressionLevel(t *testing.T) {
	st, err := New(NewMemoryBackend(), WithCompressionLevel(1))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", "value"))
	st.ResetCache()

	got, found, err := st.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "value", got)
}
