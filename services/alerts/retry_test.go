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

package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyMailer fails a fixed number of times before succeeding.
type flakyMailer struct {
	failures int
	attempts int
}

func (m *flakyMailer) Send(ctx context.Context, msg Message) error {
	m.attempts++
	if m.attempts <= m.failures {
		return errors.New("transient failure")
	}
	return nil
}

func TestRetryMailerRecoversFromTransientFailure(t *testing.T) {
	inner := &flakyMailer{failures: 2}
	mailer := NewRetryMailer(inner, 3)

	err := mailer.Send(context.Background(), Message{To: []string{"ops@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.attempts)
}

func TestRetryMailerGivesUp(t *testing.T) {
	inner := &flakyMailer{failures: 10}
	mailer := NewRetryMailer(inner, 2)

	err := mailer.Send(context.Background(), Message{To: []string{"ops@example.com"}})
	require.Error(t, err)
	assert.Equal(t, 3, inner.attempts) // initial attempt plus two retries
}

func TestRetryMailerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyMailer{failures: 10}
	mailer := NewRetryMailer(inner, 5)

	err := mailer.Send(ctx, Message{})
	require.Error(t, err)
	assert.LessOrEqual(t, inner.attempts, 1)
}
