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
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryMailer decorates a Mailer with exponential backoff.
//
// The dispatcher itself never retries; transient-delivery policy lives
// in this collaborator layer. Wrap the real mailer before handing it to
// the Dispatcher:
//
//	mailer := alerts.NewRetryMailer(&alerts.SMTPMailer{...}, 3)
type RetryMailer struct {
	inner      Mailer
	maxRetries uint64
}

// NewRetryMailer wraps inner with up to maxRetries retry attempts.
func NewRetryMailer(inner Mailer, maxRetries uint64) *RetryMailer {
	return &RetryMailer{inner: inner, maxRetries: maxRetries}
}

// Send delivers the message, retrying transient failures with
// exponential backoff. Context cancellation stops the retry loop.
func (m *RetryMailer) Send(ctx context.Context, msg Message) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackOff(), m.maxRetries),
		ctx,
	)
	return backoff.Retry(func() error {
		return m.inner.Send(ctx, msg)
	}, policy)
}

func newExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return b
}

var _ Mailer = (*RetryMailer)(nil)
