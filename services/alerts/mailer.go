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

// Package alerts turns accumulated anomaly state into notifications.
//
// The Dispatcher reads each rule's persisted values, collects the
// anomalies that have not been alerted yet, sends at most one message
// per dispatch call, and stamps the dedup marker so the same unresolved
// anomaly is not reported again.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
)

// Message is one outbound notification.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer sends notifications. Implementations must send exactly one
// message per call; retry policy belongs to a decorator, not the core.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through a plain SMTP endpoint.
type SMTPMailer struct {
	// Addr is the SMTP host:port.
	Addr string

	// From is the envelope sender.
	From string

	// Auth is optional SMTP authentication.
	Auth smtp.Auth
}

// Send delivers the message via SMTP.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(m.Addr, m.Auth, m.From, msg.To, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail via %s: %w", m.Addr, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
// Used by dry runs and as a safe default when no SMTP endpoint is
// configured.
type LogMailer struct {
	Logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

// Send records the message and logs it.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("alert (dry run)",
		slog.String("to", strings.Join(msg.To, ", ")),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return nil
}

// Sent returns a copy of all recorded messages.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
