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
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/google-marketing-solutions/margin-protection-sub003/services/rules"
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var (
	alertsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marginwatch_alerts_sent_total",
		Help: "Total alert messages sent",
	})

	alertsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marginwatch_alerts_suppressed_total",
		Help: "Total dispatch calls that found no new anomalies",
	})

	anomaliesReportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marginwatch_anomalies_reported_total",
		Help: "Total anomalies included in sent alerts",
	})
)

// -----------------------------------------------------------------------------
// Dispatcher
// -----------------------------------------------------------------------------

// Options configures one dispatch call.
type Options struct {
	// To lists the recipients. Required.
	To []string

	// Subject is the message subject. Required.
	Subject string

	// Body overrides the synthesized message body. When empty, a line
	// is rendered per anomaly: "- {value} for {fields}".
	Body string
}

// Dispatcher consumes rule result sets and sends at most one
// notification per dispatch call.
type Dispatcher struct {
	mailer Mailer
	logger *slog.Logger
	now    func() time.Time
}

// NewDispatcher creates a Dispatcher over the given mailer.
func NewDispatcher(mailer Mailer, logger *slog.Logger) (*Dispatcher, error) {
	if mailer == nil {
		return nil, ErrNilMailer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{mailer: mailer, logger: logger, now: time.Now}, nil
}

// pending is one rule's unalerted anomalies, keyed by record key.
type pending struct {
	rule   rules.Reader
	values map[string]rules.Value
}

// SendAlert reads each rule's persisted state, collects anomalies not
// yet alerted, sends one message, and stamps the dedup markers.
//
// Description:
//
//	The collection is incremental: if after processing any rule the
//	accumulated anomaly count is still zero, the call returns without
//	sending (no message for an all-clear state). After a successful
//	send, every collected anomaly has AlertedAt set to the dispatch
//	time and is written back through the rule, so a second call in the
//	same invocation finds zero new anomalies and is a no-op. Calling
//	the dispatcher twice for the same rules must not double-mail; that
//	is required behavior, not an edge case.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	ruleSet - Rules whose persisted state supplies the anomalies.
//	opts - Recipients, subject, and optional body override.
//
// Outputs:
//
//	error - Non-nil if reading state, sending, or writing markers fails.
//	  A send failure leaves all markers unset, so the next invocation
//	  re-alerts.
func (d *Dispatcher) SendAlert(ctx context.Context, ruleSet []rules.Reader, opts Options) error {
	dispatchID := uuid.NewString()
	logger := d.logger.With(slog.String("dispatch_id", dispatchID))

	var collected []pending
	total := 0
	for _, rule := range ruleSet {
		obj, err := rule.GetValueObject(ctx)
		if err != nil {
			return fmt.Errorf("collect anomalies for %q: %w", rule.UniqueKey(), err)
		}
		fresh := make(map[string]rules.Value)
		for key, v := range obj.Values {
			if v.Anomalous && v.AlertedAt == nil {
				fresh[key] = v
			}
		}
		if len(fresh) > 0 {
			collected = append(collected, pending{rule: rule, values: fresh})
			total += len(fresh)
		}
		// Incremental short-circuit: an all-clear running total after
		// any rule means nothing to report.
		if total == 0 {
			alertsSuppressedTotal.Inc()
			logger.Debug("no unalerted anomalies, skipping dispatch",
				slog.String("rule", rule.UniqueKey()))
			return nil
		}
	}
	if total == 0 {
		// Empty rule set.
		alertsSuppressedTotal.Inc()
		return nil
	}

	body := opts.Body
	if body == "" {
		body = renderBody(collected)
	}

	msg := Message{To: opts.To, Subject: opts.Subject, Body: body}
	if err := d.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("dispatch alert: %w", err)
	}
	alertsSentTotal.Inc()
	anomaliesReportedTotal.Add(float64(total))
	logger.Info("alert sent",
		slog.Int("anomalies", total),
		slog.Int("rules", len(collected)),
	)

	// Stamp the dedup marker on everything we just reported. A failure
	// here means the next invocation may re-alert; that is the safe side
	// of at-most-once-per-anomaly.
	alertedAt := d.now()
	for _, p := range collected {
		stamped := make(map[string]rules.Value, len(p.values))
		for key, v := range p.values {
			v.AlertedAt = &alertedAt
			stamped[key] = v
		}
		if err := p.rule.SaveValues(ctx, stamped); err != nil {
			return fmt.Errorf("mark anomalies alerted for %q: %w", p.rule.UniqueKey(), err)
		}
	}
	return nil
}

// renderBody synthesizes the default message body, one line per anomaly.
func renderBody(collected []pending) string {
	var lines []string
	for _, p := range collected {
		keys := make([]string, 0, len(p.values))
		for key := range p.values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			v := p.values[key]
			lines = append(lines, fmt.Sprintf("- %s for %s", v.Value, renderFields(key, v.Fields)))
		}
	}
	return strings.Join(lines, "\n")
}

// renderFields renders identifying metadata as "k: v" pairs in key
// order, falling back to the record key when no fields were supplied.
func renderFields(recordKey string, fields map[string]string) string {
	if len(fields) == 0 {
		return recordKey
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %s", k, fields[k]))
	}
	return strings.Join(pairs, ", ")
}
