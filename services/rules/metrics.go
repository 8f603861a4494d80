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

package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	valuesEvaluatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marginwatch_rule_values_evaluated_total",
		Help: "Total values evaluated by rule variant",
	}, []string{"variant"})

	anomaliesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marginwatch_rule_anomalies_detected_total",
		Help: "Total anomalous values detected by rule variant",
	}, []string{"variant"})
)
