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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLongestFalseRunAfterTrue validates the scan against hand-built
// sequences, including the trailing-run case that is easy to get
// subtly wrong.
func TestLongestFalseRunAfterTrue(t *testing.T) {
	tests := []struct {
		name string
		seq  []float64
		want int
	}{
		{"empty", nil, 0},
		{"all zeros", []float64{0, 0, 0, 0}, 0},
		{"all ones", []float64{1, 1, 1}, 0},
		{"leading zeros ignored", []float64{0, 0, 1, 0}, 1},
		{"run between ones", []float64{1, 0, 0, 0, 1}, 3},
		{"trailing run counts", []float64{1, 0, 0}, 2},
		{"trailing beats sealed", []float64{1, 0, 1, 0, 0, 0}, 3},
		{"sealed beats trailing", []float64{1, 0, 0, 0, 0, 1, 0}, 4},
		{"counter resets on one", []float64{1, 0, 0, 1, 0, 0, 1}, 2},
		{"single one", []float64{1}, 0},
		{"single zero", []float64{0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, longestFalseRunAfterTrue(tt.seq))
		})
	}
}

// TestSeriesRuleThreshold verifies anomaly detection exactly above the
// configured run threshold.
func TestSeriesRuleThreshold(t *testing.T) {
	rule, err := NewSeriesRule(SeriesConfig{MaxFalseRun: 2})
	require.NoError(t, err)

	tests := []struct {
		name      string
		seq       []float64
		anomalous bool
	}{
		{"all zeros never anomalous", []float64{0, 0, 0, 0, 0}, false},
		{"all ones never anomalous", []float64{1, 1, 1, 1}, false},
		{"run at threshold", []float64{1, 0, 0, 1}, false},
		{"run over threshold", []float64{1, 0, 0, 0, 1}, true},
		{"trailing run over threshold", []float64{1, 1, 0, 0, 0}, true},
		{"leading zeros do not count", []float64{0, 0, 0, 0, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := rule.CreateValue(tt.seq, nil)
			assert.Equal(t, tt.anomalous, v.Anomalous)
		})
	}
}

// TestSeriesValueString verifies the stored form is the comma-joined
// canonical sequence.
func TestSeriesValueString(t *testing.T) {
	rule, err := NewSeriesRule(SeriesConfig{MaxFalseRun: 1})
	require.NoError(t, err)

	v := rule.CreateValue([]float64{1, 0, 0.5}, nil)
	assert.Equal(t, "1,0,0.5", v.Value)
}
