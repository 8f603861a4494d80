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

// Command marginwatch monitors advertising-campaign report data and
// raises alerts when configured thresholds are violated.
//
// Each invocation runs the pending schema migrations first, then
// evaluates every configured monitor against the supplied report data,
// persists the anomalous results, and sends at most one alert for the
// anomalies that have not been reported yet.
//
// Usage:
//
//	marginwatch run --config config.yaml --report report.yaml
//	marginwatch migrate --config config.yaml
//	marginwatch version
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
