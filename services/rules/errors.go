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

import "errors"

// Sentinel errors for the rules package. All are configuration errors:
// fail fast, non-retryable.
var (
	// ErrMissingUniqueKey indicates a persisting rule was built without
	// a unique storage key.
	ErrMissingUniqueKey = errors.New("rule requires a unique storage key")

	// ErrNilStore indicates a persisting rule was built without a store.
	ErrNilStore = errors.New("rule requires a store")

	// ErrNotPersistent indicates a save or read on a rule that was built
	// for evaluation only.
	ErrNotPersistent = errors.New("rule was built without persistence")

	// ErrUnknownComparator indicates an unrecognized comparator name.
	ErrUnknownComparator = errors.New("unknown comparator")
)
