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

import "errors"

// Sentinel errors for the store package.
var (
	// ErrNilBackend indicates a Store was constructed without a backend.
	ErrNilBackend = errors.New("backend must not be nil")

	// ErrBackendClosed indicates an operation on a closed backend.
	ErrBackendClosed = errors.New("backend is closed")
)
