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

package settings

import (
	"fmt"
	"io"
	"reflect"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads an ordered settings map from YAML.
//
// The document must be a mapping from entity id to record and must
// contain a "default" entry; each record is validated with its
// `validate` struct tags. YAML mapping order is preserved, which is why
// this decodes through yaml.Node rather than a plain map.
//
// Example document:
//
//	default:
//	  comparator: lessThanOrEqualTo
//	  threshold: 100
//	campaign-123:
//	  comparator: between
//	  min: 10
//	  max: 500
func Load[T any](r io.Reader) (*Map[T], error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, ErrMissingDefault
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse settings: document is not a mapping")
	}

	m := &Map[T]{entries: make(map[string]T)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		id := keyNode.Value

		var record T
		if err := valueNode.Decode(&record); err != nil {
			return nil, fmt.Errorf("decode settings for %q: %w", id, err)
		}
		if reflect.ValueOf(record).Kind() == reflect.Struct {
			if err := validate.Struct(record); err != nil {
				return nil, fmt.Errorf("%w: entry %q: %w", ErrInvalidRecord, id, err)
			}
		}
		m.Set(id, record)
	}

	if !m.Has(DefaultKey) {
		return nil, ErrMissingDefault
	}
	return m, nil
}
