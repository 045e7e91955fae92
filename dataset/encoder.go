// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"fmt"
	"slices"
	"sort"

	"github.com/samber/lo"
)

// Category is a fitted class with its code and number of occurrences.
type Category struct {
	Code  int    `json:"code"`
	Class string `json:"class"`
	Count int    `json:"count"`
}

// LabelEncoder assigns codes 0..k-1 to the distinct values of a column in
// ascending lexical order, so codes do not depend on row order.
type LabelEncoder struct {
	codes      map[string]int
	categories []Category
}

func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{codes: map[string]int{}}
}

// Fit learns the classes of values and replaces any previous fit.
func (e *LabelEncoder) Fit(values []string) *LabelEncoder {
	counts := lo.CountValues(values)
	classes := lo.Keys(counts)
	sort.Strings(classes)
	e.codes = make(map[string]int, len(classes))
	e.categories = make([]Category, len(classes))
	for code, class := range classes {
		e.codes[class] = code
		e.categories[code] = Category{Code: code, Class: class, Count: counts[class]}
	}
	return e
}

// Transform returns the code of value. The second return value is false for
// values not seen by Fit.
func (e *LabelEncoder) Transform(value string) (int, bool) {
	code, ok := e.codes[value]
	return code, ok
}

// Classes returns the fitted classes ordered by code.
func (e *LabelEncoder) Classes() []string {
	return lo.Map(e.categories, func(c Category, _ int) string {
		return c.Class
	})
}

// Categories returns the fitted classes with their counts, ordered by code.
func (e *LabelEncoder) Categories() []Category {
	return slices.Clone(e.categories)
}

func (e *LabelEncoder) Count() int {
	return len(e.categories)
}

// EncodingTable holds one LabelEncoder per categorical column.
type EncodingTable struct {
	encoders map[string]*LabelEncoder
}

// NewEncodingTable fits encoders for every categorical column of ds.
func NewEncodingTable(ds *Dataset) *EncodingTable {
	table := &EncodingTable{encoders: make(map[string]*LabelEncoder, len(CategoricalColumns))}
	for _, column := range CategoricalColumns {
		table.encoders[column] = NewLabelEncoder().Fit(ds.Values(column))
	}
	return table
}

// Encode returns the code of value in column. It fails with ErrUnknownCategory
// if the value was not present when the table was built.
func (t *EncodingTable) Encode(column, value string) (int, error) {
	encoder, ok := t.encoders[column]
	if !ok {
		return 0, fmt.Errorf("%w: column %q is not categorical", ErrUnknownCategory, column)
	}
	code, ok := encoder.Transform(value)
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownCategory, column, value)
	}
	return code, nil
}

// Encoder returns the encoder of a column.
func (t *EncodingTable) Encoder(column string) (*LabelEncoder, bool) {
	encoder, ok := t.encoders[column]
	return encoder, ok
}

// Categories returns the fitted categories of every categorical column.
func (t *EncodingTable) Categories() map[string][]Category {
	return lo.MapValues(t.encoders, func(encoder *LabelEncoder, _ string) []Category {
		return encoder.Categories()
	})
}
