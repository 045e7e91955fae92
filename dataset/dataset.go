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
	"math"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
)

// Dataset is an ordered sequence of game records. It is never modified after
// loading: filtering and simulation return new datasets.
type Dataset struct {
	records []GameRecord
}

func NewDataset(records []GameRecord) *Dataset {
	return &Dataset{records: records}
}

func (d *Dataset) Count() int {
	return len(d.records)
}

// Records returns the underlying records. Callers must not modify them.
func (d *Dataset) Records() []GameRecord {
	return d.records
}

func (d *Dataset) Get(i int) GameRecord {
	return d.records[i]
}

// Find returns the first record named name in dataset order.
func (d *Dataset) Find(name string) (GameRecord, int, bool) {
	for i, record := range d.records {
		if record.Name == name {
			return record, i, true
		}
	}
	return GameRecord{}, -1, false
}

// Column returns the values of a numeric column. It returns nil for unknown columns.
func (d *Dataset) Column(name string) []float64 {
	if _, ok := (GameRecord{}).Number(name); !ok {
		return nil
	}
	return lo.Map(d.records, func(r GameRecord, _ int) float64 {
		v, _ := r.Number(name)
		return v
	})
}

// Values returns the values of a categorical column. It returns nil for unknown columns.
func (d *Dataset) Values(column string) []string {
	if _, ok := (GameRecord{}).Category(column); !ok {
		return nil
	}
	return lo.Map(d.records, func(r GameRecord, _ int) string {
		v, _ := r.Category(column)
		return v
	})
}

// Distinct returns the distinct values of a categorical column in ascending order.
func (d *Dataset) Distinct(column string) []string {
	values := mapset.NewThreadUnsafeSet(d.Values(column)...).ToSlice()
	sort.Strings(values)
	return values
}

// Years returns the distinct years in ascending order.
func (d *Dataset) Years() []int {
	years := lo.Uniq(lo.Map(d.records, func(r GameRecord, _ int) int {
		return r.Year
	}))
	sort.Ints(years)
	return years
}

// MissingCount returns the number of missing values in a column.
func (d *Dataset) MissingCount(column string) int {
	if _, ok := (GameRecord{}).Category(column); ok {
		return lo.Count(d.Values(column), "")
	}
	return lo.CountBy(d.Column(column), math.IsNaN)
}
