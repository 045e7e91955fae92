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

package logics

import (
	"github.com/gorse-io/vgsales/base"
	"github.com/gorse-io/vgsales/dataset"
)

// SimulateLiveSales returns a copy of ds where each regional figure grows by a
// uniform increment in [0, maxIncrement) and global sales grow by the sum of the
// increments. The input dataset is left untouched.
func SimulateLiveSales(ds *dataset.Dataset, rng base.RandomGenerator, maxIncrement float64) *dataset.Dataset {
	records := make([]dataset.GameRecord, ds.Count())
	for i, record := range ds.Records() {
		increments := rng.UniformVector(len(dataset.Regions), 0, maxIncrement)
		record.NASales += increments[0]
		record.EUSales += increments[1]
		record.JPSales += increments[2]
		record.OtherSales += increments[3]
		record.GlobalSales += increments[0] + increments[1] + increments[2] + increments[3]
		records[i] = record
	}
	return dataset.NewDataset(records)
}
