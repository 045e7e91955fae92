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
	"fmt"
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/vgsales/base"
	"github.com/gorse-io/vgsales/dataset"
	"github.com/juju/errors"
)

// FeatureNames lists model inputs in column order. Global sales is both an input
// and the target.
var FeatureNames = []string{
	dataset.ColumnPlatform,
	dataset.ColumnGenre,
	dataset.ColumnPublisher,
	dataset.ColumnNASales,
	dataset.ColumnEUSales,
	dataset.ColumnJPSales,
	dataset.ColumnOtherSales,
	dataset.ColumnGlobalSales,
}

// EncodeFeatures converts a record into a model input row.
func EncodeFeatures(table *dataset.EncodingTable, record dataset.GameRecord) ([]float64, error) {
	features := make([]float64, 0, len(FeatureNames))
	for _, column := range dataset.CategoricalColumns {
		value, _ := record.Category(column)
		code, err := table.Encode(column, value)
		if err != nil {
			return nil, errors.Trace(err)
		}
		features = append(features, float64(code))
	}
	for _, column := range FeatureNames[len(dataset.CategoricalColumns):] {
		value, _ := record.Number(column)
		if math.IsNaN(value) {
			return nil, fmt.Errorf("%w: %s of %q", ErrMissingFeature, column, record.Name)
		}
		features = append(features, value)
	}
	return features, nil
}

// TrainingSet is the encoded feature matrix of a dataset.
type TrainingSet struct {
	X [][]float64
	Y []float64
	// Skipped counts records left out because of missing features.
	Skipped int
}

// NewTrainingSet encodes every complete record of ds.
func NewTrainingSet(table *dataset.EncodingTable, ds *dataset.Dataset) (*TrainingSet, error) {
	ts := &TrainingSet{}
	for _, record := range ds.Records() {
		features, err := EncodeFeatures(table, record)
		if errors.Is(err, ErrMissingFeature) {
			ts.Skipped++
			continue
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		ts.X = append(ts.X, features)
		ts.Y = append(ts.Y, record.GlobalSales)
	}
	return ts, nil
}

func (ts *TrainingSet) Count() int {
	return len(ts.X)
}

// Split holds out ceil(testSize * n) rows chosen by a seeded generator and keeps at
// least one row for training. Rows keep their relative order in both parts.
func (ts *TrainingSet) Split(testSize float64, seed int64) (train, test *TrainingSet) {
	n := ts.Count()
	numTest := int(math.Ceil(testSize * float64(n)))
	if numTest >= n {
		numTest = n - 1
	}
	if numTest < 0 {
		numTest = 0
	}
	rng := base.NewRandomGenerator(seed)
	testIndex := mapset.NewSet(rng.Sample(0, n, numTest)...)
	train, test = &TrainingSet{}, &TrainingSet{}
	for i := 0; i < n; i++ {
		part := train
		if testIndex.Contains(i) {
			part = test
		}
		part.X = append(part.X, ts.X[i])
		part.Y = append(part.Y, ts.Y[i])
	}
	return train, test
}
