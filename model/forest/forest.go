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

package forest

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/vgsales/base"
	"github.com/gorse-io/vgsales/base/log"
	"github.com/gorse-io/vgsales/common/parallel"
	"github.com/gorse-io/vgsales/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// RandomForest averages regression trees, each grown on a bootstrap sample of the
// training rows with every feature considered at each split.
type RandomForest struct {
	model.BaseModel
	Trees []*Tree
	// Hyper-parameters
	nTrees          int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	// Fitted state
	nFeatures  int
	oobScore   float64
	importance []float64
}

func NewRandomForest(params model.Params) *RandomForest {
	forest := new(RandomForest)
	forest.SetParams(params)
	return forest
}

// SetParams sets hyper-parameters and clears the fitted trees.
func (forest *RandomForest) SetParams(params model.Params) {
	forest.BaseModel.SetParams(params)
	forest.nTrees = forest.Params.GetInt(model.NTrees, 100)
	forest.maxDepth = forest.Params.GetInt(model.MaxDepth, 0)
	forest.minSamplesSplit = forest.Params.GetInt(model.MinSamplesSplit, 2)
	forest.minSamplesLeaf = forest.Params.GetInt(model.MinSamplesLeaf, 1)
	forest.Clear()
}

func (forest *RandomForest) Clear() {
	forest.Trees = nil
	forest.nFeatures = 0
	forest.oobScore = math.NaN()
	forest.importance = nil
}

// Invalid returns true if the forest has not been fitted.
func (forest *RandomForest) Invalid() bool {
	return len(forest.Trees) == 0
}

func (forest *RandomForest) validate(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return errors.NotValidf("empty training set")
	}
	if len(x) != len(y) {
		return errors.NotValidf("%d rows with %d targets", len(x), len(y))
	}
	if forest.nTrees < 1 {
		return errors.NotValidf("%d trees", forest.nTrees)
	}
	if forest.minSamplesSplit < 2 || forest.minSamplesLeaf < 1 {
		return errors.NotValidf("min_samples_split %d with min_samples_leaf %d", forest.minSamplesSplit, forest.minSamplesLeaf)
	}
	nFeatures := len(x[0])
	if nFeatures == 0 {
		return errors.NotValidf("rows without features")
	}
	for i, row := range x {
		if len(row) != nFeatures {
			return errors.NotValidf("row %d with %d features", i, len(row))
		}
		if lo.ContainsBy(row, math.IsNaN) || math.IsNaN(y[i]) {
			return errors.NotValidf("NaN in row %d", i)
		}
	}
	return nil
}

// Fit grows the trees. Seeds of the trees are drawn before the trees are
// distributed to workers, so the fitted forest does not depend on config.Jobs.
func (forest *RandomForest) Fit(ctx context.Context, x [][]float64, y []float64, config *model.FitConfig) error {
	config = config.LoadDefaultIfNil()
	if err := forest.validate(x, y); err != nil {
		return errors.Trace(err)
	}
	forest.Clear()
	log.Logger().Info("fit random forest",
		zap.Int("n_rows", len(x)),
		zap.Int("n_features", len(x[0])),
		zap.Int("n_trees", forest.nTrees),
		zap.Int("n_jobs", config.Jobs))

	// reseed so that refitting gives the same forest
	forest.BaseModel.SetParams(forest.Params)
	seeds := forest.GetRandomGenerator().Seeds(forest.nTrees)
	trees := make([]*Tree, forest.nTrees)
	inBag := make([]*bitset.BitSet, forest.nTrees)
	treeConfig := treeConfig{
		maxDepth:        forest.maxDepth,
		minSamplesSplit: forest.minSamplesSplit,
		minSamplesLeaf:  forest.minSamplesLeaf,
	}
	if config.Tracker != nil {
		config.Tracker.Start(forest.nTrees)
		defer config.Tracker.Finish()
	}
	var (
		mu   sync.Mutex
		done int
	)
	err := parallel.Parallel(ctx, forest.nTrees, config.Jobs, func(_, i int) error {
		treeRng := base.NewRandomGenerator(seeds[i])
		samples := treeRng.Bootstrap(len(x))
		bag := bitset.New(uint(len(x)))
		for _, s := range samples {
			bag.Set(uint(s))
		}
		trees[i] = buildTree(x, y, samples, treeConfig)
		inBag[i] = bag

		mu.Lock()
		defer mu.Unlock()
		done++
		if config.Tracker != nil {
			config.Tracker.Update(done)
		}
		if config.Verbose > 0 && done%config.Verbose == 0 {
			log.Logger().Debug(fmt.Sprintf("fit random forest %v/%v", done, forest.nTrees))
		}
		return nil
	})
	if err != nil {
		return errors.Trace(err)
	}
	forest.Trees = trees
	forest.nFeatures = len(x[0])
	forest.importance = averageImportance(trees, forest.nFeatures)
	forest.oobScore = outOfBagScore(trees, inBag, x, y)
	log.Logger().Info("fit random forest complete", zap.Float64("oob_r2", forest.oobScore))
	return nil
}

// Predict returns the mean prediction of the trees.
func (forest *RandomForest) Predict(x []float64) float64 {
	if forest.Invalid() {
		log.Logger().Warn("predict with an unfitted random forest")
		return math.NaN()
	}
	var sum float64
	for _, tree := range forest.Trees {
		sum += tree.Predict(x)
	}
	return sum / float64(len(forest.Trees))
}

func (forest *RandomForest) BatchPredict(x [][]float64) []float64 {
	return lo.Map(x, func(row []float64, _ int) float64 {
		return forest.Predict(row)
	})
}

// OOBScore returns R^2 of out-of-bag predictions on the training rows. It is NaN
// before fitting or if fewer than two rows were left out of every tree's sample.
func (forest *RandomForest) OOBScore() float64 {
	return forest.oobScore
}

// FeatureImportance returns the normalized total impurity decrease per feature.
func (forest *RandomForest) FeatureImportance() []float64 {
	return forest.importance
}

func (forest *RandomForest) NFeatures() int {
	return forest.nFeatures
}

func averageImportance(trees []*Tree, nFeatures int) []float64 {
	importance := make([]float64, nFeatures)
	for _, tree := range trees {
		total := lo.Sum(tree.importance)
		if total <= 0 {
			continue
		}
		for f, v := range tree.importance {
			importance[f] += v / total
		}
	}
	if total := lo.Sum(importance); total > 0 {
		for f := range importance {
			importance[f] /= total
		}
	}
	return importance
}

func outOfBagScore(trees []*Tree, inBag []*bitset.BitSet, x [][]float64, y []float64) float64 {
	var predictions, targets []float64
	for j := range x {
		var sum float64
		var count int
		for i, tree := range trees {
			if !inBag[i].Test(uint(j)) {
				sum += tree.Predict(x[j])
				count++
			}
		}
		if count > 0 {
			predictions = append(predictions, sum/float64(count))
			targets = append(targets, y[j])
		}
	}
	if len(predictions) < 2 {
		return math.NaN()
	}
	return R2(targets, predictions)
}
