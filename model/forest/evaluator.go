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
	"math"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Predictor predicts a target from a feature row.
type Predictor interface {
	Predict(x []float64) float64
}

type Score struct {
	RMSE float64
	MAE  float64
	R2   float64
}

func (score Score) ZapFields() []zap.Field {
	return []zap.Field{
		zap.Float64("RMSE", score.RMSE),
		zap.Float64("MAE", score.MAE),
		zap.Float64("R2", score.R2),
	}
}

// Evaluate scores a regressor on a test set. An empty test set scores zero.
func Evaluate(estimator Predictor, x [][]float64, y []float64) Score {
	if len(x) == 0 {
		return Score{}
	}
	predictions := lo.Map(x, func(row []float64, _ int) float64 {
		return estimator.Predict(row)
	})
	n := float64(len(x))
	return Score{
		RMSE: floats.Distance(y, predictions, 2) / math.Sqrt(n),
		MAE:  floats.Distance(y, predictions, 1) / n,
		R2:   R2(y, predictions),
	}
}

// R2 returns the coefficient of determination. A constant target scores 1 when
// predicted exactly and 0 otherwise.
func R2(targets, predictions []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	if floats.Min(targets) == floats.Max(targets) {
		if floats.Equal(targets, predictions) {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(predictions, targets, nil)
}
